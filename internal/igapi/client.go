package igapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domerrors "github.com/originalcoast/igbot/internal/errors"
	"github.com/originalcoast/igbot/internal/logger"
	"github.com/originalcoast/igbot/internal/metrics"
	"github.com/originalcoast/igbot/internal/stringutil"
	"github.com/sony/gobreaker/v2"
)

// Endpoint labels used for metrics and errors.
const (
	EndpointSendMessage   = "send_message"
	EndpointPrivateReply  = "private_reply"
	EndpointProfile       = "user_profile"
	EndpointMessengerProf = "messenger_profile"
	EndpointSubscriptions = "subscribed_apps"
)

const (
	breakerName     = "graph_api"
	platformIG      = "instagram"
	maxErrorBodyLen = 512
)

// ClientConfig holds configuration for creating a new Client.
type ClientConfig struct {
	BaseURL     string // e.g. https://graph.facebook.com/v13.0
	AccessToken string
	PageID      string
	Timeout     time.Duration
	HTTPClient  *http.Client // Optional; overrides Timeout
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
}

// Client calls the Graph API. Every call goes through one circuit breaker
// and is attempted exactly once.
type Client struct {
	baseURL     string
	accessToken string
	pageID      string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

// NewClient creates a Graph API client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.New("info")
	}

	c := &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		pageID:      cfg.PageID,
		httpClient:  httpClient,
		metrics:     cfg.Metrics,
		logger:      log.WithModule("graph"),
	}
	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.WithField("breaker", name).
				WithField("from", from.String()).
				WithField("to", to.String()).
				Warn("Circuit breaker state changed")
			c.metrics.SetCircuitBreakerState(name, float64(to))
		},
	})
	c.metrics.SetCircuitBreakerState(breakerName, float64(gobreaker.StateClosed))
	return c
}

// BreakerState reports the circuit breaker state, for readiness checks.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// SendMessage posts msg to the user identified by recipientID.
func (c *Client) SendMessage(ctx context.Context, recipientID string, msg Message) error {
	if recipientID == "" {
		return fmt.Errorf("%w: empty recipient id", domerrors.ErrInvalidInput)
	}
	body := SendRequest{Recipient: Recipient{ID: recipientID}, Message: msg}
	return c.do(ctx, EndpointSendMessage, http.MethodPost, "me/messages", nil, body, nil)
}

// SendPrivateReply answers a public comment with a direct message.
func (c *Client) SendPrivateReply(ctx context.Context, commentID string, msg Message) error {
	if commentID == "" {
		return fmt.Errorf("%w: empty comment id", domerrors.ErrInvalidInput)
	}
	body := SendRequest{Recipient: Recipient{CommentID: commentID}, Message: msg, Tag: TagHumanAgent}
	return c.do(ctx, EndpointPrivateReply, http.MethodPost, "me/messages", nil, body, nil)
}

// GetUserProfile fetches the display name and picture of igsid.
// Any failure, including an empty body, is returned as an error wrapping
// ErrProfileUnavailable.
func (c *Client) GetUserProfile(ctx context.Context, igsid string) (*Profile, error) {
	var profile Profile
	query := url.Values{"fields": {"name,profile_pic"}}
	if err := c.do(ctx, EndpointProfile, http.MethodGet, url.PathEscape(igsid), query, nil, &profile); err != nil {
		return nil, fmt.Errorf("%w: %w", domerrors.ErrProfileUnavailable, err)
	}
	return &profile, nil
}

// SetIcebreakers replaces the conversation starters.
func (c *Client) SetIcebreakers(ctx context.Context, iceBreakers []IceBreaker) error {
	body := map[string]any{"platform": platformIG, "ice_breakers": iceBreakers}
	return c.do(ctx, EndpointMessengerProf, http.MethodPost, "me/messenger_profile", nil, body, nil)
}

// SetPersistentMenu replaces the persistent menu.
func (c *Client) SetPersistentMenu(ctx context.Context, menus []PersistentMenu) error {
	body := map[string]any{"platform": platformIG, "persistent_menu": menus}
	return c.do(ctx, EndpointMessengerProf, http.MethodPost, "me/messenger_profile", nil, body, nil)
}

// SetPageSubscriptions subscribes the app to the page's feed webhooks.
func (c *Client) SetPageSubscriptions(ctx context.Context) error {
	if c.pageID == "" {
		return domerrors.NewValidationError("page_id", "required for page subscriptions")
	}
	query := url.Values{"subscribed_fields": {"feed"}}
	return c.do(ctx, EndpointSubscriptions, http.MethodPost, url.PathEscape(c.pageID)+"/subscribed_apps", query, nil, nil)
}

// do performs one Graph API call. body is JSON-encoded when non-nil and
// out is decoded from a 2xx response when non-nil.
func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	err := c.call(ctx, endpoint, method, path, query, body, out)

	status := "success"
	switch {
	case errors.Is(err, domerrors.ErrCircuitOpen):
		status = "circuit_open"
	case err != nil:
		status = "error"
	}
	c.metrics.RecordGraphRequest(endpoint, status, time.Since(start).Seconds())
	if err != nil {
		c.logger.WithError(err).WithField("endpoint", endpoint).DebugContext(ctx, "Graph API call failed")
	}
	return err
}

func (c *Client) call(ctx context.Context, endpoint, method, path string, query url.Values, body, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", c.accessToken)
	target := fmt.Sprintf("%s/%s?%s", c.baseURL, path, query.Encode())

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s body: %w", endpoint, err)
		}
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		r, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		// Only platform-side failures count against the breaker.
		if status := domerrors.NewAPIError(endpoint, r.StatusCode, ""); status.IsServerError() {
			return r, status
		}
		return r, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", domerrors.ErrCircuitOpen, err)
	}
	if resp == nil {
		return fmt.Errorf("%s request: %w", endpoint, redactURL(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen*2))
		return domerrors.NewAPIError(endpoint, resp.StatusCode, stringutil.Truncate(strings.TrimSpace(string(raw)), maxErrorBodyLen))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// redactURL strips the query, which carries the access token, from
// transport errors before they reach logs.
func redactURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if u, perr := url.Parse(uerr.URL); perr == nil {
			u.RawQuery = ""
			uerr.URL = u.String()
		}
	}
	return err
}
