package webhook

import (
	"net/http"
	"strings"
)

// AppURLDiscoverer learns the public base URL from requests the platform signed.
type AppURLDiscoverer interface {
	Discover(baseURL string) bool
	AppURL() string
}

// requestBaseURL derives scheme://host from the request as the proxy saw it.
func requestBaseURL(r *http.Request) string {
	if r.Host == "" {
		return ""
	}
	proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	proto = strings.TrimSpace(proto)
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}
	return proto + "://" + r.Host
}

func (h *Handler) discoverAppURL(r *http.Request) {
	if h.appURL == nil {
		return
	}
	if h.appURL.Discover(requestBaseURL(r)) {
		h.logger.WithField("app_url", h.appURL.AppURL()).Info("App URL discovered")
	}
}
