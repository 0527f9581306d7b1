// Package igapi holds the Instagram Messaging wire types (webhook payloads
// and Send API bodies), webhook signature validation, and a Graph API client.
package igapi

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // The platform signs webhooks with HMAC-SHA1.
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"net/http"
	"strings"

	domerrors "github.com/originalcoast/igbot/internal/errors"
)

// Webhook signature headers. SHA-256 is preferred when both are present.
const (
	SignatureHeader       = "X-Hub-Signature"
	SignatureSHA256Header = "X-Hub-Signature-256"
)

// Webhook object values.
const (
	ObjectInstagram = "instagram"
	ObjectPage      = "page"
)

// ChangeFieldComments marks an entry change carrying a new comment.
const ChangeFieldComments = "comments"

// Envelope is the top-level webhook body.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups events for one account. Comment notifications arrive in
// Changes; direct-message activity arrives in Messaging.
type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Changes   []Change    `json:"changes,omitempty"`
	Messaging []Messaging `json:"messaging,omitempty"`
}

// Change is a field-level notification such as a new comment.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue is the comment that triggered a change.
type ChangeValue struct {
	ID   string   `json:"id"`
	Text string   `json:"text,omitempty"`
	From *Account `json:"from,omitempty"`
}

// Account identifies a sender or recipient.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// Messaging is one raw messaging event. At most one of Message, Postback
// and Referral is normally set.
type Messaging struct {
	Sender    Account         `json:"sender"`
	Recipient Account         `json:"recipient"`
	Timestamp int64           `json:"timestamp"`
	Message   *InboundMessage `json:"message,omitempty"`
	Postback  *Postback       `json:"postback,omitempty"`
	Referral  *Referral       `json:"referral,omitempty"`
}

// InboundMessage is a message sent by the user (or echoed back to us).
type InboundMessage struct {
	MID         string              `json:"mid"`
	Text        string              `json:"text,omitempty"`
	IsEcho      bool                `json:"is_echo,omitempty"`
	QuickReply  *QuickReplyPayload  `json:"quick_reply,omitempty"`
	Attachments []InboundAttachment `json:"attachments,omitempty"`
}

// QuickReplyPayload is the payload of a tapped quick reply.
type QuickReplyPayload struct {
	Payload string `json:"payload"`
}

// InboundAttachment is media the user sent.
type InboundAttachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url,omitempty"`
	} `json:"payload"`
}

// Postback is a tapped button, icebreaker, or menu item.
type Postback struct {
	MID      string    `json:"mid,omitempty"`
	Title    string    `json:"title,omitempty"`
	Payload  string    `json:"payload"`
	Referral *Referral `json:"referral,omitempty"`
}

// Referral describes how the user entered the conversation.
type Referral struct {
	Ref    string `json:"ref"`
	Source string `json:"source,omitempty"`
	Type   string `json:"type,omitempty"`
}

// ReferralOpenThread is the referral type whose ref replaces a postback payload.
const ReferralOpenThread = "OPEN_THREAD"

// Sign returns the X-Hub-Signature value for body. Exposed for tests and tools.
func Sign(appSecret string, body []byte) string {
	return "sha1=" + hexMAC(sha1.New, appSecret, body)
}

// SignSHA256 returns the X-Hub-Signature-256 value for body.
func SignSHA256(appSecret string, body []byte) string {
	return "sha256=" + hexMAC(sha256.New, appSecret, body)
}

func hexMAC(h func() hash.Hash, secret string, body []byte) string {
	mac := hmac.New(h, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateSignature checks body against the signature headers. A missing
// or mismatched signature returns an error wrapping ErrInvalidSignature.
func ValidateSignature(appSecret string, header http.Header, body []byte) error {
	if sig := header.Get(SignatureSHA256Header); sig != "" {
		return compareSignature(sig, "sha256", hexMAC(sha256.New, appSecret, body))
	}
	if sig := header.Get(SignatureHeader); sig != "" {
		return compareSignature(sig, "sha1", hexMAC(sha1.New, appSecret, body))
	}
	return fmt.Errorf("%w: %w", domerrors.ErrInvalidSignature, domerrors.ErrMissingSignature)
}

func compareSignature(header, algo, expected string) error {
	method, got, ok := strings.Cut(header, "=")
	if !ok || method != algo {
		return fmt.Errorf("%w: unexpected format %q", domerrors.ErrInvalidSignature, method)
	}
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(expected)) {
		return domerrors.ErrInvalidSignature
	}
	return nil
}

// ParseEnvelope validates the signature and decodes body.
func ParseEnvelope(appSecret string, header http.Header, body []byte) (*Envelope, error) {
	if err := ValidateSignature(appSecret, header, body); err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}
	return &env, nil
}
