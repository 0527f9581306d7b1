package config

import (
	"strings"
	"sync/atomic"
)

// AppURL holds the public base URL of the service. A URL configured through
// APP_URL is fixed; otherwise it is discovered from signed webhook requests.
type AppURL struct {
	v          atomic.Pointer[string]
	configured bool
}

// NewAppURL creates a holder. A non-empty configured value disables discovery.
func NewAppURL(configured string) *AppURL {
	u := &AppURL{}
	if configured = strings.TrimRight(configured, "/"); configured != "" {
		u.v.Store(&configured)
		u.configured = true
	}
	return u
}

// AppURL returns the current base URL without a trailing slash.
func (u *AppURL) AppURL() string {
	if p := u.v.Load(); p != nil {
		return *p
	}
	return ""
}

// Discover stores url unless APP_URL was configured, and reports whether the
// stored value changed.
func (u *AppURL) Discover(url string) bool {
	url = strings.TrimRight(url, "/")
	if u.configured || url == "" {
		return false
	}
	old := u.v.Swap(&url)
	return old == nil || *old != url
}
