package app

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// basicAuthCredentials guards an endpoint with HTTP Basic Auth.
type basicAuthCredentials struct {
	Realm    string
	Username string
	Password string
}

func (b basicAuthCredentials) match(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(b.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(b.Password)) == 1
	return userOK && passOK
}

// basicAuthMiddleware rejects requests without matching credentials.
// A nil creds disables the check.
func basicAuthMiddleware(creds *basicAuthCredentials) gin.HandlerFunc {
	return func(c *gin.Context) {
		if creds == nil {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok || !creds.match(user, pass) {
			c.Header("WWW-Authenticate", `Basic realm="`+creds.Realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// metricsCredentials returns the /metrics credentials, or nil when auth is off.
func metricsCredentials(enabled bool, username, password string) *basicAuthCredentials {
	if !enabled {
		return nil
	}
	return &basicAuthCredentials{Realm: "metrics", Username: username, Password: password}
}
