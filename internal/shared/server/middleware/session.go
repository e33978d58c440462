package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionCookieName is the cookie carrying the browser session id.
	SessionCookieName = "rm_session"

	sessionIDKey = "sessionId"
)

// SessionOptions configures the session cookie.
type SessionOptions struct {
	TTL    time.Duration
	Secure bool
}

// Session makes sure every request carries a session id. Unknown or malformed
// cookies are replaced with a fresh id.
func Session(opts SessionOptions) gin.HandlerFunc {
	maxAge := int(opts.TTL / time.Second)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		id := ""
		if cookie, err := c.Cookie(SessionCookieName); err == nil {
			id = normalizeSessionID(cookie)
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(sessionIDKey, id)
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     SessionCookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   maxAge,
			HttpOnly: true,
			Secure:   opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
		c.Next()
	}
}

// SessionIDFromContext fetches the session id set by the Session middleware.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(sessionIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

func normalizeSessionID(raw string) string {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return parsed.String()
}
