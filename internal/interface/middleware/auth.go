package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/voltauth/volt/pkg/response"
)

// BasicAuth authenticates requests against the configured application keys
// (name→secret). Secrets are compared in constant time. On success the key
// name is stored in the context as "principal".
func BasicAuth(keys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		name, secret, ok := c.Request.BasicAuth()
		if !ok {
			unauthorized(c, "missing credentials")
			return
		}
		expected, found := keys[name]
		if !found || subtle.ConstantTimeCompare([]byte(expected), []byte(secret)) != 1 {
			unauthorized(c, "invalid credentials")
			return
		}
		c.Set("principal", name)
		c.Next()
	}
}

// BearerAuth authenticates requests carrying an HMAC-signed JWT bearer token
// with the expected issuer and audience. The token subject is stored in the
// context as "principal".
func BearerAuth(secret []byte, issuer, audience string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		token, err := jwt.Parse(raw,
			func(t *jwt.Token) (any, error) { return secret, nil },
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
		)
		if err != nil || !token.Valid {
			unauthorized(c, "invalid bearer token")
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil {
			unauthorized(c, "invalid bearer token")
			return
		}
		c.Set("principal", subject)
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", `Basic realm="volt"`)
	response.Error[any](c, http.StatusUnauthorized, message, nil)
	c.Abort()
}
