package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const callerEmailKey = "lv_caller_email"

// IdentityVerifier validates bearer tokens minted by the surrounding
// application's auth provider and extracts the caller's email. Tokens are
// HS256 with the email in the subject claim; credentials themselves are
// never managed here.
type IdentityVerifier struct {
	secret []byte
}

// NewIdentityVerifier creates a verifier for the given shared secret.
func NewIdentityVerifier(secret string) *IdentityVerifier {
	return &IdentityVerifier{secret: []byte(secret)}
}

// Verify parses and validates a token, returning the caller email.
func (v *IdentityVerifier) Verify(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

// Issue mints a token for the given email. Used by the seed tool and tests;
// production tokens come from the external auth provider.
func (v *IdentityVerifier) Issue(email string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(v.secret)
}

// OptionalIdentity injects the caller email into the context when a valid
// bearer token is present. Never aborts; v may be nil to disable auth.
func OptionalIdentity(v *IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v == nil {
			c.Next()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.Next()
			return
		}
		if email, err := v.Verify(strings.TrimPrefix(authHeader, "Bearer ")); err == nil {
			c.Set(callerEmailKey, email)
		}
		c.Next()
	}
}

// RequireIdentity aborts with 401 unless a valid bearer token is present.
// With a nil verifier it is a no-op, for development/open mode.
func RequireIdentity(v *IdentityVerifier) gin.HandlerFunc {
	if v == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		email, err := v.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(callerEmailKey, email)
		c.Next()
	}
}

// CallerEmail returns the authenticated caller's email, or "" when the
// request carried no valid token.
func CallerEmail(c *gin.Context) string {
	return c.GetString(callerEmailKey)
}
