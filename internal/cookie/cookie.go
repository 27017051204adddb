// Package cookie signs the browser session cookie. The cookie carries only
// the session id; the backend token never leaves the server.
package cookie

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed cookie payload.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Codec issues and verifies session cookies.
type Codec struct {
	Name   string
	Secret string
	Issuer string
	TTL    time.Duration
	Secure bool
}

// Issue signs a cookie value for sessionID.
func (c Codec) Issue(sessionID string) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.Secret))
}

// Parse validates a cookie value and returns the session id.
func (c Codec) Parse(value string) (string, error) {
	parsed, err := jwt.ParseWithClaims(value, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(c.Secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid session cookie")
	}
	if c.Issuer != "" && claims.Issuer != c.Issuer {
		return "", errors.New("issuer mismatch")
	}
	if claims.SessionID == "" {
		return "", errors.New("missing session id")
	}
	return claims.SessionID, nil
}

// Read returns the session id of the request, or "" when the cookie is
// absent or does not verify.
func (c Codec) Read(ctx *gin.Context) string {
	value, err := ctx.Cookie(c.Name)
	if err != nil || value == "" {
		return ""
	}
	id, err := c.Parse(value)
	if err != nil {
		return ""
	}
	return id
}

// Write sets the cookie for sessionID on the response.
func (c Codec) Write(ctx *gin.Context, sessionID string) error {
	value, err := c.Issue(sessionID)
	if err != nil {
		return err
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.Name, value, int(c.TTL.Seconds()), "/", "", c.Secure, true)
	return nil
}

// Clear removes the cookie.
func (c Codec) Clear(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.Name, "", -1, "/", "", c.Secure, true)
}
