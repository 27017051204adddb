package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codec = Codec{Name: "portal_session", Secret: "test-secret", Issuer: "portal", TTL: time.Hour}

func TestIssueParse(t *testing.T) {
	value, err := codec.Issue("abc")
	require.NoError(t, err)

	id, err := codec.Parse(value)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}

func TestParseRejects(t *testing.T) {
	value, err := codec.Issue("abc")
	require.NoError(t, err)

	other := codec
	other.Secret = "different"
	_, err = other.Parse(value)
	assert.Error(t, err)

	other = codec
	other.Issuer = "someone-else"
	_, err = other.Parse(value)
	assert.Error(t, err)

	expired := codec
	expired.TTL = -time.Minute
	value, err = expired.Issue("abc")
	require.NoError(t, err)
	_, err = codec.Parse(value)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestWriteThenRead(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, codec.Write(c, "sid-1"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Request = req
	assert.Equal(t, "sid-1", codec.Read(c2))
}

func TestReadTamperedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: codec.Name, Value: "not-a-jwt"})
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	assert.Empty(t, codec.Read(c))
}
