package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	flashCookie  = "portal_flash"
	flashSuccess = "success"
	flashError   = "error"
)

// flash is a notice shown once on the next rendered page.
type flash struct {
	Kind    string
	Message string
}

func setFlash(c *gin.Context, kind, msg string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, url.QueryEscape(kind+":"+msg), 60, "/", "", false, true)
}

// takeFlash returns the pending notice and clears it.
func takeFlash(c *gin.Context) *flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	value, err := url.QueryUnescape(raw)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(value, ":")
	if !ok || msg == "" {
		return nil
	}
	if kind != flashSuccess {
		kind = flashError
	}
	return &flash{Kind: kind, Message: msg}
}
