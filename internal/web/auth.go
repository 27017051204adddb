package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendance-portal/internal/api"
	"attendance-portal/internal/forms"
	"attendance-portal/internal/gate"
	"attendance-portal/internal/session"
)

// LoginPage shows the login form, or sends a signed-in user to their dashboard.
// A user whose role has no dashboard stays on the form.
func (h *Handler) LoginPage(c *gin.Context) {
	snap := gate.Current(c)
	if snap.State == session.Authenticated && snap.Role().Known() {
		c.Redirect(http.StatusFound, gate.Dashboard(snap.Role()))
		return
	}
	h.render(c, http.StatusOK, "login", page{Title: "Login", Data: forms.LoginForm{}})
}

// Login submits credentials once. On success the session id is rotated
// and the user lands on their role's dashboard.
func (h *Handler) Login(c *gin.Context) {
	f, errs := forms.BindLogin(c)
	if errs != nil {
		h.render(c, http.StatusUnprocessableEntity, "login", page{Title: "Login", Errors: errs, Data: forms.LoginForm{Email: f.Email}})
		return
	}

	previous := h.cookies.Read(c)
	id, user, err := h.sessions.Login(c.Request.Context(), previous, f.Credentials())
	if err != nil {
		status, notice := http.StatusBadGateway, api.Notice(err)
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Kind == api.KindUnauthorized {
			status, notice = http.StatusUnauthorized, "Invalid email or password."
			if apiErr.Message != "" {
				notice = apiErr.Message
			}
		}
		h.render(c, status, "login", page{Title: "Login", Notice: notice, Data: forms.LoginForm{Email: f.Email}})
		return
	}
	if !user.Role.Known() {
		h.sessions.Logout(c.Request.Context(), id)
		h.log.Warn("login with unsupported role", zap.String("role", string(user.Role)))
		h.render(c, http.StatusForbidden, "login", page{Title: "Login", Notice: "This account has no access to the portal.", Data: forms.LoginForm{Email: f.Email}})
		return
	}
	if err := h.cookies.Write(c, id); err != nil {
		h.log.Error("write session cookie", zap.Error(err))
		h.render(c, http.StatusInternalServerError, "login", page{Title: "Login", Notice: "An unexpected error occurred.", Data: forms.LoginForm{Email: f.Email}})
		return
	}
	redirectBack(c, gate.Dashboard(user.Role), flashSuccess, "Welcome back, "+user.Name+"!")
}

func (h *Handler) loginThrottled(c *gin.Context) {
	h.render(c, http.StatusTooManyRequests, "login", page{Title: "Login", Notice: "Too many login attempts. Please wait a minute and try again.", Data: forms.LoginForm{}})
}

// Logout clears the session and returns to the login page.
func (h *Handler) Logout(c *gin.Context) {
	h.sessions.Logout(c.Request.Context(), h.cookies.Read(c))
	h.cookies.Clear(c)
	redirectBack(c, gate.LoginPath, flashSuccess, "Logged out successfully")
}
