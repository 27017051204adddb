// Package gate decides whether a request may render a protected page.
package gate

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/api"
	"attendance-portal/internal/cookie"
	"attendance-portal/internal/metrics"
	"attendance-portal/internal/session"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// Action is what the caller should do with a request.
type Action int

const (
	Render Action = iota
	Wait
	Redirect
)

func (a Action) String() string {
	switch a {
	case Render:
		return "render"
	case Wait:
		return "wait"
	default:
		return "redirect"
	}
}

// Decision is the outcome of Decide. Target is set for Redirect only.
type Decision struct {
	Action Action
	Target string
}

// Dashboard returns the landing page of a role, or the login page for
// roles the portal does not know.
func Dashboard(role api.Role) string {
	switch role {
	case api.RoleAdmin:
		return "/admin/dashboard"
	case api.RoleTeacher:
		return "/teacher/dashboard"
	case api.RoleStudent:
		return "/student/dashboard"
	default:
		return LoginPath
	}
}

// Decide maps a session snapshot and the roles a page accepts to an action.
// An empty required list admits any authenticated user.
func Decide(snap session.Snapshot, required []api.Role) Decision {
	switch snap.State {
	case session.Loading:
		return Decision{Action: Wait}
	case session.Unauthenticated:
		return Decision{Action: Redirect, Target: LoginPath}
	}
	if len(required) > 0 && !slices.Contains(required, snap.Role()) {
		return Decision{Action: Redirect, Target: Dashboard(snap.Role())}
	}
	return Decision{Action: Render}
}

// Sessions is the part of session.Manager the middleware needs.
type Sessions interface {
	Snapshot(ctx context.Context, id string) session.Snapshot
}

const snapshotKey = "portal.session"

// Current returns the snapshot stored by Require or Optional.
func Current(c *gin.Context) session.Snapshot {
	if v, ok := c.Get(snapshotKey); ok {
		if snap, ok := v.(session.Snapshot); ok {
			return snap
		}
	}
	return session.Snapshot{State: session.Unauthenticated}
}

// Optional loads the snapshot without enforcing anything.
func Optional(sessions Sessions, cookies cookie.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(snapshotKey, sessions.Snapshot(c.Request.Context(), cookies.Read(c)))
		c.Next()
	}
}

// Require guards HTML pages: waiting sessions get a self-refreshing page,
// everyone else not allowed is redirected.
func Require(sessions Sessions, cookies cookie.Codec, roles ...api.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := sessions.Snapshot(c.Request.Context(), cookies.Read(c))
		d := Decide(snap, roles)
		metrics.GateDecisions.WithLabelValues(d.Action.String()).Inc()
		switch d.Action {
		case Wait:
			c.Header("Cache-Control", "no-store")
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(waitingPage))
			c.Abort()
		case Redirect:
			c.Redirect(http.StatusSeeOther, d.Target)
			c.Abort()
		default:
			c.Set(snapshotKey, snap)
			c.Next()
		}
	}
}

// RequireJSON guards JSON endpoints with the same decision, answering
// 503 while the session loads and 401 or 403 with the redirect target.
func RequireJSON(sessions Sessions, cookies cookie.Codec, roles ...api.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := sessions.Snapshot(c.Request.Context(), cookies.Read(c))
		d := Decide(snap, roles)
		metrics.GateDecisions.WithLabelValues(d.Action.String()).Inc()
		switch d.Action {
		case Wait:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"state": snap.State.String()})
		case Redirect:
			status := http.StatusForbidden
			if snap.State == session.Unauthenticated {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, gin.H{"redirect": d.Target})
		default:
			c.Set(snapshotKey, snap)
			c.Next()
		}
	}
}

const waitingPage = `<!doctype html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>Loading</title></head>
<body><p>Loading&hellip;</p></body></html>`
