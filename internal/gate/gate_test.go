package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-portal/internal/api"
	"attendance-portal/internal/cookie"
	"attendance-portal/internal/session"
)

func authed(role api.Role) session.Snapshot {
	return session.Snapshot{State: session.Authenticated, Token: "t", User: &api.User{ID: "1", Role: role}}
}

func TestDecide(t *testing.T) {
	teacherOnly := []api.Role{api.RoleTeacher}
	cases := []struct {
		name     string
		snap     session.Snapshot
		required []api.Role
		want     Decision
	}{
		{"loading", session.Snapshot{State: session.Loading}, teacherOnly, Decision{Action: Wait}},
		{"anonymous", session.Snapshot{State: session.Unauthenticated}, nil, Decision{Action: Redirect, Target: "/login"}},
		{"admin on teacher page", authed(api.RoleAdmin), teacherOnly, Decision{Action: Redirect, Target: "/admin/dashboard"}},
		{"student on teacher page", authed(api.RoleStudent), teacherOnly, Decision{Action: Redirect, Target: "/student/dashboard"}},
		{"teacher on teacher page", authed(api.RoleTeacher), teacherOnly, Decision{Action: Render}},
		{"unknown role", authed("janitor"), teacherOnly, Decision{Action: Redirect, Target: "/login"}},
		{"no roles required", authed(api.RoleStudent), nil, Decision{Action: Render}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decide(tc.snap, tc.required)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, Decide(tc.snap, tc.required))
		})
	}
}

type fixedSessions map[string]session.Snapshot

func (f fixedSessions) Snapshot(_ context.Context, id string) session.Snapshot {
	if snap, ok := f[id]; ok {
		return snap
	}
	return session.Snapshot{State: session.Unauthenticated}
}

var testCookies = cookie.Codec{Name: "sid", Secret: "s", TTL: time.Hour}

func router(sessions Sessions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/teacher/dashboard", Require(sessions, testCookies, api.RoleTeacher), func(c *gin.Context) {
		c.String(http.StatusOK, "hello "+string(Current(c).Role()))
	})
	r.GET("/api/session", RequireJSON(sessions, testCookies), func(c *gin.Context) {
		c.JSON(http.StatusOK, Current(c))
	})
	return r
}

func request(t *testing.T, r http.Handler, path, sid string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sid != "" {
		value, err := testCookies.Issue(sid)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: testCookies.Name, Value: value})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireRedirectsAdminToOwnDashboard(t *testing.T) {
	r := router(fixedSessions{"a": authed(api.RoleAdmin)})
	w := request(t, r, "/teacher/dashboard", "a")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))
}

func TestRequireRendersForRole(t *testing.T) {
	r := router(fixedSessions{"t": authed(api.RoleTeacher)})
	w := request(t, r, "/teacher/dashboard", "t")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello teacher", w.Body.String())
}

func TestRequireWaitsWhileLoading(t *testing.T) {
	r := router(fixedSessions{"l": {State: session.Loading}})
	w := request(t, r, "/teacher/dashboard", "l")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http-equiv="refresh"`)
}

func TestRequireWithoutCookie(t *testing.T) {
	w := request(t, router(fixedSessions{}), "/teacher/dashboard", "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRequireJSON(t *testing.T) {
	r := router(fixedSessions{"s": authed(api.RoleStudent), "l": {State: session.Loading}})

	w := request(t, r, "/api/session", "s")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"student"`)

	w = request(t, r, "/api/session", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(t, r, "/api/session", "l")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
