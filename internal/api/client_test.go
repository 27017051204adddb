package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-portal/internal/events"
)

type recordingPublisher struct {
	got []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	r.got = append(r.got, evt)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestLoginDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "admin@school.test", creds.Email)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"token": "tok-1",
				"user":  map[string]any{"id": "u1", "name": "Ada", "email": "admin@school.test", "role": "admin"},
			},
		})
	}))
	defer srv.Close()

	res, err := New(srv.URL, time.Second).Login(context.Background(), Credentials{Email: "admin@school.test", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	assert.Equal(t, RoleAdmin, res.User.Role)
}

func TestSessionTokenIsSentAsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-2", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"user": map[string]any{"id": "u2", "role": "teacher"}}})
	}))
	defer srv.Close()

	user, err := New(srv.URL, time.Second).WithSession("sid", "tok-2").Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, user.Role)
}

func TestStatusNotices(t *testing.T) {
	cases := []struct {
		status  int
		message string
		kind    Kind
		notice  string
	}{
		{http.StatusUnauthorized, "jwt expired", KindUnauthorized, "Session expired. Please login again."},
		{http.StatusForbidden, "", KindForbidden, "Access denied. Insufficient permissions."},
		{http.StatusForbidden, "Teachers only", KindForbidden, "Teachers only"},
		{http.StatusNotFound, "", KindNotFound, "Resource not found."},
		{http.StatusConflict, "Email already registered", KindConflict, "Email already registered"},
		{http.StatusConflict, "", KindConflict, "Resource already exists."},
		{http.StatusInternalServerError, "stack trace", KindServer, "Server error. Please try again later."},
		{http.StatusBadRequest, "year must be 1-4", KindOther, "year must be 1-4"},
		{http.StatusBadGateway, "", KindOther, "An error occurred. Please try again."},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, tc.status, map[string]any{"success": false, "statusCode": tc.status, "message": tc.message})
		}))
		_, err := New(srv.URL, time.Second).ListTeachers(context.Background(), ListParams{})
		srv.Close()

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr, "status %d", tc.status)
		assert.Equal(t, tc.kind, apiErr.Kind, "status %d", tc.status)
		assert.Equal(t, tc.notice, apiErr.Notice(), "status %d", tc.status)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := New(base, time.Second).ListDevices(context.Background(), ListParams{})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindNetwork, apiErr.Kind)
	assert.Equal(t, "Network error. Please check your connection.", Notice(err))
}

func TestUnauthorizedPublishesOnceForSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"statusCode": 401, "message": "Invalid token"})
	}))
	defer srv.Close()

	pub := &recordingPublisher{}
	client := New(srv.URL, time.Second, WithEvents(pub))

	_, err := client.WithSession("sid-9", "stale").ListStudents(context.Background(), ListParams{})
	assert.True(t, IsUnauthorized(err))
	require.Len(t, pub.got, 1)
	assert.Equal(t, events.Event{Type: events.AuthExpired, SessionID: "sid-9", Token: "stale"}, pub.got[0])

	// A failed login carries no token and must not expire anything.
	_, err = client.Login(context.Background(), Credentials{Email: "x@y.z", Password: "nope"})
	assert.True(t, IsUnauthorized(err))
	assert.Len(t, pub.got, 1)
}

func TestListQueryParameters(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"students": []any{}, "total": 0}})
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).ListStudents(context.Background(), ListParams{
		Search: "ravi", Department: "CSE", Year: 2, Section: "A", Skip: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "ravi", got.Get("search"))
	assert.Equal(t, "CSE", got.Get("department"))
	assert.Equal(t, "2", got.Get("year"))
	assert.Equal(t, "A", got.Get("section"))
	assert.Equal(t, "50", got.Get("limit"))
	assert.Equal(t, "100", got.Get("skip"))
}

func TestReportReturnsRawData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "class", r.URL.Query().Get("groupBy"))
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"type": "class", "classes": []any{}}})
	}))
	defer srv.Close()

	raw, err := New(srv.URL, time.Second).Report(context.Background(), url.Values{"groupBy": {"class"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"class","classes":[]}`, string(raw))
}

func TestCancelledContextIsNotANetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := New(srv.URL, 5*time.Second).ListTeachers(ctx, ListParams{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListEventsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/attendance/events", r.URL.Path)
		assert.Equal(t, url.Values{"date": {"2024-03-01"}, "session": {"morning"}, "limit": {"20"}}, r.URL.Query())
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"events": []map[string]any{
			{"_id": "e1", "studentId": "S-1", "action": "IN", "session": "morning", "timestamp": "2024-03-01T08:05:00Z"},
		}}})
	}))
	defer srv.Close()

	got, err := New(srv.URL, time.Second).ListEvents(context.Background(), EventQuery{Date: "2024-03-01", Session: "morning", Limit: 20})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "S-1", got[0].StudentID)
	assert.Equal(t, 8, got[0].Timestamp.Hour())
}
