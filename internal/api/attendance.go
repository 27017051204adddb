package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// ListEvents returns raw attendance marks.
func (c *Client) ListEvents(ctx context.Context, q EventQuery) ([]AttendanceEvent, error) {
	params := url.Values{}
	setIf(params, "studentId", q.StudentID)
	setIf(params, "date", q.Date)
	setIf(params, "session", q.Session)
	setIf(params, "startDate", q.StartDate)
	setIf(params, "endDate", q.EndDate)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Skip > 0 {
		params.Set("skip", strconv.Itoa(q.Skip))
	}
	var out struct {
		Events []AttendanceEvent `json:"events"`
	}
	if err := c.get(ctx, "attendance.events", "/attendance/events", params, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// Report fetches an attendance report. The payload shape depends on the query
// and is returned undecoded; callers read its type discriminator.
func (c *Client) Report(ctx context.Context, params url.Values) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, "attendance.report", "/attendance/report", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateManualAttendance records a mark entered by a teacher.
func (c *Client) CreateManualAttendance(ctx context.Context, in ManualAttendance) (MarkResult, error) {
	var out MarkResult
	err := c.do(ctx, "attendance.manual", http.MethodPost, "/attendance/manual", nil, in, &out)
	return out, err
}

// ProcessScan submits a simulated fingerprint scan.
func (c *Client) ProcessScan(ctx context.Context, in ScanInput) (MarkResult, error) {
	var out MarkResult
	err := c.do(ctx, "attendance.process", http.MethodPost, "/attendance/process", nil, in, &out)
	return out, err
}

func setIf(v url.Values, key, val string) {
	if val != "" {
		v.Set(key, val)
	}
}
