// Package attendance interprets attendance data returned by the backend:
// day-level presence classification, attendance rates and report payloads.
package attendance

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the presence classification of one calendar day.
type Status string

const (
	FullDay Status = "Full Day"
	Partial Status = "Partial"
	Absent  Status = "Absent"
)

// Badge is the CSS modifier used when rendering the status.
func (s Status) Badge() string {
	switch s {
	case FullDay:
		return "success"
	case Partial:
		return "warning"
	default:
		return "danger"
	}
}

// SessionRecord is presence for one session window. InTime is set iff Present.
type SessionRecord struct {
	Present bool       `json:"present"`
	InTime  *time.Time `json:"inTime,omitempty"`
}

// UnmarshalJSON drops an in-time reported for an absent session.
func (r *SessionRecord) UnmarshalJSON(b []byte) error {
	var raw struct {
		Present bool       `json:"present"`
		InTime  *time.Time `json:"inTime"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Present = raw.Present
	r.InTime = nil
	if raw.Present {
		r.InTime = raw.InTime
	}
	return nil
}

// DayAttendance holds the morning and afternoon records of one date.
type DayAttendance struct {
	Date      string        `json:"date"`
	Morning   SessionRecord `json:"morning"`
	Afternoon SessionRecord `json:"afternoon"`
}

// Status classifies the day. It is recomputed on every call.
func (d DayAttendance) Status() Status {
	return Classify(d)
}

// Classify derives the day status from its two session records.
func Classify(d DayAttendance) Status {
	switch {
	case d.Morning.Present && d.Afternoon.Present:
		return FullDay
	case !d.Morning.Present && !d.Afternoon.Present:
		return Absent
	default:
		return Partial
	}
}

// Rate returns present/total as a percentage, or 0 when total is 0.
func Rate(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(present) / float64(total) * 100
}

// FormatRate renders Rate with one decimal, e.g. "90.0".
func FormatRate(present, total int) string {
	return fmt.Sprintf("%.1f", Rate(present, total))
}
