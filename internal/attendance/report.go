package attendance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the report discriminator carried in the payload's "type" field.
type Kind string

const (
	KindEmpty   Kind = ""
	KindDaily   Kind = "daily"
	KindClass   Kind = "class"
	KindStudent Kind = "student"
)

// Report is a decoded report payload. Exactly one of Daily, Class or Student
// is set, matching Kind; KindEmpty means nothing can be rendered.
type Report struct {
	Kind    Kind
	Daily   *DailyReport
	Class   *ClassReport
	Student *StudentReport
}

// Empty reports whether there is nothing to render.
func (r Report) Empty() bool {
	return r.Kind == KindEmpty
}

// DailySummary aggregates a daily report.
type DailySummary struct {
	TotalStudents  int `json:"totalStudents"`
	FullyPresent   int `json:"fullyPresent"`
	PartialPresent int `json:"partialPresent"`
	Absent         int `json:"absent"`
}

// DailyRow is one student's attendance for the report date.
type DailyRow struct {
	StudentID  string        `json:"studentId"`
	Name       string        `json:"name"`
	Department string        `json:"department"`
	Year       int           `json:"year"`
	Section    string        `json:"section"`
	Morning    SessionRecord `json:"morning"`
	Afternoon  SessionRecord `json:"afternoon"`
}

// Status classifies the row from its session records.
func (r DailyRow) Status() Status {
	return Classify(DayAttendance{Morning: r.Morning, Afternoon: r.Afternoon})
}

// DailyReport lists every student of a class filter for one date.
type DailyReport struct {
	Date     string       `json:"date"`
	Summary  DailySummary `json:"summary"`
	Students []DailyRow   `json:"students"`
}

// ClassRow aggregates one class for the report date.
type ClassRow struct {
	Class            string `json:"class"`
	TotalStudents    int    `json:"totalStudents"`
	FullyPresent     int    `json:"fullyPresent"`
	MorningPresent   int    `json:"morningPresent"`
	AfternoonPresent int    `json:"afternoonPresent"`
	Absent           int    `json:"absent"`
}

// Rate is the full-day attendance rate of the class.
func (r ClassRow) Rate() string {
	return FormatRate(r.FullyPresent, r.TotalStudents)
}

// ClassSummary aggregates all classes for the report date.
type ClassSummary struct {
	TotalStudents    int `json:"totalStudents"`
	FullyPresent     int `json:"fullyPresent"`
	MorningPresent   int `json:"morningPresent"`
	AfternoonPresent int `json:"afternoonPresent"`
	Absent           int `json:"absent"`
}

// Rate is the overall full-day attendance rate.
func (s ClassSummary) Rate() string {
	return FormatRate(s.FullyPresent, s.TotalStudents)
}

// ClassReport is the per-class summary for one date.
type ClassReport struct {
	Date           string       `json:"date"`
	OverallSummary ClassSummary `json:"overallSummary"`
	Classes        []ClassRow   `json:"classes"`
}

// StudentInfo identifies the subject of a student report.
type StudentInfo struct {
	Name       string `json:"name"`
	StudentID  string `json:"studentId"`
	Department string `json:"department"`
	Year       int    `json:"year"`
	Section    string `json:"section"`
}

// DateRange is the span a student report covers.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	TotalDays int    `json:"totalDays"`
}

// StudentSummary holds the counters precomputed by the backend.
type StudentSummary struct {
	TotalDaysPresent     int      `json:"totalDaysPresent"`
	MorningPresent       int      `json:"morningPresent"`
	AfternoonPresent     int      `json:"afternoonPresent"`
	AttendancePercentage *Percent `json:"attendancePercentage,omitempty"`
}

// StudentReport is one student's attendance over a date range.
type StudentReport struct {
	Student         StudentInfo     `json:"student"`
	DateRange       DateRange       `json:"dateRange"`
	Summary         StudentSummary  `json:"summary"`
	DailyAttendance []DayAttendance `json:"dailyAttendance"`
}

// Rate is the student's attendance rate with one decimal. The backend's
// percentage is used when present, otherwise it is derived from the counters.
func (r StudentReport) Rate() string {
	if p := r.Summary.AttendancePercentage; p != nil {
		return fmt.Sprintf("%.1f", float64(*p))
	}
	return FormatRate(r.Summary.TotalDaysPresent, r.DateRange.TotalDays)
}

// Counts tallies the classified days.
func (r StudentReport) Counts() map[Status]int {
	out := map[Status]int{FullDay: 0, Partial: 0, Absent: 0}
	for _, d := range r.DailyAttendance {
		out[Classify(d)]++
	}
	return out
}

// Percent accepts a percentage encoded as a JSON number or string.
type Percent float64

func (p *Percent) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("attendance percentage %q: %w", s, err)
	}
	*p = Percent(v)
	return nil
}

// DecodeReport reads the discriminator and decodes the matching shape.
// Unknown or missing discriminators, and bodies that do not fit the declared
// shape, yield an empty report rather than an error.
func DecodeReport(raw []byte) Report {
	var head struct {
		Type Kind `json:"type"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &head) != nil {
		return Report{}
	}
	switch head.Type {
	case KindDaily:
		var d DailyReport
		if json.Unmarshal(raw, &d) != nil {
			return Report{}
		}
		return Report{Kind: KindDaily, Daily: &d}
	case KindClass:
		var c ClassReport
		if json.Unmarshal(raw, &c) != nil {
			return Report{}
		}
		return Report{Kind: KindClass, Class: &c}
	case KindStudent:
		var s StudentReport
		if json.Unmarshal(raw, &s) != nil {
			return Report{}
		}
		return Report{Kind: KindStudent, Student: &s}
	default:
		return Report{}
	}
}
