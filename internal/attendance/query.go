package attendance

import (
	"errors"
	"net/url"
	"strconv"
)

// ErrStudentRequired is returned for a student report without a student id.
var ErrStudentRequired = errors.New("student id is required for a student report")

// ErrUnknownMode is returned for a report mode other than daily, class or student.
var ErrUnknownMode = errors.New("unknown report mode")

// Query is the report form: a mode plus the filters that mode uses.
type Query struct {
	Mode       Kind
	Date       string
	StartDate  string
	EndDate    string
	StudentID  string
	Department string
	Year       int
	Section    string
}

// Params builds the backend query string for the report endpoint.
func (q Query) Params() (url.Values, error) {
	v := url.Values{}
	switch q.Mode {
	case KindDaily:
		setIf(v, "date", q.Date)
		setIf(v, "department", q.Department)
		if q.Year > 0 {
			v.Set("year", strconv.Itoa(q.Year))
		}
		setIf(v, "section", q.Section)
	case KindClass:
		v.Set("groupBy", "class")
		setIf(v, "date", q.Date)
	case KindStudent:
		if q.StudentID == "" {
			return nil, ErrStudentRequired
		}
		v.Set("studentId", q.StudentID)
		setIf(v, "startDate", q.StartDate)
		setIf(v, "endDate", q.EndDate)
	default:
		return nil, ErrUnknownMode
	}
	return v, nil
}

func setIf(v url.Values, key, val string) {
	if val != "" {
		v.Set(key, val)
	}
}
