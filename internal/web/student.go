package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/api"
	"attendance-portal/internal/attendance"
	"attendance-portal/internal/gate"
)

const (
	recentDays  = 7
	historyDays = 30
)

// studentAttendance is a classified date range of one student.
type studentAttendance struct {
	Start   string
	End     string
	Days    []attendance.DayAttendance
	FullDay int
	Partial int
	Absent  int
	Rate    string
	Report  *attendance.StudentReport
}

func summarize(start, end string, rep *attendance.StudentReport) studentAttendance {
	out := studentAttendance{Start: start, End: end, Rate: attendance.FormatRate(0, 0)}
	if rep == nil {
		return out
	}
	counts := rep.Counts()
	out.Days = rep.DailyAttendance
	out.FullDay = counts[attendance.FullDay]
	out.Partial = counts[attendance.Partial]
	out.Absent = counts[attendance.Absent]
	out.Rate = rep.Rate()
	out.Report = rep
	return out
}

func (h *Handler) studentRange(c *gin.Context, start, end string) (studentAttendance, error) {
	user := gate.Current(c).User
	if user == nil || user.StudentID == "" {
		return summarize(start, end, nil), nil
	}
	rep, err := h.fetchReport(c, attendance.Query{Mode: attendance.KindStudent, StudentID: user.StudentID, StartDate: start, EndDate: end})
	if err != nil {
		return summarize(start, end, nil), err
	}
	return summarize(start, end, rep.Student), nil
}

func (h *Handler) lastDays(n int) (string, string) {
	today := h.today()
	return today.AddDate(0, 0, -n).Format(attendance.DateLayout), today.Format(attendance.DateLayout)
}

// StudentDashboard shows the profile summary and the last week classified.
func (h *Handler) StudentDashboard(c *gin.Context) {
	start, end := h.lastDays(recentDays - 1)
	data, err := h.studentRange(c, start, end)
	p := page{Title: "Student Dashboard", Data: data}
	if err != nil {
		if h.failed(c, err) {
			return
		}
		p.Notice = "Failed to fetch attendance data"
	}
	h.render(c, http.StatusOK, "student_dashboard", p)
}

// MyAttendance shows a date range, the last 30 days by default.
func (h *Handler) MyAttendance(c *gin.Context) {
	start, end := c.Query("startDate"), c.Query("endDate")
	if _, set := c.GetQuery("startDate"); !set {
		start, end = h.lastDays(historyDays)
	}
	if start == "" || end == "" || !validDate(start) || !validDate(end) {
		h.render(c, http.StatusUnprocessableEntity, "attendance", page{
			Title:  "My Attendance",
			Notice: "Please select both start and end dates",
			Data:   summarize(start, end, nil),
		})
		return
	}
	data, err := h.studentRange(c, start, end)
	p := page{Title: "My Attendance", Data: data}
	if err != nil {
		if h.failed(c, err) {
			return
		}
		p.Notice = "Failed to fetch attendance data"
	}
	h.render(c, http.StatusOK, "attendance", p)
}

func validDate(s string) bool {
	_, err := time.Parse(attendance.DateLayout, s)
	return err == nil
}

// Profile shows the signed-in student's record as the backend has it now.
func (h *Handler) Profile(c *gin.Context) {
	p := page{Title: "My Profile"}
	user, err := h.client(c).Profile(c.Request.Context())
	if err != nil {
		if h.failed(c, err) {
			return
		}
		p.Notice = api.Notice(err)
		if snap := gate.Current(c).User; snap != nil {
			user = *snap
		}
	}
	p.Data = user
	h.render(c, http.StatusOK, "profile", p)
}
