package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/api"
	"attendance-portal/internal/attendance"
	"attendance-portal/internal/forms"
	"attendance-portal/internal/gate"
)

// SessionJSON returns the current user.
func (h *Handler) SessionJSON(c *gin.Context) {
	snap := gate.Current(c)
	c.JSON(http.StatusOK, gin.H{"state": snap.State.String(), "user": snap.User})
}

type reportRow struct {
	Date   string            `json:"date,omitempty"`
	Name   string            `json:"name,omitempty"`
	ID     string            `json:"studentId,omitempty"`
	Status attendance.Status `json:"status"`
}

// ReportJSON returns the adapted report with every day or row classified.
func (h *Handler) ReportJSON(c *gin.Context) {
	f, errs := forms.BindReport(c)
	if errs != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return
	}
	rep, err := h.fetchReport(c, f.Query())
	if err != nil {
		if api.IsUnauthorized(err) {
			h.cookies.Clear(c)
			c.JSON(http.StatusUnauthorized, gin.H{"message": api.Notice(err), "redirect": gate.LoginPath})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"message": reportNotice(err)})
		return
	}

	out := gin.H{"type": rep.Kind}
	switch rep.Kind {
	case attendance.KindDaily:
		rows := make([]reportRow, 0, len(rep.Daily.Students))
		for _, s := range rep.Daily.Students {
			rows = append(rows, reportRow{Name: s.Name, ID: s.StudentID, Status: s.Status()})
		}
		out["date"] = rep.Daily.Date
		out["summary"] = rep.Daily.Summary
		out["rows"] = rows
	case attendance.KindClass:
		out["date"] = rep.Class.Date
		out["summary"] = rep.Class.OverallSummary
		out["rate"] = rep.Class.OverallSummary.Rate()
		out["classes"] = rep.Class.Classes
	case attendance.KindStudent:
		rows := make([]reportRow, 0, len(rep.Student.DailyAttendance))
		for _, d := range rep.Student.DailyAttendance {
			rows = append(rows, reportRow{Date: d.Date, Status: d.Status()})
		}
		out["student"] = rep.Student.Student
		out["rate"] = rep.Student.Rate()
		out["rows"] = rows
	default:
		out["empty"] = true
	}
	c.JSON(http.StatusOK, out)
}
