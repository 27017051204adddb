package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/api"
	"attendance-portal/internal/attendance"
	"attendance-portal/internal/forms"
)

// reportView is a report form plus the adapted report, if any.
type reportView struct {
	Form   forms.ReportForm
	Report attendance.Report
	Ran    bool
}

// Reports renders the report form and, when a query was submitted, the
// report matching the payload's discriminator.
func (h *Handler) Reports(c *gin.Context) {
	view := reportView{Form: forms.ReportForm{Type: string(attendance.KindDaily), Date: h.today().Format(attendance.DateLayout)}}
	if len(c.Request.URL.Query()) == 0 {
		h.render(c, http.StatusOK, "reports", page{Title: "Attendance Reports", Data: view})
		return
	}

	f, errs := forms.BindReport(c)
	view.Form = f
	if errs != nil {
		h.render(c, http.StatusUnprocessableEntity, "reports", page{Title: "Attendance Reports", Errors: errs, Data: view})
		return
	}
	rep, err := h.fetchReport(c, f.Query())
	if err != nil {
		if h.failed(c, err) {
			return
		}
		h.render(c, http.StatusBadGateway, "reports", page{Title: "Attendance Reports", Notice: reportNotice(err), Data: view})
		return
	}
	view.Report = rep
	view.Ran = true
	h.render(c, http.StatusOK, "reports", page{Title: "Attendance Reports", Data: view})
}

func (h *Handler) fetchReport(c *gin.Context, q attendance.Query) (attendance.Report, error) {
	params, err := q.Params()
	if err != nil {
		return attendance.Report{}, err
	}
	raw, err := h.client(c).Report(c.Request.Context(), params)
	if err != nil {
		return attendance.Report{}, err
	}
	return attendance.DecodeReport(raw), nil
}

func reportNotice(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Notice()
	}
	return "Failed to generate report"
}

// fetcher adapts the request's client to attendance.ReportFetcher.
func (h *Handler) fetcher(c *gin.Context) attendance.ReportFetcher {
	cl := h.client(c)
	return func(ctx context.Context, params url.Values) (json.RawMessage, error) {
		return cl.Report(ctx, params)
	}
}

// todayClasses fetches today's class summary.
func (h *Handler) todayClasses(c *gin.Context) (*attendance.ClassReport, error) {
	rep, err := h.fetchReport(c, attendance.Query{Mode: attendance.KindClass, Date: h.today().Format(attendance.DateLayout)})
	if err != nil || rep.Kind != attendance.KindClass {
		return nil, err
	}
	return rep.Class, nil
}

// TeacherDashboard shows today's class summary.
func (h *Handler) TeacherDashboard(c *gin.Context) {
	classes, err := h.todayClasses(c)
	p := page{Title: "Teacher Dashboard", Data: classes}
	if err != nil {
		if h.failed(c, err) {
			return
		}
		p.Notice = api.Notice(err)
	}
	h.render(c, http.StatusOK, "teacher_dashboard", p)
}

const recentMarks = 20

// manualView is the manual attendance form plus today's latest marks.
type manualView struct {
	Form   forms.ManualForm
	Recent []api.AttendanceEvent
}

// ManualForm shows the manual attendance form and the marks recorded today.
func (h *Handler) ManualForm(c *gin.Context) {
	p := page{Title: "Manual Attendance"}
	view := manualView{Form: forms.ManualForm{Action: "IN", Session: "morning"}}
	recent, err := h.client(c).ListEvents(c.Request.Context(), api.EventQuery{
		Date:  h.today().Format(attendance.DateLayout),
		Limit: recentMarks,
	})
	if err != nil {
		if h.failed(c, err) {
			return
		}
		p.Notice = "Failed to load today's marks"
	}
	view.Recent = recent
	p.Data = view
	h.render(c, http.StatusOK, "manual", p)
}

// ManualSubmit records a teacher-entered attendance mark.
func (h *Handler) ManualSubmit(c *gin.Context) {
	f, errs := forms.BindManual(c)
	if errs != nil {
		h.render(c, http.StatusUnprocessableEntity, "manual", page{Title: "Manual Attendance", Errors: errs, Data: manualView{Form: f}})
		return
	}
	res, err := h.client(c).CreateManualAttendance(c.Request.Context(), f.Input(h.loc))
	if err != nil {
		if !h.failed(c, err) {
			h.render(c, http.StatusBadGateway, "manual", page{Title: "Manual Attendance", Notice: api.Notice(err), Data: manualView{Form: f}})
		}
		return
	}
	msg := res.Message
	if msg == "" {
		msg = "Attendance marked successfully"
	}
	redirectBack(c, "/teacher/attendance/manual", flashSuccess, msg)
}
