package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"attendance-portal/internal/api"
	"attendance-portal/internal/attendance"
)

const topClasses = 5

type adminStats struct {
	Teachers int
	Students int
	Devices  int
	Online   int
	Enrolled int
}

type adminDashboard struct {
	Stats    adminStats
	Today    *attendance.ClassSummary
	Classes  []attendance.ClassRow
	Trend    []attendance.TrendPoint
	TrendMax int
}

// AdminDashboard fetches the counters in parallel, then today's class
// summary and the attendance trend.
func (h *Handler) AdminDashboard(c *gin.Context) {
	var data adminDashboard
	p := page{Title: "Admin Dashboard", Data: &data}

	stats, err := h.adminStats(c)
	if err != nil {
		if h.failed(c, err) {
			return
		}
		p.Notice = api.Notice(err)
	}
	data.Stats = stats

	ctx := c.Request.Context()
	var g errgroup.Group
	var classes *attendance.ClassReport
	var classErr error
	g.Go(func() error {
		classes, classErr = h.todayClasses(c)
		return nil
	})
	g.Go(func() error {
		var err error
		data.Trend, err = attendance.Trend(ctx, h.fetcher(c), h.today(), h.trendDays)
		return err
	})
	if g.Wait() != nil {
		// The trend only fails when the request itself is done.
		c.Abort()
		return
	}
	if classErr != nil {
		if h.failed(c, classErr) {
			return
		}
		if p.Notice == "" {
			p.Notice = api.Notice(classErr)
		}
	}
	if classes != nil {
		data.Today = &classes.OverallSummary
		data.Classes = classes.Classes
		if len(data.Classes) > topClasses {
			data.Classes = data.Classes[:topClasses]
		}
	}
	for _, pt := range data.Trend {
		data.TrendMax = max(data.TrendMax, pt.Present+pt.Absent)
	}
	h.render(c, http.StatusOK, "admin_dashboard", p)
}

func (h *Handler) adminStats(c *gin.Context) (adminStats, error) {
	cl := h.client(c)
	g, ctx := errgroup.WithContext(c.Request.Context())
	var s adminStats
	g.Go(func() error {
		res, err := cl.ListTeachers(ctx, api.ListParams{Limit: 1})
		s.Teachers = res.Total
		return err
	})
	g.Go(func() error {
		res, err := cl.ListStudents(ctx, api.ListParams{Limit: 1})
		s.Students = res.Total
		return err
	})
	g.Go(func() error {
		res, err := cl.ListDevices(ctx, api.ListParams{Limit: 100})
		s.Devices = res.Total()
		for _, d := range res.Devices {
			if d.IsOnline {
				s.Online++
			}
		}
		return err
	})
	g.Go(func() error {
		res, err := cl.ListStudents(ctx, api.ListParams{Limit: 1000})
		for _, st := range res.Students {
			if st.Enrolled() {
				s.Enrolled++
			}
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return adminStats{}, err
	}
	return s, nil
}
