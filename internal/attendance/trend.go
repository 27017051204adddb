package attendance

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
)

// DateLayout is the date format the backend uses in queries and payloads.
const DateLayout = "2006-01-02"

// ReportFetcher fetches a raw report payload for the given query.
type ReportFetcher func(ctx context.Context, params url.Values) (json.RawMessage, error)

// TrendPoint is one day of the attendance trend.
type TrendPoint struct {
	Date    string `json:"date"`
	Label   string `json:"label"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
}

// Trend fetches the class summary for each of the last days days ending at
// today, one request per day. A day whose request fails or whose payload is
// not a class report contributes a zero point. Points are ordered oldest first.
func Trend(ctx context.Context, fetch ReportFetcher, today time.Time, days int) ([]TrendPoint, error) {
	if days <= 0 {
		return nil, nil
	}
	points := make([]TrendPoint, days)
	var g errgroup.Group
	g.SetLimit(4)
	for i := 0; i < days; i++ {
		i := i
		day := today.AddDate(0, 0, i-(days-1))
		points[i] = TrendPoint{Date: day.Format(DateLayout), Label: day.Format("Mon")}
		g.Go(func() error {
			params, _ := Query{Mode: KindClass, Date: points[i].Date}.Params()
			raw, err := fetch(ctx, params)
			if err != nil {
				return nil
			}
			rep := DecodeReport(raw)
			if rep.Kind != KindClass {
				return nil
			}
			sum := rep.Class.OverallSummary
			points[i].Present = sum.FullyPresent
			points[i].Absent = sum.TotalStudents - sum.FullyPresent
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return points, nil
}
