package web

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/api"
)

// listView is the data of a paginated, filterable table.
type listView struct {
	Base    string
	Filters api.ListParams
	Items   any
	Total   int
	From    int
	To      int
	Prev    string
	Next    string
}

// listParams reads filters and pagination from the query string.
func listParams(c *gin.Context) api.ListParams {
	p := api.ListParams{
		Search:     c.Query("search"),
		Department: c.Query("department"),
		Section:    c.Query("section"),
		Limit:      api.DefaultLimit,
	}
	if y, err := strconv.Atoi(c.Query("year")); err == nil && y > 0 {
		p.Year = y
	}
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 && n <= 500 {
		p.Limit = n
	}
	if n, err := strconv.Atoi(c.Query("skip")); err == nil && n > 0 {
		p.Skip = n
	}
	return p
}

func encodeParams(p api.ListParams, skip int) url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("search", p.Search)
	set("department", p.Department)
	set("section", p.Section)
	if p.Year > 0 {
		v.Set("year", strconv.Itoa(p.Year))
	}
	if p.Limit != api.DefaultLimit {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if skip > 0 {
		v.Set("skip", strconv.Itoa(skip))
	}
	return v
}

func newListView(base string, p api.ListParams, items any, count, total int) listView {
	lv := listView{Base: base, Filters: p, Items: items, Total: total}
	if count > 0 {
		lv.From = p.Skip + 1
		lv.To = p.Skip + count
	}
	if p.Skip > 0 {
		prev := max(p.Skip-p.Limit, 0)
		lv.Prev = withQuery(base, encodeParams(p, prev))
	}
	if p.Skip+count < total {
		lv.Next = withQuery(base, encodeParams(p, p.Skip+p.Limit))
	}
	return lv
}

func withQuery(base string, v url.Values) string {
	if len(v) == 0 {
		return base
	}
	return base + "?" + v.Encode()
}

// formView is the data of a create or edit form.
type formView struct {
	Action string
	Back   string
	Create bool
	Form   any
}
