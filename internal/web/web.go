// Package web serves the portal's HTML pages and JSON endpoints.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"attendance-portal/internal/api"
	"attendance-portal/internal/attendance"
	"attendance-portal/internal/cookie"
	"attendance-portal/internal/forms"
	"attendance-portal/internal/gate"
	"attendance-portal/internal/httpmiddleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// Sessions is the session manager as seen by the handlers.
type Sessions interface {
	gate.Sessions
	Login(ctx context.Context, previousID string, creds api.Credentials) (string, api.User, error)
	Logout(ctx context.Context, id string)
}

// Options configures a Handler.
type Options struct {
	API         *api.Client
	Sessions    Sessions
	Cookies     cookie.Codec
	Log         *zap.Logger
	TrendDays   int
	LoginLimit  *httpmiddleware.TokenBucket
	CORSOrigins []string
	Location    *time.Location
}

// Handler holds the dependencies of every route.
type Handler struct {
	api        *api.Client
	sessions   Sessions
	cookies    cookie.Codec
	log        *zap.Logger
	trendDays  int
	loginLimit *httpmiddleware.TokenBucket
	origins    []string
	loc        *time.Location
	now        func() time.Time
	pages      map[string]*template.Template
}

// New parses the page templates and returns a handler.
func New(opts Options) (*Handler, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	h := &Handler{
		api:        opts.API,
		sessions:   opts.Sessions,
		cookies:    opts.Cookies,
		log:        opts.Log,
		trendDays:  opts.TrendDays,
		loginLimit: opts.LoginLimit,
		origins:    opts.CORSOrigins,
		loc:        opts.Location,
		now:        time.Now,
		pages:      pages,
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.trendDays <= 0 {
		h.trendDays = 7
	}
	if h.loc == nil {
		h.loc = time.Local
	}
	return h, nil
}

// Routes registers every route on r.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, gate.LoginPath) })
	r.NoRoute(func(c *gin.Context) { c.Redirect(http.StatusFound, gate.LoginPath) })

	login := []gin.HandlerFunc{}
	if h.loginLimit != nil {
		login = append(login, h.loginLimit.PerIP(h.loginThrottled))
	}
	r.GET("/login", gate.Optional(h.sessions, h.cookies), h.LoginPage)
	r.POST("/login", append(login, h.Login)...)
	r.POST("/logout", h.Logout)

	admin := r.Group("/admin", httpmiddleware.NoStore(), gate.Require(h.sessions, h.cookies, api.RoleAdmin))
	{
		admin.GET("/dashboard", h.AdminDashboard)
		h.teacherRoutes(admin.Group("/teachers"))
		h.studentRoutes(admin.Group("/students"))
		h.deviceRoutes(admin.Group("/devices"))
		admin.GET("/reports", h.Reports)
	}

	teacher := r.Group("/teacher", httpmiddleware.NoStore(), gate.Require(h.sessions, h.cookies, api.RoleTeacher))
	{
		teacher.GET("/dashboard", h.TeacherDashboard)
		h.studentRoutes(teacher.Group("/students"))
		teacher.GET("/reports", h.Reports)
		teacher.GET("/attendance/manual", h.ManualForm)
		teacher.POST("/attendance/manual", h.ManualSubmit)
	}

	student := r.Group("/student", httpmiddleware.NoStore(), gate.Require(h.sessions, h.cookies, api.RoleStudent))
	{
		student.GET("/dashboard", h.StudentDashboard)
		student.GET("/attendance", h.MyAttendance)
		student.GET("/profile", h.Profile)
	}

	jsonAPI := r.Group("/api", h.corsMiddleware())
	{
		jsonAPI.GET("/session", gate.RequireJSON(h.sessions, h.cookies), h.SessionJSON)
		jsonAPI.GET("/reports", gate.RequireJSON(h.sessions, h.cookies, api.RoleAdmin, api.RoleTeacher), h.ReportJSON)
		for _, p := range []string{"/session", "/reports"} {
			jsonAPI.OPTIONS(p, func(c *gin.Context) { c.Status(http.StatusNoContent) })
		}
	}
}

func (h *Handler) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(h.origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return false }
	} else {
		cfg.AllowOrigins = h.origins
	}
	return cors.New(cfg)
}

// client returns an API client carrying the request's session token.
func (h *Handler) client(c *gin.Context) *api.Client {
	snap := gate.Current(c)
	return h.api.WithSession(snap.ID, snap.Token)
}

// page is the data every template receives.
type page struct {
	Title  string
	User   *api.User
	Path   string
	Flash  *flash
	Notice string
	Errors forms.Errors
	CSRF   template.HTML
	Data   any
}

func (h *Handler) render(c *gin.Context, status int, name string, p page) {
	tmpl, ok := h.pages[name]
	if !ok {
		h.log.Error("unknown page", zap.String("page", name))
		c.Status(http.StatusInternalServerError)
		return
	}
	if p.User == nil {
		p.User = gate.Current(c).User
	}
	p.Path = c.Request.URL.Path
	p.Flash = takeFlash(c)
	p.CSRF = csrf.TemplateField(c.Request)
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(c.Writer, "layout", p); err != nil {
		h.log.Error("render page", zap.String("page", name), zap.Error(err))
	}
}

// failed handles a backend error that ends the request. It reports true
// when the response has been written: a redirect to the login page after
// the backend rejected the session, or nothing after the client went away.
func (h *Handler) failed(c *gin.Context, err error) bool {
	if errors.Is(err, context.Canceled) {
		c.Abort()
		return true
	}
	if api.IsUnauthorized(err) {
		h.cookies.Clear(c)
		setFlash(c, flashError, api.Notice(err))
		c.Redirect(http.StatusSeeOther, gate.LoginPath)
		c.Abort()
		return true
	}
	h.log.Warn("backend request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	return false
}

// redirectBack sends the browser to target with a one-shot notice.
func redirectBack(c *gin.Context, target, kind, msg string) {
	setFlash(c, kind, msg)
	c.Redirect(http.StatusSeeOther, target)
}

// section returns the role prefix of the request path, e.g. "/admin".
func section(c *gin.Context) string {
	p := c.Request.URL.Path
	if i := strings.Index(p[1:], "/"); i >= 0 {
		return p[:i+1]
	}
	return p
}

func (h *Handler) today() time.Time {
	return h.now().In(h.loc)
}

func parsePages() (map[string]*template.Template, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template)
	for _, file := range names {
		name := strings.TrimSuffix(path.Base(file), ".html")
		if name == "layout" || name == "partials" {
			continue
		}
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/partials.html", file)
		if err != nil {
			return nil, err
		}
		pages[name] = tmpl
	}
	return pages, nil
}

var funcs = template.FuncMap{
	"badge": func(s attendance.Status) string { return s.Badge() },
	"clock": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Local().Format("03:04 PM")
	},
	"datetime": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.Local().Format("Jan 2, 2006 03:04 PM")
	},
	"deref": func(n *int) string {
		if n == nil {
			return "-"
		}
		return strconv.Itoa(*n)
	},
	"active": func(current, prefix string) bool { return strings.HasPrefix(current, prefix) },
	"years":  func() []int { return []int{1, 2, 3, 4} },
	"field": func(label, typ, name, value string, errs forms.Errors) formField {
		return formField{Label: label, Type: typ, Name: name, Value: value, Error: errs[name]}
	},
}

// formField is one labelled input with its validation message.
type formField struct {
	Label string
	Type  string
	Name  string
	Value string
	Error string
}
