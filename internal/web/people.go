package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/api"
	"attendance-portal/internal/forms"
)

func (h *Handler) teacherRoutes(g *gin.RouterGroup) {
	g.GET("", h.Teachers)
	g.GET("/new", h.NewTeacher)
	g.POST("", h.CreateTeacher)
	g.GET("/:id/edit", h.EditTeacher)
	g.POST("/:id", h.UpdateTeacher)
	g.POST("/:id/delete", h.DeleteTeacher)
}

func (h *Handler) studentRoutes(g *gin.RouterGroup) {
	g.GET("", h.Students)
	g.GET("/new", h.NewStudent)
	g.POST("", h.CreateStudent)
	g.GET("/:id/edit", h.EditStudent)
	g.POST("/:id", h.UpdateStudent)
	g.POST("/:id/delete", h.DeleteStudent)
}

// Teachers lists teachers. A failed fetch keeps the filters and shows an
// empty table with the notice.
func (h *Handler) Teachers(c *gin.Context) {
	base := section(c) + "/teachers"
	p := listParams(c)
	res, err := h.client(c).ListTeachers(c.Request.Context(), p)
	if err != nil {
		if h.failed(c, err) {
			return
		}
		h.render(c, http.StatusBadGateway, "teachers", page{Title: "Teachers", Notice: api.Notice(err), Data: newListView(base, p, []api.Teacher(nil), 0, 0)})
		return
	}
	h.render(c, http.StatusOK, "teachers", page{Title: "Teachers", Data: newListView(base, p, res.Teachers, len(res.Teachers), res.Total)})
}

func (h *Handler) NewTeacher(c *gin.Context) {
	base := section(c) + "/teachers"
	h.render(c, http.StatusOK, "teacher_form", page{Title: "Add Teacher", Data: formView{Action: base, Back: base, Create: true, Form: forms.TeacherForm{}}})
}

func (h *Handler) EditTeacher(c *gin.Context) {
	base := section(c) + "/teachers"
	t, err := h.client(c).GetTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		if h.failed(c, err) {
			return
		}
		redirectBack(c, base, flashError, api.Notice(err))
		return
	}
	h.render(c, http.StatusOK, "teacher_form", page{Title: "Edit Teacher", Data: formView{Action: base + "/" + c.Param("id"), Back: base, Form: forms.TeacherFormFrom(t)}})
}

func (h *Handler) CreateTeacher(c *gin.Context) {
	if h.submitTeacher(c, "").Committed {
		redirectBack(c, section(c)+"/teachers", flashSuccess, "Teacher created successfully")
	}
}

func (h *Handler) UpdateTeacher(c *gin.Context) {
	if h.submitTeacher(c, c.Param("id")).Committed {
		redirectBack(c, section(c)+"/teachers", flashSuccess, "Teacher updated successfully")
	}
}

// submitTeacher validates and sends the teacher form. When nothing was
// committed the response has already been written.
func (h *Handler) submitTeacher(c *gin.Context, id string) forms.Outcome {
	base := section(c) + "/teachers"
	create := id == ""
	view := formView{Action: base, Back: base, Create: create}
	title := "Add Teacher"
	if !create {
		view.Action = base + "/" + id
		title = "Edit Teacher"
	}

	f, errs := forms.BindTeacher(c, create)
	in := f.Input(create)
	f.Password = ""
	view.Form = f
	if errs != nil {
		h.render(c, http.StatusUnprocessableEntity, "teacher_form", page{Title: title, Errors: errs, Data: view})
		return forms.Outcome{}
	}

	var err error
	if create {
		err = h.client(c).CreateTeacher(c.Request.Context(), in)
	} else {
		err = h.client(c).UpdateTeacher(c.Request.Context(), id, in)
	}
	if err != nil {
		if !h.failed(c, err) {
			h.render(c, http.StatusBadGateway, "teacher_form", page{Title: title, Notice: api.Notice(err), Data: view})
		}
		return forms.Outcome{}
	}
	return forms.Outcome{Committed: true}
}

func (h *Handler) DeleteTeacher(c *gin.Context) {
	base := section(c) + "/teachers"
	if err := h.client(c).DeleteTeacher(c.Request.Context(), c.Param("id")); err != nil {
		if h.failed(c, err) {
			return
		}
		redirectBack(c, base, flashError, api.Notice(err))
		return
	}
	redirectBack(c, base, flashSuccess, "Teacher deleted successfully")
}

// Students lists students with the same failure behaviour as Teachers.
func (h *Handler) Students(c *gin.Context) {
	base := section(c) + "/students"
	p := listParams(c)
	res, err := h.client(c).ListStudents(c.Request.Context(), p)
	if err != nil {
		if h.failed(c, err) {
			return
		}
		h.render(c, http.StatusBadGateway, "students", page{Title: "Students", Notice: api.Notice(err), Data: newListView(base, p, []api.Student(nil), 0, 0)})
		return
	}
	h.render(c, http.StatusOK, "students", page{Title: "Students", Data: newListView(base, p, res.Students, len(res.Students), res.Total)})
}

func (h *Handler) NewStudent(c *gin.Context) {
	base := section(c) + "/students"
	h.render(c, http.StatusOK, "student_form", page{Title: "Add Student", Data: formView{Action: base, Back: base, Create: true, Form: forms.StudentForm{}}})
}

func (h *Handler) EditStudent(c *gin.Context) {
	base := section(c) + "/students"
	s, err := h.client(c).GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		if h.failed(c, err) {
			return
		}
		redirectBack(c, base, flashError, api.Notice(err))
		return
	}
	h.render(c, http.StatusOK, "student_form", page{Title: "Edit Student", Data: formView{Action: base + "/" + c.Param("id"), Back: base, Form: forms.StudentFormFrom(s)}})
}

func (h *Handler) CreateStudent(c *gin.Context) {
	if h.submitStudent(c, "").Committed {
		redirectBack(c, section(c)+"/students", flashSuccess, "Student created successfully")
	}
}

func (h *Handler) UpdateStudent(c *gin.Context) {
	if h.submitStudent(c, c.Param("id")).Committed {
		redirectBack(c, section(c)+"/students", flashSuccess, "Student updated successfully")
	}
}

func (h *Handler) submitStudent(c *gin.Context, id string) forms.Outcome {
	base := section(c) + "/students"
	create := id == ""
	view := formView{Action: base, Back: base, Create: create}
	title := "Add Student"
	if !create {
		view.Action = base + "/" + id
		title = "Edit Student"
	}

	f, errs := forms.BindStudent(c, create)
	in := f.Input(create)
	f.Password = ""
	view.Form = f
	if errs != nil {
		h.render(c, http.StatusUnprocessableEntity, "student_form", page{Title: title, Errors: errs, Data: view})
		return forms.Outcome{}
	}

	var err error
	if create {
		err = h.client(c).CreateStudent(c.Request.Context(), in)
	} else {
		err = h.client(c).UpdateStudent(c.Request.Context(), id, in)
	}
	if err != nil {
		if !h.failed(c, err) {
			h.render(c, http.StatusBadGateway, "student_form", page{Title: title, Notice: api.Notice(err), Data: view})
		}
		return forms.Outcome{}
	}
	return forms.Outcome{Committed: true}
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	base := section(c) + "/students"
	if err := h.client(c).DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		if h.failed(c, err) {
			return
		}
		redirectBack(c, base, flashError, api.Notice(err))
		return
	}
	redirectBack(c, base, flashSuccess, "Student deleted successfully")
}
