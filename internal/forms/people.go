package forms

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/api"
)

// TeacherForm is the create/edit teacher form.
type TeacherForm struct {
	Name     string `form:"name" binding:"required"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"omitempty,min=6"`
}

// BindTeacher reads a teacher form. The password is required on create only.
func BindTeacher(c *gin.Context, create bool) (TeacherForm, Errors) {
	var f TeacherForm
	errs := bind(c, &f)
	if create && f.Password == "" {
		errs = errs.add("password", "Password is required")
	}
	return f, errs
}

// Input converts a valid form to the backend payload. Edits never send a password.
func (f TeacherForm) Input(create bool) api.TeacherInput {
	in := api.TeacherInput{Name: f.Name, Email: f.Email}
	if create {
		in.Password = f.Password
	}
	return in
}

// TeacherFormFrom prefills the edit form.
func TeacherFormFrom(t api.Teacher) TeacherForm {
	return TeacherForm{Name: t.Name, Email: t.Email}
}

// StudentForm is the create/edit student form.
type StudentForm struct {
	Name          string `form:"name" binding:"required"`
	Email         string `form:"email" binding:"required,email"`
	Password      string `form:"password" binding:"omitempty,min=6"`
	StudentID     string `form:"studentId" binding:"required"`
	Department    string `form:"department" binding:"required"`
	Year          string `form:"year" binding:"required,oneof=1 2 3 4"`
	Section       string `form:"section" binding:"required"`
	FingerprintID string `form:"fingerprintId"`
	DeviceID      string `form:"deviceId"`
}

// BindStudent reads a student form. The password is required on create only.
func BindStudent(c *gin.Context, create bool) (StudentForm, Errors) {
	var f StudentForm
	errs := bind(c, &f)
	if create && f.Password == "" {
		errs = errs.add("password", "Password is required")
	}
	errs = errs.wholeNumber("fingerprintId", f.FingerprintID, 0, MaxFingerprintID)
	return f, errs
}

// Input converts a valid form to the backend payload.
func (f StudentForm) Input(create bool) api.StudentInput {
	year, _ := strconv.Atoi(f.Year)
	in := api.StudentInput{
		Name:       f.Name,
		Email:      f.Email,
		StudentID:  f.StudentID,
		Department: f.Department,
		Year:       year,
		Section:    f.Section,
		DeviceID:   f.DeviceID,
	}
	if create {
		in.Password = f.Password
	}
	if n, err := strconv.Atoi(f.FingerprintID); err == nil {
		in.FingerprintID = &n
	}
	return in
}

// StudentFormFrom prefills the edit form.
func StudentFormFrom(s api.Student) StudentForm {
	f := StudentForm{
		Name:       s.Name,
		Email:      s.Email,
		StudentID:  s.StudentID,
		Department: s.Department,
		Section:    s.Section,
		DeviceID:   s.DeviceID,
	}
	if s.Year > 0 {
		f.Year = strconv.Itoa(s.Year)
	}
	if s.FingerprintID != nil {
		f.FingerprintID = strconv.Itoa(*s.FingerprintID)
	}
	return f
}

// LoginForm holds the login credentials.
type LoginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

// BindLogin reads the login form.
func BindLogin(c *gin.Context) (LoginForm, Errors) {
	var f LoginForm
	return f, bind(c, &f)
}

// Credentials converts the form to a login request.
func (f LoginForm) Credentials() api.Credentials {
	return api.Credentials{Email: f.Email, Password: f.Password}
}
