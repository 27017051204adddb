package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListTeachers returns a page of teachers.
func (c *Client) ListTeachers(ctx context.Context, p ListParams) (TeacherPage, error) {
	var out TeacherPage
	err := c.get(ctx, "teachers.list", "/auth/teachers", listQuery(p), &out)
	return out, err
}

// GetTeacher returns one teacher.
func (c *Client) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	var out struct {
		Teacher Teacher `json:"teacher"`
	}
	err := c.get(ctx, "teachers.get", "/auth/teachers/"+url.PathEscape(id), nil, &out)
	return out.Teacher, err
}

// CreateTeacher registers a teacher account.
func (c *Client) CreateTeacher(ctx context.Context, in TeacherInput) error {
	return c.do(ctx, "teachers.create", http.MethodPost, "/auth/teachers", nil, in, nil)
}

// UpdateTeacher updates name and email of a teacher.
func (c *Client) UpdateTeacher(ctx context.Context, id string, in TeacherInput) error {
	in.Password = ""
	return c.do(ctx, "teachers.update", http.MethodPut, "/auth/teachers/"+url.PathEscape(id), nil, in, nil)
}

// DeleteTeacher removes a teacher account.
func (c *Client) DeleteTeacher(ctx context.Context, id string) error {
	return c.do(ctx, "teachers.delete", http.MethodDelete, "/auth/teachers/"+url.PathEscape(id), nil, nil, nil)
}

// ListStudents returns a page of students.
func (c *Client) ListStudents(ctx context.Context, p ListParams) (StudentPage, error) {
	var out StudentPage
	err := c.get(ctx, "students.list", "/auth/students", listQuery(p), &out)
	return out, err
}

// GetStudent returns one student.
func (c *Client) GetStudent(ctx context.Context, id string) (Student, error) {
	var out struct {
		Student Student `json:"student"`
	}
	err := c.get(ctx, "students.get", "/auth/students/"+url.PathEscape(id), nil, &out)
	return out.Student, err
}

// CreateStudent registers a student account.
func (c *Client) CreateStudent(ctx context.Context, in StudentInput) error {
	return c.do(ctx, "students.create", http.MethodPost, "/auth/students", nil, in, nil)
}

// UpdateStudent updates a student, including fingerprint enrollment fields.
func (c *Client) UpdateStudent(ctx context.Context, id string, in StudentInput) error {
	in.Password = ""
	return c.do(ctx, "students.update", http.MethodPut, "/auth/students/"+url.PathEscape(id), nil, in, nil)
}

// DeleteStudent removes a student account.
func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	return c.do(ctx, "students.delete", http.MethodDelete, "/auth/students/"+url.PathEscape(id), nil, nil, nil)
}
