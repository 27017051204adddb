package api

import "time"

// Role is the account role reported by the backend.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Known reports whether r is one of the three portal roles.
func (r Role) Known() bool {
	return r == RoleAdmin || r == RoleTeacher || r == RoleStudent
}

// User is the authenticated account as returned by login and profile.
type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          Role       `json:"role"`
	StudentID     string     `json:"studentId,omitempty"`
	Department    string     `json:"department,omitempty"`
	Year          int        `json:"year,omitempty"`
	Section       string     `json:"section,omitempty"`
	FingerprintID *int       `json:"fingerprintId,omitempty"`
	DeviceID      string     `json:"deviceId,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Teacher mirrors a teacher record.
type Teacher struct {
	ID        string     `json:"_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	IsActive  bool       `json:"isActive"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Student mirrors a student record.
type Student struct {
	ID            string     `json:"_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	StudentID     string     `json:"studentId"`
	Department    string     `json:"department"`
	Year          int        `json:"year"`
	Section       string     `json:"section"`
	FingerprintID *int       `json:"fingerprintId,omitempty"`
	DeviceID      string     `json:"deviceId,omitempty"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
}

// Enrolled reports whether the student has a fingerprint assigned.
func (s Student) Enrolled() bool {
	return s.FingerprintID != nil
}

// Device mirrors a fingerprint reader record.
type Device struct {
	ID              string     `json:"_id"`
	DeviceID        string     `json:"deviceId"`
	Name            string     `json:"name"`
	Department      string     `json:"department"`
	Year            int        `json:"year"`
	Section         string     `json:"section"`
	Model           string     `json:"model"`
	MaxFingerprints int        `json:"maxFingerprints"`
	EnrolledCount   int        `json:"enrolledCount"`
	IsActive        bool       `json:"isActive"`
	IsOnline        bool       `json:"isOnline"`
	LastSeen        *time.Time `json:"lastSeen,omitempty"`
}

// AttendanceEvent is a single IN/OUT mark recorded by the backend.
type AttendanceEvent struct {
	ID            string    `json:"_id"`
	StudentID     string    `json:"studentId"`
	FingerprintID *int      `json:"fingerprintId,omitempty"`
	DeviceID      string    `json:"deviceId,omitempty"`
	Action        string    `json:"action"`
	Session       string    `json:"session"`
	Timestamp     time.Time `json:"timestamp"`
}

// ListParams are the filter and pagination parameters shared by list endpoints.
type ListParams struct {
	Search     string
	Department string
	Year       int
	Section    string
	Limit      int
	Skip       int
}

// DefaultLimit is the page size used when none is given.
const DefaultLimit = 50

// TeacherPage is one page of teachers.
type TeacherPage struct {
	Teachers []Teacher `json:"teachers"`
	Total    int       `json:"total"`
}

// StudentPage is one page of students.
type StudentPage struct {
	Students []Student `json:"students"`
	Total    int       `json:"total"`
}

// DevicePage is one page of devices.
type DevicePage struct {
	Devices    []Device `json:"devices"`
	Pagination struct {
		Total int `json:"total"`
	} `json:"pagination"`
}

// Total returns the number of devices matching the query.
func (p DevicePage) Total() int {
	return p.Pagination.Total
}

// TeacherInput is the create/update payload for teachers. Password is only sent on create.
type TeacherInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// StudentInput is the create/update payload for students.
type StudentInput struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password,omitempty"`
	StudentID     string `json:"studentId"`
	Department    string `json:"department"`
	Year          int    `json:"year"`
	Section       string `json:"section"`
	FingerprintID *int   `json:"fingerprintId,omitempty"`
	DeviceID      string `json:"deviceId,omitempty"`
}

// DeviceInput is the create/update payload for devices.
type DeviceInput struct {
	DeviceID        string `json:"deviceId,omitempty"`
	Name            string `json:"name"`
	Department      string `json:"department"`
	Year            int    `json:"year"`
	Section         string `json:"section"`
	Model           string `json:"model,omitempty"`
	MaxFingerprints int    `json:"maxFingerprints,omitempty"`
	IsActive        *bool  `json:"isActive,omitempty"`
}

// DeviceStatus is the payload for the device status endpoint.
type DeviceStatus struct {
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// EventQuery filters the attendance events endpoint.
type EventQuery struct {
	StudentID string
	Date      string
	Session   string
	StartDate string
	EndDate   string
	Limit     int
	Skip      int
}

// ManualAttendance is a teacher-entered attendance mark.
type ManualAttendance struct {
	StudentID string     `json:"studentId"`
	Action    string     `json:"action"`
	Session   string     `json:"session"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	DeviceID  string     `json:"deviceId,omitempty"`
}

// ScanInput simulates a fingerprint scan on a device.
type ScanInput struct {
	FingerprintID int        `json:"fingerprintId"`
	DeviceID      string     `json:"deviceId"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
}

// MarkResult is what the backend returns after recording a mark.
type MarkResult struct {
	Message string           `json:"message,omitempty"`
	Action  string           `json:"action,omitempty"`
	Session string           `json:"session,omitempty"`
	Event   *AttendanceEvent `json:"event,omitempty"`
	Student *Student         `json:"student,omitempty"`
}
