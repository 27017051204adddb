package forms

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/api"
	"attendance-portal/internal/attendance"
)

// Device defaults applied when the form leaves them blank.
const (
	DefaultModel           = "R307"
	DefaultMaxFingerprints = 200
)

// Numeric bounds of device and fingerprint fields.
const (
	MaxFingerprintID = math.MaxInt32
	// SensorCapacity is the template capacity of the supported sensors.
	SensorCapacity = 1000
)

// DeviceForm is the create/edit device form.
type DeviceForm struct {
	DeviceID        string `form:"deviceId" binding:"required"`
	Name            string `form:"name" binding:"required"`
	Department      string `form:"department" binding:"required"`
	Year            string `form:"year" binding:"required,oneof=1 2 3 4"`
	Section         string `form:"section" binding:"required"`
	Model           string `form:"model" binding:"omitempty,oneof=R307 R305"`
	MaxFingerprints string `form:"maxFingerprints"`
}

// BindDevice reads a device form and fills defaults.
func BindDevice(c *gin.Context) (DeviceForm, Errors) {
	var f DeviceForm
	errs := bind(c, &f)
	errs = errs.wholeNumber("maxFingerprints", f.MaxFingerprints, 1, SensorCapacity)
	if f.Model == "" {
		f.Model = DefaultModel
	}
	if f.MaxFingerprints == "" {
		f.MaxFingerprints = strconv.Itoa(DefaultMaxFingerprints)
	}
	return f, errs
}

// Input converts a valid form to the backend payload. The device id is
// fixed once created, so edits do not send it.
func (f DeviceForm) Input(create bool) api.DeviceInput {
	year, _ := strconv.Atoi(f.Year)
	limit, err := strconv.Atoi(f.MaxFingerprints)
	if err != nil || limit <= 0 {
		limit = DefaultMaxFingerprints
	}
	in := api.DeviceInput{
		Name:            f.Name,
		Department:      f.Department,
		Year:            year,
		Section:         f.Section,
		Model:           f.Model,
		MaxFingerprints: limit,
	}
	if create {
		in.DeviceID = f.DeviceID
	}
	return in
}

// DeviceFormFrom prefills the edit form.
func DeviceFormFrom(d api.Device) DeviceForm {
	f := DeviceForm{
		DeviceID:   d.DeviceID,
		Name:       d.Name,
		Department: d.Department,
		Section:    d.Section,
		Model:      d.Model,
	}
	if d.Year > 0 {
		f.Year = strconv.Itoa(d.Year)
	}
	if d.MaxFingerprints > 0 {
		f.MaxFingerprints = strconv.Itoa(d.MaxFingerprints)
	}
	return f
}

// TimestampLayout is the layout of an HTML datetime-local input.
const TimestampLayout = "2006-01-02T15:04"

// ManualForm is a teacher-entered attendance mark.
type ManualForm struct {
	StudentID string `form:"studentId" binding:"required"`
	Action    string `form:"action" binding:"required,oneof=IN OUT"`
	Session   string `form:"session" binding:"required,oneof=morning afternoon"`
	Timestamp string `form:"timestamp" binding:"omitempty,datetime=2006-01-02T15:04"`
	DeviceID  string `form:"deviceId"`
}

// BindManual reads a manual attendance form.
func BindManual(c *gin.Context) (ManualForm, Errors) {
	var f ManualForm
	return f, bind(c, &f)
}

// Input converts a valid form to the backend payload. The timestamp is
// read in loc.
func (f ManualForm) Input(loc *time.Location) api.ManualAttendance {
	in := api.ManualAttendance{
		StudentID: f.StudentID,
		Action:    f.Action,
		Session:   f.Session,
		DeviceID:  f.DeviceID,
	}
	if ts, err := time.ParseInLocation(TimestampLayout, f.Timestamp, loc); err == nil {
		in.Timestamp = &ts
	}
	return in
}

// ReportForm selects a report and its filters.
type ReportForm struct {
	Type       string `form:"type" binding:"omitempty,oneof=daily class student"`
	Date       string `form:"date" binding:"omitempty,datetime=2006-01-02"`
	StartDate  string `form:"startDate" binding:"omitempty,datetime=2006-01-02"`
	EndDate    string `form:"endDate" binding:"omitempty,datetime=2006-01-02"`
	StudentID  string `form:"studentId"`
	Department string `form:"department"`
	Year       string `form:"year" binding:"omitempty,oneof=1 2 3 4"`
	Section    string `form:"section"`
}

// BindReport reads report filters from the query string. The type
// defaults to daily.
func BindReport(c *gin.Context) (ReportForm, Errors) {
	var f ReportForm
	errs := bind(c, &f)
	if f.Type == "" {
		f.Type = string(attendance.KindDaily)
	}
	if f.Type == string(attendance.KindStudent) && f.StudentID == "" {
		errs = errs.add("studentId", "Student ID is required")
	}
	return f, errs
}

// Query converts the form to a report query.
func (f ReportForm) Query() attendance.Query {
	year, _ := strconv.Atoi(f.Year)
	return attendance.Query{
		Mode:       attendance.Kind(f.Type),
		Date:       f.Date,
		StartDate:  f.StartDate,
		EndDate:    f.EndDate,
		StudentID:  f.StudentID,
		Department: f.Department,
		Year:       year,
		Section:    f.Section,
	}
}

// ScanForm simulates a fingerprint scan on a device.
type ScanForm struct {
	FingerprintID string `form:"fingerprintId" binding:"required"`
	DeviceID      string `form:"deviceId" binding:"required"`
}

// BindScan reads a scan form.
func BindScan(c *gin.Context) (ScanForm, Errors) {
	var f ScanForm
	errs := bind(c, &f)
	return f, errs.wholeNumber("fingerprintId", f.FingerprintID, 0, MaxFingerprintID)
}

// Input converts a valid form to the backend payload.
func (f ScanForm) Input() api.ScanInput {
	n, _ := strconv.Atoi(f.FingerprintID)
	return api.ScanInput{FingerprintID: n, DeviceID: f.DeviceID}
}
