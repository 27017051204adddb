package forms

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-portal/internal/attendance"
)

func postForm(values url.Values) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req
	return c
}

func getQuery(values url.Values) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+values.Encode(), nil)
	return c
}

func TestTeacherFormMessages(t *testing.T) {
	_, errs := BindTeacher(postForm(url.Values{"email": {"not-an-email"}, "password": {"abc"}}), true)
	require.NotNil(t, errs)
	assert.Equal(t, "Name is required", errs["name"])
	assert.Equal(t, "Invalid email format", errs["email"])
	assert.Equal(t, "Password must be at least 6 characters", errs["password"])
	assert.ErrorIs(t, errs, ErrInvalid)
}

func TestTeacherPasswordOnlyOnCreate(t *testing.T) {
	values := url.Values{"name": {"Ada"}, "email": {"ada@x.io"}}

	_, errs := BindTeacher(postForm(values), true)
	assert.Equal(t, "Password is required", errs["password"])

	f, errs := BindTeacher(postForm(values), false)
	assert.Nil(t, errs)
	assert.Empty(t, f.Input(false).Password)
}

func TestStudentFormInput(t *testing.T) {
	f, errs := BindStudent(postForm(url.Values{
		"name": {"Bo"}, "email": {"bo@x.io"}, "password": {"secret1"},
		"studentId": {"S1"}, "department": {"CSE"}, "year": {"2"}, "section": {"A"},
		"fingerprintId": {"17"},
	}), true)
	require.Nil(t, errs)

	in := f.Input(true)
	assert.Equal(t, 2, in.Year)
	require.NotNil(t, in.FingerprintID)
	assert.Equal(t, 17, *in.FingerprintID)
	assert.Equal(t, "secret1", in.Password)
}

func TestStudentFormRejectsBadYear(t *testing.T) {
	_, errs := BindStudent(postForm(url.Values{
		"name": {"Bo"}, "email": {"bo@x.io"}, "studentId": {"S1"},
		"department": {"CSE"}, "year": {"7"}, "section": {"A"},
	}), false)
	assert.Equal(t, "Year must be 1, 2, 3 or 4", errs["year"])
}

func TestDeviceDefaults(t *testing.T) {
	f, errs := BindDevice(postForm(url.Values{
		"deviceId": {"DEV-1"}, "name": {"Lab"}, "department": {"CSE"}, "year": {"1"}, "section": {"B"},
	}))
	require.Nil(t, errs)
	in := f.Input(true)
	assert.Equal(t, "R307", in.Model)
	assert.Equal(t, 200, in.MaxFingerprints)
	assert.Equal(t, "DEV-1", in.DeviceID)
	assert.Empty(t, f.Input(false).DeviceID)
}

func TestDeviceModelRestricted(t *testing.T) {
	_, errs := BindDevice(postForm(url.Values{
		"deviceId": {"DEV-1"}, "name": {"Lab"}, "department": {"CSE"}, "year": {"1"}, "section": {"B"},
		"model": {"R999"},
	}))
	assert.Equal(t, "Model must be R307 or R305", errs["model"])
}

func TestManualForm(t *testing.T) {
	_, errs := BindManual(postForm(url.Values{"studentId": {"S1"}, "action": {"LUNCH"}}))
	assert.Equal(t, "Action must be IN or OUT", errs["action"])
	assert.Equal(t, "Session is required", errs["session"])

	f, errs := BindManual(postForm(url.Values{
		"studentId": {"S1"}, "action": {"IN"}, "session": {"morning"}, "timestamp": {"2024-03-01T09:15"},
	}))
	require.Nil(t, errs)
	in := f.Input(time.UTC)
	require.NotNil(t, in.Timestamp)
	assert.Equal(t, 9, in.Timestamp.Hour())
}

func TestReportForm(t *testing.T) {
	f, errs := BindReport(getQuery(url.Values{}))
	require.Nil(t, errs)
	assert.Equal(t, attendance.KindDaily, f.Query().Mode)

	_, errs = BindReport(getQuery(url.Values{"type": {"student"}}))
	assert.Equal(t, "Student ID is required", errs["studentId"])

	_, errs = BindReport(getQuery(url.Values{"type": {"weekly"}}))
	assert.Contains(t, errs["type"], "Report type must be")
}

func TestFingerprintIDMustBeWholeNumber(t *testing.T) {
	student := url.Values{
		"name": {"Bo"}, "email": {"bo@x.io"}, "studentId": {"S1"},
		"department": {"CSE"}, "year": {"2"}, "section": {"A"},
	}
	for _, bad := range []string{"1.5", "-3", "+3", "1e3", "99999999999999999999"} {
		student.Set("fingerprintId", bad)
		_, errs := BindStudent(postForm(student), false)
		assert.Equal(t, "Fingerprint ID must be a whole number from 0 to 2147483647", errs["fingerprintId"], bad)

		_, errs = BindScan(postForm(url.Values{"fingerprintId": {bad}, "deviceId": {"DEV-1"}}))
		assert.Contains(t, errs, "fingerprintId", bad)
	}

	f, errs := BindScan(postForm(url.Values{"fingerprintId": {"0"}, "deviceId": {"DEV-1"}}))
	require.Nil(t, errs)
	assert.Equal(t, 0, f.Input().FingerprintID)
}

func TestMaxFingerprintsRange(t *testing.T) {
	device := url.Values{"deviceId": {"DEV-1"}, "name": {"Lab"}, "department": {"CSE"}, "year": {"1"}, "section": {"B"}}
	for _, bad := range []string{"12.5", "0", "-1", "1001", "99999999999999999999"} {
		device.Set("maxFingerprints", bad)
		_, errs := BindDevice(postForm(device))
		assert.Equal(t, "Max fingerprints must be a whole number from 1 to 1000", errs["maxFingerprints"], bad)
	}

	device.Set("maxFingerprints", "500")
	f, errs := BindDevice(postForm(device))
	require.Nil(t, errs)
	assert.Equal(t, 500, f.Input(true).MaxFingerprints)
}
