// Package forms binds and validates the portal's HTML forms and converts
// them to backend payloads. Invalid forms never produce a payload.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ErrInvalid matches any Errors value with errors.Is.
var ErrInvalid = errors.New("invalid form")

// Outcome is the result of submitting a form. Lists are refetched only
// when the submit committed a change.
type Outcome struct {
	Committed bool
}

// Errors maps form field names to a message. The "" key holds errors not
// tied to a field.
type Errors map[string]string

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, m := range e {
		msgs = append(msgs, m)
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}

func (e Errors) Is(target error) bool { return target == ErrInvalid }

func (e Errors) add(field, msg string) Errors {
	if e == nil {
		e = Errors{}
	}
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
	return e
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := strings.Split(f.Tag.Get("form"), ",")[0]; name != "" && name != "-" {
				return name
			}
			return f.Name
		})
	}
}

var labels = map[string]string{
	"name":            "Name",
	"email":           "Email",
	"password":        "Password",
	"studentId":       "Student ID",
	"department":      "Department",
	"year":            "Year",
	"section":         "Section",
	"fingerprintId":   "Fingerprint ID",
	"deviceId":        "Device ID",
	"model":           "Model",
	"maxFingerprints": "Max fingerprints",
	"action":          "Action",
	"session":         "Session",
	"timestamp":       "Timestamp",
	"startDate":       "Start date",
	"endDate":         "End date",
	"date":            "Date",
	"type":            "Report type",
}

func label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

func message(fe validator.FieldError) string {
	l := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return l + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		if fe.Field() == "password" {
			return fmt.Sprintf("Password must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", l, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be %s", l, orList(strings.Fields(fe.Param())))
	case "datetime":
		return l + " is not a valid date"
	default:
		return l + " is invalid"
	}
}

// wholeNumber records an error unless value, when set, is a plain base-10
// integer within [lo, hi]. Signs, decimals and overflow are rejected.
func (e Errors) wholeNumber(field, value string, lo, hi int) Errors {
	if value == "" {
		return e
	}
	n, err := strconv.Atoi(value)
	if err != nil || strings.Trim(value, "0123456789") != "" || n < lo || n > hi {
		return e.add(field, fmt.Sprintf("%s must be a whole number from %d to %d", label(field), lo, hi))
	}
	return e
}

func orList(opts []string) string {
	switch len(opts) {
	case 0:
		return "valid"
	case 1:
		return opts[0]
	}
	return strings.Join(opts[:len(opts)-1], ", ") + " or " + opts[len(opts)-1]
}

// bind decodes the request form into dst and maps validation failures to
// per-field messages.
func bind(c *gin.Context, dst any) Errors {
	err := c.ShouldBind(dst)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return Errors{"": "Invalid form data"}
	}
	var out Errors
	for _, fe := range ve {
		out = out.add(fe.Field(), message(fe))
	}
	return out
}
