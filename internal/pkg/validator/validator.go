package validator

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	playground "github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string
	Message string
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string)
	for _, err := range v {
		result[err.Field] = err.Message
	}
	return result
}

// FromMap builds ValidationErrors from a field -> message mapping, ordered by field name.
func FromMap(m map[string]string) ValidationErrors {
	if len(m) == 0 {
		return nil
	}
	fields := make([]string, 0, len(m))
	for field := range m {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	errs := make(ValidationErrors, 0, len(fields))
	for _, field := range fields {
		errs = append(errs, ValidationError{Field: field, Message: m[field]})
	}
	return errs
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email validation: local@domain.tld, no whitespace, exactly one @.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// Numeric validation
var numericRegex = regexp.MustCompile(`^[0-9]+$`)

func IsNumeric(s string) bool {
	return numericRegex.MatchString(s)
}

// Date validation
func IsValidDate(dateStr string) (time.Time, bool) {
	date, err := time.Parse("2006-01-02", dateStr)
	return date, err == nil
}

var validate = newValidate()

func newValidate() *playground.Validate {
	v := playground.New(playground.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// IsOneOf reports whether value is exactly one of allowed.
// Values must not contain spaces.
func IsOneOf(value string, allowed ...string) bool {
	if len(allowed) == 0 {
		return false
	}
	return validate.Var(value, "oneof="+strings.Join(allowed, " ")) == nil
}

// Struct validates s against its `validate` tags. Fields carrying an `env` tag are
// reported under that name, e.g. "JWT_SECRET_KEY"; others under their struct
// namespace, e.g. "sample.Kind".
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if fe.Field() != fe.StructField() {
			field = fe.Field()
		}
		errs = append(errs, ValidationError{
			Field:   field,
			Message: describe(fe),
		})
	}
	return errs
}

func describe(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must not exceed " + fe.Param()
	default:
		return fe.Field() + " failed " + fe.Tag() + " validation"
	}
}
