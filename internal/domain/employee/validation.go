package employee

import (
	"strings"

	"github.com/cmlabs-hris/employee-directory/internal/pkg/validator"
)

type ErrorKind string

const (
	KindRequired         ErrorKind = "FIELD_REQUIRED"
	KindFormat           ErrorKind = "FIELD_FORMAT_INVALID"
	KindLength           ErrorKind = "FIELD_LENGTH_INVALID"
	KindDuplicateEmail   ErrorKind = "DUPLICATE_EMAIL"
	KindUnsupportedImage ErrorKind = "UNSUPPORTED_IMAGE_TYPE"
)

const mobileLength = 10

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string
	Kind    ErrorKind
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// FieldErrors maps a field name to its current error.
type FieldErrors map[string]FieldError

// Messages returns the field -> message mapping used for rendering.
func (f FieldErrors) Messages() map[string]string {
	m := make(map[string]string, len(f))
	for field, fe := range f {
		m[field] = fe.Message
	}
	return m
}

// Err converts the mapping into validator.ValidationErrors, or nil when empty.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return validator.FromMap(f.Messages())
}

// EmailSet is the set of emails already present in the collection.
type EmailSet map[string]struct{}

func NewEmailSet(emails ...string) EmailSet {
	s := make(EmailSet, len(emails))
	for _, e := range emails {
		s[e] = struct{}{}
	}
	return s
}

func (s EmailSet) Contains(email string) bool {
	_, ok := s[email]
	return ok
}

// ExistingEmails collects the emails of records, skipping the record whose id is exclude.
func ExistingEmails(records []Employee, exclude int64) EmailSet {
	s := make(EmailSet, len(records))
	for _, r := range records {
		if exclude != 0 && r.EmployeeID == exclude {
			continue
		}
		s[r.Email] = struct{}{}
	}
	return s
}

// FieldContext carries what the email rules need besides the value itself.
type FieldContext struct {
	ExistingEmails EmailSet
	Editing        bool
}

type fieldRule func(rec Employee) *FieldError

// rules is the single per-field table shared by blur, incremental and full validation.
var rules = map[string]fieldRule{
	FieldName: func(rec Employee) *FieldError {
		if validator.IsEmpty(rec.Name) {
			return required(FieldName, "Name is required")
		}
		return nil
	},
	FieldEmail: func(rec Employee) *FieldError {
		return emailRule(rec.Email)
	},
	FieldMobile: func(rec Employee) *FieldError {
		return mobileRule(rec.Mobile)
	},
	FieldDesignation: func(rec Employee) *FieldError {
		if rec.Designation == "" {
			return required(FieldDesignation, "Designation is required")
		}
		if !validator.IsOneOf(rec.Designation, Designations...) {
			return &FieldError{Field: FieldDesignation, Kind: KindFormat, Message: "Designation must be one of HR, Manager, Sales"}
		}
		return nil
	},
	FieldGender: func(rec Employee) *FieldError {
		if rec.Gender == "" {
			return required(FieldGender, "Gender is required")
		}
		if !validator.IsOneOf(rec.Gender, Genders...) {
			return &FieldError{Field: FieldGender, Kind: KindFormat, Message: "Gender must be M or F"}
		}
		return nil
	},
	FieldCourses: func(rec Employee) *FieldError {
		if len(rec.Courses) == 0 {
			return required(FieldCourses, "At least one course is required")
		}
		for _, c := range rec.Courses {
			if !validator.IsOneOf(c, Courses...) {
				return &FieldError{Field: FieldCourses, Kind: KindFormat, Message: "Courses must be drawn from MCA, BCA, BSC"}
			}
		}
		return nil
	},
	FieldImage: func(rec Employee) *FieldError {
		if rec.Image.IsZero() {
			return required(FieldImage, "Image is required")
		}
		if rec.Image.IsRaw() {
			return ValidateImageType(rec.Image.Upload.ContentType)
		}
		return nil
	},
	FieldCreateDate: func(rec Employee) *FieldError {
		if rec.CreateDate == "" {
			return required(FieldCreateDate, "Creation date is required")
		}
		if _, ok := validator.IsValidDate(rec.CreateDate); !ok {
			return &FieldError{Field: FieldCreateDate, Kind: KindFormat, Message: "Creation date must be a YYYY-MM-DD date"}
		}
		return nil
	},
}

func required(field, msg string) *FieldError {
	return &FieldError{Field: field, Kind: KindRequired, Message: msg}
}

func emailRule(email string) *FieldError {
	switch {
	case email == "":
		return required(FieldEmail, "Email is required")
	case !validator.IsValidEmail(email):
		return &FieldError{Field: FieldEmail, Kind: KindFormat, Message: "Invalid email format"}
	}
	return nil
}

func mobileRule(mobile string) *FieldError {
	switch {
	case mobile == "":
		return required(FieldMobile, "Mobile number is required")
	case !validator.IsNumeric(mobile):
		return &FieldError{Field: FieldMobile, Kind: KindFormat, Message: "Mobile number must be numeric"}
	case len(mobile) != mobileLength:
		return &FieldError{Field: FieldMobile, Kind: KindLength, Message: "Mobile number must be exactly 10 digits"}
	}
	return nil
}

// ValidateImageType accepts only the MIME types in AllowedImageTypes.
func ValidateImageType(contentType string) *FieldError {
	if validator.IsOneOf(contentType, AllowedImageTypes...) {
		return nil
	}
	return &FieldError{Field: FieldImage, Kind: KindUnsupportedImage, Message: "Only JPG/PNG files are allowed"}
}

// CheckDuplicateEmail reports a duplicate only when creating, the email passes the
// format check, and it is already taken. Edits are never checked, even when the new
// address belongs to a different record.
func CheckDuplicateEmail(email string, ctx FieldContext) *FieldError {
	if ctx.Editing || emailRule(email) != nil {
		return nil
	}
	if ctx.ExistingEmails.Contains(email) {
		return &FieldError{Field: FieldEmail, Kind: KindDuplicateEmail, Message: "This email is already in use"}
	}
	return nil
}

// ValidateField is the on-change check for a scalar input. A blank value always yields
// the generic "<Field> is required" message; otherwise email and mobile run their
// specific rules and every other field passes.
func ValidateField(name, value string) *FieldError {
	if validator.IsEmpty(value) {
		return required(name, requiredMessage(name))
	}
	switch name {
	case FieldEmail:
		return emailRule(value)
	case FieldMobile:
		return mobileRule(value)
	}
	return nil
}

// ValidateRecordField runs the submit-time rule for a single field of rec.
func ValidateRecordField(rec Employee, name string) (*FieldError, error) {
	rule, ok := rules[name]
	if !ok {
		return nil, ErrUnknownField
	}
	return rule(rec), nil
}

// ValidateRecord runs every rule and returns the aggregated mapping. The record is
// valid iff the mapping is empty. Duplicate emails are reported by Validate, not here.
func ValidateRecord(rec Employee) FieldErrors {
	errs := make(FieldErrors)
	for _, field := range Fields {
		if fe := rules[field](rec); fe != nil {
			errs[field] = *fe
		}
	}
	return errs
}

// Report is the outcome of a full validation: field errors plus the separate
// duplicate-email channel.
type Report struct {
	Errors    FieldErrors
	Duplicate *FieldError
}

func (r Report) Valid() bool {
	return len(r.Errors) == 0 && r.Duplicate == nil
}

// Validate runs ValidateRecord and the duplicate-email check.
func Validate(rec Employee, ctx FieldContext) Report {
	return Report{
		Errors:    ValidateRecord(rec),
		Duplicate: CheckDuplicateEmail(rec.Email, ctx),
	}
}

// IsField reports whether name is an editable field.
func IsField(name string) bool {
	_, ok := rules[name]
	return ok
}

func requiredMessage(name string) string {
	if name == "" {
		return "Field is required"
	}
	return strings.ToUpper(name[:1]) + name[1:] + " is required"
}
