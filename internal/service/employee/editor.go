package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/employee-directory/internal/domain/employee"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/metrics"
)

type EditorState string

const (
	StatePristine   EditorState = "pristine"
	StateEditing    EditorState = "editing"
	StateValidating EditorState = "validating"
	StateRejected   EditorState = "rejected"
	StateAccepted   EditorState = "accepted"
)

// IDSource hands out identifiers for new records.
type IDSource interface {
	NextID() int64
}

// MillisClock issues millisecond timestamps, bumped by one when the clock has not
// advanced since the previous call, so ids are strictly increasing.
type MillisClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewMillisClock() *MillisClock {
	return &MillisClock{now: time.Now}
}

func (c *MillisClock) NextID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.now().UnixMilli()
	if id <= c.last {
		id = c.last + 1
	}
	c.last = id
	return id
}

// Editor holds one editing session over a single record. It is not safe for
// concurrent use.
type Editor struct {
	repo    employee.EmployeeRepository
	encoder employee.ImageEncoder
	ids     IDSource
	logger  *slog.Logger

	state     EditorState
	record    employee.Employee
	editing   bool
	existing  employee.EmailSet
	errors    employee.FieldErrors
	duplicate *employee.FieldError
	touched   map[string]bool
}

func NewEditor(repo employee.EmployeeRepository, encoder employee.ImageEncoder, ids IDSource, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{
		repo:     repo,
		encoder:  encoder,
		ids:      ids,
		logger:   logger,
		state:    StatePristine,
		existing: employee.NewEmailSet(),
		errors:   make(employee.FieldErrors),
		touched:  make(map[string]bool),
	}
}

// Load starts a session. A known id is edited in place; id 0 or an unknown id starts a
// new record with a fresh id.
func (e *Editor) Load(ctx context.Context, id int64) error {
	records, err := e.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load employees: %w", err)
	}

	e.editing = false
	e.errors = make(employee.FieldErrors)
	e.duplicate = nil
	e.touched = make(map[string]bool)

	if id != 0 {
		for _, r := range records {
			if r.EmployeeID == id {
				e.record = r.Clone()
				e.editing = true
				break
			}
		}
		if !e.editing {
			e.logger.Warn("employee not found, starting a new record", "employee_id", id)
		}
	}
	if !e.editing {
		e.record = employee.Employee{EmployeeID: e.ids.NextID(), Courses: []string{}}
	}

	e.existing = employee.ExistingEmails(records, e.ownID())
	e.state = StatePristine
	return nil
}

func (e *Editor) ownID() int64 {
	if e.editing {
		return e.record.EmployeeID
	}
	return 0
}

func (e *Editor) fieldContext() employee.FieldContext {
	return employee.FieldContext{ExistingEmails: e.existing, Editing: e.editing}
}

func (e *Editor) setError(field string, fe *employee.FieldError) {
	if fe == nil {
		delete(e.errors, field)
		return
	}
	e.errors[field] = *fe
}

// SetField updates a scalar field and recomputes its on-change error. Email also
// refreshes the duplicate channel, which stays clear while the format is wrong.
func (e *Editor) SetField(name, value string) error {
	switch name {
	case employee.FieldName:
		e.record.Name = value
	case employee.FieldEmail:
		e.record.Email = value
	case employee.FieldMobile:
		e.record.Mobile = value
	case employee.FieldDesignation:
		e.record.Designation = value
	case employee.FieldGender:
		e.record.Gender = value
	case employee.FieldCreateDate:
		e.record.CreateDate = value
	default:
		return fmt.Errorf("%s: %w", name, employee.ErrUnknownField)
	}

	e.state = StateEditing
	fe := employee.ValidateField(name, value)
	e.setError(name, fe)

	if name == employee.FieldEmail {
		if fe != nil {
			e.duplicate = nil
		} else {
			e.duplicate = employee.CheckDuplicateEmail(value, e.fieldContext())
		}
	}
	return nil
}

// ToggleCourse adds or removes a course. A non-empty selection clears the courses error.
func (e *Editor) ToggleCourse(course string, checked bool) {
	e.state = StateEditing

	has := e.record.HasCourse(course)
	switch {
	case checked && !has:
		e.record.Courses = append(e.record.Courses, course)
	case !checked && has:
		kept := make([]string, 0, len(e.record.Courses))
		for _, c := range e.record.Courses {
			if c != course {
				kept = append(kept, c)
			}
		}
		e.record.Courses = kept
	}

	if len(e.record.Courses) > 0 {
		delete(e.errors, employee.FieldCourses)
	}
}

// SetCourses replaces the selection, one toggle per course.
func (e *Editor) SetCourses(courses []string) {
	for _, c := range append([]string(nil), e.record.Courses...) {
		e.ToggleCourse(c, false)
	}
	for _, c := range courses {
		e.ToggleCourse(c, true)
	}
}

// SetImage stages a raw upload. A nil upload clears the image; an upload with a
// disallowed MIME type sets the image error and is not merged.
func (e *Editor) SetImage(upload *employee.Upload) {
	e.state = StateEditing

	if upload == nil {
		e.record.Image = employee.Image{}
		e.setError(employee.FieldImage, employee.ValidateField(employee.FieldImage, ""))
		return
	}
	if fe := employee.ValidateImageType(upload.ContentType); fe != nil {
		e.errors[employee.FieldImage] = *fe
		return
	}
	e.record.Image = employee.RawImage(upload)
	delete(e.errors, employee.FieldImage)
}

// Blur marks a field touched and re-runs its submit-time rule.
func (e *Editor) Blur(name string) error {
	fe, err := employee.ValidateRecordField(e.record, name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	e.touched[name] = true
	e.setError(name, fe)

	if name == employee.FieldEmail {
		if fe != nil {
			e.duplicate = nil
		} else {
			e.duplicate = employee.CheckDuplicateEmail(e.record.Email, e.fieldContext())
		}
	}
	return nil
}

// Apply feeds a submitted form through the same operations a user would perform.
func (e *Editor) Apply(form employee.EmployeeForm) error {
	for _, kv := range form.Scalars() {
		if err := e.SetField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	if form.Courses != nil {
		e.SetCourses(form.Courses)
	}
	if form.Image != nil {
		e.SetImage(form.Image)
	}
	return nil
}

// Submit validates the working copy against a fresh view of the store and persists it
// when valid. On any failure the store is untouched and the state is Rejected.
func (e *Editor) Submit(ctx context.Context) (employee.Employee, error) {
	e.state = StateValidating

	records, err := e.repo.LoadAll(ctx)
	if err != nil {
		e.state = StateRejected
		return employee.Employee{}, fmt.Errorf("failed to load employees: %w", err)
	}
	e.existing = employee.ExistingEmails(records, e.ownID())

	rejectedImage, hadRejectedImage := e.errors[employee.FieldImage]
	report := employee.Validate(e.record, e.fieldContext())
	e.errors = report.Errors
	e.duplicate = report.Duplicate

	// A rejected upload was never merged; keep its message over the generic one.
	if hadRejectedImage && rejectedImage.Kind == employee.KindUnsupportedImage && e.record.Image.IsZero() {
		e.errors[employee.FieldImage] = rejectedImage
	}

	if len(e.errors) > 0 {
		e.state = StateRejected
		for field, fe := range e.errors {
			metrics.RecordValidationFailure(field, string(fe.Kind))
		}
		return employee.Employee{}, e.errors.Err()
	}
	if e.duplicate != nil {
		e.state = StateRejected
		metrics.RecordValidationFailure(employee.FieldEmail, string(e.duplicate.Kind))
		return employee.Employee{}, employee.ErrDuplicateEmail
	}

	saved := e.record.Clone()
	if saved.Image.IsRaw() {
		start := time.Now()
		encoded, err := e.encoder.Encode(ctx, saved.Image.Upload)
		metrics.ObserveImageEncode(time.Since(start), err)
		if err != nil {
			e.state = StateRejected
			if !errors.Is(err, employee.ErrImageEncodingFailed) {
				err = fmt.Errorf("%w: %w", employee.ErrImageEncodingFailed, err)
			}
			return employee.Employee{}, err
		}
		saved.Image = employee.EncodedImage(encoded)
	}

	persist := e.repo.Insert
	if e.editing {
		persist = e.repo.Update
	}
	if err := persist(ctx, saved); err != nil {
		e.state = StateRejected
		if errors.Is(err, employee.ErrDuplicateEmail) {
			// Another submit took the email after the snapshot above.
			e.duplicate = employee.CheckDuplicateEmail(saved.Email, employee.FieldContext{
				ExistingEmails: employee.NewEmailSet(saved.Email),
			})
			metrics.RecordValidationFailure(employee.FieldEmail, string(employee.KindDuplicateEmail))
			return employee.Employee{}, employee.ErrDuplicateEmail
		}
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return employee.Employee{}, err
		}
		return employee.Employee{}, fmt.Errorf("failed to save employee: %w", err)
	}

	e.record = saved
	e.state = StateAccepted
	return saved.Clone(), nil
}

func (e *Editor) State() EditorState {
	return e.state
}

// Editing reports whether the session edits an existing record.
func (e *Editor) Editing() bool {
	return e.editing
}

// Record returns a copy of the working copy.
func (e *Editor) Record() employee.Employee {
	return e.record.Clone()
}

// Errors returns a copy of the current field errors.
func (e *Editor) Errors() employee.FieldErrors {
	out := make(employee.FieldErrors, len(e.errors))
	for k, v := range e.errors {
		out[k] = v
	}
	return out
}

// DuplicateEmail returns the duplicate-email warning, or nil.
func (e *Editor) DuplicateEmail() *employee.FieldError {
	return e.duplicate
}

func (e *Editor) Touched(name string) bool {
	return e.touched[name]
}
