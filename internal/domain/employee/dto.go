package employee

import (
	"strings"

	"github.com/cmlabs-hris/employee-directory/internal/pkg/validator"
)

// EmployeeForm carries submitted form state. Nil fields are left as they are on the
// working copy; a non-nil empty Courses slice clears the selection.
type EmployeeForm struct {
	Name        *string  `json:"name,omitempty"`
	Email       *string  `json:"email,omitempty"`
	Mobile      *string  `json:"mobile,omitempty"`
	Designation *string  `json:"designation,omitempty"`
	Gender      *string  `json:"gender,omitempty"`
	Courses     []string `json:"courses,omitempty"`
	CreateDate  *string  `json:"create_date,omitempty"`
	Image       *Upload  `json:"-"`
}

// Scalars returns the provided scalar inputs in form order.
func (f EmployeeForm) Scalars() [][2]string {
	var out [][2]string
	add := func(name string, v *string) {
		if v != nil {
			out = append(out, [2]string{name, *v})
		}
	}
	add(FieldName, f.Name)
	add(FieldEmail, f.Email)
	add(FieldMobile, f.Mobile)
	add(FieldDesignation, f.Designation)
	add(FieldGender, f.Gender)
	add(FieldCreateDate, f.CreateDate)
	return out
}

type ValidateFieldRequest struct {
	EmployeeID  int64  `json:"employee_id,omitempty"`
	Field       string `json:"field"`
	Value       string `json:"value"`
	ContentType string `json:"content_type,omitempty"`
}

func (r *ValidateFieldRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Field) {
		errs = append(errs, validator.ValidationError{
			Field:   "field",
			Message: "field is required",
		})
	} else if !IsField(r.Field) {
		errs = append(errs, validator.ValidationError{
			Field:   "field",
			Message: "field must be one of " + strings.Join(Fields, ", "),
		})
	}
	if r.EmployeeID < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id must be positive",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ValidateFieldResponse struct {
	Field          string `json:"field"`
	Error          string `json:"error,omitempty"`
	ErrorKind      string `json:"error_kind,omitempty"`
	DuplicateEmail string `json:"duplicate_email,omitempty"`
}

type EmployeeFilter struct {
	Search     string
	SortBy     string
	SortOrder  string
	// ToggleSort is a column header click applied on top of SortBy and SortOrder.
	ToggleSort string
	Page       int
	Limit      int
}

func (f *EmployeeFilter) Validate() error {
	errs := f.sortErrors()

	if f.Page < 1 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be at least 1",
		})
	}
	if f.Limit < 1 || f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be between 1 and 100",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateSort checks only sort_by and sort_order, for views that are not paginated.
func (f *EmployeeFilter) ValidateSort() error {
	if errs := f.sortErrors(); len(errs) > 0 {
		return errs
	}
	return nil
}

func (f *EmployeeFilter) sortErrors() validator.ValidationErrors {
	var errs validator.ValidationErrors

	if f.SortBy != "" && !IsSortKey(f.SortBy) {
		errs = append(errs, validator.ValidationError{
			Field:   "sort_by",
			Message: "sort_by must be one of " + strings.Join(SortKeys, ", "),
		})
	}
	if f.SortOrder != "" {
		if _, err := ParseSortDirection(f.SortOrder); err != nil {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_order",
				Message: "sort_order must be asc, desc, ascending or descending",
			})
		}
	}
	if f.ToggleSort != "" && !IsSortKey(f.ToggleSort) {
		errs = append(errs, validator.ValidationError{
			Field:   "toggle_sort",
			Message: "toggle_sort must be one of " + strings.Join(SortKeys, ", "),
		})
	}
	return errs
}

// Query converts the filter into a view query.
func (f EmployeeFilter) Query() Query {
	dir, _ := ParseSortDirection(f.SortOrder)
	return Query{
		Search:    f.Search,
		SortKey:   f.SortBy,
		Direction: dir,
		Page:      f.Page,
		PageSize:  f.Limit,
	}
}

type EmployeeResponse struct {
	EmployeeID  int64    `json:"employee_id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Mobile      string   `json:"mobile"`
	Designation string   `json:"designation"`
	Gender      string   `json:"gender"`
	Courses     []string `json:"courses"`
	Image       *string  `json:"image"`
	CreateDate  string   `json:"create_date"`
}

type ListEmployeeResponse struct {
	TotalCount int                `json:"total_count"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
	PrevPage   int                `json:"prev_page"`
	NextPage   int                `json:"next_page"`
	Showing    string             `json:"showing"`
	SortBy     string             `json:"sort_by,omitempty"`
	SortOrder  string             `json:"sort_order,omitempty"`
	Employees  []EmployeeResponse `json:"employees"`
}

// ToResponse maps a stored record to its API shape.
func ToResponse(e Employee) EmployeeResponse {
	var image *string
	if e.Image.Encoded != "" {
		s := e.Image.Encoded
		image = &s
	}
	courses := e.Courses
	if courses == nil {
		courses = []string{}
	}
	return EmployeeResponse{
		EmployeeID:  e.EmployeeID,
		Name:        e.Name,
		Email:       e.Email,
		Mobile:      e.Mobile,
		Designation: e.Designation,
		Gender:      e.Gender,
		Courses:     courses,
		Image:       image,
		CreateDate:  e.CreateDate,
	}
}
