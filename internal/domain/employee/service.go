package employee

import (
	"context"
	"io"
)

// EmployeeService defines business logic for employee operations
type EmployeeService interface {
	// ListEmployees derives one page of the collection (search, sort, paginate)
	ListEmployees(ctx context.Context, filter EmployeeFilter) (ListEmployeeResponse, error)

	// GetEmployee retrieves a single employee by ID
	GetEmployee(ctx context.Context, id int64) (EmployeeResponse, error)

	// CreateEmployee validates and appends a new employee
	CreateEmployee(ctx context.Context, form EmployeeForm) (EmployeeResponse, error)

	// UpdateEmployee validates and replaces an existing employee
	UpdateEmployee(ctx context.Context, id int64, form EmployeeForm) (EmployeeResponse, error)

	// DeleteEmployee removes an employee from the collection
	DeleteEmployee(ctx context.Context, id int64) error

	// ValidateField runs the on-change check for a single form field
	ValidateField(ctx context.Context, req ValidateFieldRequest) (ValidateFieldResponse, error)

	// ExportEmployees writes the filtered and sorted collection as an XLSX workbook
	ExportEmployees(ctx context.Context, filter EmployeeFilter, w io.Writer) error
}

// ImageEncoder turns a raw upload into its at-rest string form.
type ImageEncoder interface {
	Encode(ctx context.Context, upload *Upload) (string, error)
}
