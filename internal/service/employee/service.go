package employee

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/employee-directory/internal/domain/employee"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/metrics"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/sse"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/validator"
)

type EmployeeServiceImpl struct {
	employeeRepo employee.EmployeeRepository
	encoder      employee.ImageEncoder
	ids          IDSource
	hub          *sse.Hub
	pageSize     int
	logger       *slog.Logger
}

// NewEmployeeService wires the employee use cases. hub may be nil when nobody listens
// for change events.
func NewEmployeeService(
	employeeRepo employee.EmployeeRepository,
	encoder employee.ImageEncoder,
	ids IDSource,
	hub *sse.Hub,
	pageSize int,
	logger *slog.Logger,
) employee.EmployeeService {
	if pageSize <= 0 {
		pageSize = employee.DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmployeeServiceImpl{
		employeeRepo: employeeRepo,
		encoder:      encoder,
		ids:          ids,
		hub:          hub,
		pageSize:     pageSize,
		logger:       logger,
	}
}

func (s *EmployeeServiceImpl) newEditor() *Editor {
	return NewEditor(s.employeeRepo, s.encoder, s.ids, s.logger)
}

// applyToggle folds a header click into the explicit sort fields.
func applyToggle(filter employee.EmployeeFilter) employee.EmployeeFilter {
	if filter.ToggleSort == "" {
		return filter
	}
	dir, _ := employee.ParseSortDirection(filter.SortOrder)
	key, dir := ToggleSort(filter.SortBy, dir, filter.ToggleSort)
	filter.SortBy, filter.SortOrder, filter.ToggleSort = key, string(dir), ""
	return filter
}

func (s *EmployeeServiceImpl) withDefaults(filter employee.EmployeeFilter) employee.EmployeeFilter {
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.Limit == 0 {
		filter.Limit = s.pageSize
	}
	return filter
}

func (s *EmployeeServiceImpl) publish(action string, id int64) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(sse.TopicEmployees, sse.Event{
		Event: sse.EventEmployeesChanged,
		Data: map[string]interface{}{
			"action":      action,
			"employee_id": id,
		},
	})
}

// mutationResult classifies an error for the mutation counter.
func mutationResult(err error) string {
	var validationErrs validator.ValidationErrors
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.As(err, &validationErrs),
		errors.Is(err, employee.ErrDuplicateEmail),
		errors.Is(err, employee.ErrEmployeeNotFound),
		errors.Is(err, employee.ErrInvalidEmployeeID):
		return metrics.ResultRejected
	}
	return metrics.ResultError
}

// ListEmployees implements employee.EmployeeService.
func (s *EmployeeServiceImpl) ListEmployees(ctx context.Context, filter employee.EmployeeFilter) (employee.ListEmployeeResponse, error) {
	filter = s.withDefaults(filter)
	if err := filter.Validate(); err != nil {
		return employee.ListEmployeeResponse{}, err
	}
	filter = applyToggle(filter)

	start := time.Now()
	records, err := s.employeeRepo.LoadAll(ctx)
	if err != nil {
		return employee.ListEmployeeResponse{}, fmt.Errorf("failed to list employees: %w", err)
	}

	page, err := Derive(records, filter.Query())
	if err != nil {
		return employee.ListEmployeeResponse{}, err
	}
	metrics.ObserveList(time.Since(start))

	responses := make([]employee.EmployeeResponse, 0, len(page.Rows))
	for _, emp := range page.Rows {
		responses = append(responses, employee.ToResponse(emp))
	}

	total := page.TotalCount
	showing := fmt.Sprintf("0 of %d", total)
	// A non-empty page lies within pageCount, so the offset cannot overflow.
	if len(page.Rows) > 0 {
		offset := (filter.Page - 1) * filter.Limit
		showing = fmt.Sprintf("%d-%d of %d", offset+1, offset+len(page.Rows), total)
	}

	return employee.ListEmployeeResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: page.PageCount,
		PrevPage:   PrevPage(filter.Page),
		NextPage:   NextPage(filter.Page, total, filter.Limit),
		Showing:    showing,
		SortBy:     filter.SortBy,
		SortOrder:  filter.SortOrder,
		Employees:  responses,
	}, nil
}

// GetEmployee implements employee.EmployeeService.
func (s *EmployeeServiceImpl) GetEmployee(ctx context.Context, id int64) (employee.EmployeeResponse, error) {
	emp, err := s.employeeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return employee.EmployeeResponse{}, employee.ErrEmployeeNotFound
		}
		return employee.EmployeeResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}

	return employee.ToResponse(emp), nil
}

// CreateEmployee implements employee.EmployeeService.
func (s *EmployeeServiceImpl) CreateEmployee(ctx context.Context, form employee.EmployeeForm) (employee.EmployeeResponse, error) {
	editor := s.newEditor()
	if err := editor.Load(ctx, 0); err != nil {
		metrics.RecordMutation("create", metrics.ResultError)
		return employee.EmployeeResponse{}, err
	}

	saved, err := s.submit(ctx, editor, form)
	metrics.RecordMutation("create", mutationResult(err))
	if err != nil {
		return employee.EmployeeResponse{}, err
	}

	s.logger.Info("employee created", "employee_id", saved.EmployeeID)
	s.publish("create", saved.EmployeeID)
	return employee.ToResponse(saved), nil
}

// UpdateEmployee implements employee.EmployeeService.
func (s *EmployeeServiceImpl) UpdateEmployee(ctx context.Context, id int64, form employee.EmployeeForm) (employee.EmployeeResponse, error) {
	if id <= 0 {
		metrics.RecordMutation("update", metrics.ResultRejected)
		return employee.EmployeeResponse{}, employee.ErrInvalidEmployeeID
	}

	editor := s.newEditor()
	if err := editor.Load(ctx, id); err != nil {
		metrics.RecordMutation("update", metrics.ResultError)
		return employee.EmployeeResponse{}, err
	}
	if !editor.Editing() {
		metrics.RecordMutation("update", metrics.ResultRejected)
		return employee.EmployeeResponse{}, employee.ErrEmployeeNotFound
	}

	saved, err := s.submit(ctx, editor, form)
	metrics.RecordMutation("update", mutationResult(err))
	if err != nil {
		return employee.EmployeeResponse{}, err
	}

	s.logger.Info("employee updated", "employee_id", saved.EmployeeID)
	s.publish("update", saved.EmployeeID)
	return employee.ToResponse(saved), nil
}

func (s *EmployeeServiceImpl) submit(ctx context.Context, editor *Editor, form employee.EmployeeForm) (employee.Employee, error) {
	if err := editor.Apply(form); err != nil {
		return employee.Employee{}, err
	}
	saved, err := editor.Submit(ctx)
	if err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) && !errors.Is(err, employee.ErrDuplicateEmail) {
			s.logger.Error("failed to submit employee", "employee_id", editor.Record().EmployeeID, "error", err)
		}
		return employee.Employee{}, err
	}
	return saved, nil
}

// DeleteEmployee implements employee.EmployeeService.
func (s *EmployeeServiceImpl) DeleteEmployee(ctx context.Context, id int64) error {
	err := s.employeeRepo.Remove(ctx, id)
	metrics.RecordMutation("delete", mutationResult(err))
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return employee.ErrEmployeeNotFound
		}
		return fmt.Errorf("failed to delete employee: %w", err)
	}

	s.logger.Info("employee deleted", "employee_id", id)
	s.publish("delete", id)
	return nil
}

// ValidateField implements employee.EmployeeService. The check runs inside a throwaway
// editing session so that the duplicate-email channel sees the same context a form would.
func (s *EmployeeServiceImpl) ValidateField(ctx context.Context, req employee.ValidateFieldRequest) (employee.ValidateFieldResponse, error) {
	if err := req.Validate(); err != nil {
		return employee.ValidateFieldResponse{}, err
	}

	editor := s.newEditor()
	if err := editor.Load(ctx, req.EmployeeID); err != nil {
		return employee.ValidateFieldResponse{}, err
	}

	switch req.Field {
	case employee.FieldImage:
		if req.ContentType == "" {
			editor.SetImage(nil)
		} else {
			editor.SetImage(&employee.Upload{ContentType: req.ContentType})
		}
	case employee.FieldCourses:
		editor.SetCourses(splitCourses(req.Value))
		if err := editor.Blur(employee.FieldCourses); err != nil {
			return employee.ValidateFieldResponse{}, err
		}
	default:
		if err := editor.SetField(req.Field, req.Value); err != nil {
			return employee.ValidateFieldResponse{}, err
		}
	}

	resp := employee.ValidateFieldResponse{Field: req.Field}
	if fe, ok := editor.Errors()[req.Field]; ok {
		resp.Error = fe.Message
		resp.ErrorKind = string(fe.Kind)
	}
	if dup := editor.DuplicateEmail(); dup != nil {
		resp.DuplicateEmail = dup.Message
	}
	return resp, nil
}

func splitCourses(value string) []string {
	var courses []string
	for _, c := range strings.Split(value, ",") {
		if c = strings.TrimSpace(c); c != "" {
			courses = append(courses, c)
		}
	}
	return courses
}

// ExportEmployees implements employee.EmployeeService.
func (s *EmployeeServiceImpl) ExportEmployees(ctx context.Context, filter employee.EmployeeFilter, w io.Writer) error {
	// The export is never paginated, so page and limit are ignored.
	if err := filter.ValidateSort(); err != nil {
		return err
	}
	filter = applyToggle(filter)

	records, err := s.employeeRepo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to export employees: %w", err)
	}

	rows, err := FilterAndSort(records, filter.Query())
	if err != nil {
		return err
	}

	return WriteWorkbook(w, rows)
}
