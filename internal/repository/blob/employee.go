package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cmlabs-hris/employee-directory/internal/domain/employee"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/blobstore"
)

// EmployeesKey is the blob key holding the whole employee collection.
const EmployeesKey = "employees"

type employeeRepositoryImpl struct {
	store blobstore.Store

	// mu serializes read-modify-write cycles within this process. Separate processes
	// sharing a store are last-write-wins.
	mu sync.Mutex
}

func NewEmployeeRepository(store blobstore.Store) employee.EmployeeRepository {
	return &employeeRepositoryImpl{store: store}
}

func (r *employeeRepositoryImpl) load(ctx context.Context) ([]employee.Employee, error) {
	data, err := r.store.Load(ctx, EmployeesKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return []employee.Employee{}, nil
		}
		return nil, fmt.Errorf("failed to load employees: %w", err)
	}

	var records []employee.Employee
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode employees: %w", err)
	}
	if records == nil {
		records = []employee.Employee{}
	}

	seen := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.EmployeeID]; dup {
			return nil, fmt.Errorf("employee id %d: %w", rec.EmployeeID, employee.ErrDuplicateEmployeeID)
		}
		seen[rec.EmployeeID] = struct{}{}
	}

	return records, nil
}

func (r *employeeRepositoryImpl) save(ctx context.Context, records []employee.Employee) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode employees: %w", err)
	}
	if err := r.store.Save(ctx, EmployeesKey, data); err != nil {
		return fmt.Errorf("failed to save employees: %w", err)
	}
	return nil
}

// LoadAll implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) LoadAll(ctx context.Context) ([]employee.Employee, error) {
	return r.load(ctx)
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByID(ctx context.Context, id int64) (employee.Employee, error) {
	records, err := r.load(ctx)
	if err != nil {
		return employee.Employee{}, err
	}
	for _, rec := range records {
		if rec.EmployeeID == id {
			return rec, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func checkStorable(e employee.Employee) error {
	if e.EmployeeID <= 0 {
		return employee.ErrInvalidEmployeeID
	}
	if e.Image.IsRaw() {
		return employee.ErrRawImage
	}
	return nil
}

// Insert implements employee.EmployeeRepository. Id and email uniqueness are checked
// against the collection read under the write lock.
func (r *employeeRepositoryImpl) Insert(ctx context.Context, e employee.Employee) error {
	if err := checkStorable(e); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if rec.EmployeeID == e.EmployeeID {
			return fmt.Errorf("employee id %d: %w", e.EmployeeID, employee.ErrDuplicateEmployeeID)
		}
	}
	if employee.ExistingEmails(records, 0).Contains(e.Email) {
		return employee.ErrDuplicateEmail
	}

	return r.save(ctx, append(records, e))
}

// Update implements employee.EmployeeRepository. It only replaces; a record removed
// in the meantime stays removed.
func (r *employeeRepositoryImpl) Update(ctx context.Context, e employee.Employee) error {
	if err := checkStorable(e); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(ctx)
	if err != nil {
		return err
	}

	for i := range records {
		if records[i].EmployeeID == e.EmployeeID {
			records[i] = e
			return r.save(ctx, records)
		}
	}
	return employee.ErrEmployeeNotFound
}

// Remove implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(ctx)
	if err != nil {
		return err
	}

	kept := make([]employee.Employee, 0, len(records))
	for _, rec := range records {
		if rec.EmployeeID != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(records) {
		return employee.ErrEmployeeNotFound
	}

	return r.save(ctx, kept)
}
