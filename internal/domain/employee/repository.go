package employee

import "context"

// EmployeeRepository owns the canonical collection. Insert, Update and Remove are the
// only mutation paths; each persists the whole collection in one write.
//
// Insert fails with ErrDuplicateEmail when another record already has the email.
// Update fails with ErrEmployeeNotFound when the id is gone.
type EmployeeRepository interface {
	LoadAll(ctx context.Context) ([]Employee, error)
	GetByID(ctx context.Context, id int64) (Employee, error)
	Insert(ctx context.Context, e Employee) error
	Update(ctx context.Context, e Employee) error
	Remove(ctx context.Context, id int64) error
}
