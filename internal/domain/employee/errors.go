package employee

import "errors"

var (
	ErrEmployeeNotFound     = errors.New("employee not found")
	ErrDuplicateEmail       = errors.New("this email is already in use")
	ErrUnsupportedImageType = errors.New("only JPG/PNG files are allowed")
	ErrImageEncodingFailed  = errors.New("image encoding failed")
	ErrRawImage             = errors.New("raw image upload cannot be persisted")
	ErrInvalidEmployeeID    = errors.New("invalid employee id")
	ErrInvalidSortKey       = errors.New("invalid sort key")
	ErrInvalidSortDirection = errors.New("sort direction must be ascending or descending")
	ErrUnknownField         = errors.New("unknown employee field")
	ErrDuplicateEmployeeID  = errors.New("duplicate employee id in collection")
)
