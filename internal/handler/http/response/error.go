package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/employee-directory/internal/domain/auth"
	"github.com/cmlabs-hris/employee-directory/internal/domain/employee"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, "Invalid username or password")
	case errors.Is(err, auth.ErrTokenRevoked):
		Unauthorized(w, "Token has been revoked")
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrDuplicateEmail):
		Conflict(w, "Email already registered", map[string]string{
			employee.FieldEmail: employee.ErrDuplicateEmail.Error(),
		})
	// Checked before ErrImageEncodingFailed, which wraps it when the bytes are not JPG/PNG.
	case errors.Is(err, employee.ErrUnsupportedImageType):
		BadRequest(w, employee.ErrUnsupportedImageType.Error(), map[string]string{
			employee.FieldImage: employee.ErrUnsupportedImageType.Error(),
		})
	case errors.Is(err, employee.ErrImageEncodingFailed):
		UnprocessableEntity(w, "Image could not be processed")
	case errors.Is(err, employee.ErrInvalidSortKey),
		errors.Is(err, employee.ErrInvalidSortDirection),
		errors.Is(err, employee.ErrInvalidEmployeeID),
		errors.Is(err, employee.ErrUnknownField):
		BadRequest(w, err.Error(), nil)

	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
