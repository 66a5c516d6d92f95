package response

import (
	"encoding/json"
	"net/http"
)

type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
	Meta    *Meta        `json:"meta,omitempty"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Meta describes the page of a list response.
type Meta struct {
	Page       int    `json:"page,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	TotalItems int64  `json:"total_items"`
	TotalPages int    `json:"total_pages"`
	PrevPage   int    `json:"prev_page,omitempty"`
	NextPage   int    `json:"next_page,omitempty"`
	Showing    string `json:"showing,omitempty"`
	SortBy     string `json:"sort_by,omitempty"`
	SortOrder  string `json:"sort_order,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fallback := Response{
			Success: false,
			Error: &ErrorDetail{
				Code:    "ENCODING_ERROR",
				Message: "Failed to encode response",
			},
		}
		_ = json.NewEncoder(w).Encode(fallback)
	}
}

// Success responses
func Success(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func SuccessWithMessage(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Created(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func SuccessWithMeta(w http.ResponseWriter, data interface{}, meta *Meta) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func errorResponse(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	writeJSON(w, statusCode, Response{
		Success: false,
		Error: &ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Error responses
func BadRequest(w http.ResponseWriter, message string, details map[string]string) {
	errorResponse(w, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

func ValidationError(w http.ResponseWriter, details map[string]string) {
	errorResponse(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", details)
}

func UnprocessableEntity(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", message, nil)
}

func Unauthorized(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func NotFound(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// Conflict reports a clash with stored data; details name the offending fields.
func Conflict(w http.ResponseWriter, message string, details map[string]string) {
	errorResponse(w, http.StatusConflict, "CONFLICT", message, details)
}

func RequestEntityTooLarge(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", message, nil)
}

func InternalServerError(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message, nil)
}
