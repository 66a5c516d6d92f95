package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/employee-directory/internal/domain/employee"
	"github.com/cmlabs-hris/employee-directory/internal/handler/http/response"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/jwt"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/metrics"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// multipartOverhead leaves room for the "data" field and part headers.
	multipartOverhead = 1 << 20
)

type EmployeeHandler interface {
	ListEmployees(w http.ResponseWriter, r *http.Request)
	GetEmployee(w http.ResponseWriter, r *http.Request)
	CreateEmployee(w http.ResponseWriter, r *http.Request)
	UpdateEmployee(w http.ResponseWriter, r *http.Request)
	DeleteEmployee(w http.ResponseWriter, r *http.Request)
	ValidateField(w http.ResponseWriter, r *http.Request)
	ExportEmployees(w http.ResponseWriter, r *http.Request)
	Events(w http.ResponseWriter, r *http.Request)
}

type employeeHandlerImpl struct {
	employeeService employee.EmployeeService
	jwtService      jwt.Service
	hub             *sse.Hub
	maxUploadBytes  int64
	keepAlive       time.Duration
}

func NewEmployeeHandler(employeeService employee.EmployeeService, jwtService jwt.Service, hub *sse.Hub, maxUploadBytes int64) EmployeeHandler {
	return &employeeHandlerImpl{
		employeeService: employeeService,
		jwtService:      jwtService,
		hub:             hub,
		maxUploadBytes:  maxUploadBytes,
		keepAlive:       30 * time.Second,
	}
}

// ListEmployees implements EmployeeHandler
func (h *employeeHandlerImpl) ListEmployees(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}

	result, err := h.employeeService.ListEmployees(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Employees, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: int64(result.TotalCount),
		TotalPages: result.TotalPages,
		PrevPage:   result.PrevPage,
		NextPage:   result.NextPage,
		Showing:    result.Showing,
		SortBy:     result.SortBy,
		SortOrder:  result.SortOrder,
	})
}

// GetEmployee implements EmployeeHandler
func (h *employeeHandlerImpl) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEmployeeID(w, r)
	if !ok {
		return
	}

	result, err := h.employeeService.GetEmployee(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// CreateEmployee implements EmployeeHandler
func (h *employeeHandlerImpl) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	result, err := h.employeeService.CreateEmployee(r.Context(), form)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Employee created successfully", result)
}

// UpdateEmployee implements EmployeeHandler
func (h *employeeHandlerImpl) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEmployeeID(w, r)
	if !ok {
		return
	}

	form, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	result, err := h.employeeService.UpdateEmployee(r.Context(), id, form)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Employee updated successfully", result)
}

// DeleteEmployee implements EmployeeHandler
func (h *employeeHandlerImpl) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEmployeeID(w, r)
	if !ok {
		return
	}

	if err := h.employeeService.DeleteEmployee(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Employee deleted successfully", nil)
}

// ValidateField implements EmployeeHandler
func (h *employeeHandlerImpl) ValidateField(w http.ResponseWriter, r *http.Request) {
	var req employee.ValidateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode validate request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.employeeService.ValidateField(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ExportEmployees implements EmployeeHandler. The workbook is built in memory so
// that a failure can still be reported as JSON.
func (h *employeeHandlerImpl) ExportEmployees(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.employeeService.ExportEmployees(r.Context(), filter, &buf); err != nil {
		response.HandleError(w, err)
		return
	}

	filename := fmt.Sprintf("employees-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write export", "error", err)
	}
}

// Events streams collection change notifications. Browsers cannot set headers on an
// EventSource, so the short-lived SSE token travels in the query string.
func (h *employeeHandlerImpl) Events(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		response.Unauthorized(w, "Missing token")
		return
	}

	username, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		response.Unauthorized(w, "Invalid token")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(sse.TopicEmployees)
	subscribers := h.hub.SubscriberCount(sse.TopicEmployees)
	metrics.SetSSESubscribers(subscribers)
	slog.Debug("SSE client connected", "username", username, "subscribers", subscribers)
	defer func() {
		cleanup()
		metrics.SetSSESubscribers(h.hub.SubscriberCount(sse.TopicEmployees))
	}()

	writeEvent(w, "connected", map[string]interface{}{"status": "connected", "username": username})
	flusher.Flush()

	keepalive := time.NewTicker(h.keepAlive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, event.Event, event.Data)
			flusher.Flush()

		case <-keepalive.C:
			writeEvent(w, "ping", map[string]interface{}{"timestamp": time.Now().Unix()})
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w io.Writer, name string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("Failed to encode event", "event", name, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
}

// parseForm reads an EmployeeForm from either a multipart body ("data" JSON plus an
// optional "image" file) or a plain JSON body.
func (h *employeeHandlerImpl) parseForm(w http.ResponseWriter, r *http.Request) (employee.EmployeeForm, bool) {
	var form employee.EmployeeForm

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			slog.Error("Failed to decode employee form", "error", err)
			response.BadRequest(w, "Invalid request format", nil)
			return form, false
		}
		return form, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes + multipartOverhead); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.RequestEntityTooLarge(w, fmt.Sprintf("Upload exceeds %d bytes", h.maxUploadBytes))
			return form, false
		}
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return form, false
	}

	dataJSON := r.FormValue("data")
	if dataJSON == "" {
		response.BadRequest(w, "Field 'data' is required", nil)
		return form, false
	}
	if err := json.Unmarshal([]byte(dataJSON), &form); err != nil {
		slog.Error("Failed to unmarshal JSON data", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return form, false
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return form, true
	}
	if err != nil {
		slog.Error("Failed to read image part", "error", err)
		response.BadRequest(w, "Failed to read image", nil)
		return form, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		slog.Error("Failed to read image data", "error", err)
		response.BadRequest(w, "Failed to read image", nil)
		return form, false
	}
	if int64(len(data)) > h.maxUploadBytes {
		response.RequestEntityTooLarge(w, fmt.Sprintf("Upload exceeds %d bytes", h.maxUploadBytes))
		return form, false
	}

	form.Image = &employee.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	return form, true
}

func parseEmployeeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Invalid employee ID", nil)
		return 0, false
	}
	return id, true
}

func parseFilter(w http.ResponseWriter, r *http.Request) (employee.EmployeeFilter, bool) {
	q := r.URL.Query()
	filter := employee.EmployeeFilter{
		Search:     q.Get("search"),
		SortBy:     q.Get("sort_by"),
		SortOrder:  q.Get("sort_order"),
		ToggleSort: q.Get("toggle_sort"),
	}

	details := map[string]string{}
	if p := q.Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil {
			details["page"] = "page must be a number"
		}
		filter.Page = page
	}
	if l := q.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			details["limit"] = "limit must be a number"
		}
		filter.Limit = limit
	}

	if len(details) > 0 {
		response.BadRequest(w, "Invalid query parameters", details)
		return filter, false
	}
	return filter, true
}
