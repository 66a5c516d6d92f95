package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/employee-directory/internal/domain/auth"
	"github.com/cmlabs-hris/employee-directory/internal/domain/employee"
	"github.com/cmlabs-hris/employee-directory/internal/handler/http/response"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/blobstore"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/imageenc"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/jwt"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/sse"
	"github.com/cmlabs-hris/employee-directory/internal/repository/blob"
	authService "github.com/cmlabs-hris/employee-directory/internal/service/auth"
	employeeService "github.com/cmlabs-hris/employee-directory/internal/service/employee"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	handlerTestSecret   = "test-secret-key-for-jwt"
	handlerTestUsername = "admin"
	handlerTestPassword = "password123"
	handlerTestMaxBytes = 64 << 10
)

type envelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    json.RawMessage       `json:"data"`
	Error   *response.ErrorDetail `json:"error"`
	Meta    *response.Meta        `json:"meta"`
}

type testApp struct {
	router chi.Router
	repo   employee.EmployeeRepository
	hub    *sse.Hub
}

func newTestApp(t *testing.T, seed ...employee.Employee) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hash, err := bcrypt.GenerateFromPassword([]byte(handlerTestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	repo := blob.NewEmployeeRepository(blobstore.NewMemoryStore())
	for _, e := range seed {
		require.NoError(t, repo.Insert(context.Background(), e))
	}

	hub := sse.NewHub()
	jwtSvc := jwt.NewJWTService(handlerTestSecret, time.Hour)
	authSvc := authService.NewAuthService(jwtSvc, handlerTestUsername, string(hash))
	employeeSvc := employeeService.NewEmployeeService(
		repo,
		imageenc.New(0, handlerTestMaxBytes),
		employeeService.NewMillisClock(),
		hub,
		5,
		logger,
	)

	router := NewRouter(
		RouterConfig{AllowedOrigins: []string{"http://localhost:3000"}, Logger: logger, LogLevel: slog.LevelError},
		jwtSvc,
		NewAuthHandler(authSvc),
		NewEmployeeHandler(employeeSvc, jwtSvc, hub, handlerTestMaxBytes),
	)
	return &testApp{router: router, repo: repo, hub: hub}
}

func (a *testApp) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (a *testApp) login(t *testing.T) string {
	t.Helper()
	body, _ := json.Marshal(auth.LoginRequest{Username: handlerTestUsername, Password: handlerTestPassword})
	w, env := a.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	var tokens auth.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	return tokens.AccessToken
}

func authed(method, target, token string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func validForm(email string) map[string]interface{} {
	return map[string]interface{}{
		"name":        "Alice",
		"email":       email,
		"mobile":      "1234567890",
		"designation": "HR",
		"gender":      "F",
		"courses":     []string{"MCA"},
		"create_date": "2024-06-01",
	}
}

// multipartBody encodes data as the "data" field and, when img is non-nil, an "image" part.
func multipartBody(t *testing.T, data map[string]interface{}, img []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("data", string(payload)))

	if img != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="alice.png"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(img)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func seedEmployee(id int64, name, email string) employee.Employee {
	return employee.Employee{
		EmployeeID:  id,
		Name:        name,
		Email:       email,
		Mobile:      "9876543210",
		Designation: "Sales",
		Gender:      "M",
		Courses:     []string{"BCA"},
		Image:       employee.EncodedImage("data:image/png;base64,AAAA"),
		CreateDate:  "2023-05-01",
	}
}

func TestAuthHandler_Login(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"success", `{"username":"admin","password":"password123"}`, http.StatusCreated},
		{"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized},
		{"missing fields", `{}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"username":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := app.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusCreated, env.Success)
		})
	}
}

func TestAuthHandler_SessionAndLogout(t *testing.T) {
	app := newTestApp(t)

	_, env := app.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil))
	var session auth.SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.False(t, session.Authenticated)

	token := app.login(t)
	_, env = app.do(t, authed(http.MethodGet, "/api/v1/auth/session", token, nil))
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.True(t, session.Authenticated)
	assert.Equal(t, handlerTestUsername, session.Username)

	w, _ := app.do(t, authed(http.MethodPost, "/api/v1/auth/logout", token, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = app.do(t, authed(http.MethodGet, "/api/v1/employees", token, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has been revoked", env.Error.Message)
}

func TestEmployeeHandler_RequiresAuth(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := app.do(t, authed(http.MethodGet, "/api/v1/employees", tt.token, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestEmployeeHandler_CreateGetList(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t)

	body, contentType := multipartBody(t, validForm("alice@x.com"), pngBytes(t))
	req := authed(http.MethodPost, "/api/v1/employees", token, body)
	req.Header.Set("Content-Type", contentType)
	w, env := app.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created employee.EmployeeResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Positive(t, created.EmployeeID)
	assert.Equal(t, "Alice", created.Name)
	require.NotNil(t, created.Image)
	assert.True(t, strings.HasPrefix(*created.Image, "data:image/png;base64,"))

	w, env = app.do(t, authed(http.MethodGet, "/api/v1/employees/"+jsonInt(created.EmployeeID), token, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var fetched employee.EmployeeResponse
	require.NoError(t, json.Unmarshal(env.Data, &fetched))
	assert.Equal(t, created, fetched)

	w, env = app.do(t, authed(http.MethodGet, "/api/v1/employees?search=ALICE", token, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var rows []employee.EmployeeResponse
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	assert.Len(t, rows, 1)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.TotalItems)
	assert.Equal(t, "1-1 of 1", env.Meta.Showing)
}

func TestEmployeeHandler_Create_Rejected(t *testing.T) {
	app := newTestApp(t, seedEmployee(1, "Bob", "bob@x.com"))
	token := app.login(t)

	t.Run("field errors", func(t *testing.T) {
		form := validForm("alice@x.com")
		form["mobile"] = "12345"
		body, contentType := multipartBody(t, form, pngBytes(t))
		req := authed(http.MethodPost, "/api/v1/employees", token, body)
		req.Header.Set("Content-Type", contentType)

		w, env := app.do(t, req)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Details, employee.FieldMobile)
	})

	t.Run("missing image", func(t *testing.T) {
		body, contentType := multipartBody(t, validForm("alice@x.com"), nil)
		req := authed(http.MethodPost, "/api/v1/employees", token, body)
		req.Header.Set("Content-Type", contentType)

		w, env := app.do(t, req)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, env.Error.Details, employee.FieldImage)
	})

	t.Run("duplicate email", func(t *testing.T) {
		body, contentType := multipartBody(t, validForm("bob@x.com"), pngBytes(t))
		req := authed(http.MethodPost, "/api/v1/employees", token, body)
		req.Header.Set("Content-Type", contentType)

		w, env := app.do(t, req)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, env.Error.Details, employee.FieldEmail)
	})

	t.Run("declared png with gif bytes", func(t *testing.T) {
		body, contentType := multipartBody(t, validForm("alice@x.com"), []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"))
		req := authed(http.MethodPost, "/api/v1/employees", token, body)
		req.Header.Set("Content-Type", contentType)

		w, env := app.do(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Details, employee.FieldImage)
	})

	t.Run("upload too large", func(t *testing.T) {
		body, contentType := multipartBody(t, validForm("alice@x.com"), bytes.Repeat([]byte{0xff}, handlerTestMaxBytes+1))
		req := authed(http.MethodPost, "/api/v1/employees", token, body)
		req.Header.Set("Content-Type", contentType)

		w, _ := app.do(t, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("missing data field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.Close())
		req := authed(http.MethodPost, "/api/v1/employees", token, &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		w, _ := app.do(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	records, err := app.repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestEmployeeHandler_UpdateDelete(t *testing.T) {
	app := newTestApp(t, seedEmployee(1, "Bob", "bob@x.com"), seedEmployee(2, "Carol", "carol@x.com"))
	token := app.login(t)

	w, env := app.do(t, authed(http.MethodPut, "/api/v1/employees/1", token, strings.NewReader(`{"name":"Robert"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated employee.EmployeeResponse
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "Robert", updated.Name)
	assert.Equal(t, "bob@x.com", updated.Email)

	w, _ = app.do(t, authed(http.MethodPut, "/api/v1/employees/99", token, strings.NewReader(`{"name":"X"}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = app.do(t, authed(http.MethodPut, "/api/v1/employees/abc", token, strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = app.do(t, authed(http.MethodDelete, "/api/v1/employees/1", token, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(t, authed(http.MethodDelete, "/api/v1/employees/1", token, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	records, err := app.repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Carol", records[0].Name)
}

func TestEmployeeHandler_List_Query(t *testing.T) {
	var seed []employee.Employee
	for i, name := range []string{"Eve", "Dan", "Cat", "Bob", "Ann", "Fay", "Gus"} {
		seed = append(seed, seedEmployee(int64(i+1), name, strings.ToLower(name)+"@x.com"))
	}
	app := newTestApp(t, seed...)
	token := app.login(t)

	w, env := app.do(t, authed(http.MethodGet, "/api/v1/employees?sort_by=name&sort_order=desc&page=2", token, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var rows []employee.EmployeeResponse
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Bob", rows[0].Name)
	assert.Equal(t, "Ann", rows[1].Name)
	assert.Equal(t, 2, env.Meta.TotalPages)
	assert.Equal(t, 1, env.Meta.PrevPage)
	assert.Equal(t, "6-7 of 7", env.Meta.Showing)

	w, env = app.do(t, authed(http.MethodGet, "/api/v1/employees?sort_by=name&sort_order=asc&toggle_sort=name", token, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "name", env.Meta.SortBy)
	assert.Equal(t, "descending", env.Meta.SortOrder)
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	assert.Equal(t, "Gus", rows[0].Name)

	tests := []struct {
		name  string
		query string
	}{
		{"unknown sort key", "sort_by=salary"},
		{"non-numeric page", "page=two"},
		{"bad direction", "sort_by=name&sort_order=sideways"},
		{"unknown toggle key", "toggle_sort=salary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := app.do(t, authed(http.MethodGet, "/api/v1/employees?"+tt.query, token, nil))
			assert.Contains(t, []int{http.StatusBadRequest, http.StatusUnprocessableEntity}, w.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestEmployeeHandler_ValidateField(t *testing.T) {
	app := newTestApp(t, seedEmployee(1, "Bob", "bob@x.com"))
	token := app.login(t)

	tests := []struct {
		name          string
		body          string
		wantError     bool
		wantDuplicate bool
	}{
		{"valid name", `{"field":"name","value":"Alice"}`, false, false},
		{"blank name", `{"field":"name","value":"  "}`, true, false},
		{"bad mobile", `{"field":"mobile","value":"12ab"}`, true, false},
		{"duplicate email", `{"field":"email","value":"bob@x.com"}`, false, true},
		{"own email while editing", `{"employee_id":1,"field":"email","value":"bob@x.com"}`, false, false},
		{"gif image", `{"field":"image","value":"a.gif","content_type":"image/gif"}`, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := app.do(t, authed(http.MethodPost, "/api/v1/employees/validate", token, strings.NewReader(tt.body)))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var result employee.ValidateFieldResponse
			require.NoError(t, json.Unmarshal(env.Data, &result))
			assert.Equal(t, tt.wantError, result.Error != "", result.Error)
			assert.Equal(t, tt.wantDuplicate, result.DuplicateEmail != "", result.DuplicateEmail)
		})
	}

	w, _ := app.do(t, authed(http.MethodPost, "/api/v1/employees/validate", token, strings.NewReader(`{"field":"salary","value":"1"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestEmployeeHandler_Export(t *testing.T) {
	app := newTestApp(t, seedEmployee(1, "Bob", "bob@x.com"), seedEmployee(2, "Ann", "ann@x.com"))
	token := app.login(t)

	w, _ := app.do(t, authed(http.MethodGet, "/api/v1/employees/export?sort_by=name", token, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(employeeService.ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Ann", rows[1][1])
	assert.Equal(t, "Bob", rows[2][1])
}

func TestEmployeeHandler_PagingEdges(t *testing.T) {
	app := newTestApp(t, seedEmployee(1, "Bob", "bob@x.com"), seedEmployee(2, "Ann", "ann@x.com"))
	token := app.login(t)

	w, _ := app.do(t, authed(http.MethodGet, "/api/v1/employees/export?limit=500", token, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	w, env := app.do(t, authed(http.MethodGet, "/api/v1/employees?page=1844674407370955163", token, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, "0 of 2", env.Meta.Showing)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestEmployeeHandler_Events(t *testing.T) {
	app := newTestApp(t, seedEmployee(1, "Bob", "bob@x.com"))
	token := app.login(t)
	server := httptest.NewServer(app.router)
	defer server.Close()

	w, env := app.do(t, authed(http.MethodPost, "/api/v1/auth/sse-token", token, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var sseToken auth.SSETokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &sseToken))

	resp, err := http.Get(server.URL + "/api/v1/employees/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/employees/events?token="+sseToken.Token, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	waitFor := func(line string) {
		t.Helper()
		for scanner.Scan() {
			if scanner.Text() == line {
				return
			}
		}
		t.Fatalf("stream ended before %q: %v", line, scanner.Err())
	}

	waitFor("event: connected")
	require.Eventually(t, func() bool { return app.hub.SubscriberCount(sse.TopicEmployees) == 1 }, time.Second, 10*time.Millisecond)

	w, _ = app.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "employee_directory_sse_subscribers 1")

	w, _ = app.do(t, authed(http.MethodDelete, "/api/v1/employees/1", token, nil))
	require.Equal(t, http.StatusOK, w.Code)

	waitFor("event: " + sse.EventEmployeesChanged)
	require.True(t, scanner.Scan())
	assert.Contains(t, scanner.Text(), `"action":"delete"`)
}

func TestRouter_Ambient(t *testing.T) {
	app := newTestApp(t)

	w, _ := app.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
