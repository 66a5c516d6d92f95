package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/employee-directory/internal/domain/auth"
	"github.com/cmlabs-hris/employee-directory/internal/handler/http/response"
)

type AuthHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Session(w http.ResponseWriter, r *http.Request)
	SSEToken(w http.ResponseWriter, r *http.Request)
}

type AuthHandlerImpl struct {
	authService auth.AuthService
}

func NewAuthHandler(authService auth.AuthService) AuthHandler {
	return &AuthHandlerImpl{
		authService: authService,
	}
}

// Login implements AuthHandler.
func (a *AuthHandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq auth.LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		slog.Error("Login decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := loginReq.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	tokenResponse, err := a.authService.Login(r.Context(), loginReq)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	slog.Info("Admin logged in", "username", loginReq.Username)
	response.Created(w, "Logged in successfully", tokenResponse)
}

// Logout implements AuthHandler.
func (a *AuthHandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.authService.Logout(r.Context()); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Logged out successfully", nil)
}

// Session implements AuthHandler. It answers without a token too, so the UI can
// decide whether to show the sign-in screen.
func (a *AuthHandlerImpl) Session(w http.ResponseWriter, r *http.Request) {
	session, err := a.authService.Session(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, session)
}

// SSEToken implements AuthHandler.
func (a *AuthHandlerImpl) SSEToken(w http.ResponseWriter, r *http.Request) {
	token, err := a.authService.SSEToken(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, token)
}
