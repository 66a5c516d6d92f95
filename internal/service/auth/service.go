package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/employee-directory/internal/domain/auth"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceImpl struct {
	jwt.Service
	username     string
	passwordHash []byte
}

func NewAuthService(jwtService jwt.Service, username string, passwordHash string) auth.AuthService {
	return &AuthServiceImpl{
		Service:      jwtService,
		username:     username,
		passwordHash: []byte(passwordHash),
	}
}

// HashPassword returns the bcrypt hash to configure as ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login implements auth.AuthService.
func (a *AuthServiceImpl) Login(ctx context.Context, req auth.LoginRequest) (auth.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.TokenResponse{}, err
	}

	// The hash is always compared so that an unknown username costs the same as a wrong password
	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(a.username)) == 1
	passwordErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(req.Password))
	if !usernameOK || passwordErr != nil {
		slog.Warn("Failed login attempt", "username", req.Username)
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}

	token, expiresAt, err := a.Service.GenerateAccessToken(a.username)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to create access token: %w", err)
	}

	return auth.TokenResponse{
		AccessToken:          token,
		AccessTokenExpiresIn: expiresAt,
	}, nil
}

// Logout implements auth.AuthService.
func (a *AuthServiceImpl) Logout(ctx context.Context) error {
	token, _, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil {
		return auth.ErrInvalidToken
	}
	if token.JwtID() == "" {
		return auth.ErrInvalidToken
	}

	a.Service.RevokeToken(token.JwtID(), token.Expiration())
	return nil
}

// Session implements auth.AuthService.
func (a *AuthServiceImpl) Session(ctx context.Context) (auth.SessionResponse, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil || a.Service.IsTokenRevoked(token.JwtID()) {
		return auth.SessionResponse{Authenticated: false}, nil
	}

	username, _ := claims["username"].(string)
	return auth.SessionResponse{
		Authenticated: true,
		Username:      username,
		ExpiresAt:     token.Expiration().Unix(),
	}, nil
}

// SSEToken implements auth.AuthService.
func (a *AuthServiceImpl) SSEToken(ctx context.Context) (auth.SSETokenResponse, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return auth.SSETokenResponse{}, auth.ErrInvalidToken
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return auth.SSETokenResponse{}, auth.ErrInvalidToken
	}

	token, expiresIn, err := a.Service.GenerateSSEToken(username)
	if err != nil {
		return auth.SSETokenResponse{}, fmt.Errorf("failed to create sse token: %w", err)
	}
	return auth.SSETokenResponse{Token: token, ExpiresIn: expiresIn}, nil
}
