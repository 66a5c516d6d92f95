package auth

import (
	"context"
)

type AuthService interface {
	// Login checks the admin credentials and issues an access token
	Login(ctx context.Context, req LoginRequest) (TokenResponse, error)

	// Logout revokes the access token carried by ctx
	Logout(ctx context.Context) error

	// Session describes the access token carried by ctx
	Session(ctx context.Context) (SessionResponse, error)

	// SSEToken issues a short-lived token for the change event stream
	SSEToken(ctx context.Context) (SSETokenResponse, error)
}
