package jwt

import (
	"errors"
	"sync"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Token types carried in the "type" claim.
const (
	TypeAccess = "access"
	TypeSSE    = "sse"
)

const sseTokenLifetime = 5 * time.Minute

type Service interface {
	GenerateAccessToken(username string) (token string, expiresAt int64, err error)
	GenerateSSEToken(username string) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (username string, err error)
	JWTAuth() *jwtauth.JWTAuth
	RevokeToken(jti string, expiresAt time.Time)
	IsTokenRevoked(jti string) bool
}

type JWTService struct {
	accessTokenExpiration time.Duration
	tokenAuth             *jwtauth.JWTAuth
	now                   func() time.Time

	// revokedTokens maps a jti to the token's expiry; entries are pruned once expired.
	revokedTokens map[string]time.Time
	mu            sync.RWMutex
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpiration time.Duration) Service {
	return &JWTService{
		accessTokenExpiration: accessTokenExpiration,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                   time.Now,
		revokedTokens:         make(map[string]time.Time),
	}
}

func (j *JWTService) GenerateAccessToken(username string) (token string, expiresAt int64, err error) {
	expiresAt = j.now().Add(j.accessTokenExpiration).Unix()

	claims := map[string]interface{}{
		"username": username,
		"type":     TypeAccess,
		"jti":      uuid.NewString(),
		"exp":      expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// RevokeToken blacklists a token id until its expiry.
func (j *JWTService) RevokeToken(jti string, expiresAt time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	for id, exp := range j.revokedTokens {
		if exp.Before(now) {
			delete(j.revokedTokens, id)
		}
	}
	j.revokedTokens[jti] = expiresAt
}

func (j *JWTService) IsTokenRevoked(jti string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, revoked := j.revokedTokens[jti]
	return revoked
}

// GenerateSSEToken generates a short-lived token for SSE connections, which cannot
// send an Authorization header from the browser.
func (j *JWTService) GenerateSSEToken(username string) (token string, expiresIn int, err error) {
	expiresIn = int(sseTokenLifetime.Seconds())
	expiresAt := j.now().Add(sseTokenLifetime).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"username": username,
		"type":     TypeSSE,
		"exp":      expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateSSEToken validates an SSE token and returns the username
func (j *JWTService) ValidateSSEToken(tokenString string) (username string, err error) {
	if tokenString == "" {
		return "", errors.New("missing sse token")
	}

	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return "", err
	}
	if err := jwt.Validate(token, jwt.WithAcceptableSkew(30*time.Second)); err != nil {
		return "", err
	}

	// Check token type
	tokenType, ok := token.Get("type")
	if !ok || tokenType != TypeSSE {
		return "", jwt.ErrInvalidJWT()
	}

	usernameVal, ok := token.Get("username")
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}

	username, ok = usernameVal.(string)
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}

	return username, nil
}
