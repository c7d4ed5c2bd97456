package supabase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pawpal/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid access token")

// accessClaims es el payload de los access tokens de Supabase.
type accessClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
}

// JWTVerifier valida tokens HS256 localmente con el JWT secret del proyecto.
type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(strings.TrimSpace(secret)), now: time.Now}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return auth.Claims{}, ErrNotConfigured
	}

	var claims accessClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	// la anon key también es un JWT firmado con el mismo secret, pero sin sub
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" || claims.Role == "anon" {
		return auth.Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return auth.Claims{
		UserID:    sub,
		Email:     strings.TrimSpace(claims.Email),
		SessionID: claims.SessionID,
	}, nil
}
