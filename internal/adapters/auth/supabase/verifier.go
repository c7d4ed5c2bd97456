package supabase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pawpal/internal/ports/auth"
)

var ErrTokenEmpty = errors.New("token is empty")

// Verifier implementa auth.AuthVerifier. Con JWT secret valida localmente;
// si no, le pregunta a Supabase Auth.
type Verifier struct {
	local  *JWTVerifier
	remote *Client
}

func NewVerifier(local *JWTVerifier, remote *Client) *Verifier {
	return &Verifier{local: local, remote: remote}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	var (
		claims auth.Claims
		err    error
	)
	switch {
	case v.local != nil && len(v.local.secret) > 0:
		claims, err = v.local.Verify(ctx, token)
	case v.remote.IsConfigured():
		claims, err = v.remote.GetUser(ctx, token)
	default:
		return auth.Claims{}, ErrNotConfigured
	}
	if err != nil {
		return auth.Claims{}, fmt.Errorf("supabase verify failed: %w", err)
	}

	claims.UserID = strings.TrimSpace(claims.UserID)
	if claims.UserID == "" {
		return auth.Claims{}, errors.New("supabase claims missing user id")
	}
	return claims, nil
}
