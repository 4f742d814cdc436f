package security

import (
	"errors"
	"fmt"
	"time"
	"trailwise/internal/common"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer issues and verifies the signed bearer tokens used for login
// sessions. The signing key and validity window are fixed at construction;
// verification depends on nothing but them and the token itself.
type TokenIssuer struct {
	auth     *jwtauth.JWTAuth
	validity time.Duration
}

func NewTokenIssuer(secret []byte, validity time.Duration) *TokenIssuer {
	return &TokenIssuer{
		auth:     jwtauth.New("HS256", secret, nil),
		validity: validity,
	}
}

// JWTAuth exposes the underlying verifier for the router-level
// jwtauth.Verifier middleware.
func (t *TokenIssuer) JWTAuth() *jwtauth.JWTAuth {
	return t.auth
}

func (t *TokenIssuer) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(t.validity).Unix(),
	}
	_, tokenString, err := t.auth.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("encoding token: %w", err)
	}
	return tokenString, nil
}

// Verify checks signature and expiry and returns the subject id and the
// instant the token was issued. Malformed, tampered and expired tokens all
// come back as ErrUnauthenticated.
func (t *TokenIssuer) Verify(tokenString string) (string, time.Time, error) {
	token, err := jwtauth.VerifyToken(t.auth, tokenString)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", common.ErrUnauthenticated, err)
	}

	userID, err := SubjectFromToken(token)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", common.ErrUnauthenticated, err)
	}
	return userID, token.IssuedAt(), nil
}

// SubjectFromToken pulls the user_id claim out of a verified token.
func SubjectFromToken(token interface {
	Get(string) (interface{}, bool)
}) (string, error) {
	raw, ok := token.Get("user_id")
	if !ok {
		return "", errors.New("user_id claim is missing")
	}
	userID, ok := raw.(string)
	if !ok || userID == "" {
		return "", errors.New("user_id claim is not a string")
	}
	return userID, nil
}
