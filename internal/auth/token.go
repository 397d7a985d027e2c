package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Flare200/natours/pkg/middleware"
)

// Token lifecycle (issuing, refresh, revocation) lives in the identity
// provider. This validator only verifies HS256 access tokens and adapts the
// claims for the Auth middleware.

// Claims represents the JWT claims for an access token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Validator validates HS256-signed JWT bearer tokens.
type Validator struct {
	secret []byte
}

// NewValidator creates a token validator with the given signing secret.
func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Validate implements middleware.TokenValidator.
func (v *Validator) Validate(tokenString string) (*middleware.AuthContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid access token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("access token missing subject")
	}

	return &middleware.AuthContext{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
	}, nil
}

// Sign mints a token for the given subject, mostly useful for tests and
// local development tooling.
func (v *Validator) Sign(subjectID, email, role string, expiresAt time.Time) (string, error) {
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "natours-api",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}
