package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenExpiration is the fixed validity window for session tokens.
const DefaultTokenExpiration = 12 * time.Hour

var (
	// ErrTokenExpired indicates a well-formed token past its expiry;
	// clients should re-authenticate silently.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates a malformed or tampered token; clients
	// must log in again.
	ErrTokenInvalid = errors.New("invalid token")
)

// SessionClaims is the identity claim bundle carried by a session token.
type SessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and validates signed session tokens. It is
// stateless; tokens are never stored server-side.
type TokenIssuer struct {
	signingKey []byte
	expiration time.Duration
}

func NewTokenIssuer(signingKey []byte, expiration time.Duration) *TokenIssuer {
	return &TokenIssuer{
		signingKey: signingKey,
		expiration: expiration,
	}
}

// Issue produces a signed token carrying the user's identity claims.
func (ti *TokenIssuer) Issue(email, name string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.expiration)),
		},
	})

	signed, err := token.SignedString(ti.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Validate verifies the token's signature and expiry and returns the
// embedded claims. Expired tokens are distinguished from structurally
// invalid ones.
func (ti *TokenIssuer) Validate(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !token.Valid || claims.Email == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func HashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func VerifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}
