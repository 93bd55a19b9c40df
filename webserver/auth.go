package webserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// errInvalidToken covers every way ParseWithClaims can reject a token:
// bad signature, expired, malformed. Callers only need to know it failed.
var errInvalidToken = errors.New("invalid or expired admin token")

// AdminClaims identifies the bearer of an admin token issued by this
// server; only Role is checked, the rest is bookkeeping.
type AdminClaims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies admin bearer tokens against a single
// server-held secret.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer builds an issuer around secret. An empty secret disables
// authentication: Middleware becomes a no-op passthrough.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// Issue signs a 24-hour admin token for subject.
func (t *TokenIssuer) Issue(subject string) (string, error) {
	claims := &AdminClaims{
		Subject: subject,
		Role:    "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			Issuer:    "cdrgo",
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(t.secret)
}

func (t *TokenIssuer) verify(tokenStr string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, errInvalidToken
	}
	if claims.Role != "admin" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// Middleware rejects requests without a valid "Bearer <token>" admin
// token. If the issuer has no secret configured, every request passes
// through unauthenticated — the operator has opted out of admin auth.
func (t *TokenIssuer) Middleware(next http.Handler) http.Handler {
	if len(t.secret) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Authorization: Bearer <token> required", http.StatusUnauthorized)
			return
		}
		if _, err := t.verify(parts[1]); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashSecret bcrypt-hashes an operator-supplied admin passphrase for
// storage. Token signing uses the configured secret as given.
func HashSecret(passphrase string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	return string(b), err
}
