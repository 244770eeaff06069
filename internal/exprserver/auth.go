package exprserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// authKey is the context key family an authHandler populates.
type authKey int

const authLoggedIn authKey = iota

// IssueToken mints a bearer token for subject, signed with secret,
// expiring after ttl. The returned string is also what TokenHash should be
// given to produce the value an authHandler checks requests against.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	claims := &jwt.MapClaims{
		"iss": "exprserver",
		"sub": subject,
		"exp": time.Now().Add(ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return tok.SignedString(secret)
}

// TokenHash bcrypt-hashes tok so a Server can store the hash instead of
// the bearer token itself.
func TokenHash(tok string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(tok), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// authHandler is middleware that extracts a bearer JWT from each request,
// validates it against secret, and checks its signed string against
// tokenHash with bcrypt before admitting the request. Requests without a
// valid token are delayed by unauthDelay and rejected.
type authHandler struct {
	secret      []byte
	tokenHash   string
	unauthDelay time.Duration
	next        http.Handler
}

// RequireBearerToken wraps next so every request must carry
// "Authorization: Bearer <token>" where token validates against secret and
// hashes to tokenHash.
func RequireBearerToken(secret []byte, tokenHash string, unauthDelay time.Duration, next http.Handler) http.Handler {
	return &authHandler{secret: secret, tokenHash: tokenHash, unauthDelay: unauthDelay, next: next}
}

func (ah *authHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	tok, err := getBearerToken(req)
	if err == nil {
		err = validateToken(tok, ah.secret, ah.tokenHash)
	}

	if err != nil {
		time.Sleep(ah.unauthDelay)
		unauthorized(err.Error()).write(w, requestIDFrom(req.Context()))
		return
	}

	ctx := context.WithValue(req.Context(), authLoggedIn, true)
	ah.next.ServeHTTP(w, req.WithContext(ctx))
}

func validateToken(tok string, secret []byte, tokenHash string) error {
	_, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithIssuer("exprserver"), jwt.WithLeeway(time.Minute))
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(tok)) != nil {
		return fmt.Errorf("token is not recognized")
	}

	return nil
}

func getBearerToken(req *http.Request) (string, error) {
	authHeader := strings.TrimSpace(req.Header.Get("Authorization"))
	if authHeader == "" {
		return "", fmt.Errorf("no authorization header present")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(strings.TrimSpace(parts[0])) != "bearer" {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}

	return strings.TrimSpace(parts[1]), nil
}
