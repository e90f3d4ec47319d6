package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Uid  string `json:"uid"`
	Role string `json:"role"` // render, touch
	jwt.StandardClaims
}

const (
	RoleRender = "render"
	RoleTouch  = "touch"
)

type ctxKey struct{}

// Signer issues and checks HS256 tokens with a shared secret. An empty
// secret turns authentication off.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl}
}

func (s *Signer) Enabled() bool { return len(s.secret) > 0 }

// uid, role -> token, err
func (s *Signer) Sign(uid, role string) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	claim := Claims{Uid: uid, Role: role}
	claim.ExpiresAt = time.Now().Add(s.ttl).Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claim)
	return token.SignedString(s.secret)
}

// token -> claims, err
func (s *Signer) Parse(token string) (*Claims, error) {
	parsedToken, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claim, ok := parsedToken.Claims.(*Claims); ok && parsedToken.Valid {
		return claim, nil
	}
	return nil, ErrInvalidToken
}

// Middleware rejects requests without a valid bearer token for role. The
// claims are stored in the request context.
func (s *Signer) Middleware(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Enabled() {
			next(w, r)
			return
		}

		token := r.Header.Get("Authorization")
		extractedToken := strings.Split(token, "Bearer ")
		if len(extractedToken) != 2 {
			http.Error(w, "Invalid token", http.StatusForbidden)
			return
		}

		claim, err := s.Parse(extractedToken[1])
		if err != nil || (claim.Role != role && role != "") {
			http.Error(w, "Invalid token", http.StatusForbidden)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claim)))
	}
}

// FromContext returns the claims stored by Middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}
