// Package auth verifies bearer tokens and carries the authenticated user
// through request contexts.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"catalog-builder-service/internal/domain"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// User is the identity a verified token names.
type User struct {
	ID    string
	Email string
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier returns a Verifier. An empty issuer accepts any issuer.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("auth: jwt secret must be provided")
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}, nil
}

// Verify parses the token and returns the user it names. The subject must be a UUID.
func (v *Verifier) Verify(tokenString string) (User, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, err := uuid.Parse(c.Subject); err != nil {
		return User{}, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}
	return User{ID: c.Subject, Email: c.Email}, nil
}

// Issue signs a token for user valid for ttl.
func (v *Verifier) Issue(user User, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}

type ctxKey struct{}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFrom returns the authenticated user stored in ctx.
func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// Middleware rejects requests without a valid bearer token with 401.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthenticated")
			return
		}
		user, err := v.Verify(token)
		if err != nil {
			zap.S().Debugf("auth: rejected token: %v", err)
			writeError(w, http.StatusUnauthorized, "Unauthenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// ProfileGetter loads (or creates) the profile of an authenticated user.
type ProfileGetter interface {
	GetProfile(ctx context.Context, userID, email string) (*domain.UserProfile, error)
}

// RequireAdmin answers 403 unless the user's profile has the ADMIN role.
// It must run after Middleware.
func RequireAdmin(profiles ProfileGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthenticated")
				return
			}
			profile, err := profiles.GetProfile(r.Context(), user.ID, user.Email)
			if err != nil {
				zap.S().Errorf("auth: failed to load profile %s: %v", user.ID, err)
				writeError(w, http.StatusInternalServerError, "Failed to load profile")
				return
			}
			if !profile.IsAdmin() {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
