package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warp/backoffice/office"
)

const tokenIssuer = "backoffice"

// Tokens issues and verifies HS256 bearer tokens whose subject is a staff id.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a token codec. An empty secret is rejected.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for staff valid for the configured TTL.
func (t *Tokens) Issue(staff office.StaffID) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   string(staff),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry and returns the subject.
func (t *Tokens) Verify(token string) (office.StaffID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", office.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject: %w", office.ErrUnauthorized)
	}
	return office.StaffID(claims.Subject), nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type staffKey struct{}

// authenticate resolves the bearer token to an active account and stores it
// in the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			h.writeError(w, r, fmt.Errorf("missing bearer token: %w", office.ErrUnauthorized))
			return
		}
		id, err := h.tokens.Verify(raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		staff, err := h.Directory.Get(r.Context(), id)
		if errors.Is(err, office.ErrNotFound) {
			h.writeError(w, r, fmt.Errorf("unknown account: %w", office.ErrUnauthorized))
			return
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if !staff.Active {
			h.writeError(w, r, fmt.Errorf("account is inactive: %w", office.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), staffKey{}, staff)))
	})
}

// requireGroup rejects callers outside g with 403.
func (h *Handler) requireGroup(g office.Group) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !currentStaff(r).InGroup(g) {
				h.writeError(w, r, fmt.Errorf("requires group %s: %w", g, office.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// currentStaff is the authenticated caller. Only valid behind authenticate.
func currentStaff(r *http.Request) office.Staff {
	s, _ := r.Context().Value(staffKey{}).(office.Staff)
	return s
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
