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
	"github.com/isdelr/creatives/internal/models"
	"github.com/isdelr/creatives/internal/services"
	"github.com/rs/zerolog/log"
)

// CookieName is the HttpOnly cookie mirroring the bearer credential.
const CookieName = "access_token"

// ErrRevoked is returned for tokens invalidated by logout.
var ErrRevoked = errors.New("token revoked")

// Claims defines the JWT claims structure.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserClaimsKey is the context key for user claims.
type contextKey string

const UserClaimsKey = contextKey("userClaims")

// Issuer creates and validates access tokens.
type Issuer struct {
	key    []byte
	ttl    time.Duration
	tokens services.TokenServiceProvider
}

// NewIssuer creates an Issuer signing with secret. tokens may be nil, in
// which case revocation is not checked.
func NewIssuer(secret string, ttl time.Duration, tokens services.TokenServiceProvider) *Issuer {
	return &Issuer{key: []byte(secret), ttl: ttl, tokens: tokens}
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// GenerateJWT creates a new JWT for a given user.
func (i *Issuer) GenerateJWT(user models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.key)
}

// ValidateJWT parses and validates a JWT string.
func (i *Issuer) ValidateJWT(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return i.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if i.tokens != nil && claims.ID != "" {
		revoked, err := i.tokens.IsRevoked(claims.ID)
		if err != nil {
			return nil, fmt.Errorf("checking revocation: %w", err)
		}
		if revoked {
			return nil, ErrRevoked
		}
	}
	return claims, nil
}

// TokenFromRequest extracts the bearer token from the Authorization header,
// falling back to the cookie.
func TokenFromRequest(r *http.Request) string {
	// 1. Try to get the token from the Authorization header
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if tok, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}

	// 2. If not in header, fall back to the cookie
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	value := strings.Trim(cookie.Value, `"`)
	value = strings.TrimPrefix(value, "Bearer ")
	return strings.TrimSpace(value)
}

// JWTMiddleware creates a middleware for protecting routes.
func (i *Issuer) JWTMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := TokenFromRequest(r)
			if tokenStr == "" {
				unauthorized(w, "Not authenticated")
				return
			}

			claims, err := i.ValidateJWT(tokenStr)
			if err != nil {
				log.Debug().Err(err).Msg("Rejected auth token")
				unauthorized(w, "Could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom returns the claims stored by JWTMiddleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*Claims)
	return claims, ok
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
