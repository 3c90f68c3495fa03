package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/isdelr/creatives/internal/auth"
	"github.com/isdelr/creatives/internal/models"
	"github.com/isdelr/creatives/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles registration, credential issuance and identity.
type UserHandler struct {
	service services.UserServiceProvider
	tokens  services.TokenServiceProvider
	issuer  *auth.Issuer
	secure  bool
}

// NewUserHandler creates a new UserHandler. secure sets the cookie Secure flag.
func NewUserHandler(service services.UserServiceProvider, tokens services.TokenServiceProvider, issuer *auth.Issuer, secure bool) *UserHandler {
	return &UserHandler{service: service, tokens: tokens, issuer: issuer, secure: secure}
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload models.Registration
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.CreateUser(payload)
	if err != nil {
		var verr *models.ValidationError
		switch {
		case errors.As(err, &verr):
			writeDetail(w, http.StatusUnprocessableEntity, verr.Error())
		case errors.Is(err, services.ErrUserExists):
			writeDetail(w, http.StatusBadRequest, "User with this email or username already exists")
		default:
			log.Error().Err(err).Str("email", payload.Email).Msg("Failed to register user")
			writeDetail(w, http.StatusInternalServerError, "Failed to register user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login handles form-encoded username/password authentication and token issuance.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	user, err := h.service.AuthenticateUser(username, password)
	switch {
	case errors.Is(err, services.ErrInactiveUser):
		writeDetail(w, http.StatusBadRequest, "Inactive user")
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		log.Warn().Str("username", username).Msg("Failed authentication attempt")
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	case err != nil:
		log.Error().Err(err).Str("username", username).Msg("Failed to authenticate user")
		writeDetail(w, http.StatusInternalServerError, "Failed to authenticate")
		return
	}

	h.issue(w, user)
}

// OAuthCallback signs in through a mock social provider.
func (h *UserHandler) OAuthCallback(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var profile models.OAuthProfile
		if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		user, err := h.service.FindOrCreateOAuthUser(provider, profile)
		if err != nil {
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				writeDetail(w, http.StatusUnprocessableEntity, verr.Error())
				return
			}
			log.Error().Err(err).Str("provider", provider).Msg("OAuth callback failed")
			writeDetail(w, http.StatusInternalServerError, "Sign-in failed")
			return
		}
		h.issue(w, user)
	}
}

func (h *UserHandler) issue(w http.ResponseWriter, user models.User) {
	token, err := h.issuer.GenerateJWT(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		writeDetail(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "Bearer " + token,
		MaxAge:   int(h.issuer.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// GetMe retrieves the currently authenticated user from the token.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		writeDetail(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	user, err := h.service.GetUserByID(claims.UserID)
	if err != nil {
		// The account behind a valid token is gone; the credential is useless.
		log.Warn().Err(err).Str("user_id", claims.UserID).Msg("User from token not found in DB")
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	if !user.IsActive {
		writeDetail(w, http.StatusBadRequest, "Inactive user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Logout revokes the presented token and clears the cookie.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if tokenStr := auth.TokenFromRequest(r); tokenStr != "" {
		if claims, err := h.issuer.ValidateJWT(tokenStr); err == nil && claims.ExpiresAt != nil {
			if err := h.tokens.Revoke(claims.ID, claims.ExpiresAt.Time); err != nil {
				log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to revoke token")
				writeDetail(w, http.StatusInternalServerError, "Failed to log out")
				return
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
