package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/creatives/internal/auth"
	"github.com/isdelr/creatives/internal/models"
	"github.com/isdelr/creatives/internal/services"
	ws "github.com/isdelr/creatives/internal/websocket"
	"github.com/rs/zerolog/log"
)

// AdminHandler handles the admin-only user endpoints.
type AdminHandler struct {
	service services.UserServiceProvider
	hub     *ws.Hub
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service services.UserServiceProvider, hub *ws.Hub) *AdminHandler {
	return &AdminHandler{service: service, hub: hub}
}

// RequireAdmin rejects callers whose account is not an admin. It must run
// after the JWT middleware.
func (h *AdminHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFrom(r.Context())
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		user, err := h.service.GetUserByID(claims.UserID)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if !user.IsAdmin {
			writeDetail(w, http.StatusForbidden, "Not enough permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListUsers returns every account.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		writeDetail(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// SetCredits overwrites a user's balance and pushes a change notice to them.
func (h *AdminHandler) SetCredits(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	credits, err := strconv.Atoi(r.URL.Query().Get("credits"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "credits must be an integer")
		return
	}

	user, err := h.service.SetCredits(id, credits)
	if err != nil {
		var verr *models.ValidationError
		switch {
		case errors.As(err, &verr):
			writeDetail(w, http.StatusUnprocessableEntity, verr.Error())
		case errors.Is(err, services.ErrUserNotFound):
			writeDetail(w, http.StatusNotFound, "User not found")
		default:
			log.Error().Err(err).Str("user_id", id).Msg("Failed to update credits")
			writeDetail(w, http.StatusInternalServerError, "Failed to update credits")
		}
		return
	}

	h.hub.SendToUser(user.ID, ws.NewUserUpdatedMessage(user.ID))
	writeJSON(w, http.StatusOK, models.CreditsUpdate{UserID: user.ID, NewBalance: user.CreditsBalance})
}
