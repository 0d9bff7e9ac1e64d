package handler

import (
	"encoding/json"
	"net/http"

	"shepherd-api/internal/middleware"
	"shepherd-api/internal/service"
	"shepherd-api/pkg/errors"
)

// NotificationHandler registers push-notification device tokens.
type NotificationHandler struct {
	tokens service.DeviceTokenStore
}

func NewNotificationHandler(tokens service.DeviceTokenStore) *NotificationHandler {
	return &NotificationHandler{tokens: tokens}
}

type registerTokenRequest struct {
	Token string `json:"token"`
}

// Register handles POST /api/notifications/register
func (h *NotificationHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		respondError(w, errors.NewAuthenticationError("Authentication required"))
		return
	}

	var body registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		respondError(w, errors.NewValidationError("device token is required", nil))
		return
	}

	if err := h.tokens.SaveToken(ctx, actor.UserID, body.Token); err != nil {
		respondError(w, errors.NewInternalError("Failed to register device token", err))
		return
	}
	respondResult(w, http.StatusOK, nil, "Device token registered")
}
