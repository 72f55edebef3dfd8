package handlers

import (
	"context"
	"net/http"

	"visualroutine/internal/service"
)

// AlarmCapability is toggled when the device grants or revokes exact alarms
type AlarmCapability interface {
	SetExactCapability(granted bool)
}

// Rescheduler re-registers every pending reminder of a user
type Rescheduler interface {
	RescheduleAll(ctx context.Context, userID string) (int, error)
}

// AccountHandler serves the child PIN and device settings
type AccountHandler struct {
	authService *service.AuthService
	alarms      AlarmCapability
	activities  Rescheduler
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(authService *service.AuthService, alarms AlarmCapability, activities Rescheduler) *AccountHandler {
	return &AccountHandler{
		authService: authService,
		alarms:      alarms,
		activities:  activities,
	}
}

type pinRequest struct {
	PIN string `json:"pin"`
}

type exactAlarmsRequest struct {
	Granted bool `json:"granted"`
}

// SetChildPIN sets or clears the PIN that guards the caregiver screens
func (h *AccountHandler) SetChildPIN(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req pinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	if err := h.authService.SetChildPIN(r.Context(), user.ID, req.PIN); err != nil {
		respondWithServiceError(w, "Error setting child PIN", err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VerifyChildPIN checks a PIN before the caregiver screens are unlocked
func (h *AccountHandler) VerifyChildPIN(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req pinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	if err := h.authService.VerifyChildPIN(r.Context(), user.ID, req.PIN); err != nil {
		respondWithServiceError(w, "Error verifying child PIN", err, nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// SetExactAlarms records the device's exact-alarm permission and re-registers reminders
// so they use the matching delivery mode
func (h *AccountHandler) SetExactAlarms(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req exactAlarmsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	h.alarms.SetExactCapability(req.Granted)
	count, err := h.activities.RescheduleAll(r.Context(), user.ID)
	if err != nil {
		respondWithServiceError(w, "Error rescheduling reminders", err, nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"granted": req.Granted, "rescheduled": count})
}
