package handlers

import (
	"net/http"

	"visualroutine/internal/notify"
	"visualroutine/internal/service"
)

// ProgressHandler serves stats, the achievement catalog and the child's notice feed
type ProgressHandler struct {
	progress *service.ProgressService
	feed     *notify.Feed
}

// NewProgressHandler creates a new progress handler. feed may be nil.
func NewProgressHandler(progress *service.ProgressService, feed *notify.Feed) *ProgressHandler {
	return &ProgressHandler{progress: progress, feed: feed}
}

// Stats returns the signed-in user's progress counters
func (h *ProgressHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	stats, err := h.progress.Stats(r.Context(), user.ID)
	if err != nil {
		respondWithServiceError(w, "Error loading stats", err, nil)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Achievements returns the full catalog with the user's unlock state
func (h *ProgressHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	achievements, err := h.progress.ListAchievements(r.Context(), user.ID)
	if err != nil {
		respondWithServiceError(w, "Error loading achievements", err, nil)
		return
	}
	respondJSON(w, http.StatusOK, achievements)
}

// Notifications drains the pending reminders and unlock notices for the user
func (h *ProgressHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if h.feed == nil {
		respondJSON(w, http.StatusOK, []notify.Event{})
		return
	}
	respondJSON(w, http.StatusOK, h.feed.Drain(user.ID))
}
