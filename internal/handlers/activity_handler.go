package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"visualroutine/internal/models"
	"visualroutine/internal/progress"
	"visualroutine/internal/reminder"
	"visualroutine/internal/service"
)

// ActivityHandler serves the caregiver's activities and the child's completion actions
type ActivityHandler struct {
	activities *service.ActivityService
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activities *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

type activityResponse struct {
	*models.Activity
	Reminder *reminder.Scheduled `json:"reminder,omitempty"`
}

type completionResponse struct {
	*service.Completion
	Speak string `json:"speak"`
}

func withReminder(activity *models.Activity, scheduled reminder.Scheduled) activityResponse {
	resp := activityResponse{Activity: activity}
	if scheduled.Key != "" {
		resp.Reminder = &scheduled
	}
	return resp
}

func completionSpeech(c *service.Completion) string {
	if c.AlreadyCompleted {
		return fmt.Sprintf("%s is already done. Well done!", c.Activity.Name)
	}
	return fmt.Sprintf("Well done! You finished %s", c.Activity.Name)
}

// List returns every activity of the signed-in user
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	activities, err := h.activities.List(r.Context(), user.ID)
	if err != nil {
		respondWithServiceError(w, "Error listing activities", err, nil)
		return
	}
	respondJSON(w, http.StatusOK, activities)
}

// Create adds an activity and schedules its reminder
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var in service.ActivityInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	activity, scheduled, err := h.activities.Create(r.Context(), user.ID, in)
	if err != nil {
		respondWithServiceError(w, "Error creating activity", err, nil)
		return
	}
	respondJSON(w, http.StatusCreated, withReminder(activity, scheduled))
}

// Get returns one activity
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	activity, err := h.activities.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, "Error loading activity", err, nil)
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// Update edits an activity and reschedules its reminder
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var in service.ActivityInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	activity, scheduled, err := h.activities.Update(r.Context(), user.ID, r.PathValue("id"), in)
	if err != nil {
		respondWithServiceError(w, "Error updating activity", err, nil)
		return
	}
	respondJSON(w, http.StatusOK, withReminder(activity, scheduled))
}

// Delete removes an activity and cancels its reminder
func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if err := h.activities.Delete(r.Context(), user.ID, r.PathValue("id")); err != nil {
		respondWithServiceError(w, "Error deleting activity", err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Complete marks an activity as done
func (h *ActivityHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	completion, err := h.activities.Complete(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, "Error completing activity", err, partialCompletion(completion, err))
		return
	}
	respondJSON(w, http.StatusOK, completionResponse{Completion: completion, Speak: completionSpeech(completion)})
}

// Snooze postpones the activity's reminder
func (h *ActivityHandler) Snooze(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	scheduled, err := h.activities.Snooze(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, "Error snoozing reminder", err, nil)
		return
	}
	respondJSON(w, http.StatusOK, scheduled)
}

// ResetRoutine starts a new day for every activity
func (h *ActivityHandler) ResetRoutine(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	count, err := h.activities.ResetDay(r.Context(), user.ID)
	if err != nil {
		respondWithServiceError(w, "Error resetting routine", err, nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"reset": count})
}

// partialCompletion returns the computed stats when only persisting them failed, so the
// client can show progress and retry
func partialCompletion(c *service.Completion, err error) any {
	if c == nil || !errors.Is(err, progress.ErrStoreUnavailable) {
		return nil
	}
	return c
}
