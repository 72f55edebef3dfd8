package handlers

import (
	"errors"
	"net/http"

	"visualroutine/internal/sequence"
	"visualroutine/internal/service"
)

// SequenceHandler drives the guided step-by-step view of an activity
type SequenceHandler struct {
	activities *service.ActivityService
}

// NewSequenceHandler creates a new sequence handler
func NewSequenceHandler(activities *service.ActivityService) *SequenceHandler {
	return &SequenceHandler{activities: activities}
}

type stepResponse struct {
	sequence.State
	Speak string `json:"speak,omitempty"`
}

func stepSpeech(state sequence.State) string {
	if state.CurrentStep == nil {
		return ""
	}
	return state.CurrentStep.AudioText
}

// State returns the current sequence view
func (h *SequenceHandler) State(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	state, err := h.activities.SequenceState(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, "Error loading sequence", err, nil)
		return
	}
	respondJSON(w, http.StatusOK, stepResponse{State: state, Speak: stepSpeech(state)})
}

// Advance moves to the next step
func (h *SequenceHandler) Advance(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	state, err := h.activities.AdvanceStep(r.Context(), user.ID, r.PathValue("id"))
	h.respond(w, "Error advancing sequence", state, err)
}

// Retreat moves to the previous step
func (h *SequenceHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	state, err := h.activities.RetreatStep(r.Context(), user.ID, r.PathValue("id"))
	h.respond(w, "Error going back in sequence", state, err)
}

// CompleteStep marks the current step done
func (h *SequenceHandler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	state, err := h.activities.CompleteStep(r.Context(), user.ID, r.PathValue("id"))
	h.respond(w, "Error completing step", state, err)
}

// Finish completes the activity once all steps are done
func (h *SequenceHandler) Finish(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	result, err := h.activities.FinishSequence(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		var partial any
		if result != nil {
			if errors.Is(err, sequence.ErrSequenceIncomplete) {
				partial = result.State
			} else {
				partial = partialCompletion(result.Completion, err)
			}
		}
		respondWithServiceError(w, "Error finishing sequence", err, partial)
		return
	}

	respondJSON(w, http.StatusOK, struct {
		*service.FinishResult
		Speak string `json:"speak"`
	}{result, completionSpeech(result.Completion)})
}

func (h *SequenceHandler) respond(w http.ResponseWriter, logMsg string, state sequence.State, err error) {
	if err != nil {
		var partial any
		if errors.Is(err, sequence.ErrAlreadyCompleted) {
			partial = state
		}
		respondWithServiceError(w, logMsg, err, partial)
		return
	}
	respondJSON(w, http.StatusOK, stepResponse{State: state, Speak: stepSpeech(state)})
}
