package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"visualroutine/internal/models"
	"visualroutine/internal/progress"
	"visualroutine/internal/reminder"
	"visualroutine/internal/repository"
	"visualroutine/internal/security"
	"visualroutine/internal/sequence"
	"visualroutine/internal/service"
	"visualroutine/internal/validation"
)

// errorResponse is the body of every failed request. Speak is the notice the client reads
// aloud; Result optionally carries the partial outcome of the operation.
type errorResponse struct {
	Error  string `json:"error"`
	Speak  string `json:"speak"`
	Result any    `json:"result,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondJSON(w, status, errorResponse{Error: userMsg, Speak: userMsg})
}

// respondWithServiceError maps domain errors onto status codes and user-facing notices
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error, result any) {
	status, userMsg, speak := classify(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s: %v", logMsg, err)
	}
	respondJSON(w, status, errorResponse{Error: userMsg, Speak: speak, Result: result})
}

func classify(err error) (status int, userMsg, speak string) {
	var verr validation.ValidationError
	var stepErr *models.MalformedStepError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message, verr.Message
	case errors.As(err, &stepErr):
		return http.StatusBadRequest, stepErr.Error(), SpeakTryAgain
	case errors.Is(err, models.ErrMalformedStep), errors.Is(err, models.ErrInvalidActivity), errors.Is(err, reminder.ErrInvalidTimeOfDay):
		return http.StatusBadRequest, err.Error(), SpeakTryAgain
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrActivityNotFound, ErrActivityNotFound
	case errors.Is(err, sequence.ErrAlreadyCompleted):
		return http.StatusConflict, "Step already completed", SpeakStepAlreadyDone
	case errors.Is(err, sequence.ErrSequenceIncomplete):
		return http.StatusConflict, "Sequence has pending steps", SpeakFinishAllSteps
	case errors.Is(err, progress.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Progress could not be saved", SpeakProgressNotSaved
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, "Email already registered", "Email already registered"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password", "Invalid email or password"
	case errors.Is(err, service.ErrInvalidPIN):
		return http.StatusForbidden, "Incorrect PIN", SpeakWrongPIN
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, security.ErrInvalidToken):
		return http.StatusUnauthorized, ErrUnauthorized, ErrUnauthorized
	default:
		return http.StatusInternalServerError, ErrInternalServerError, SpeakTryAgain
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
