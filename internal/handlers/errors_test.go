package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"visualroutine/internal/progress"
	"visualroutine/internal/repository"
	"visualroutine/internal/sequence"
	"visualroutine/internal/service"
	"visualroutine/internal/validation"
)

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, 418, "Teapot", "", nil)

	if recorder.Code != 418 {
		t.Fatalf("expected status 418, got %d", recorder.Code)
	}
	if got := recorder.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected JSON content type, got %q", got)
	}

	var body errorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != "Teapot" || body.Speak != "Teapot" {
		t.Fatalf("expected error 'Teapot', got %+v", body)
	}
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := log.Default()
	originalOutput := logger.Writer()
	logger.SetOutput(&buf)
	defer logger.SetOutput(originalOutput)

	recorder := httptest.NewRecorder()
	err := errors.New("boom")

	respondWithError(recorder, 500, "Internal server error", "", err)

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Internal server error") {
		t.Fatalf("expected log to include user message, got %q", logOutput)
	}
	if !strings.Contains(logOutput, "boom") {
		t.Fatalf("expected log to include error, got %q", logOutput)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantSpeak  string
	}{
		{"validation", validation.ValidationError{Field: "name", Message: "Name is required"}, http.StatusBadRequest, "Name is required"},
		{"not found", fmt.Errorf("load: %w", repository.ErrNotFound), http.StatusNotFound, ErrActivityNotFound},
		{"step done", fmt.Errorf("step 2: %w", sequence.ErrAlreadyCompleted), http.StatusConflict, SpeakStepAlreadyDone},
		{"pending steps", sequence.ErrSequenceIncomplete, http.StatusConflict, SpeakFinishAllSteps},
		{"store down", fmt.Errorf("save: %w", progress.ErrStoreUnavailable), http.StatusServiceUnavailable, SpeakProgressNotSaved},
		{"wrong pin", service.ErrInvalidPIN, http.StatusForbidden, SpeakWrongPIN},
		{"bad login", service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, SpeakTryAgain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, speak := classify(tt.err)
			if status != tt.wantStatus {
				t.Errorf("classify() status = %v, want %v", status, tt.wantStatus)
			}
			if speak != tt.wantSpeak {
				t.Errorf("classify() speak = %v, want %v", speak, tt.wantSpeak)
			}
		})
	}
}

func TestRespondWithServiceErrorCarriesResult(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithServiceError(recorder, "", sequence.ErrSequenceIncomplete, map[string]int{"progressPercentage": 50})

	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"progressPercentage":50`) {
		t.Fatalf("expected result in body, got %s", recorder.Body.String())
	}
}
