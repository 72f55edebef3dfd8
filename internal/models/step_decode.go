package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedStep is the sentinel wrapped by every MalformedStepError
var ErrMalformedStep = errors.New("malformed step")

// MalformedStepError reports which step failed validation and why
type MalformedStepError struct {
	Index  int
	Field  string
	Reason string
}

func (e *MalformedStepError) Error() string {
	return fmt.Sprintf("malformed step %d: %s %s", e.Index, e.Field, e.Reason)
}

func (e *MalformedStepError) Unwrap() error {
	return ErrMalformedStep
}

// rawStep mirrors SequenceStep with pointers so missing fields can be told apart from zero values
type rawStep struct {
	ID               *string `json:"id"`
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	PictogramID      *int    `json:"pictogramId"`
	PictogramKeyword *string `json:"pictogramKeyword"`
	StepNumber       *int    `json:"stepNumber"`
	Completed        *bool   `json:"completed"`
	AudioText        *string `json:"audioText"`
}

// DecodeSteps parses a JSON array of steps, failing on the first step that is missing a
// required field, carries an unknown field, or breaks the 1..N contiguous numbering.
func DecodeSteps(data []byte) ([]SequenceStep, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var raws []rawStep
	if err := dec.Decode(&raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStep, err)
	}

	steps := make([]SequenceStep, 0, len(raws))
	seenIDs := make(map[string]bool, len(raws))

	for i, raw := range raws {
		if raw.ID == nil || strings.TrimSpace(*raw.ID) == "" {
			return nil, &MalformedStepError{Index: i, Field: "id", Reason: "is required"}
		}
		if seenIDs[*raw.ID] {
			return nil, &MalformedStepError{Index: i, Field: "id", Reason: "is duplicated"}
		}
		seenIDs[*raw.ID] = true

		if raw.Name == nil || strings.TrimSpace(*raw.Name) == "" {
			return nil, &MalformedStepError{Index: i, Field: "name", Reason: "is required"}
		}
		if raw.StepNumber == nil {
			return nil, &MalformedStepError{Index: i, Field: "stepNumber", Reason: "is required"}
		}
		if *raw.StepNumber != i+1 {
			return nil, &MalformedStepError{Index: i, Field: "stepNumber", Reason: fmt.Sprintf("must be %d, got %d", i+1, *raw.StepNumber)}
		}
		if raw.PictogramID != nil && *raw.PictogramID < 0 {
			return nil, &MalformedStepError{Index: i, Field: "pictogramId", Reason: "must not be negative"}
		}

		step := NewSequenceStep(*raw.ID, *raw.Name, deref(raw.Description), derefInt(raw.PictogramID), deref(raw.PictogramKeyword), *raw.StepNumber)
		if raw.Completed != nil {
			step.Completed = *raw.Completed
		}
		if raw.AudioText != nil && *raw.AudioText != "" {
			step.AudioText = *raw.AudioText
		}
		steps = append(steps, step)
	}

	return steps, nil
}

// EncodeSteps serializes steps for storage
func EncodeSteps(steps []SequenceStep) ([]byte, error) {
	if steps == nil {
		steps = []SequenceStep{}
	}
	return json.Marshal(steps)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
