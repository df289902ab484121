// FILE: internal/dto/testgen_dto.go
package dto

import (
	"time"

	"ai-testgen-be/pkg/store"

	"github.com/google/uuid"
)

// SubmitAnswersRequest carries the user's answers for one question stage.
// An empty map is valid: skipping the questions is allowed.
type SubmitAnswersRequest struct {
	Answers map[string]string `json:"answers"`
}

// SelectCaseRequest picks a case by its position in the current list.
// Index is a pointer so 0, the first case, passes the required check.
type SelectCaseRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

// StageStateResponse is returned by every stage operation. State is the
// engine's own wire format, embedded whole so clients never see a second
// serialization of the same data.
type StageStateResponse struct {
	Id           uuid.UUID              `json:"id"`
	SessionKey   string                 `json:"session_key"`
	Status       string                 `json:"status"`
	CurrentLevel string                 `json:"current_level"`
	State        *store.GenerationState `json:"state"`
}

type TreeResponse struct {
	Id     uuid.UUID           `json:"id"`
	Status string              `json:"status"`
	Tree   *store.TestCaseTree `json:"tree"`
}

// --- Limit Exceeded Error Types ---

// LimitExceededError is a custom error that carries usage details
type LimitExceededError struct {
	Limit      int       `json:"limit"`
	Used       int       `json:"used"`
	ResetAfter time.Time `json:"reset_after"`
}

func (e *LimitExceededError) Error() string {
	return "daily generation limit exceeded"
}

// LimitExceededData is the data payload for 429 responses
type LimitExceededData struct {
	Limit      int       `json:"limit"`
	Used       int       `json:"used"`
	ResetAfter time.Time `json:"reset_after"`
}
