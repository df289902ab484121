// FILE: internal/dto/session_dto.go
package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	BusinessPrompt string `json:"business_prompt" validate:"required,min=10"`
}

type CreateSessionResponse struct {
	Id         uuid.UUID `json:"id"`
	SessionKey string    `json:"session_key"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
}

type GetAllSessionsResponse struct {
	Id           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	CurrentLevel string     `json:"current_level"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// SessionDetailResponse carries the raw state blob so clients get the
// exact wire format the engine produced.
type SessionDetailResponse struct {
	Id             uuid.UUID       `json:"id"`
	SessionKey     string          `json:"session_key"`
	Title          string          `json:"title"`
	BusinessPrompt string          `json:"business_prompt"`
	Status         string          `json:"status"`
	CurrentLevel   string          `json:"current_level"`
	State          json.RawMessage `json:"state,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      *time.Time      `json:"updated_at"`
}

type SimilarSessionResponse struct {
	Id         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Similarity float64   `json:"similarity"`
}

// PublishEmbedPromptMessage is the queue payload for the embedding worker.
type PublishEmbedPromptMessage struct {
	SessionId uuid.UUID `json:"session_id"`
}
