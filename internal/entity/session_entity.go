package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type GenSession struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	SessionKey     string
	Title          string
	BusinessPrompt string
	State          json.RawMessage
	Status         string
	CurrentLevel   string
	StreamDraft    string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}

type PromptEmbedding struct {
	Id             uuid.UUID
	Document       string
	EmbeddingValue []float32
	SessionId      uuid.UUID
	ChunkIndex     int
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}

// SimilarSession is a search hit from the embedding index.
type SimilarSession struct {
	SessionId  uuid.UUID
	Title      string
	Similarity float64
}
