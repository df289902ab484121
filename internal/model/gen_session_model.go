package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GenSession is one test case generation session. The whole engine state
// is stored as a JSONB blob and swapped atomically after every stage
// operation; Status and CurrentLevel are denormalized for listing without
// unpacking the blob.
type GenSession struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         uuid.UUID      `gorm:"type:uuid;not null;index"` // User ownership for data isolation
	SessionKey     string         `gorm:"type:varchar(50);uniqueIndex;not null"` // engine id, "session_" + 8 hex chars
	Title          string         `gorm:"type:text;not null"`
	BusinessPrompt string         `gorm:"type:text;not null"`
	State          datatypes.JSON `gorm:"type:jsonb"`
	Status         string         `gorm:"type:varchar(30);not null;default:'WAIT_L1_ANSWERS';index"`
	CurrentLevel   string         `gorm:"type:varchar(10);not null;default:'l1'"`
	StreamDraft    string         `gorm:"type:text"` // raw in-progress LLM text, persisted mid-stream
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (GenSession) TableName() string {
	return "gen_sessions"
}
