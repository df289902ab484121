package specification

import (
	"gorm.io/gorm"

	"github.com/google/uuid"
)

// ByEmail finds a user by login email. Emails are stored lowercased,
// so callers normalize before querying.
type ByEmail struct {
	Email string
}

func (s ByEmail) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("email = ?", s.Email)
}

// UserOwnedBy scopes any user-owned table (sessions, embeddings) to
// one account. Every session read goes through this, which is what
// keeps one user from loading another's generation state.
type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// ByToken finds a password reset token by its raw value.
type ByToken struct {
	Token string
}

func (s ByToken) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("token = ?", s.Token)
}
