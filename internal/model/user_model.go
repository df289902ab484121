package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User rows are soft-deleted; the unique email index spans deleted
// rows too, which is why registration restores instead of inserting.
type User struct {
	Id                            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email                         string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash                  *string   `gorm:"type:varchar(255)"`
	FullName                      string    `gorm:"type:varchar(255);not null"`
	Role                          string    `gorm:"type:varchar(50);not null;default:'user'"`
	Status                        string    `gorm:"type:varchar(50);not null;default:'active'"`
	AvatarURL                     *string   `gorm:"type:text"`
	GenerationDailyUsage          int       `gorm:"default:0"`
	GenerationDailyUsageLastReset time.Time
	CreatedAt                     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt                     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt                     gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

type PasswordResetToken struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Token     string    `gorm:"type:varchar(255);not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

type UserRefreshToken struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	TokenHash string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Revoked   bool      `gorm:"default:false"`
	IpAddress string    `gorm:"type:varchar(45)"`
	UserAgent string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (UserRefreshToken) TableName() string {
	return "user_refresh_tokens"
}
