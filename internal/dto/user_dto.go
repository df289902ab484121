// FILE: internal/dto/user_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"
)

// UserProfileResponse is the /users/profile payload. Daily usage rides
// along so the client can show remaining quota without a second call.
type UserProfileResponse struct {
	Id                   uuid.UUID `json:"id"`
	Email                string    `json:"email"`
	FullName             string    `json:"full_name"`
	Role                 string    `json:"role"`
	Status               string    `json:"status"`
	AvatarURL            string    `json:"avatar_url,omitempty"`
	GenerationDailyUsage int       `json:"generation_daily_usage"`
	CreatedAt            time.Time `json:"created_at"`
}

// UpdateProfileRequest carries the one mutable profile field. Email is
// the login identifier and has no update path.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,min=3"`
}
