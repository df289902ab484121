package access

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"ai-testgen-be/internal/dto"
	"ai-testgen-be/internal/repository/specification"
	"ai-testgen-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// DefaultDailyLimit applies when GENERATION_DAILY_LIMIT is unset.
// A limit below zero means unlimited.
const DefaultDailyLimit = 50

// Verifier handles access control and daily generation limits
type Verifier struct{}

// NewVerifier creates a new access verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

func dailyLimit() int {
	raw := os.Getenv("GENERATION_DAILY_LIMIT")
	if raw == "" {
		return DefaultDailyLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultDailyLimit
	}
	return limit
}

// VerifyAccessAndLimits checks user status and the daily generation limit
func (v *Verifier) VerifyAccessAndLimits(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) error {
	// 1. Fetch User First
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil || user == nil {
		return fmt.Errorf("user not found")
	}

	limit := dailyLimit()

	// 2. Check Usage
	now := time.Now()
	// Reset logic
	// Check if the last reset was on a different calendar day
	// We compare Year, Month, and Day. If any differ, it's a new day.
	if now.Year() != user.GenerationDailyUsageLastReset.Year() || now.Month() != user.GenerationDailyUsageLastReset.Month() || now.Day() != user.GenerationDailyUsageLastReset.Day() {
		user.GenerationDailyUsage = 0
		user.GenerationDailyUsageLastReset = now
		if err := uow.UserRepository().Update(ctx, user); err != nil {
			return err
		}
	}

	// Check Limit (Limit < 0 means unlimited)
	if limit >= 0 && user.GenerationDailyUsage >= limit {
		resetTime := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
		return &dto.LimitExceededError{
			Limit:      limit,
			Used:       user.GenerationDailyUsage,
			ResetAfter: resetTime,
		}
	}

	return nil
}

// IncrementUserUsage increments the daily generation counter
func (v *Verifier) IncrementUserUsage(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) error {
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil || user == nil {
		return fmt.Errorf("user not found")
	}

	user.GenerationDailyUsage++
	return uow.UserRepository().Update(ctx, user)
}
