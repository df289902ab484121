package unitofwork

import (
	"context"

	"ai-testgen-be/internal/repository/contract"
)

// UnitOfWork groups repository writes under one transaction. The
// multi-table flows need it: a password reset updates the hash, burns
// the token and revokes refresh tokens together; an account delete
// purges sessions and embeddings with the user row. Accessors called
// before Begin read through the plain connection, which is how the
// read-only paths share the same interface.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	GenSessionRepository() contract.GenSessionRepository
	PromptEmbeddingRepository() contract.PromptEmbeddingRepository
}
