package unitofwork

import "context"

// RepositoryFactory is what services hold instead of a *gorm.DB. Each
// request that needs transactional writes asks for a fresh UnitOfWork,
// so nothing long-lived ever owns a transaction.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
