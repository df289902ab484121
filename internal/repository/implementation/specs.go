package implementation

import (
	"ai-testgen-be/internal/repository/specification"

	"gorm.io/gorm"
)

// applySpecs chains query specifications onto a GORM query. Shared by
// every repository in this package.
func applySpecs(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}
