// Package specification holds composable query filters. Repositories
// take a variadic list of these and chain them onto the GORM query, so
// services can say WHAT they want without touching SQL.
package specification

import "gorm.io/gorm"

// Specification narrows a query. Implementations must only add clauses,
// never execute the query themselves.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
