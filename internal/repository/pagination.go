// Package repository implements one SQLite-backed repository per entity
// family, each responsible for invariant validation, the row write, keeping
// the FTS5 index consistent, and a best-effort audit record (spec section
// 4.1). Grounded on the teacher's repository-contract shape
// (internal/repository/pagination.go, interfaces.go) with the DynamoDB
// storage engine replaced by the embedded relational store.
package repository

import "github.com/agentmemory/memoryd/internal/validation"

// Pagination mirrors the teacher's cursor-light offset/limit shape, clamped
// per spec.md §6 (limit default 20 max 100, offset default 0 max 10000).
type Pagination struct {
	Limit  int
	Offset int
}

// Clamp returns a Pagination with Limit/Offset clamped to the service's
// configured bounds.
func (p Pagination) Clamp(limits validation.Limits) Pagination {
	limit := p.Limit
	if limit <= 0 {
		limit = limits.DefaultQueryLimit
	}
	return Pagination{
		Limit:  validation.ClampLimit(limit, limits.MaxQueryLimit),
		Offset: validation.ClampOffset(p.Offset, limits.MaxOffset),
	}
}

// Page is the paginated result envelope every List method returns.
type Page[T any] struct {
	Items      []T
	TotalCount int
	HasMore    bool
}
