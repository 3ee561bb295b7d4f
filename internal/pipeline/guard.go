package pipeline

import (
	"context"
)

// YearChecker is the store query the Guard relies on.
type YearChecker interface {
	HasYear(ctx context.Context, year int) (bool, error)
}

// Guard decides whether a source's year has already been loaded.
//
// The check is coarse: any record dated in the year counts, so a year that
// was only partly loaded by some other means still reports loaded.
type Guard struct {
	store YearChecker
}

// NewGuard creates a Guard over store.
func NewGuard(store YearChecker) *Guard {
	return &Guard{store: store}
}

// AlreadyLoaded reports whether the store holds any record dated in year.
// It never writes.
func (g *Guard) AlreadyLoaded(ctx context.Context, year int) (bool, error) {
	return g.store.HasYear(ctx, year)
}
