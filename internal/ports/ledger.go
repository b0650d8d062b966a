package ports

import (
	"context"
	"errors"
	"surplus-redistribution-service/internal/domain"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a referenced ledger entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when an entry is no longer planned.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Port: append-only sink for cascade actions and their carbon impact.
type ActionLedger interface {
	// Persist all actions of a run and one impact entry per action in a single
	// batch. Re-appending an already stored run id is a no-op.
	AppendActions(ctx context.Context, runID uuid.UUID, actions []domain.CascadeAction) error
	// Retrieve actions whose status is planned.
	PendingActions(ctx context.Context) ([]domain.CascadeAction, error)
	// Move a planned action to completed or cancelled.
	UpdateActionStatus(ctx context.Context, actionID int64, status domain.Status) error
}

// Port: append-only sink for planned routes.
type RouteLedger interface {
	// Persist all routes of a run in a single batch. Re-appending an already
	// stored run id is a no-op.
	AppendRoutes(ctx context.Context, runID uuid.UUID, routes []domain.Route) error
}
