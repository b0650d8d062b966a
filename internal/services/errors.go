package services

import (
	"errors"
	"fmt"
)

// Stages reported by StageError.
const (
	StageLoad     = "load"
	StageAllocate = "allocate"
	StageRoute    = "route"
	StagePersist  = "persist"
)

var (
	// ErrInfeasible is returned by a strategy that cannot place every stop.
	ErrInfeasible = errors.New("no feasible routing solution")
	// ErrNoLocations is returned when a run needs locations and none are known.
	ErrNoLocations = errors.New("location registry is empty")
	// ErrInvalidInput marks caller mistakes in a run request.
	ErrInvalidInput = errors.New("invalid input")
)

// StageError reports an unexpected failure at the orchestration boundary
// together with how far the run got. Results computed before the failure are
// returned alongside it.
type StageError struct {
	Stage           string
	ItemsProcessed  int
	ActionsProduced int
	Err             error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed after %d items and %d actions: %v",
		e.Stage, e.ItemsProcessed, e.ActionsProduced, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
