package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRoute is returned by edits that need a built route
	ErrNoRoute = errors.New("no route has been built")

	// ErrNoDecisionPending is returned by Decide when validation produced no rejects
	ErrNoDecisionPending = errors.New("no validation decision is pending")

	// ErrBuildInProgress is returned when a build is already outstanding for the session
	ErrBuildInProgress = errors.New("a route build is already in progress")

	// ErrSuperseded is returned when a newer load replaced the session while this build ran
	ErrSuperseded = errors.New("route build was superseded by a newer load")
)

// ErrProtectedStop is returned when an edit targets the origin
type ErrProtectedStop struct {
	Index int
}

func (e *ErrProtectedStop) Error() string {
	return fmt.Sprintf("stop at position %d is the origin and cannot be changed", e.Index)
}

// ErrIndexOutOfRange is returned when a position is outside the route
type ErrIndexOutOfRange struct {
	Index int
	Len   int
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("position %d is out of range for a route of %d stops", e.Index, e.Len)
}
