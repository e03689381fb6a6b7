package core

import "errors"

// Error taxonomy surfaced to the CRUD layer. None of these operations are
// safe to blindly retry (toggles invert on replay), so errors propagate
// synchronously and the caller decides.
var (
	// ErrNotFound covers both genuinely absent entities and entities
	// excluded by the lifecycle predicate. The two causes are deliberately
	// indistinguishable so soft-deleted ids cannot be enumerated.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks an actor/owner mismatch on a mutating lifecycle
	// operation, or a self-follow attempt.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict marks a duplicate review from the same actor.
	ErrConflict = errors.New("conflict")

	// ErrInvalid marks malformed structured input.
	ErrInvalid = errors.New("invalid")
)
