// Package railerr defines the sentinel error kinds shared by the domain,
// capacity, dispatch, broker, and restore packages. Each kind has a single,
// never-conflated meaning.
package railerr

import "errors"

// Sentinel kinds. Wrap with fmt.Errorf("...: %w", Kind) to add context;
// callers test with errors.Is.
var (
	// ErrInvalidLayout is fatal at init: a referenced ID is missing, a
	// dispatch stretch has no path, or a call's planned track conflicts
	// with its place's tracks.
	ErrInvalidLayout = errors.New("railerr: invalid layout")

	// ErrCorruptState is fatal after restore: replaying the event logs
	// produced an invariant violation. The broker refuses to serve actions.
	ErrCorruptState = errors.New("railerr: corrupt state")

	// ErrActionNotAvailable means the requested action is not in the
	// dispatcher's current legal action set. No mutation, no event written.
	ErrActionNotAvailable = errors.New("railerr: action not available")

	// ErrNoCapacity means the target track stretch (or a cascaded junction
	// stretch) has no free track.
	ErrNoCapacity = errors.New("railerr: no capacity")

	// ErrDirectionConflict means a single-track stretch already carries
	// opposing traffic.
	ErrDirectionConflict = errors.New("railerr: direction conflict")

	// ErrInvalidPassTarget means a Pass action named a place that is not
	// the next segment's origin.
	ErrInvalidPassTarget = errors.New("railerr: invalid pass target")

	// ErrPersistenceFailure means the event sink write failed. The
	// in-memory mutation must be rolled back; if rollback is impossible the
	// broker becomes fatally refused.
	ErrPersistenceFailure = errors.New("railerr: persistence failure")

	// ErrBrokerRefused means the broker is in a fatal state (corrupt state
	// or unrecoverable persistence failure) and refuses further actions.
	ErrBrokerRefused = errors.New("railerr: broker refused")
)
