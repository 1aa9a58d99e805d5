// Package contracts defines the narrow interfaces to the external
// collaborators this core treats as out of scope: the data source, the
// clock, and the event sinks. The HTTP/UI layer, localization, and I/O
// framing bind to these contracts only; nothing in this module reaches
// past them.
package contracts

import (
	"context"
	"time"

	"github.com/tonimelisma/raildispatch/internal/domain"
)

// DataSource supplies the layout and timetable the broker builds its graph
// from. Methods are called in this strict order during init; an ID of 0 or
// negative on any entity means "assign next monotonic".
type DataSource interface {
	OperationPlaces(ctx context.Context) ([]domain.OperationPlace, error)
	TrackStretches(ctx context.Context) ([]domain.TrackStretch, error)
	DispatchStretches(ctx context.Context) ([]DispatchStretchSpec, error)
	Trains(ctx context.Context) ([]domain.Train, error)
	TrainStationCalls(ctx context.Context) ([]domain.TrainStationCall, error)
}

// DispatchStretchSpec is the data source's view of a dispatch stretch:
// endpoints only. The segment sequence is derived by the broker, never
// supplied.
type DispatchStretchSpec struct {
	ID            domain.ID
	FromStationID domain.ID
	ToStationID   domain.ID
}

// Clock is the fast-clock contract. When scheduled is non-nil,
// implementations return it verbatim (fast-clock / replay semantics);
// otherwise they return the current time. All observed times recorded by
// the executor are derived by calling this with the call's scheduled time
// as the hint.
type Clock interface {
	Now(scheduled *int64) int64 // Unix nanoseconds
}

// SystemClock is the production Clock: wall-clock time when no schedule
// hint is given, the hint verbatim otherwise.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now(scheduled *int64) int64 {
	if scheduled != nil {
		return *scheduled
	}

	return time.Now().UnixNano()
}

// TrainEventSink appends train-events records. Implementations must fsync
// before returning success — the executor treats a successful call as a
// durability guarantee.
type TrainEventSink interface {
	RecordState(ctx context.Context, trainID domain.ID, state domain.TrainState, at int64) error
	RecordObservedArrival(ctx context.Context, callID domain.ID, at int64) error
	RecordObservedDeparture(ctx context.Context, callID domain.ID, at int64) error
	RecordTrackChange(ctx context.Context, callID domain.ID, trackID domain.ID, at int64) error
}

// DispatchEventSink appends dispatch-events records.
type DispatchEventSink interface {
	// RecordState appends a State change. index is non-nil iff newState is
	// Departed.
	RecordState(ctx context.Context, sectionID domain.ID, newState domain.DispatchState, index *int, at int64) error
	RecordPass(ctx context.Context, sectionID domain.ID, signalPlaceID domain.ID, newIndex int, at int64) error
}
