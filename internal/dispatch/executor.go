package dispatch

import (
	"context"
	"fmt"

	"github.com/tonimelisma/raildispatch/internal/capacity"
	"github.com/tonimelisma/raildispatch/internal/contracts"
	"github.com/tonimelisma/raildispatch/internal/domain"
	"github.com/tonimelisma/raildispatch/internal/railerr"
)

// ActionRequest names the action a caller wants applied.
type ActionRequest struct {
	SectionID         domain.ID
	Action            Action
	DispatcherStation domain.ID
	PassTarget        domain.ID // required for Pass, ignored otherwise
}

// Executor applies the atomic action procedure: recompute and verify the
// legal set, apply the state transition, update occupancy,
// and emit the durable event. It holds no state beyond the layout it
// mutates; the broker owns the critical section that makes calls to it
// exclusive.
type Executor struct {
	layout         *domain.Layout
	capacity       *capacity.Manager
	trainEvents    contracts.TrainEventSink
	dispatchEvents contracts.DispatchEventSink
	clock          contracts.Clock
}

// NewExecutor builds an Executor bound to one broker's layout and sinks.
func NewExecutor(
	layout *domain.Layout, cap *capacity.Manager,
	trainEvents contracts.TrainEventSink, dispatchEvents contracts.DispatchEventSink,
	clock contracts.Clock,
) *Executor {
	return &Executor{
		layout:         layout,
		capacity:       cap,
		trainEvents:    trainEvents,
		dispatchEvents: dispatchEvents,
		clock:          clock,
	}
}

// Execute applies req: validate, transition, update occupancy, emit event.
func (e *Executor) Execute(ctx context.Context, req ActionRequest) error {
	s := e.layout.Section(req.SectionID)
	if s == nil {
		return fmt.Errorf("dispatch: section %s not found: %w", req.SectionID, railerr.ErrInvalidLayout)
	}

	legal := LegalActions(e.layout, s, req.DispatcherStation)
	if !containsAction(legal, req.Action, req.PassTarget) {
		return fmt.Errorf("dispatch: action %s not available for section %s: %w", req.Action, s.ID, railerr.ErrActionNotAvailable)
	}

	switch req.Action {
	case Request:
		return e.transition(ctx, s, domain.DispatchRequested)
	case Accept:
		return e.transition(ctx, s, domain.DispatchAccepted)
	case Reject:
		return e.transition(ctx, s, domain.DispatchRejected)
	case Revoke:
		return e.transition(ctx, s, domain.DispatchRevoked)
	case Depart:
		return e.depart(ctx, s)
	case Pass:
		return e.pass(ctx, s, req.PassTarget)
	case Arrive:
		return e.arrive(ctx, s)
	case Clear:
		return e.clear(ctx, s)
	case Manned:
		return e.trainAction(ctx, s, domain.TrainManned)
	case Canceled:
		return e.trainAction(ctx, s, domain.TrainCanceled)
	case Aborted:
		return e.trainAction(ctx, s, domain.TrainAborted)
	case UndoTrainState:
		return e.undo(ctx, s)
	default:
		return fmt.Errorf("dispatch: unknown action %v", req.Action)
	}
}

func containsAction(legal []ActionContext, action Action, passTarget domain.ID) bool {
	for _, a := range legal {
		if a.Action != action {
			continue
		}

		if action == Pass && a.PassTarget != passTarget {
			continue
		}

		return true
	}

	return false
}

// transition applies a plain DispatchState change with no occupancy or
// index effects (Request/Accept/Reject/Revoke).
func (e *Executor) transition(ctx context.Context, s *domain.TrainSection, newState domain.DispatchState) error {
	at := e.clock.Now(nil)

	if err := e.dispatchEvents.RecordState(ctx, s.ID, newState, nil, at); err != nil {
		return fmt.Errorf("dispatch: %s: %w", newState, railerr.ErrPersistenceFailure)
	}

	s.State = newState

	return nil
}

// depart occupies segments[0] before any mutation or event write; on
// capacity failure it returns verbatim with nothing changed.
func (e *Executor) depart(ctx context.Context, s *domain.TrainSection) error {
	ds := e.layout.DispatchStretchByID(s.DispatchID)
	endpoints := e.layout.SegmentEndpoints(ds, s.Direction)

	if len(endpoints) == 0 {
		return fmt.Errorf("dispatch: depart: section %s has no segments: %w", s.ID, railerr.ErrInvalidLayout)
	}

	at := e.clock.Now(nil)
	first := endpoints[0]
	dir := travelDirection(e.layout, first.TrackStretchID, first.From)

	if err := e.capacity.OccupyCascade(s, first.TrackStretchID, dir, at, 0); err != nil {
		return err
	}

	index := 0

	if err := e.dispatchEvents.RecordState(ctx, s.ID, domain.DispatchDeparted, &index, at); err != nil {
		e.capacity.Release(s, first.TrackStretchID)
		return fmt.Errorf("dispatch: depart: %w", railerr.ErrPersistenceFailure)
	}

	// The observed departure is recorded against the section's departure
	// call, hinted by that call's scheduled departure. This write lands
	// before any in-memory mutation, on the same staged-and-rolled-back path
	// as the dispatch-state write above: a failure here releases the
	// capacity this call staged and returns failure with the section still
	// not-Departed, rather than leaving Departed applied in memory while the
	// caller is told the action failed.
	departureAt := at
	if call := e.layout.Call(s.DepartureCall); call != nil && call.ScheduledDeparture != nil {
		departureAt = e.clock.Now(call.ScheduledDeparture)
	}

	if err := e.trainEvents.RecordObservedDeparture(ctx, s.DepartureCall, departureAt); err != nil {
		e.capacity.Release(s, first.TrackStretchID)
		return fmt.Errorf("dispatch: depart: observed departure: %w", railerr.ErrPersistenceFailure)
	}

	s.State = domain.DispatchDeparted
	s.CurrentTrackStretchIndex = 0

	if call := e.layout.Call(s.DepartureCall); call != nil {
		call.ObservedDeparture = &departureAt
	}

	// Implicit Manned -> Running; no separate event is emitted for it.
	if train := e.layout.Train(s.TrainID); train != nil && train.State == domain.TrainManned {
		train.State = domain.TrainRunning
	}

	return nil
}

// pass requires passTarget to name the next control point (the place
// reached after this section's current run of segments, skipping any
// unsignalled junctions already covered by cascade). It occupies the
// segment beyond that control point, releases the section's current
// segment (and, via cascade, everything still held behind the control
// point), and advances the index past it.
func (e *Executor) pass(ctx context.Context, s *domain.TrainSection, passTarget domain.ID) error {
	ds := e.layout.DispatchStretchByID(s.DispatchID)
	endpoints := e.layout.SegmentEndpoints(ds, s.Direction)

	controlIdx, controlPlace, ok := nextControlPoint(e.layout, ds, s)
	if !ok || controlPlace != passTarget {
		return fmt.Errorf("dispatch: pass: target %s is not the next control point: %w", passTarget, railerr.ErrInvalidPassTarget)
	}

	nextIdx := controlIdx + 1
	if nextIdx >= len(endpoints) {
		return fmt.Errorf("dispatch: pass: section %s has no segment beyond %s: %w", s.ID, passTarget, railerr.ErrInvalidPassTarget)
	}

	next := endpoints[nextIdx]

	at := e.clock.Now(nil)
	dir := travelDirection(e.layout, next.TrackStretchID, next.From)

	if err := e.capacity.OccupyCascade(s, next.TrackStretchID, dir, at, 0); err != nil {
		return err
	}

	if err := e.dispatchEvents.RecordPass(ctx, s.ID, passTarget, nextIdx, at); err != nil {
		e.capacity.Release(s, next.TrackStretchID)
		return fmt.Errorf("dispatch: pass: %w", railerr.ErrPersistenceFailure)
	}

	current := endpoints[s.CurrentTrackStretchIndex]
	e.capacity.Release(s, current.TrackStretchID)
	s.CurrentTrackStretchIndex = nextIdx

	return nil
}

// arrive releases every occupancy and, if this was the train's last
// section, completes the train.
func (e *Executor) arrive(ctx context.Context, s *domain.TrainSection) error {
	at := e.clock.Now(nil)

	if err := e.dispatchEvents.RecordState(ctx, s.ID, domain.DispatchArrived, nil, at); err != nil {
		return fmt.Errorf("dispatch: arrive: %w", railerr.ErrPersistenceFailure)
	}

	// The observed arrival is recorded against the section's arrival call,
	// hinted by that call's scheduled arrival. Every write below lands
	// before any in-memory mutation, so a failure anywhere in this chain
	// returns failure with the section still Departed rather than applying
	// Arrived (and releasing capacity) while the caller is told the action
	// failed.
	arrivalAt := at
	if call := e.layout.Call(s.ArrivalCall); call != nil && call.ScheduledArrival != nil {
		arrivalAt = e.clock.Now(call.ScheduledArrival)
	}

	if err := e.trainEvents.RecordObservedArrival(ctx, s.ArrivalCall, arrivalAt); err != nil {
		return fmt.Errorf("dispatch: arrive: observed arrival: %w", railerr.ErrPersistenceFailure)
	}

	var completesTrain bool

	train := e.layout.Train(s.TrainID)
	if train != nil && isLastSection(e.layout, s) {
		if err := e.trainEvents.RecordState(ctx, train.ID, domain.TrainCompleted, at); err != nil {
			return fmt.Errorf("dispatch: arrive: complete train: %w", railerr.ErrPersistenceFailure)
		}

		completesTrain = true
	}

	// All durable writes succeeded; apply every in-memory mutation together.
	e.capacity.ReleaseAll(s)
	s.State = domain.DispatchArrived

	if call := e.layout.Call(s.ArrivalCall); call != nil {
		call.ObservedArrival = &arrivalAt
	}

	if completesTrain {
		train.State = domain.TrainCompleted
	}

	return nil
}

// clear releases every occupancy and cancels the section (used when a
// train is Canceled/Aborted mid-journey).
func (e *Executor) clear(ctx context.Context, s *domain.TrainSection) error {
	at := e.clock.Now(nil)

	if err := e.dispatchEvents.RecordState(ctx, s.ID, domain.DispatchCanceled, nil, at); err != nil {
		return fmt.Errorf("dispatch: clear: %w", railerr.ErrPersistenceFailure)
	}

	e.capacity.ReleaseAll(s)
	s.State = domain.DispatchCanceled

	return nil
}

// trainAction applies a train-state-changing action, snapshotting the undo
// buffer first.
func (e *Executor) trainAction(ctx context.Context, s *domain.TrainSection, newState domain.TrainState) error {
	train := e.layout.Train(s.TrainID)
	if train == nil {
		return fmt.Errorf("dispatch: train for section %s not found: %w", s.ID, railerr.ErrInvalidLayout)
	}

	at := e.clock.Now(nil)

	if err := e.trainEvents.RecordState(ctx, train.ID, newState, at); err != nil {
		return fmt.Errorf("dispatch: %s: %w", newState, railerr.ErrPersistenceFailure)
	}

	train.RecordPreviousState()
	train.State = newState

	return nil
}

// undo restores a train's previous_state and clears the undo buffer.
func (e *Executor) undo(ctx context.Context, s *domain.TrainSection) error {
	train := e.layout.Train(s.TrainID)
	if train == nil || train.PreviousState == nil {
		return fmt.Errorf("dispatch: undo: section %s: %w", s.ID, railerr.ErrActionNotAvailable)
	}

	restored := *train.PreviousState
	at := e.clock.Now(nil)

	if err := e.trainEvents.RecordState(ctx, train.ID, restored, at); err != nil {
		return fmt.Errorf("dispatch: undo: %w", railerr.ErrPersistenceFailure)
	}

	train.State = restored
	train.ClearPreviousState()

	return nil
}

// travelDirection resolves which of a TrackStretch's two fixed endpoints a
// journey is entering from, for the capacity manager's direction checks.
func travelDirection(l *domain.Layout, stretchID, entryPlace domain.ID) capacity.Direction {
	stretch := l.Stretch(stretchID)
	if stretch == nil {
		return capacity.FromToTo
	}

	return capacity.DirectionFromEntry(stretch, entryPlace)
}

// isLastSection reports whether s is the final section in its train's
// journey order.
func isLastSection(l *domain.Layout, s *domain.TrainSection) bool {
	ids := l.SectionsByTrain[s.TrainID]
	if len(ids) == 0 {
		return false
	}

	return ids[len(ids)-1] == s.ID
}
