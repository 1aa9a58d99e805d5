package domain

// TrainState is the lifecycle state of a Train.
type TrainState int

// Train state values.
const (
	TrainPlanned TrainState = iota
	TrainManned
	TrainRunning
	TrainCompleted
	TrainCanceled
	TrainAborted
)

// String renders the state for logging and event records.
func (s TrainState) String() string {
	switch s {
	case TrainPlanned:
		return "Planned"
	case TrainManned:
		return "Manned"
	case TrainRunning:
		return "Running"
	case TrainCompleted:
		return "Completed"
	case TrainCanceled:
		return "Canceled"
	case TrainAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// ParseTrainState parses the State column of a train-events row.
func ParseTrainState(s string) (TrainState, bool) {
	switch s {
	case "Planned":
		return TrainPlanned, true
	case "Manned":
		return TrainManned, true
	case "Running":
		return TrainRunning, true
	case "Completed":
		return TrainCompleted, true
	case "Canceled":
		return TrainCanceled, true
	case "Aborted":
		return TrainAborted, true
	default:
		return TrainPlanned, false
	}
}

// IsTerminal reports whether a section may no longer dispatch because its
// train has reached a terminal state.
func (s TrainState) IsTerminal() bool {
	return s == TrainCanceled || s == TrainAborted || s == TrainCompleted
}

// Identity is a train's reporting mark: company plus a prefix/number pair.
type Identity struct {
	Prefix string
	Number string
}

// Train is a scheduled train running across one or more DispatchStretches.
type Train struct {
	ID        ID
	Company   string
	Identity  Identity
	State     TrainState
	// PreviousState is the single-slot undo buffer. Never two deep.
	PreviousState *TrainState
	MaxLength     *int64 // nullable
}

// RecordPreviousState snapshots the current state into PreviousState before
// an explicit train-state-changing action is applied.
func (t *Train) RecordPreviousState() {
	prev := t.State
	t.PreviousState = &prev
}

// ClearPreviousState discards the undo buffer (after Undo is applied).
func (t *Train) ClearPreviousState() {
	t.PreviousState = nil
}

// CanUndo reports whether an Undo action is currently offered.
func (t *Train) CanUndo() bool {
	if t.PreviousState == nil {
		return false
	}

	switch t.State {
	case TrainManned, TrainCanceled, TrainAborted:
		return true
	default:
		return false
	}
}

// TrainStationCall is a scheduled arrival or departure of a train at an
// OperationPlace.
type TrainStationCall struct {
	ID      ID
	TrainID ID
	AtPlace ID

	ScheduledArrival   *int64 // Unix nanoseconds, nullable
	ScheduledDeparture *int64 // Unix nanoseconds, nullable

	PlannedTrackID ID // StationTrack, 0 if unset; checked against the place's tracks at build time when set
	LiveTrackID    ID // StationTrack override, 0 if unset

	ObservedArrival   *int64
	ObservedDeparture *int64

	IsArrival   bool
	IsDeparture bool

	// SequenceNumber is the 1-based position within the train's journey,
	// assigned at build time.
	SequenceNumber int
}
