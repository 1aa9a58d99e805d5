package domain

// DispatchState is the lifecycle state of a TrainSection.
type DispatchState int

// Dispatch state values.
const (
	DispatchNone DispatchState = iota
	DispatchRequested
	DispatchAccepted
	DispatchRejected
	DispatchRevoked
	DispatchDeparted
	DispatchArrived
	DispatchCanceled
)

// String renders the state for logging and event records.
func (s DispatchState) String() string {
	switch s {
	case DispatchNone:
		return "None"
	case DispatchRequested:
		return "Requested"
	case DispatchAccepted:
		return "Accepted"
	case DispatchRejected:
		return "Rejected"
	case DispatchRevoked:
		return "Revoked"
	case DispatchDeparted:
		return "Departed"
	case DispatchArrived:
		return "Arrived"
	case DispatchCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// ParseDispatchState parses the State column of a dispatch-events row.
func ParseDispatchState(s string) (DispatchState, bool) {
	switch s {
	case "None":
		return DispatchNone, true
	case "Requested":
		return DispatchRequested, true
	case "Accepted":
		return DispatchAccepted, true
	case "Rejected":
		return DispatchRejected, true
	case "Revoked":
		return DispatchRevoked, true
	case "Departed":
		return DispatchDeparted, true
	case "Arrived":
		return DispatchArrived, true
	case "Canceled":
		return DispatchCanceled, true
	default:
		return DispatchNone, false
	}
}

// TrainSection is one leg of a train's journey across one DispatchStretch.
// Sections form a linear chain via PreviousSectionID; only the section
// whose PreviousSectionID is 0 is "first".
type TrainSection struct {
	ID ID

	TrainID        ID
	DispatchID     ID // DispatchStretch ID
	Direction      StretchDirection
	DepartureCall  ID // TrainStationCall
	ArrivalCall    ID // TrainStationCall

	State DispatchState

	// CurrentTrackStretchIndex is 0-based into the direction's segment
	// sequence; meaningful only while State == DispatchDeparted.
	CurrentTrackStretchIndex int

	// PreviousSectionID is 0 iff this is the first section of the train's
	// journey.
	PreviousSectionID ID
}

// IsFirst reports whether this is the first section of its train's journey.
func (s *TrainSection) IsFirst() bool {
	return s.PreviousSectionID == 0
}

// OnLastSegment reports whether the section is on the final segment of its
// direction's sequence, given the segment count.
func (s *TrainSection) OnLastSegment(segmentCount int) bool {
	return s.CurrentTrackStretchIndex == segmentCount-1
}
