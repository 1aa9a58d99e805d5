package domain

// StretchDirection names the Forward/Reverse direction descriptors owned by
// a DispatchStretch.
type StretchDirection int

// Direction values. Forward is original shortest-path order (from->to);
// Reverse is the same TrackStretch references in reverse order.
const (
	Forward StretchDirection = iota
	Reverse
)

// String renders the direction for logging.
func (d StretchDirection) String() string {
	if d == Reverse {
		return "reverse"
	}

	return "forward"
}

// DispatchStretch is a logical origin->destination route between two
// stations. Its segment sequence is derived at build time as the shortest
// path through the undirected TrackStretch graph; it is never mutated
// afterward.
type DispatchStretch struct {
	ID          ID
	FromStation ID
	ToStation   ID

	// Segments is the Forward-direction ordered sequence of TrackStretch
	// IDs, computed once at build time. Reverse is the same references in
	// reverse order — never recomputed, never re-pathed.
	Segments []ID
}

// SegmentsFor returns the ordered TrackStretch ID sequence for the given
// direction, without mutating the stretch's stored Forward sequence.
func (s *DispatchStretch) SegmentsFor(dir StretchDirection) []ID {
	if dir == Forward {
		return s.Segments
	}

	reversed := make([]ID, len(s.Segments))
	for i, seg := range s.Segments {
		reversed[len(s.Segments)-1-i] = seg
	}

	return reversed
}

// EndpointsFor returns (from, to) place IDs for the given travel direction.
func (s *DispatchStretch) EndpointsFor(dir StretchDirection) (from, to ID) {
	if dir == Forward {
		return s.FromStation, s.ToStation
	}

	return s.ToStation, s.FromStation
}
