package domain

// Layout is the centrally-owned index of every entity built once at broker
// init: places, track stretches, dispatch stretches, trains, calls, and
// sections, all keyed by stable ID. Cross-references (Train<->Section,
// Section<->PreviousSection) are resolved through these maps rather than
// direct pointers, so replay against a freshly built Layout is trivial.
type Layout struct {
	Places           map[ID]*OperationPlace
	TrackStretches   map[ID]*TrackStretch
	DispatchStretches map[ID]*DispatchStretch
	Trains           map[ID]*Train
	Calls            map[ID]*TrainStationCall
	Sections         map[ID]*TrainSection

	// SectionsByTrain indexes a train's sections in journey order, for
	// invariant checks and reporting.
	SectionsByTrain map[ID][]ID
}

// NewLayout creates an empty Layout with initialized maps.
func NewLayout() *Layout {
	return &Layout{
		Places:            make(map[ID]*OperationPlace),
		TrackStretches:    make(map[ID]*TrackStretch),
		DispatchStretches: make(map[ID]*DispatchStretch),
		Trains:            make(map[ID]*Train),
		Calls:             make(map[ID]*TrainStationCall),
		Sections:          make(map[ID]*TrainSection),
		SectionsByTrain:   make(map[ID][]ID),
	}
}

// Place looks up a place by ID.
func (l *Layout) Place(id ID) *OperationPlace { return l.Places[id] }

// Stretch looks up a track stretch by ID.
func (l *Layout) Stretch(id ID) *TrackStretch { return l.TrackStretches[id] }

// DispatchStretchByID looks up a dispatch stretch by ID.
func (l *Layout) DispatchStretchByID(id ID) *DispatchStretch { return l.DispatchStretches[id] }

// Train looks up a train by ID.
func (l *Layout) Train(id ID) *Train { return l.Trains[id] }

// Call looks up a train station call by ID.
func (l *Layout) Call(id ID) *TrainStationCall { return l.Calls[id] }

// Section looks up a train section by ID.
func (l *Layout) Section(id ID) *TrainSection { return l.Sections[id] }

// PreviousSection returns the previous section in the chain, or nil if s is
// first.
func (l *Layout) PreviousSection(s *TrainSection) *TrainSection {
	if s.PreviousSectionID == 0 {
		return nil
	}

	return l.Sections[s.PreviousSectionID]
}

// Segments returns the ordered TrackStretch IDs for a section's direction.
func (l *Layout) Segments(s *TrainSection) []ID {
	ds := l.DispatchStretchByID(s.DispatchID)
	if ds == nil {
		return nil
	}

	return ds.SegmentsFor(s.Direction)
}

// SegmentEndpoint names the place pair a section crosses when traversing
// one TrackStretch of its journey.
type SegmentEndpoint struct {
	TrackStretchID ID
	From           ID
	To             ID
}

// SegmentEndpoints walks ds's segment chain in direction dir, deriving the
// (from, to) place pair for each TrackStretch crossed. This is needed
// because TrackStretch itself only knows its own two endpoints, not which
// one a particular journey enters from.
func (l *Layout) SegmentEndpoints(ds *DispatchStretch, dir StretchDirection) []SegmentEndpoint {
	segs := ds.SegmentsFor(dir)
	from, _ := ds.EndpointsFor(dir)

	out := make([]SegmentEndpoint, 0, len(segs))
	current := from

	for _, segID := range segs {
		stretch := l.Stretch(segID)
		if stretch == nil {
			break
		}

		next := stretch.OtherEndpoint(current)
		out = append(out, SegmentEndpoint{TrackStretchID: segID, From: current, To: next})
		current = next
	}

	return out
}
