package domain

import (
	"fmt"
	"sort"

	"github.com/tonimelisma/raildispatch/internal/railerr"
)

// DispatchStretchSpec mirrors contracts.DispatchStretchSpec without importing
// the contracts package (which itself imports domain) — broken out here to
// avoid an import cycle; the broker's buildLayout adapts
// contracts.DispatchStretchSpec to this type when calling Build.
type DispatchStretchSpec struct {
	ID            ID
	FromStationID ID
	ToStationID   ID
}

// BuildInput bundles everything the data source supplies, in the strict
// order the data source contract requires them in.
type BuildInput struct {
	Places            []OperationPlace
	TrackStretches    []TrackStretch
	DispatchStretches []DispatchStretchSpec
	Trains            []Train
	Calls             []TrainStationCall
}

// Build constructs a Layout from a BuildInput: it resolves IDs (assigning
// monotonic ones where the source left them unset), derives each dispatch
// stretch's shortest path, and builds each train's section chain. It fails
// with railerr.ErrInvalidLayout
// if any referenced ID is missing, a dispatch stretch has no path, or
// from==to.
func Build(in BuildInput) (*Layout, error) {
	layout := NewLayout()
	alloc := NewAllocator()

	reserveExplicitIDs(alloc, in)

	if err := indexPlaces(layout, alloc, in.Places); err != nil {
		return nil, err
	}

	if err := indexTrackStretches(layout, alloc, in.TrackStretches); err != nil {
		return nil, err
	}

	if err := indexDispatchStretches(layout, alloc, in.DispatchStretches); err != nil {
		return nil, err
	}

	if err := indexTrains(layout, alloc, in.Trains); err != nil {
		return nil, err
	}

	if err := indexCalls(layout, alloc, in.Calls); err != nil {
		return nil, err
	}

	if err := buildSections(layout, alloc); err != nil {
		return nil, err
	}

	return layout, nil
}

// reserveExplicitIDs observes every explicit (>0) ID across the whole input
// before any auto-assignment happens, so a source that mixes auto (<=0) and
// explicit IDs for the same entity kind never has an early auto-assignment
// collide with an explicit ID that appears later in the slice.
func reserveExplicitIDs(alloc *Allocator, in BuildInput) {
	for _, p := range in.Places {
		alloc.Observe(p.ID)
	}

	for _, s := range in.TrackStretches {
		alloc.Observe(s.ID)

		for _, tr := range s.Tracks {
			alloc.Observe(tr.ID)
		}
	}

	for _, spec := range in.DispatchStretches {
		alloc.Observe(spec.ID)
	}

	for _, t := range in.Trains {
		alloc.Observe(t.ID)
	}

	for _, c := range in.Calls {
		alloc.Observe(c.ID)
	}
}

func indexPlaces(l *Layout, alloc *Allocator, places []OperationPlace) error {
	for i := range places {
		p := places[i]
		p.ID = alloc.Resolve(p.ID)

		if p.Kind == PlaceSignalControlled && p.ControlledByStationID != 0 {
			alloc.Observe(p.ControlledByStationID)
		}

		pp := p
		l.Places[pp.ID] = &pp
	}

	// Validate back-references now that all places are indexed.
	for _, p := range l.Places {
		if p.Kind == PlaceSignalControlled {
			if _, ok := l.Places[p.ControlledByStationID]; !ok {
				return fmt.Errorf("signal-controlled place %s: controlling station %s not found: %w",
					p.ID, p.ControlledByStationID, railerr.ErrInvalidLayout)
			}
		}
	}

	return nil
}

func indexTrackStretches(l *Layout, alloc *Allocator, stretches []TrackStretch) error {
	for i := range stretches {
		s := stretches[i]
		s.ID = alloc.Resolve(s.ID)

		if _, ok := l.Places[s.FromID]; !ok {
			return fmt.Errorf("track stretch %s: from-place %s not found: %w", s.ID, s.FromID, railerr.ErrInvalidLayout)
		}

		if _, ok := l.Places[s.ToID]; !ok {
			return fmt.Errorf("track stretch %s: to-place %s not found: %w", s.ID, s.ToID, railerr.ErrInvalidLayout)
		}

		if s.NumberOfTracks == 0 {
			s.NumberOfTracks = len(s.Tracks)
		}

		for ti := range s.Tracks {
			s.Tracks[ti].ID = alloc.Resolve(s.Tracks[ti].ID)
		}

		ss := s
		l.TrackStretches[ss.ID] = &ss
	}

	return nil
}

func indexDispatchStretches(l *Layout, alloc *Allocator, specs []DispatchStretchSpec) error {
	// Build a flat slice of the current track stretches for shortest-path.
	flat := make([]TrackStretch, 0, len(l.TrackStretches))
	for _, s := range l.TrackStretches {
		flat = append(flat, *s)
	}

	sort.Slice(flat, func(i, j int) bool { return flat[i].ID < flat[j].ID })

	for i := range specs {
		spec := specs[i]
		spec.ID = alloc.Resolve(spec.ID)

		if _, ok := l.Places[spec.FromStationID]; !ok {
			return fmt.Errorf("dispatch stretch %s: from-station %s not found: %w",
				spec.ID, spec.FromStationID, railerr.ErrInvalidLayout)
		}

		if _, ok := l.Places[spec.ToStationID]; !ok {
			return fmt.Errorf("dispatch stretch %s: to-station %s not found: %w",
				spec.ID, spec.ToStationID, railerr.ErrInvalidLayout)
		}

		segments, err := ShortestPath(flat, spec.FromStationID, spec.ToStationID)
		if err != nil {
			return fmt.Errorf("dispatch stretch %s: %w", spec.ID, err)
		}

		l.DispatchStretches[spec.ID] = &DispatchStretch{
			ID:          spec.ID,
			FromStation: spec.FromStationID,
			ToStation:   spec.ToStationID,
			Segments:    segments,
		}
	}

	return nil
}

func indexTrains(l *Layout, alloc *Allocator, trains []Train) error {
	for i := range trains {
		t := trains[i]
		t.ID = alloc.Resolve(t.ID)

		tt := t
		l.Trains[tt.ID] = &tt
	}

	return nil
}

func indexCalls(l *Layout, alloc *Allocator, calls []TrainStationCall) error {
	for i := range calls {
		c := calls[i]
		c.ID = alloc.Resolve(c.ID)

		if _, ok := l.Trains[c.TrainID]; !ok {
			return fmt.Errorf("call %s: train %s not found: %w", c.ID, c.TrainID, railerr.ErrInvalidLayout)
		}

		if _, ok := l.Places[c.AtPlace]; !ok {
			return fmt.Errorf("call %s: place %s not found: %w", c.ID, c.AtPlace, railerr.ErrInvalidLayout)
		}

		if c.PlannedTrackID != 0 {
			place := l.Places[c.AtPlace]
			found := false

			for _, tr := range place.Tracks {
				if tr.ID == c.PlannedTrackID {
					found = true
					break
				}
			}

			if !found {
				return fmt.Errorf("call %s: planned track %s not found at place %s: %w",
					c.ID, c.PlannedTrackID, c.AtPlace, railerr.ErrInvalidLayout)
			}
		}

		cc := c
		l.Calls[cc.ID] = &cc
	}

	return nil
}

// buildSections groups each train's calls, orders them by scheduled
// departure (sequence number as tiebreaker), assigns sequence numbers,
// flags first/last, and links consecutive call pairs into TrainSections.
func buildSections(l *Layout, alloc *Allocator) error {
	// Both l.Calls and the per-train grouping below are maps, whose range
	// order Go randomizes per process — but section IDs are assigned from
	// alloc in the order trains and their calls are visited here, and
	// those IDs must come out identical on every build of the same input,
	// since IDs must stay stable across restarts. Walking both by sorted ID
	// pins that order down.
	callIDs := make([]ID, 0, len(l.Calls))
	for id := range l.Calls {
		callIDs = append(callIDs, id)
	}

	sort.Slice(callIDs, func(i, j int) bool { return callIDs[i] < callIDs[j] })

	byTrain := make(map[ID][]*TrainStationCall)
	var trainIDs []ID

	for _, id := range callIDs {
		c := l.Calls[id]
		if _, seen := byTrain[c.TrainID]; !seen {
			trainIDs = append(trainIDs, c.TrainID)
		}

		byTrain[c.TrainID] = append(byTrain[c.TrainID], c)
	}

	sort.Slice(trainIDs, func(i, j int) bool { return trainIDs[i] < trainIDs[j] })

	for _, trainID := range trainIDs {
		calls := byTrain[trainID]
		sort.SliceStable(calls, func(i, j int) bool {
			ti, tj := scheduledSortTime(calls[i]), scheduledSortTime(calls[j])
			if ti != tj {
				return ti < tj
			}

			return calls[i].SequenceNumber < calls[j].SequenceNumber
		})

		for idx, c := range calls {
			c.SequenceNumber = idx + 1
			c.IsArrival = idx != 0
			c.IsDeparture = idx != len(calls)-1
		}

		var previousSectionID ID

		for idx := 0; idx < len(calls)-1; idx++ {
			departureCall := calls[idx]
			arrivalCall := calls[idx+1]

			ds, dir, err := findDispatchStretch(l, departureCall.AtPlace, arrivalCall.AtPlace)
			if err != nil {
				return fmt.Errorf("train %s, calls %s->%s: %w", trainID, departureCall.ID, arrivalCall.ID, err)
			}

			section := &TrainSection{
				ID:                alloc.Resolve(0),
				TrainID:           trainID,
				DispatchID:        ds.ID,
				Direction:         dir,
				DepartureCall:     departureCall.ID,
				ArrivalCall:       arrivalCall.ID,
				State:             DispatchNone,
				PreviousSectionID: previousSectionID,
			}

			l.Sections[section.ID] = section
			l.SectionsByTrain[trainID] = append(l.SectionsByTrain[trainID], section.ID)
			previousSectionID = section.ID
		}
	}

	return nil
}

// scheduledSortTime returns the timestamp used to order a train's calls:
// scheduled departure when present, else scheduled arrival.
func scheduledSortTime(c *TrainStationCall) int64 {
	if c.ScheduledDeparture != nil {
		return *c.ScheduledDeparture
	}

	if c.ScheduledArrival != nil {
		return *c.ScheduledArrival
	}

	return 0
}

// findDispatchStretch locates the DispatchStretch whose Forward or Reverse
// endpoints match (from, to), returning the matching direction.
func findDispatchStretch(l *Layout, from, to ID) (*DispatchStretch, StretchDirection, error) {
	for _, ds := range l.DispatchStretches {
		if ds.FromStation == from && ds.ToStation == to {
			return ds, Forward, nil
		}

		if ds.FromStation == to && ds.ToStation == from {
			return ds, Reverse, nil
		}
	}

	return nil, Forward, fmt.Errorf("no dispatch stretch between %s and %s: %w", from, to, railerr.ErrInvalidLayout)
}
