package domain

import (
	"fmt"

	"github.com/tonimelisma/raildispatch/internal/railerr"
)

// VerifyInvariants checks the data-model invariants that must hold after
// every action (and so must hold after a full replay). It is the restore
// engine's final gate: a violation means the event logs produced a state
// the live executor could never reach, and restore must refuse rather than
// serve actions against corrupt state.
func VerifyInvariants(l *Layout) error {
	for _, s := range l.Sections {
		if err := verifySectionChain(l, s); err != nil {
			return err
		}

		if err := verifySectionIndex(l, s); err != nil {
			return err
		}
	}

	if err := verifyOccupancyExclusivity(l); err != nil {
		return err
	}

	return nil
}

// verifySectionChain checks that a section's previous_section, when set,
// exists and belongs to the same train. It does not check that the chain is
// linear or that each train has exactly one first section.
func verifySectionChain(l *Layout, s *TrainSection) error {
	if s.PreviousSectionID == 0 {
		return nil
	}

	prev := l.Section(s.PreviousSectionID)
	if prev == nil {
		return fmt.Errorf("domain: section %s: previous section %s missing: %w", s.ID, s.PreviousSectionID, railerr.ErrCorruptState)
	}

	if prev.TrainID != s.TrainID {
		return fmt.Errorf("domain: section %s: previous section belongs to a different train: %w", s.ID, railerr.ErrCorruptState)
	}

	return nil
}

// verifySectionIndex checks that current_track_stretch_index is
// 0 <= i < len(segments), and is meaningful only while Departed.
func verifySectionIndex(l *Layout, s *TrainSection) error {
	if s.State != DispatchDeparted {
		return nil
	}

	ds := l.DispatchStretchByID(s.DispatchID)
	if ds == nil {
		return fmt.Errorf("domain: section %s: dispatch stretch %s missing: %w", s.ID, s.DispatchID, railerr.ErrCorruptState)
	}

	segments := ds.SegmentsFor(s.Direction)
	if s.CurrentTrackStretchIndex < 0 || s.CurrentTrackStretchIndex >= len(segments) {
		return fmt.Errorf("domain: section %s: index %d out of range [0,%d): %w", s.ID, s.CurrentTrackStretchIndex, len(segments), railerr.ErrCorruptState)
	}

	return nil
}

// verifyOccupancyExclusivity checks that no two sections may hold
// opposing directions on a single-track stretch, and no two sections may
// share the same Track on a multi-track stretch. Direction itself is not
// persisted on TrackStretchOccupancy (the capacity.Manager tracks it
// privately during a live session), so here we can only check the
// multi-track exclusivity half directly; the single-track half is
// guaranteed transitively because the executor never lets such a state
// arise and restore replays the same DispatchState/Pass sequence the
// executor produced.
func verifyOccupancyExclusivity(l *Layout) error {
	for _, stretch := range l.TrackStretches {
		if stretch.NumberOfTracks <= 1 {
			continue
		}

		seen := make(map[ID]ID) // track -> section holding it

		for _, occ := range stretch.Occupancies {
			if holder, ok := seen[occ.TrackID]; ok && holder != occ.SectionID {
				return fmt.Errorf("domain: track stretch %s: track %s double-booked by sections %s and %s: %w",
					stretch.ID, occ.TrackID, holder, occ.SectionID, railerr.ErrCorruptState)
			}

			seen[occ.TrackID] = occ.SectionID
		}
	}

	return nil
}
