// Package capacity implements the single-/multi-track occupancy manager:
// track selection, occupy-with-cascade, and release. Capacity is owned by
// TrackStretches, not DispatchStretches — two dispatch stretches sharing a
// stretch share its capacity.
package capacity

import (
	"fmt"
	"sort"

	"github.com/tonimelisma/raildispatch/internal/domain"
	"github.com/tonimelisma/raildispatch/internal/railerr"
)

// Direction is the direction of travel a section takes across a stretch,
// used for the opposing-direction and up-track preference rules. It is a
// thin wrapper so capacity doesn't need to import the section/dispatch
// concepts beyond what it needs: "is this travel from the stretch's From
// endpoint toward its To endpoint".
type Direction int

// Direction values.
const (
	FromToTo Direction = iota
	ToToFrom
)

// Manager mutates TrackStretch.Occupancies in a domain.Layout according to
// the capacity rules. Occupancy itself lives on the layout (so replay can
// reconstruct it); the manager additionally tracks, per (stretch, section),
// which direction an occupancy entered with — this is needed for the
// opposing-traffic check but is not part of the persisted event format, so
// it is kept here rather than on domain.TrackStretchOccupancy.
type Manager struct {
	layout     *domain.Layout
	directions map[directionKey]Direction
}

// NewManager creates a Manager bound to a layout.
func NewManager(layout *domain.Layout) *Manager {
	return &Manager{layout: layout, directions: make(map[directionKey]Direction)}
}

// OccupyCascade occupies trackStretchID for section sec traveling in dir,
// then recursively cascades into every other outgoing stretch of a
// junction-typed OtherPlace reached at the stretch's far endpoint.
// cascadedFrom is 0 for the primary (non-cascaded) call; recursive calls
// pass the triggering stretch ID so Release can undo exactly one
// departure's cascade.
//
// Every occupancy OccupyCascade adds below trackStretchID (across arbitrarily
// many cascade levels) carries CascadedFrom set to trackStretchID itself, so
// on failure this call is undone as a unit by releasing exactly what Release
// would release for (sec, trackStretchID): the primary occupancy plus every
// occupancy cascaded from it. A partial cascade must never be left in
// place — a cascade failure must fail with NoCapacity/DirectionConflict
// with no mutation.
func (m *Manager) OccupyCascade(
	sec *domain.TrainSection, trackStretchID domain.ID, dir Direction, enteredAt int64, cascadedFrom domain.ID,
) error {
	if err := m.occupyRecursive(sec, trackStretchID, dir, enteredAt, cascadedFrom, map[domain.ID]bool{}); err != nil {
		m.Release(sec, trackStretchID)
		return err
	}

	return nil
}

func (m *Manager) occupyRecursive(
	sec *domain.TrainSection, stretchID domain.ID, dir Direction, enteredAt int64, cascadedFrom domain.ID,
	visiting map[domain.ID]bool,
) error {
	if visiting[stretchID] {
		return nil // guard against a malformed layout looping the cascade
	}

	visiting[stretchID] = true

	stretch := m.layout.Stretch(stretchID)
	if stretch == nil {
		return fmt.Errorf("capacity: occupy: track stretch %s not found: %w", stretchID, railerr.ErrInvalidLayout)
	}

	// The opposing-direction check is single-track's ONLY occupancy gate: a
	// single track may carry several same-direction occupancies in
	// sequence, so this must run before (and
	// independently of) track selection, which would otherwise see the
	// track as "not free" and report NoCapacity instead of the more
	// specific DirectionConflict.
	if stretch.NumberOfTracks == 1 {
		for _, occ := range stretch.Occupancies {
			occDir, ok := m.occupancyDirection(stretch, occ)
			if ok && occDir != dir {
				return fmt.Errorf("capacity: stretch %s: %w", stretchID, railerr.ErrDirectionConflict)
			}
		}
	}

	track, err := m.selectTrack(stretch, sec, dir)
	if err != nil {
		return err
	}

	stretch.Occupancies = append(stretch.Occupancies, domain.TrackStretchOccupancy{
		SectionID:    sec.ID,
		TrackID:      track.ID,
		EnteredAt:    enteredAt,
		CascadedFrom: cascadedFrom,
	})

	m.recordDirection(stretch.ID, sec.ID, dir)

	toPlaceID := m.farEndpoint(stretch, dir)

	toPlace := m.layout.Place(toPlaceID)
	if toPlace == nil || !toPlace.CascadeEligible() {
		return nil
	}

	origin := stretchID
	if cascadedFrom != 0 {
		origin = cascadedFrom
	}

	for _, adj := range m.outgoingStretches(toPlaceID) {
		if adj.stretchID == stretchID {
			continue
		}

		nextDir := m.directionAwayFrom(adj.stretch, toPlaceID)

		if err := m.occupyRecursive(sec, adj.stretchID, nextDir, enteredAt, origin, visiting); err != nil {
			return err
		}
	}

	return nil
}

// DirectionFromEntry returns the Direction describing travel that enters
// stretch at entryPlace. Shared by the executor and the restore engine so
// both resolve a segment's travel direction identically.
func DirectionFromEntry(stretch *domain.TrackStretch, entryPlace domain.ID) Direction {
	if stretch.FromID == entryPlace {
		return FromToTo
	}

	return ToToFrom
}

// farEndpoint returns the endpoint a section traveling dir across stretch is
// heading toward.
func (m *Manager) farEndpoint(stretch *domain.TrackStretch, dir Direction) domain.ID {
	if dir == FromToTo {
		return stretch.ToID
	}

	return stretch.FromID
}

// directionAwayFrom returns the Direction describing travel starting at
// place and crossing stretch (i.e. away from place).
func (m *Manager) directionAwayFrom(stretch *domain.TrackStretch, place domain.ID) Direction {
	if stretch.FromID == place {
		return FromToTo
	}

	return ToToFrom
}

type outgoing struct {
	stretchID domain.ID
	stretch   *domain.TrackStretch
}

// outgoingStretches returns every TrackStretch touching place.
func (m *Manager) outgoingStretches(place domain.ID) []outgoing {
	var out []outgoing

	for id, s := range m.layout.TrackStretches {
		if s.FromID == place || s.ToID == place {
			out = append(out, outgoing{stretchID: id, stretch: s})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].stretchID < out[j].stretchID })

	return out
}

// directionKey indexes, per (stretch, section), which direction the
// section entered that stretch with — needed because
// domain.TrackStretchOccupancy intentionally carries no direction field
// (kept minimal per the data model), and because a section's own Direction
// field only describes its dispatch-stretch-level direction, not which way
// it is crossing an individual cascaded stretch.
type directionKey struct {
	stretch domain.ID
	section domain.ID
}

func (m *Manager) recordDirection(stretch, section domain.ID, dir Direction) {
	if m.directions == nil {
		m.directions = make(map[directionKey]Direction)
	}

	m.directions[directionKey{stretch: stretch, section: section}] = dir
}

func (m *Manager) occupancyDirection(stretch *domain.TrackStretch, occ domain.TrackStretchOccupancy) (Direction, bool) {
	d, ok := m.directions[directionKey{stretch: stretch.ID, section: occ.SectionID}]
	return d, ok
}

// selectTrack picks a Track on stretch for section sec traveling dir,
// per the selection rules:
//  1. skip Closed tracks
//  2. prefer ForwardOnly/BackwardOnly tracks matching dir
//  3. else pick a free DoubleDirected track, preferring up-track for From->To
//  4. enforce train.max_length <= track.max_length when both present
//
// Ties broken by smallest DisplayOrder then smallest Designation.
func (m *Manager) selectTrack(stretch *domain.TrackStretch, sec *domain.TrainSection, dir Direction) (*domain.Track, error) {
	train := m.layout.Train(sec.TrainID)

	// A single physical track is not excluded by its own prior occupancy —
	// occupyRecursive's direction check is the only gate there. With more
	// than one track, each is held exclusively.
	var occupied map[domain.ID]bool

	if stretch.NumberOfTracks > 1 {
		occupied = make(map[domain.ID]bool, len(stretch.Occupancies))
		for _, occ := range stretch.Occupancies {
			occupied[occ.TrackID] = true
		}
	}

	candidates := make([]domain.Track, 0, len(stretch.Tracks))

	for _, tr := range stretch.Tracks {
		if tr.Direction == domain.Closed {
			continue
		}

		if occupied[tr.ID] {
			continue
		}

		if train != nil && train.MaxLength != nil && tr.MaxLength != nil && *train.MaxLength > *tr.MaxLength {
			continue
		}

		candidates = append(candidates, tr)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("capacity: stretch %s: %w", stretch.ID, railerr.ErrNoCapacity)
	}

	directional := filterDirectional(candidates, dir)
	if len(directional) > 0 {
		return pickTieBroken(directional, dir), nil
	}

	doubleDirected := filterKind(candidates, domain.DoubleDirected)
	if len(doubleDirected) == 0 {
		return nil, fmt.Errorf("capacity: stretch %s: %w", stretch.ID, railerr.ErrNoCapacity)
	}

	return pickTieBroken(doubleDirected, dir), nil
}

func filterDirectional(tracks []domain.Track, dir Direction) []domain.Track {
	want := domain.ForwardOnly
	if dir == ToToFrom {
		want = domain.BackwardOnly
	}

	var out []domain.Track

	for _, t := range tracks {
		if t.Direction == want {
			out = append(out, t)
		}
	}

	return out
}

func filterKind(tracks []domain.Track, kind domain.TrackDirection) []domain.Track {
	var out []domain.Track

	for _, t := range tracks {
		if t.Direction == kind {
			out = append(out, t)
		}
	}

	return out
}

// pickTieBroken applies the up-track preference (for From->To double-
// directed selection) then the smallest-DisplayOrder/Designation tie break.
func pickTieBroken(tracks []domain.Track, dir Direction) *domain.Track {
	if dir == FromToTo {
		for i := range tracks {
			if tracks[i].IsUpTrack {
				return bestOf(tracks, func(t domain.Track) bool { return t.IsUpTrack })
			}
		}
	}

	return bestOf(tracks, func(domain.Track) bool { return true })
}

func bestOf(tracks []domain.Track, eligible func(domain.Track) bool) *domain.Track {
	var best *domain.Track

	for i := range tracks {
		t := &tracks[i]
		if !eligible(*t) {
			continue
		}

		if best == nil || better(*t, *best) {
			best = t
		}
	}

	if best == nil {
		return &tracks[0]
	}

	cp := *best

	return &cp
}

func better(a, b domain.Track) bool {
	if a.DisplayOrder != b.DisplayOrder {
		return a.DisplayOrder < b.DisplayOrder
	}

	return a.Designation < b.Designation
}

// Release removes the occupancy (and any occupancies cascaded from it) that
// section sec holds on stretchID.
func (m *Manager) Release(sec *domain.TrainSection, stretchID domain.ID) {
	stretch := m.layout.Stretch(stretchID)
	if stretch == nil {
		return
	}

	var keep []domain.TrackStretchOccupancy

	for _, occ := range stretch.Occupancies {
		if occ.SectionID == sec.ID {
			delete(m.directions, directionKey{stretch: stretch.ID, section: occ.SectionID})
			continue
		}

		keep = append(keep, occ)
	}

	stretch.Occupancies = keep

	// Release any stretches whose occupancy for this section was cascaded
	// FROM this departure.
	for id, s := range m.layout.TrackStretches {
		if id == stretchID {
			continue
		}

		var remain []domain.TrackStretchOccupancy

		for _, occ := range s.Occupancies {
			if occ.SectionID == sec.ID && occ.CascadedFrom == stretchID {
				delete(m.directions, directionKey{stretch: s.ID, section: occ.SectionID})
				continue
			}

			remain = append(remain, occ)
		}

		s.Occupancies = remain
	}
}

// ReleaseAll removes every occupancy section sec holds, across all stretches
// (used by Arrive and Clear).
func (m *Manager) ReleaseAll(sec *domain.TrainSection) {
	for id, s := range m.layout.TrackStretches {
		var keep []domain.TrackStretchOccupancy

		for _, occ := range s.Occupancies {
			if occ.SectionID == sec.ID {
				delete(m.directions, directionKey{stretch: id, section: occ.SectionID})
				continue
			}

			keep = append(keep, occ)
		}

		s.Occupancies = keep
	}
}
