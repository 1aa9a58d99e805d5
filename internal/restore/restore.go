// Package restore implements the replay engine: given a freshly built
// domain.Layout and the two parsed event logs, it reconstructs
// train/section/call/occupancy state exactly as a live session would have
// produced it, then verifies the data model's invariants before letting the
// broker serve further actions.
package restore

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tonimelisma/raildispatch/internal/capacity"
	"github.com/tonimelisma/raildispatch/internal/domain"
	"github.com/tonimelisma/raildispatch/internal/eventlog"
	"github.com/tonimelisma/raildispatch/internal/railerr"
)

// entryKind distinguishes the two logs for the merge-sort tie-break: on
// equal timestamps, train-events apply before dispatch-events by
// convention.
type entryKind int

const (
	kindTrain entryKind = iota
	kindDispatch
)

type timelineEntry struct {
	at   time.Time
	kind entryKind
	idx  int
}

// Run replays trainEvents and dispatchEvents against layout, mutating it in
// place and driving cap (a capacity.Manager bound to the same layout) the
// same way the live executor would. It returns railerr.ErrCorruptState if
// any record references a missing entity or if the post-replay state
// violates an invariant.
func Run(
	layout *domain.Layout, cap *capacity.Manager,
	trainEvents []eventlog.TrainEventRecord, dispatchEvents []eventlog.DispatchEventRecord,
	logger *slog.Logger,
) error {
	timeline := buildTimeline(trainEvents, dispatchEvents)

	for _, e := range timeline {
		var err error

		switch e.kind {
		case kindTrain:
			err = applyTrainEvent(layout, trainEvents[e.idx])
		case kindDispatch:
			err = applyDispatchEvent(layout, cap, dispatchEvents[e.idx])
		}

		if err != nil {
			return err
		}
	}

	if err := domain.VerifyInvariants(layout); err != nil {
		return err
	}

	logger.Info("restore: replay complete", "train_events", len(trainEvents), "dispatch_events", len(dispatchEvents))

	return nil
}

// buildTimeline merges both logs in timestamp order, stable so that ties
// keep each log's internal order and train-events sort before
// dispatch-events at equal timestamps.
func buildTimeline(trainEvents []eventlog.TrainEventRecord, dispatchEvents []eventlog.DispatchEventRecord) []timelineEntry {
	timeline := make([]timelineEntry, 0, len(trainEvents)+len(dispatchEvents))

	for i, e := range trainEvents {
		timeline = append(timeline, timelineEntry{at: e.Timestamp, kind: kindTrain, idx: i})
	}

	for i, e := range dispatchEvents {
		timeline = append(timeline, timelineEntry{at: e.Timestamp, kind: kindDispatch, idx: i})
	}

	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].at.Before(timeline[j].at) })

	return timeline
}

func applyTrainEvent(layout *domain.Layout, e eventlog.TrainEventRecord) error {
	switch e.ChangeType {
	case eventlog.ChangeTypeState:
		train := layout.Train(e.TrainID)
		if train == nil {
			return fmt.Errorf("restore: train %s not found: %w", e.TrainID, railerr.ErrCorruptState)
		}

		// previous_state is left untouched by replay — it is a live-session
		// undo buffer, not part of the durable record.
		train.State = e.State

	case eventlog.ChangeTypeObservedArrival:
		call := layout.Call(e.CallID)
		if call == nil {
			return fmt.Errorf("restore: call %s not found: %w", e.CallID, railerr.ErrCorruptState)
		}

		at := e.Time
		call.ObservedArrival = &at

	case eventlog.ChangeTypeObservedDeparture:
		call := layout.Call(e.CallID)
		if call == nil {
			return fmt.Errorf("restore: call %s not found: %w", e.CallID, railerr.ErrCorruptState)
		}

		at := e.Time
		call.ObservedDeparture = &at

	case eventlog.ChangeTypeTrackChange:
		call := layout.Call(e.CallID)
		if call == nil {
			return fmt.Errorf("restore: call %s not found: %w", e.CallID, railerr.ErrCorruptState)
		}

		call.LiveTrackID = e.NewTrack

	default:
		return fmt.Errorf("restore: unknown train ChangeType %q: %w", e.ChangeType, railerr.ErrCorruptState)
	}

	return nil
}

func applyDispatchEvent(layout *domain.Layout, cap *capacity.Manager, e eventlog.DispatchEventRecord) error {
	section := layout.Section(e.SectionID)
	if section == nil {
		return fmt.Errorf("restore: section %s not found: %w", e.SectionID, railerr.ErrCorruptState)
	}

	switch e.ChangeType {
	case eventlog.ChangeTypeDispatchState:
		return applyDispatchState(layout, cap, section, e)
	case eventlog.ChangeTypePass:
		return applyPass(layout, cap, section, e)
	default:
		return fmt.Errorf("restore: unknown dispatch ChangeType %q: %w", e.ChangeType, railerr.ErrCorruptState)
	}
}

// applyDispatchState applies a plain state change. Arrived and Canceled
// release every occupancy the section holds, as the live Arrive and Clear
// steps do. Departed additionally
// sets the index and occupies the current segment — WITH cascade, the same
// as the live executor's Depart step, since cascaded occupancies are a pure
// side effect of that one occupation and are never logged as their own
// records; the junction cascade rule is re-run here on the initial Departed
// rather than replayed from a log of its own. Departed also moves a Manned
// train to Running, the implicit change Depart makes without logging it.
func applyDispatchState(layout *domain.Layout, cap *capacity.Manager, section *domain.TrainSection, e eventlog.DispatchEventRecord) error {
	section.State = e.State

	if e.State == domain.DispatchArrived || e.State == domain.DispatchCanceled {
		cap.ReleaseAll(section)
		return nil
	}

	if e.State != domain.DispatchDeparted {
		return nil
	}

	if !e.HasIndex {
		return fmt.Errorf("restore: section %s: Departed record missing index: %w", section.ID, railerr.ErrCorruptState)
	}

	section.CurrentTrackStretchIndex = e.TrackStretchIndex

	ds := layout.DispatchStretchByID(section.DispatchID)
	if ds == nil {
		return fmt.Errorf("restore: section %s: dispatch stretch %s not found: %w", section.ID, section.DispatchID, railerr.ErrCorruptState)
	}

	endpoints := layout.SegmentEndpoints(ds, section.Direction)
	if e.TrackStretchIndex < 0 || e.TrackStretchIndex >= len(endpoints) {
		return fmt.Errorf("restore: section %s: Departed index %d out of range: %w", section.ID, e.TrackStretchIndex, railerr.ErrCorruptState)
	}

	seg := endpoints[e.TrackStretchIndex]

	stretch := layout.Stretch(seg.TrackStretchID)
	if stretch == nil {
		return fmt.Errorf("restore: section %s: track stretch %s not found: %w", section.ID, seg.TrackStretchID, railerr.ErrCorruptState)
	}

	dir := capacity.DirectionFromEntry(stretch, seg.From)

	if err := cap.OccupyCascade(section, seg.TrackStretchID, dir, e.Timestamp.UnixNano(), 0); err != nil {
		return fmt.Errorf("restore: section %s: %w", section.ID, err)
	}

	if train := layout.Train(section.TrainID); train != nil && train.State == domain.TrainManned {
		train.State = domain.TrainRunning
	}

	return nil
}

// applyPass releases the segment the section is leaving and occupies (with
// cascade) the one it is entering, advancing the index.
func applyPass(layout *domain.Layout, cap *capacity.Manager, section *domain.TrainSection, e eventlog.DispatchEventRecord) error {
	ds := layout.DispatchStretchByID(section.DispatchID)
	if ds == nil {
		return fmt.Errorf("restore: section %s: dispatch stretch %s not found: %w", section.ID, section.DispatchID, railerr.ErrCorruptState)
	}

	endpoints := layout.SegmentEndpoints(ds, section.Direction)

	if e.TrackStretchIndex < 0 || e.TrackStretchIndex >= len(endpoints) {
		return fmt.Errorf("restore: section %s: Pass index %d out of range: %w", section.ID, e.TrackStretchIndex, railerr.ErrCorruptState)
	}

	oldIdx := section.CurrentTrackStretchIndex
	if oldIdx < 0 || oldIdx >= len(endpoints) {
		return fmt.Errorf("restore: section %s: current index %d out of range before Pass: %w", section.ID, oldIdx, railerr.ErrCorruptState)
	}

	newSeg := endpoints[e.TrackStretchIndex]

	newStretch := layout.Stretch(newSeg.TrackStretchID)
	if newStretch == nil {
		return fmt.Errorf("restore: section %s: track stretch %s not found: %w", section.ID, newSeg.TrackStretchID, railerr.ErrCorruptState)
	}

	dir := capacity.DirectionFromEntry(newStretch, newSeg.From)

	if err := cap.OccupyCascade(section, newSeg.TrackStretchID, dir, e.Timestamp.UnixNano(), 0); err != nil {
		return fmt.Errorf("restore: section %s: %w", section.ID, err)
	}

	cap.Release(section, endpoints[oldIdx].TrackStretchID)
	section.CurrentTrackStretchIndex = e.TrackStretchIndex

	return nil
}
