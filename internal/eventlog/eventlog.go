// Package eventlog implements the two append-only CSV event logs:
// train-events and dispatch-events. Each writer owns one os.File opened
// O_APPEND, fsyncing after every write so a successful call is a durability
// guarantee the executor can rely on for its rollback-on-persistence-failure
// rule.
//
// encoding/csv is stdlib rather than a pack dependency because the wire
// format mandates literal, bit-exact CSV framing and no example in the
// retrieval pack wires a CSV-specific library for anything comparable (see
// DESIGN.md).
package eventlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/tonimelisma/raildispatch/internal/domain"
	"github.com/tonimelisma/raildispatch/internal/railerr"
)

// Train-events ChangeType values.
const (
	ChangeTypeState             = "State"
	ChangeTypeObservedArrival   = "ObservedArrival"
	ChangeTypeObservedDeparture = "ObservedDeparture"
	ChangeTypeTrackChange       = "TrackChange"
)

// Dispatch-events ChangeType values.
const (
	ChangeTypeDispatchState = "State"
	ChangeTypePass          = "Pass"
)

var trainEventsHeader = []string{"Timestamp", "ChangeType", "TrainId", "CallId", "State", "Time", "NewTrack"}
var dispatchEventsHeader = []string{"Timestamp", "ChangeType", "SectionId", "State", "TrackStretchIndex", "SignalPlaceId"}

// formatTimestamp renders at (Unix nanoseconds) as ISO 8601 UTC with second
// precision.
func formatTimestamp(at int64) string {
	return time.Unix(0, at).UTC().Format(time.RFC3339)
}

// writer is the shared append-only, fsync-on-write CSV file plumbing both
// sinks use.
type writer struct {
	mu     sync.Mutex
	file   *os.File
	csv    *csv.Writer
	logger *slog.Logger
	path   string
}

func openWriter(path string, header []string, logger *slog.Logger) (*writer, error) {
	info, statErr := os.Stat(path)
	needsHeader := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}

	w := &writer{file: f, csv: csv.NewWriter(f), logger: logger, path: path}

	if needsHeader {
		if err := w.writeRow(header); err != nil {
			f.Close()
			return nil, err
		}
	}

	return w, nil
}

func (w *writer) writeRow(row []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("eventlog: write %s: %w", w.path, err)
	}

	w.csv.Flush()

	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("eventlog: flush %s: %w", w.path, err)
	}

	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("eventlog: fsync %s: %w", w.path, err)
	}

	return nil
}

func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Close()
}

// TrainSink is the durable contracts.TrainEventSink backed by a train-events
// CSV file.
type TrainSink struct {
	w *writer
}

// OpenTrainSink opens (creating if absent) the train-events file at path,
// writing the header if the file is new or empty.
func OpenTrainSink(path string, logger *slog.Logger) (*TrainSink, error) {
	w, err := openWriter(path, trainEventsHeader, logger)
	if err != nil {
		return nil, err
	}

	return &TrainSink{w: w}, nil
}

// Close closes the underlying file.
func (s *TrainSink) Close() error { return s.w.Close() }

// RecordState implements contracts.TrainEventSink.
func (s *TrainSink) RecordState(ctx context.Context, trainID domain.ID, state domain.TrainState, at int64) error {
	err := s.w.writeRow([]string{
		formatTimestamp(at), ChangeTypeState, trainID.String(), "", state.String(), "", "",
	})
	if err != nil {
		return err
	}

	s.w.logger.Debug("eventlog: recorded train state", "train_id", trainID, "state", state)

	return nil
}

// RecordObservedArrival implements contracts.TrainEventSink.
func (s *TrainSink) RecordObservedArrival(ctx context.Context, callID domain.ID, at int64) error {
	err := s.w.writeRow([]string{
		formatTimestamp(at), ChangeTypeObservedArrival, "", callID.String(), "", strconv.FormatInt(at, 10), "",
	})
	if err != nil {
		return err
	}

	s.w.logger.Debug("eventlog: recorded observed arrival", "call_id", callID)

	return nil
}

// RecordObservedDeparture implements contracts.TrainEventSink.
func (s *TrainSink) RecordObservedDeparture(ctx context.Context, callID domain.ID, at int64) error {
	err := s.w.writeRow([]string{
		formatTimestamp(at), ChangeTypeObservedDeparture, "", callID.String(), "", strconv.FormatInt(at, 10), "",
	})
	if err != nil {
		return err
	}

	s.w.logger.Debug("eventlog: recorded observed departure", "call_id", callID)

	return nil
}

// RecordTrackChange implements contracts.TrainEventSink.
func (s *TrainSink) RecordTrackChange(ctx context.Context, callID domain.ID, trackID domain.ID, at int64) error {
	err := s.w.writeRow([]string{
		formatTimestamp(at), ChangeTypeTrackChange, "", callID.String(), "", "", trackID.String(),
	})
	if err != nil {
		return err
	}

	s.w.logger.Debug("eventlog: recorded track change", "call_id", callID, "track_id", trackID)

	return nil
}

// DispatchSink is the durable contracts.DispatchEventSink backed by a
// dispatch-events CSV file.
type DispatchSink struct {
	w *writer
}

// OpenDispatchSink opens (creating if absent) the dispatch-events file at
// path, writing the header if the file is new or empty.
func OpenDispatchSink(path string, logger *slog.Logger) (*DispatchSink, error) {
	w, err := openWriter(path, dispatchEventsHeader, logger)
	if err != nil {
		return nil, err
	}

	return &DispatchSink{w: w}, nil
}

// Close closes the underlying file.
func (s *DispatchSink) Close() error { return s.w.Close() }

// RecordState implements contracts.DispatchEventSink. index must be non-nil
// iff newState is Departed.
func (s *DispatchSink) RecordState(ctx context.Context, sectionID domain.ID, newState domain.DispatchState, index *int, at int64) error {
	if (index != nil) != (newState == domain.DispatchDeparted) {
		return fmt.Errorf("eventlog: dispatch state %s: index presence must match Departed: %w", newState, railerr.ErrInvalidLayout)
	}

	indexCol := ""
	if index != nil {
		indexCol = strconv.Itoa(*index)
	}

	err := s.w.writeRow([]string{
		formatTimestamp(at), ChangeTypeDispatchState, sectionID.String(), newState.String(), indexCol, "",
	})
	if err != nil {
		return err
	}

	s.w.logger.Debug("eventlog: recorded dispatch state", "section_id", sectionID, "state", newState)

	return nil
}

// RecordPass implements contracts.DispatchEventSink.
func (s *DispatchSink) RecordPass(ctx context.Context, sectionID domain.ID, signalPlaceID domain.ID, newIndex int, at int64) error {
	err := s.w.writeRow([]string{
		formatTimestamp(at), ChangeTypePass, sectionID.String(), "", strconv.Itoa(newIndex), signalPlaceID.String(),
	})
	if err != nil {
		return err
	}

	s.w.logger.Debug("eventlog: recorded pass", "section_id", sectionID, "signal_place_id", signalPlaceID)

	return nil
}
