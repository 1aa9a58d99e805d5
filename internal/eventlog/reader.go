package eventlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/tonimelisma/raildispatch/internal/domain"
	"github.com/tonimelisma/raildispatch/internal/railerr"
)

// TrainEventRecord is one parsed row of a train-events log, used by restore.
type TrainEventRecord struct {
	Timestamp   time.Time
	ChangeType  string
	TrainID     domain.ID
	CallID      domain.ID
	State       domain.TrainState
	Time        int64
	NewTrack    domain.ID
	HasState    bool
	HasTime     bool
	HasNewTrack bool
}

// DispatchEventRecord is one parsed row of a dispatch-events log.
type DispatchEventRecord struct {
	Timestamp         time.Time
	ChangeType        string
	SectionID         domain.ID
	State             domain.DispatchState
	TrackStretchIndex int
	SignalPlaceID     domain.ID
	HasState          bool
	HasIndex          bool
	HasSignalPlace    bool
}

func parseID(s string) (domain.ID, bool, error) {
	if s == "" {
		return 0, false, nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("eventlog: parse id %q: %w", s, railerr.ErrCorruptState)
	}

	return domain.ID(n), true, nil
}

func parseInt(s string) (int64, bool, error) {
	if s == "" {
		return 0, false, nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("eventlog: parse int %q: %w", s, railerr.ErrCorruptState)
	}

	return n, true, nil
}

// ReadTrainEvents parses every row of a train-events CSV file. An unknown
// ChangeType or malformed State is a parse error: restore must refuse
// rather than guess at an unrecognized record.
func ReadTrainEvents(path string) ([]TrainEventRecord, error) {
	rows, err := readCSV(path, trainEventsHeader)
	if err != nil {
		return nil, err
	}

	out := make([]TrainEventRecord, 0, len(rows))

	for i, row := range rows {
		rec, err := parseTrainEventRow(row)
		if err != nil {
			return nil, fmt.Errorf("eventlog: %s row %d: %w", path, i+2, err)
		}

		out = append(out, rec)
	}

	return out, nil
}

func parseTrainEventRow(row []string) (TrainEventRecord, error) {
	if len(row) != len(trainEventsHeader) {
		return TrainEventRecord{}, fmt.Errorf("eventlog: wrong column count %d: %w", len(row), railerr.ErrCorruptState)
	}

	ts, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return TrainEventRecord{}, fmt.Errorf("eventlog: parse timestamp %q: %w", row[0], railerr.ErrCorruptState)
	}

	changeType := row[1]

	switch changeType {
	case ChangeTypeState, ChangeTypeObservedArrival, ChangeTypeObservedDeparture, ChangeTypeTrackChange:
	default:
		return TrainEventRecord{}, fmt.Errorf("eventlog: unknown ChangeType %q: %w", changeType, railerr.ErrCorruptState)
	}

	trainID, _, err := parseID(row[2])
	if err != nil {
		return TrainEventRecord{}, err
	}

	callID, _, err := parseID(row[3])
	if err != nil {
		return TrainEventRecord{}, err
	}

	rec := TrainEventRecord{Timestamp: ts, ChangeType: changeType, TrainID: trainID, CallID: callID}

	if row[4] != "" {
		state, ok := domain.ParseTrainState(row[4])
		if !ok {
			return TrainEventRecord{}, fmt.Errorf("eventlog: unknown train state %q: %w", row[4], railerr.ErrCorruptState)
		}

		rec.State = state
		rec.HasState = true
	}

	at, hasTime, err := parseInt(row[5])
	if err != nil {
		return TrainEventRecord{}, err
	}

	rec.Time = at
	rec.HasTime = hasTime

	track, hasTrack, err := parseID(row[6])
	if err != nil {
		return TrainEventRecord{}, err
	}

	rec.NewTrack = track
	rec.HasNewTrack = hasTrack

	return rec, nil
}

// ReadDispatchEvents parses every row of a dispatch-events CSV file.
func ReadDispatchEvents(path string) ([]DispatchEventRecord, error) {
	rows, err := readCSV(path, dispatchEventsHeader)
	if err != nil {
		return nil, err
	}

	out := make([]DispatchEventRecord, 0, len(rows))

	for i, row := range rows {
		rec, err := parseDispatchEventRow(row)
		if err != nil {
			return nil, fmt.Errorf("eventlog: %s row %d: %w", path, i+2, err)
		}

		out = append(out, rec)
	}

	return out, nil
}

func parseDispatchEventRow(row []string) (DispatchEventRecord, error) {
	if len(row) != len(dispatchEventsHeader) {
		return DispatchEventRecord{}, fmt.Errorf("eventlog: wrong column count %d: %w", len(row), railerr.ErrCorruptState)
	}

	ts, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return DispatchEventRecord{}, fmt.Errorf("eventlog: parse timestamp %q: %w", row[0], railerr.ErrCorruptState)
	}

	changeType := row[1]

	switch changeType {
	case ChangeTypeDispatchState, ChangeTypePass:
	default:
		return DispatchEventRecord{}, fmt.Errorf("eventlog: unknown ChangeType %q: %w", changeType, railerr.ErrCorruptState)
	}

	sectionID, _, err := parseID(row[2])
	if err != nil {
		return DispatchEventRecord{}, err
	}

	rec := DispatchEventRecord{Timestamp: ts, ChangeType: changeType, SectionID: sectionID}

	if row[3] != "" {
		state, ok := domain.ParseDispatchState(row[3])
		if !ok {
			return DispatchEventRecord{}, fmt.Errorf("eventlog: unknown dispatch state %q: %w", row[3], railerr.ErrCorruptState)
		}

		rec.State = state
		rec.HasState = true
	}

	idx, hasIdx, err := parseInt(row[4])
	if err != nil {
		return DispatchEventRecord{}, err
	}

	rec.TrackStretchIndex = int(idx)
	rec.HasIndex = hasIdx

	place, hasPlace, err := parseID(row[5])
	if err != nil {
		return DispatchEventRecord{}, err
	}

	rec.SignalPlaceID = place
	rec.HasSignalPlace = hasPlace

	return rec, nil
}

func readCSV(path string, wantHeader []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("eventlog: read header %s: %w", path, err)
	}

	if len(header) != len(wantHeader) {
		return nil, fmt.Errorf("eventlog: %s: unexpected header: %w", path, railerr.ErrCorruptState)
	}

	for i := range wantHeader {
		if header[i] != wantHeader[i] {
			return nil, fmt.Errorf("eventlog: %s: unexpected header column %d: %w", path, i, railerr.ErrCorruptState)
		}
	}

	var rows [][]string

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("eventlog: read row %s: %w", path, err)
		}

		rows = append(rows, row)
	}

	return rows, nil
}
