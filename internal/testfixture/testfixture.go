// Package testfixture implements a minimal contracts.DataSource backed by a
// single YAML file: places, track stretches, dispatch stretches, trains,
// and calls authored as YAML literals rather than hand-built Go structs. It
// is not a production data loader — just enough to exercise the broker
// end-to-end in package and e2e tests.
package testfixture

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tonimelisma/raildispatch/internal/contracts"
	"github.com/tonimelisma/raildispatch/internal/domain"
)

// Doc is the top-level YAML shape a fixture file decodes into.
type Doc struct {
	Places            []placeDoc    `yaml:"places"`
	TrackStretches    []stretchDoc  `yaml:"track_stretches"`
	DispatchStretches []dispatchDoc `yaml:"dispatch_stretches"`
	Trains            []trainDoc    `yaml:"trains"`
	Calls             []callDoc     `yaml:"calls"`
}

type trackDoc struct {
	ID           int64  `yaml:"id"`
	Number       string `yaml:"number"`
	MaxLength    *int64 `yaml:"max_length"`
	IsMainTrack  bool   `yaml:"is_main_track"`
	DisplayOrder int    `yaml:"display_order"`
	PlatformLenM *int64 `yaml:"platform_length_m"`
}

type placeDoc struct {
	ID                    int64      `yaml:"id"`
	Name                  string     `yaml:"name"`
	Signature             string     `yaml:"signature"`
	Kind                  string     `yaml:"kind"` // station | signal_controlled | other
	IsManned              bool       `yaml:"is_manned"`
	ControlledByStationID int64      `yaml:"controlled_by_station_id"`
	IsJunction            bool       `yaml:"is_junction"`
	Tracks                []trackDoc `yaml:"tracks"`
}

type physicalTrackDoc struct {
	ID           int64  `yaml:"id"`
	Designation  string `yaml:"designation"`
	Direction    string `yaml:"direction"` // forward_only | backward_only | double_directed | closed
	IsUpTrack    bool   `yaml:"is_up_track"`
	MaxLength    *int64 `yaml:"max_length"`
	DisplayOrder int    `yaml:"display_order"`
}

type stretchDoc struct {
	ID     int64              `yaml:"id"`
	FromID int64              `yaml:"from_id"`
	ToID   int64              `yaml:"to_id"`
	Tracks []physicalTrackDoc `yaml:"tracks"`
}

type dispatchDoc struct {
	ID            int64 `yaml:"id"`
	FromStationID int64 `yaml:"from_station_id"`
	ToStationID   int64 `yaml:"to_station_id"`
}

type trainDoc struct {
	ID        int64  `yaml:"id"`
	Company   string `yaml:"company"`
	Prefix    string `yaml:"prefix"`
	Number    string `yaml:"number"`
	State     string `yaml:"state"`
	MaxLength *int64 `yaml:"max_length"`
}

type callDoc struct {
	ID                 int64      `yaml:"id"`
	TrainID            int64      `yaml:"train_id"`
	AtPlace            int64      `yaml:"at_place"`
	ScheduledArrival   *time.Time `yaml:"scheduled_arrival"`
	ScheduledDeparture *time.Time `yaml:"scheduled_departure"`
	PlannedTrackID     int64      `yaml:"planned_track_id"`
}

// Load parses a fixture YAML file at path.
func Load(path string) (*Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testfixture: reading %s: %w", path, err)
	}

	var doc Doc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("testfixture: parsing %s: %w", path, err)
	}

	return &doc, nil
}

// Source adapts a parsed Doc to contracts.DataSource.
type Source struct {
	doc *Doc
}

// NewSource wraps an already-parsed Doc.
func NewSource(doc *Doc) *Source { return &Source{doc: doc} }

// LoadSource parses path and wraps it as a Source in one call.
func LoadSource(path string) (*Source, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}

	return NewSource(doc), nil
}

func placeKind(s string) domain.PlaceKind {
	switch s {
	case "signal_controlled":
		return domain.PlaceSignalControlled
	case "other":
		return domain.PlaceOther
	default:
		return domain.PlaceStation
	}
}

func trackDirection(s string) domain.TrackDirection {
	switch s {
	case "forward_only":
		return domain.ForwardOnly
	case "backward_only":
		return domain.BackwardOnly
	case "closed":
		return domain.Closed
	default:
		return domain.DoubleDirected
	}
}

func trainState(s string) domain.TrainState {
	st, ok := domain.ParseTrainState(s)
	if !ok {
		return domain.TrainPlanned
	}

	return st
}

// OperationPlaces implements contracts.DataSource.
func (s *Source) OperationPlaces(_ context.Context) ([]domain.OperationPlace, error) {
	out := make([]domain.OperationPlace, 0, len(s.doc.Places))

	for _, p := range s.doc.Places {
		tracks := make([]domain.StationTrack, 0, len(p.Tracks))

		for _, t := range p.Tracks {
			tracks = append(tracks, domain.StationTrack{
				ID:           domain.ID(t.ID),
				Number:       t.Number,
				MaxLength:    t.MaxLength,
				IsMainTrack:  t.IsMainTrack,
				DisplayOrder: t.DisplayOrder,
				PlatformLenM: t.PlatformLenM,
			})
		}

		out = append(out, domain.OperationPlace{
			ID:                    domain.ID(p.ID),
			Name:                  p.Name,
			Signature:             p.Signature,
			Kind:                  placeKind(p.Kind),
			Tracks:                tracks,
			IsManned:              p.IsManned,
			ControlledByStationID: domain.ID(p.ControlledByStationID),
			IsJunction:            p.IsJunction,
		})
	}

	return out, nil
}

// TrackStretches implements contracts.DataSource.
func (s *Source) TrackStretches(_ context.Context) ([]domain.TrackStretch, error) {
	out := make([]domain.TrackStretch, 0, len(s.doc.TrackStretches))

	for _, st := range s.doc.TrackStretches {
		tracks := make([]domain.Track, 0, len(st.Tracks))

		for _, t := range st.Tracks {
			tracks = append(tracks, domain.Track{
				ID:           domain.ID(t.ID),
				Designation:  t.Designation,
				Direction:    trackDirection(t.Direction),
				IsUpTrack:    t.IsUpTrack,
				MaxLength:    t.MaxLength,
				DisplayOrder: t.DisplayOrder,
			})
		}

		out = append(out, domain.TrackStretch{
			ID:             domain.ID(st.ID),
			FromID:         domain.ID(st.FromID),
			ToID:           domain.ID(st.ToID),
			Tracks:         tracks,
			NumberOfTracks: len(tracks),
		})
	}

	return out, nil
}

// DispatchStretches implements contracts.DataSource.
func (s *Source) DispatchStretches(_ context.Context) ([]contracts.DispatchStretchSpec, error) {
	out := make([]contracts.DispatchStretchSpec, 0, len(s.doc.DispatchStretches))

	for _, d := range s.doc.DispatchStretches {
		out = append(out, contracts.DispatchStretchSpec{
			ID:            domain.ID(d.ID),
			FromStationID: domain.ID(d.FromStationID),
			ToStationID:   domain.ID(d.ToStationID),
		})
	}

	return out, nil
}

// Trains implements contracts.DataSource.
func (s *Source) Trains(_ context.Context) ([]domain.Train, error) {
	out := make([]domain.Train, 0, len(s.doc.Trains))

	for _, t := range s.doc.Trains {
		out = append(out, domain.Train{
			ID:        domain.ID(t.ID),
			Company:   t.Company,
			Identity:  domain.Identity{Prefix: t.Prefix, Number: t.Number},
			State:     trainState(t.State),
			MaxLength: t.MaxLength,
		})
	}

	return out, nil
}

// TrainStationCalls implements contracts.DataSource.
func (s *Source) TrainStationCalls(_ context.Context) ([]domain.TrainStationCall, error) {
	out := make([]domain.TrainStationCall, 0, len(s.doc.Calls))

	for _, c := range s.doc.Calls {
		out = append(out, domain.TrainStationCall{
			ID:                 domain.ID(c.ID),
			TrainID:            domain.ID(c.TrainID),
			AtPlace:            domain.ID(c.AtPlace),
			ScheduledArrival:   unixNanoPtr(c.ScheduledArrival),
			ScheduledDeparture: unixNanoPtr(c.ScheduledDeparture),
			PlannedTrackID:     domain.ID(c.PlannedTrackID),
		})
	}

	return out, nil
}

func unixNanoPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}

	n := t.UnixNano()

	return &n
}
