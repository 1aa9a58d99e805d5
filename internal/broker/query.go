package broker

import (
	"context"
	"fmt"
	"sort"

	"github.com/tonimelisma/raildispatch/internal/dispatch"
	"github.com/tonimelisma/raildispatch/internal/domain"
	"github.com/tonimelisma/raildispatch/internal/railerr"
)

// Dispatcher is a person authorized to act on behalf of a manned Station —
// including, by delegation, any SignalControlledPlace that names this
// station as its controlling station.
type Dispatcher struct {
	StationID domain.ID
	Name      string
}

// Dispatchers returns every dispatcher known to the layout: one per manned
// Station.
func (b *Broker) Dispatchers() ([]Dispatcher, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkRefused(); err != nil {
		return nil, err
	}

	var out []Dispatcher

	for _, p := range b.layout.Places {
		if p.Kind == domain.PlaceStation && p.IsManned {
			out = append(out, Dispatcher{StationID: p.ID, Name: p.Name})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StationID < out[j].StationID })

	return out, nil
}

// DispatcherByID returns the dispatcher for a manned station, or ok=false if
// stationID does not name one.
func (b *Broker) DispatcherByID(stationID domain.ID) (Dispatcher, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkRefused(); err != nil {
		return Dispatcher{}, false, err
	}

	p := b.layout.Place(stationID)
	if p == nil || p.Kind != domain.PlaceStation || !p.IsManned {
		return Dispatcher{}, false, nil
	}

	return Dispatcher{StationID: p.ID, Name: p.Name}, true, nil
}

// SectionView is the read-only projection of a section's journey context
// handed back by DeparturesFor/ArrivalsFor: enough for a UI or automation
// client to render a worklist without reaching into the domain model
// itself.
type SectionView struct {
	SectionID          domain.ID
	TrainID            domain.ID
	Company            string
	Identity           domain.Identity
	State              domain.DispatchState
	ScheduledDeparture *int64
	ScheduledArrival   *int64
}

// isVisible filters the dispatcher-facing lists: a section is listed so
// long as it hasn't arrived and its train hasn't completed. This
// intentionally diverges from a literal train.state-in-dispatchable-states
// filter: Canceled/Aborted trains stay visible so their Clear action can
// still be offered on a Departed section.
func isVisible(s *domain.TrainSection, train *domain.Train) bool {
	return s.State != domain.DispatchArrived && train.State != domain.TrainCompleted
}

// DeparturesFor returns the visible sections this station's dispatcher
// controls the departure of, sorted by scheduled departure time, capped at
// limit (0 means unlimited).
func (b *Broker) DeparturesFor(stationID domain.ID, limit int) ([]SectionView, error) {
	return b.sectionsFor(stationID, limit, func(ds *domain.DispatchStretch, dir domain.StretchDirection) domain.ID {
		from, _ := ds.EndpointsFor(dir)
		return from
	}, func(c *domain.TrainStationCall) *int64 { return c.ScheduledDeparture })
}

// ArrivalsFor returns the visible sections this station's dispatcher
// controls the arrival of, sorted by scheduled arrival time, capped at
// limit (0 means unlimited).
func (b *Broker) ArrivalsFor(stationID domain.ID, limit int) ([]SectionView, error) {
	return b.sectionsFor(stationID, limit, func(ds *domain.DispatchStretch, dir domain.StretchDirection) domain.ID {
		_, to := ds.EndpointsFor(dir)
		return to
	}, func(c *domain.TrainStationCall) *int64 { return c.ScheduledArrival })
}

func (b *Broker) sectionsFor(
	stationID domain.ID, limit int,
	controlPoint func(*domain.DispatchStretch, domain.StretchDirection) domain.ID,
	scheduled func(*domain.TrainStationCall) *int64,
) ([]SectionView, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkRefused(); err != nil {
		return nil, err
	}

	type candidate struct {
		view SectionView
		at   *int64
	}

	var candidates []candidate

	for _, s := range b.layout.Sections {
		ds := b.layout.DispatchStretchByID(s.DispatchID)
		if ds == nil {
			continue
		}

		place := b.layout.Place(controlPoint(ds, s.Direction))
		if place == nil || place.ControllingStationID() != stationID {
			continue
		}

		train := b.layout.Train(s.TrainID)
		if train == nil || !isVisible(s, train) {
			continue
		}

		call := b.callFor(s, scheduled)

		candidates = append(candidates, candidate{
			view: SectionView{
				SectionID:          s.ID,
				TrainID:            train.ID,
				Company:            train.Company,
				Identity:           train.Identity,
				State:              s.State,
				ScheduledDeparture: b.layout.Call(s.DepartureCall).ScheduledDeparture,
				ScheduledArrival:   b.layout.Call(s.ArrivalCall).ScheduledArrival,
			},
			at: call,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return sortKey(candidates[i].at) < sortKey(candidates[j].at)
	})

	out := make([]SectionView, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.view)
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (b *Broker) callFor(s *domain.TrainSection, scheduled func(*domain.TrainStationCall) *int64) *int64 {
	if c := b.layout.Call(s.DepartureCall); c != nil {
		if at := scheduled(c); at != nil {
			return at
		}
	}

	if c := b.layout.Call(s.ArrivalCall); c != nil {
		return scheduled(c)
	}

	return nil
}

func sortKey(at *int64) int64 {
	if at == nil {
		return int64(^uint64(0) >> 1) // unscheduled sorts last
	}

	return *at
}

// ActionsFor is the pure, side-effect-free query surface over
// dispatch.LegalActions: the same function the executor uses to validate
// a request.
func (b *Broker) ActionsFor(dispatcherStation, sectionID domain.ID) ([]dispatch.ActionContext, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkRefused(); err != nil {
		return nil, err
	}

	s := b.layout.Section(sectionID)
	if s == nil {
		return nil, fmt.Errorf("broker: section %s not found: %w", sectionID, railerr.ErrInvalidLayout)
	}

	return dispatch.LegalActions(b.layout, s, dispatcherStation), nil
}

// Execute runs req through the single critical section: validation,
// mutation, occupancy update, and durable event append all happen under
// the write lock, so reads never observe a partially-applied action.
func (b *Broker) Execute(ctx context.Context, req dispatch.ActionRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkRefused(); err != nil {
		return err
	}

	err := b.executor.Execute(ctx, req)

	if b.metrics != nil {
		if err != nil {
			recordDenial(b.metrics, err)
		} else {
			b.metrics.ActionsExecuted.WithLabelValues(req.Action.String()).Inc()
		}
	}

	if err != nil && isUnrecoverable(err) {
		b.refused = true
		b.refusedErr = err

		if b.metrics != nil {
			b.metrics.BrokerRefused.Inc()
		}

		b.logger.Error("broker: unrecoverable error, entering refused state", "error", err)
	}

	return err
}
