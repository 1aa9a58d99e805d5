// Package broker implements the singleton coordinator (C8): it builds the
// layout graph from the data source (restoring from the event logs first
// when requested), hosts the layout/capacity/executor collections, and
// mediates every dispatcher-facing query and command through one critical
// section.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/raildispatch/internal/capacity"
	"github.com/tonimelisma/raildispatch/internal/contracts"
	"github.com/tonimelisma/raildispatch/internal/dispatch"
	"github.com/tonimelisma/raildispatch/internal/domain"
	"github.com/tonimelisma/raildispatch/internal/eventlog"
	"github.com/tonimelisma/raildispatch/internal/metrics"
	"github.com/tonimelisma/raildispatch/internal/railerr"
	"github.com/tonimelisma/raildispatch/internal/restore"
)

// Sinks bundles the two durable event sinks a Broker owns for the lifetime
// of a session.
type Sinks struct {
	Train    contracts.TrainEventSink
	Dispatch contracts.DispatchEventSink
}

// closer is implemented by the eventlog.TrainSink/DispatchSink concrete
// types; Shutdown type-asserts for it so Sinks built from fakes in tests
// don't need a no-op Close.
type closer interface {
	Close() error
}

// Broker is the single-threaded cooperative serializer: all mutation runs
// under mu, while read-only queries take the read lock and observe a
// consistent snapshot between completed actions.
type Broker struct {
	mu sync.RWMutex

	source   contracts.DataSource
	layout   *domain.Layout
	capacity *capacity.Manager
	executor *dispatch.Executor
	sinks    Sinks
	clock    contracts.Clock
	logger   *slog.Logger
	metrics  *metrics.Registry

	// refused is set once the broker enters the fatal state (CorruptState at
	// restore, or a CorruptState error returned by Execute; see
	// isUnrecoverable) and never cleared.
	refused    bool
	refusedErr error

	// runID identifies this Init call (a fresh start or a restore run) in
	// logs.
	runID string
}

// New constructs a Broker. Init must be called before it serves any
// dispatcher-facing query or command.
func New(source contracts.DataSource, sinks Sinks, clock contracts.Clock, logger *slog.Logger, reg *metrics.Registry) *Broker {
	return &Broker{
		sinks:   sinks,
		clock:   clock,
		logger:  logger,
		metrics: reg,
		source:  source,
	}
}

// Init builds the layout graph from the data source, then — when isRestart
// is true — replays the two event logs against it before the broker accepts
// any action.
//
// trainEvents/dispatchEvents are nil when isRestart is false; Init never
// reads them itself, since the data-source and restore inputs are supplied
// by the caller (the CLI layer or a test) to keep this package free of file
// path conventions.
func (b *Broker) Init(ctx context.Context, isRestart bool, trainEvents []eventlog.TrainEventRecord, dispatchEvents []eventlog.DispatchEventRecord) error {
	b.runID = uuid.New().String()

	layout, err := buildLayout(ctx, b.source)
	if err != nil {
		return err
	}

	cap := capacity.NewManager(layout)

	if isRestart {
		start := time.Now()

		if err := restore.Run(layout, cap, trainEvents, dispatchEvents, b.logger); err != nil {
			b.enterRefused(err)
			return err
		}

		if b.metrics != nil {
			b.metrics.RestoreDuration.Observe(time.Since(start).Seconds())
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.layout = layout
	b.capacity = cap
	b.executor = dispatch.NewExecutor(layout, cap, b.sinks.Train, b.sinks.Dispatch, b.clock)

	b.logger.Info("broker: init complete",
		"run_id", b.runID,
		"places", len(layout.Places), "trains", len(layout.Trains), "sections", len(layout.Sections),
		"restart", isRestart)

	return nil
}

// RunID identifies the most recent Init call, for correlating logs and
// metrics with a single broker lifetime.
func (b *Broker) RunID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.runID
}

func buildLayout(ctx context.Context, source contracts.DataSource) (*domain.Layout, error) {
	// Methods are called in the strict order the data source contract
	// requires: places, then track stretches, then dispatch stretches, then
	// trains, then calls.
	places, err := source.OperationPlaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("broker: operation places: %w", err)
	}

	stretches, err := source.TrackStretches(ctx)
	if err != nil {
		return nil, fmt.Errorf("broker: track stretches: %w", err)
	}

	dispatchSpecs, err := source.DispatchStretches(ctx)
	if err != nil {
		return nil, fmt.Errorf("broker: dispatch stretches: %w", err)
	}

	trains, err := source.Trains(ctx)
	if err != nil {
		return nil, fmt.Errorf("broker: trains: %w", err)
	}

	calls, err := source.TrainStationCalls(ctx)
	if err != nil {
		return nil, fmt.Errorf("broker: train station calls: %w", err)
	}

	specs := make([]domain.DispatchStretchSpec, len(dispatchSpecs))
	for i, s := range dispatchSpecs {
		specs[i] = domain.DispatchStretchSpec{ID: s.ID, FromStationID: s.FromStationID, ToStationID: s.ToStationID}
	}

	return domain.Build(domain.BuildInput{
		Places:            places,
		TrackStretches:    stretches,
		DispatchStretches: specs,
		Trains:            trains,
		Calls:             calls,
	})
}

// enterRefused puts the broker into the fatal state: once set, every
// subsequent query/command fails with ErrBrokerRefused until a fresh
// process restarts with corrected data.
func (b *Broker) enterRefused(cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refused = true
	b.refusedErr = cause

	if b.metrics != nil {
		b.metrics.BrokerRefused.Inc()
	}

	b.logger.Error("broker: entering refused state", "cause", cause)
}

// checkRefused returns ErrBrokerRefused wrapping the original cause if the
// broker has entered the fatal state. Callers must hold at least the read
// lock.
func (b *Broker) checkRefused() error {
	if b.refused {
		return fmt.Errorf("broker: refused: %w: %w", b.refusedErr, railerr.ErrBrokerRefused)
	}

	return nil
}

// Shutdown flushes and closes both event sinks concurrently: errgroup
// supervises the two goroutines; the first error is returned, both still
// run to completion.
func (b *Broker) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)

	if c, ok := b.sinks.Train.(closer); ok {
		g.Go(func() error {
			if err := c.Close(); err != nil {
				return fmt.Errorf("broker: close train-events sink: %w", err)
			}

			return nil
		})
	}

	if c, ok := b.sinks.Dispatch.(closer); ok {
		g.Go(func() error {
			if err := c.Close(); err != nil {
				return fmt.Errorf("broker: close dispatch-events sink: %w", err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	b.logger.Info("broker: shutdown complete", "run_id", b.runID)

	return nil
}
