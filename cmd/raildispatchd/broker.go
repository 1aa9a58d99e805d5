package main

import (
	"context"
	"fmt"

	"github.com/tonimelisma/raildispatch/internal/broker"
	"github.com/tonimelisma/raildispatch/internal/contracts"
	"github.com/tonimelisma/raildispatch/internal/eventlog"
	"github.com/tonimelisma/raildispatch/internal/metrics"
	"github.com/tonimelisma/raildispatch/internal/testfixture"
)

// buildBroker wires a Broker from the resolved config: the bundled YAML
// fixture as data source, the two durable CSV event sinks, the system
// clock, and a fresh metrics registry. isRestart controls whether Init
// replays the event logs before the broker accepts actions.
func buildBroker(ctx context.Context, cc *CLIContext) (*broker.Broker, *metrics.Registry, func() error, error) {
	source, err := testfixture.LoadSource(cc.Cfg.Session.LayoutFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading layout fixture: %w", err)
	}

	trainSink, err := eventlog.OpenTrainSink(cc.Cfg.Session.TrainEventsFile, cc.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening train-events sink: %w", err)
	}

	dispatchSink, err := eventlog.OpenDispatchSink(cc.Cfg.Session.DispatchEventsFile, cc.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening dispatch-events sink: %w", err)
	}

	sinks := broker.Sinks{Train: trainSink, Dispatch: dispatchSink}
	reg := metrics.NewRegistry()

	b := broker.New(source, sinks, contracts.SystemClock{}, cc.Logger, reg)

	var trainEvents []eventlog.TrainEventRecord
	var dispatchEvents []eventlog.DispatchEventRecord

	if cc.Cfg.Session.Restart {
		trainEvents, err = eventlog.ReadTrainEvents(cc.Cfg.Session.TrainEventsFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("reading train-events for restore: %w", err)
		}

		dispatchEvents, err = eventlog.ReadDispatchEvents(cc.Cfg.Session.DispatchEventsFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("reading dispatch-events for restore: %w", err)
		}
	}

	if err := b.Init(ctx, cc.Cfg.Session.Restart, trainEvents, dispatchEvents); err != nil {
		return nil, nil, nil, fmt.Errorf("broker init: %w", err)
	}

	shutdown := func() error { return b.Shutdown(ctx) }

	return b, reg, shutdown, nil
}
