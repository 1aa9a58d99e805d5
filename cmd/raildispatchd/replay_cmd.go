package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newReplayCmd exercises the restore engine (C10) outside of serve's normal
// startup path: it rebuilds the layout from the data source, replays both
// event logs against it, and prints a summary report — useful for manually
// verifying a session's event logs without blocking on serve.
func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the broker from the event logs and report the resulting state",
		RunE:  runReplay,
	}
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	cc.Cfg.Session.Restart = true

	b, _, shutdown, err := buildBroker(cmd.Context(), cc)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	defer shutdown()

	dispatchers, err := b.Dispatchers()
	if err != nil {
		return fmt.Errorf("replay: listing dispatchers: %w", err)
	}

	fmt.Println("replay complete")

	for _, d := range dispatchers {
		departures, err := b.DeparturesFor(d.StationID, 0)
		if err != nil {
			return fmt.Errorf("replay: departures for %s: %w", d.Name, err)
		}

		arrivals, err := b.ArrivalsFor(d.StationID, 0)
		if err != nil {
			return fmt.Errorf("replay: arrivals for %s: %w", d.Name, err)
		}

		fmt.Printf("  %s: %d visible departure(s), %d visible arrival(s)\n", d.Name, len(departures), len(arrivals))
	}

	return nil
}
