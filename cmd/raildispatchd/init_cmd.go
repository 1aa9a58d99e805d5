package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Build the layout graph from the data source and report a summary",
		Long:  "Builds the layout graph once (ignoring --restart) to validate the data source and print a summary of what was loaded, without serving any dispatcher request.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	cc.Cfg.Session.Restart = false

	b, _, shutdown, err := buildBroker(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer shutdown()

	dispatchers, err := b.Dispatchers()
	if err != nil {
		return fmt.Errorf("listing dispatchers: %w", err)
	}

	fmt.Printf("layout built successfully (run %s): %d dispatcher(s)\n", b.RunID(), len(dispatchers))

	for _, d := range dispatchers {
		fmt.Printf("  station %s: %s\n", d.StationID, d.Name)
	}

	return nil
}
