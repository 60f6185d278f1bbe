package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"logitrack/config"
	"logitrack/engine"
	"logitrack/store"
)

func newCatalogCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Reference catalog commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Seed and validate the step catalog and delay reasons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogCheck(cmd, *configPath)
		},
	})
	return cmd
}

func runCatalogCheck(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := store.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	cat, err := engine.LoadCatalog(cmd.Context(), db)
	if err != nil {
		return fmt.Errorf("catalog invalid: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCODE\tMANDATORY\tSTANDARD")
	for _, s := range cat.ListSteps() {
		fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n", s.Number, s.Code, s.Mandatory, s.Standard)
	}
	tw.Flush()
	fmt.Fprintf(out, "catalog ok: %d steps, %d delay reasons\n", cat.Len(), len(cat.ListDelayReasons("")))
	return nil
}
