package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"logitrack/config"
	"logitrack/retention"
	"logitrack/store"
)

func newPurgeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Apply the retention rules once",
		Long:  "Deletes read notifications and delivered outbox messages older than the configured retention. The audit log is never purged.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := store.Open(&cfg.Database)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			p, err := retention.NewPurger(db, cfg.Retention, nil)
			if err != nil {
				return err
			}
			r, err := p.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d notifications, %d outbox messages\n", r.Notifications, r.Outbox)
			return nil
		},
	}
}
