package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"logitrack/config"
	"logitrack/messaging"
	"logitrack/protocol"
)

func newWatchCmd(configPath *string) *cobra.Command {
	var station string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print production events from the message bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), cfg, station)
		},
	}
	cmd.Flags().StringVar(&station, "station", "", "only show events from this station")
	return cmd
}

func runWatch(ctx context.Context, out io.Writer, cfg *config.Config, station string) error {
	client := messaging.NewClient(&cfg.Messaging, nil)
	if err := client.Connect(); err != nil {
		return fmt.Errorf("connect %s: %w", cfg.Messaging.Backend, err)
	}
	defer client.Close()

	var filter protocol.FilterFunc
	if station != "" {
		filter = protocol.StationFilter(station)
	}
	ingestor := protocol.NewIngestor(&printHandler{out: out}, filter)
	if err := client.Subscribe(cfg.Messaging.EventsTopic, func(_ string, data []byte) {
		ingestor.HandleRaw(data)
	}); err != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.Messaging.EventsTopic, err)
	}
	fmt.Fprintf(out, "watching %s on %s\n", cfg.Messaging.EventsTopic, cfg.Messaging.Backend)
	<-ctx.Done()
	return nil
}

// printHandler writes one line per event.
type printHandler struct {
	out io.Writer
}

func (h *printHandler) HandlePipeDecisionFinalized(env *protocol.Envelope, p *protocol.PipeDecisionFinalized) {
	fmt.Fprintf(h.out, "%s %-8s pipe %d (heat %d) decision=%s\n",
		env.Timestamp.Format("15:04:05"), env.Src.Station, p.PipeNumber, p.HeatID, p.Decision)
}

func (h *printHandler) HandleHeatDelayReported(env *protocol.Envelope, p *protocol.HeatDelayReported) {
	fmt.Fprintf(h.out, "%s %-8s heat %d %s late %d min reason=%s\n",
		env.Timestamp.Format("15:04:05"), env.Src.Station, p.HeatID, p.Checkpoint, p.Minutes, p.Reason)
}

func (h *printHandler) HandleCriticalAlert(env *protocol.Envelope, p *protocol.CriticalAlert) {
	fmt.Fprintf(h.out, "%s %-8s ALERT %s %d: %s\n",
		env.Timestamp.Format("15:04:05"), env.Src.Station, p.EntityType, p.EntityID, p.Message)
}
