package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"oi-signal-engine/src/interfaces"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"
	"oi-signal-engine/src/utils"

	"github.com/spf13/cobra"
)

// -----------------------------------------------------------------------------
// market-status
// -----------------------------------------------------------------------------

func newMarketStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "market-status",
		Short: "Print which exchanges are trading right now",
		RunE: func(cmd *cobra.Command, args []string) error {
			calendar, err := utils.NewMarketScheduler(a.cfg.MConfig, a.log.Named("calendar"))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), calendar.DetailedStatus())
		},
	}
}

// -----------------------------------------------------------------------------
// signals
// -----------------------------------------------------------------------------

func newSignalsCmd(a *app) *cobra.Command {
	var filter models.MSignalFilter
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Query stored signals, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStorage()
			if err != nil {
				return err
			}
			filter.Strength = strings.ToUpper(filter.Strength)
			filter.Underlying = strings.ToUpper(filter.Underlying)
			filter.Exchange = strings.ToUpper(filter.Exchange)
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			signals, err := store.QuerySignals(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("query signals: %w", err)
			}
			if signals == nil {
				signals = []models.MOISignal{}
			}
			return printJSON(cmd.OutOrStdout(), signals)
		},
	}

	cmd.Flags().StringVar(&filter.Strength, "strength", "", "STRONG, MEDIUM or WEAK")
	cmd.Flags().StringVar(&filter.Underlying, "underlying", "", "underlying name, e.g. NIFTY")
	cmd.Flags().StringVar(&filter.Exchange, "exchange", "", "exchange, e.g. NFO")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "maximum rows")
	cmd.Flags().DurationVar(&since, "since", 0, "only signals newer than this, e.g. 1h")
	return cmd
}

// -----------------------------------------------------------------------------
// prune
// -----------------------------------------------------------------------------

func newPruneCmd(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete stored ticks older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.Storage.RetentionDays
			}
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			store, err := a.openStorage()
			if err != nil {
				return err
			}
			n, err := prune(cmd.Context(), store, days, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d tick(s) older than %d day(s)\n", n, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "retention in days (default storage.retention_days)")
	return cmd
}

func prune(ctx context.Context, store interfaces.ITickWriter, days int, log *logger.Logger) (int64, error) {
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	n, err := store.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune ticks before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		log.Info("Pruned %d tick(s) older than %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}

// -----------------------------------------------------------------------------

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
