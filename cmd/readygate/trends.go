package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/readygate/internal/assessment"
	"github.com/fyrsmithlabs/readygate/internal/risk"
)

var trendsOutput string

var trendsCmd = &cobra.Command{
	Use:   "trends <target>",
	Short: "Show the historical quality trend for a target",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrends,
}

func init() {
	trendsCmd.Flags().StringVarP(&trendsOutput, "output", "o", "text", "output format: text or json")
}

func runTrends(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Storage.Path == "" {
		return fmt.Errorf("trends require a configured storage path")
	}
	store, err := assessment.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	target := args[0]
	records, err := store.Query(cmd.Context(), target, assessment.TimeRange{})
	if err != nil {
		return err
	}
	points := assessment.History(records)
	trend := risk.AnalyzeTrend(points)

	if trendsOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Target  string              `json:"target"`
			Trend   risk.Trend          `json:"trend"`
			History []risk.HistoryPoint `json:"history"`
		}{target, trend, points})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "target:\t%s\n", target)
	fmt.Fprintf(w, "direction:\t%s\n", trend.Direction)
	fmt.Fprintf(w, "slope:\t%+.2f per assessment\n", trend.Slope)
	fmt.Fprintf(w, "samples:\t%d\n", trend.Samples)
	for _, p := range points {
		fmt.Fprintf(w, "%s:\t%.1f\n", p.Timestamp.Format(time.RFC3339), p.Score)
	}
	return w.Flush()
}
