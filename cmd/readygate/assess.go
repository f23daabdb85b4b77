package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/readygate/internal/config"
	"github.com/fyrsmithlabs/readygate/internal/notify"
	"github.com/fyrsmithlabs/readygate/internal/report"
	"github.com/fyrsmithlabs/readygate/internal/workflow"
)

var assessOutput string

var assessCmd = &cobra.Command{
	Use:   "assess [request-file]",
	Short: "Run one deployment-readiness assessment",
	Long: `Run one deployment-readiness assessment from a JSON request file or stdin.

The request carries the target identifier, its metrics, and optional rule
and policy overrides:

  {
    "target_id": "acme/checkout@3f2a9b1",
    "metrics": {"code_quality": 92, "test_coverage": 95, "performance": 90, "security": 95}
  }

Exit codes: 0 when the target is approved for deployment, 1 when the
assessment completed but deployment was rejected, 2 on any failure.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAssess,
}

func init() {
	assessCmd.Flags().StringVarP(&assessOutput, "output", "o", "text", "output format: text or json")
}

func runAssess(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	req, err := readRequest(args)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	runner, err := workflow.NewRunner(cfg.Pipeline, workflow.Options{
		Store:   store,
		Logger:  logger,
		Metrics: workflow.NewMetrics(logger),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx, req)
	if err != nil {
		return &exitError{code: 2, msg: fmt.Sprintf("assessment rejected: %v", err)}
	}

	publishResult(ctx, cfg, logger, result)

	if err := printReport(result); err != nil {
		return err
	}

	switch {
	case result.DeploymentReady:
		return nil
	case result.OverallSuccess:
		return &exitError{code: 1}
	default:
		return &exitError{code: 2}
	}
}

func readRequest(args []string) (workflow.Request, error) {
	var req workflow.Request

	in := os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return req, fmt.Errorf("open request file: %w", err)
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return req, fmt.Errorf("read request: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parse request: %w", err)
	}
	return req, nil
}

// publishResult sends the outcome to the configured sinks. Failures are
// logged only: the decision already happened.
func publishResult(ctx context.Context, cfg *config.Config, logger *zap.Logger, result *workflow.Report) {
	if cfg.Notify.Enabled {
		publisher, err := notify.Connect(cfg.Notify, logger)
		if err != nil {
			logger.Warn("notify connect failed", zap.Error(err))
		} else {
			defer publisher.Close()
			if err := publisher.Publish(ctx, result); err != nil {
				logger.Warn("notify publish failed", zap.Error(err))
			}
		}
	}
	if cfg.Report.Enabled {
		statuses, err := report.New(ctx, cfg.Report, logger)
		if err != nil {
			logger.Warn("github reporter init failed", zap.Error(err))
		} else if err := statuses.Publish(ctx, result); err != nil {
			logger.Warn("github status publish failed", zap.Error(err))
		}
	}
}

func printReport(result *workflow.Report) error {
	if assessOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "target:\t%s\n", result.Target)
	fmt.Fprintf(w, "run:\t%s\n", result.RunID)
	for _, p := range result.Phases {
		line := string(p.Status)
		if p.Error != "" {
			line += "\t" + p.Error
		}
		fmt.Fprintf(w, "phase %s:\t%s\n", p.Name, line)
	}
	if a := result.Assessment; a != nil {
		fmt.Fprintf(w, "score:\t%.1f (%s)\n", a.QualityScore, a.Grade)
		fmt.Fprintf(w, "risk:\t%s (%.2f)\n", a.Risk.Level, a.Risk.Overall)
		fmt.Fprintf(w, "tier:\t%s\n", a.Decision.Tier)
		fmt.Fprintf(w, "confidence:\t%.2f\n", a.Decision.Confidence)
		for _, r := range a.Decision.Reasoning {
			fmt.Fprintf(w, "reason:\t%s\n", r)
		}
		for _, r := range a.Recommendations {
			fmt.Fprintf(w, "next:\t%s\n", r)
		}
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "warning:\t%s\n", warning)
	}
	verdict := "NOT READY"
	if result.DeploymentReady {
		verdict = "READY"
	}
	fmt.Fprintf(w, "deployment:\t%s\n", verdict)
	return w.Flush()
}
