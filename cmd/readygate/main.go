// Readygate is a deployment-readiness gate: it scores quality metrics,
// evaluates threshold gates, assesses risk, and renders a binary
// deploy/no-deploy decision.
//
// Usage:
//
//	readygate assess request.json   Run one assessment
//	readygate serve                 Start the HTTP API
//	readygate trends <target>       Show the historical trend for a target
//	readygate version               Show version information
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/readygate/internal/assessment"
	"github.com/fyrsmithlabs/readygate/internal/config"
	"github.com/fyrsmithlabs/readygate/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "readygate",
	Short:         "Deployment readiness quality gate",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(trendsCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.msg != "" {
				fmt.Fprintln(os.Stderr, ee.msg)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}

// bootstrap loads configuration and builds the logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openStore selects SQLite or in-memory persistence from configuration.
func openStore(cfg *config.Config, logger *zap.Logger) (assessment.Store, error) {
	if cfg.Storage.Path == "" {
		logger.Warn("no storage path configured, assessments will not be persisted")
		return assessment.NewMemoryStore(), nil
	}
	return assessment.NewSQLiteStore(cfg.Storage.Path)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("readygate %s\n", version)
		fmt.Printf("  commit: %s\n", gitCommit)
		fmt.Printf("  built:  %s\n", buildDate)
	},
}
