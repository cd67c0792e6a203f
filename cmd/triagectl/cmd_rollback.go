package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/rollback"
)

func init() {
	rootCmd.AddCommand(rollbackCmd)

	rollbackCmd.Flags().String("decisions", "", "path to decision JSONL")
	rollbackCmd.Flags().String("corrections", "", "path to confirmed FP correction JSONL")
	rollbackCmd.Flags().Float64("rollback-threshold", 0.002, "FP rate above which rollback triggers")
	rollbackCmd.Flags().Int("window-hours", 24, "trailing evaluation window in hours")
	rollbackCmd.Flags().String("write-env", "", "write rollback env overrides here when triggered")
	rollbackCmd.Flags().String("watch", "", "cron schedule to re-evaluate on (runs once when empty)")
	rollbackCmd.MarkFlagRequired("decisions")
	rollbackCmd.MarkFlagRequired("corrections")
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Evaluate the false-positive rollback trigger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		decisionsPath, _ := cmd.Flags().GetString("decisions")
		correctionsPath, _ := cmd.Flags().GetString("corrections")
		threshold, _ := cmd.Flags().GetFloat64("rollback-threshold")
		windowHours, _ := cmd.Flags().GetInt("window-hours")
		writeEnv, _ := cmd.Flags().GetString("write-env")
		watch, _ := cmd.Flags().GetString("watch")

		evaluate := func() (*rollback.Report, error) {
			return evaluateRollback(decisionsPath, correctionsPath,
				time.Duration(windowHours)*time.Hour, threshold, writeEnv)
		}

		if watch == "" {
			report, err := evaluate()
			if err != nil {
				return err
			}
			return printReport(report)
		}

		c := cron.New()
		if _, err := c.AddFunc(watch, func() {
			report, err := evaluate()
			if err != nil {
				slog.Error("rollback evaluation failed", "error", err)
				return
			}
			if err := printReport(report); err != nil {
				slog.Error("rollback report write failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("invalid cron schedule %q: %w", watch, err)
		}
		c.Start()
		defer c.Stop()
		slog.Info("watching rollback trigger", "schedule", watch)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		return nil
	},
}

func evaluateRollback(decisionsPath, correctionsPath string, window time.Duration, threshold float64, writeEnv string) (*rollback.Report, error) {
	decisions, err := rollback.LoadDecisions(decisionsPath)
	if err != nil {
		return nil, fmt.Errorf("decisions file: %w", err)
	}
	corrections, err := rollback.LoadCorrections(correctionsPath)
	if err != nil {
		return nil, fmt.Errorf("corrections file: %w", err)
	}

	report := rollback.Evaluate(decisions, corrections, window, threshold)
	if report.RollbackTriggered && writeEnv != "" {
		if err := rollback.WriteEnvOverride(writeEnv); err != nil {
			return nil, fmt.Errorf("write env override: %w", err)
		}
		report.EnvOverrideWritten = writeEnv
	}
	return report, nil
}

func printReport(report *rollback.Report) error {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
