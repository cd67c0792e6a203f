package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/preflight"
)

func init() {
	rootCmd.AddCommand(preflightCmd)

	preflightCmd.Flags().String("openclaw-version", "", "host OpenClaw version to check")
	preflightCmd.Flags().String("supported-spec", ">=1.8.0,<2.0.0", "supported version range")
	preflightCmd.Flags().String("inference-base-url", "", "inference service base URL")
	preflightCmd.Flags().Int("timeout-ms", 1500, "per-endpoint timeout in milliseconds")
	preflightCmd.MarkFlagRequired("openclaw-version")
	preflightCmd.MarkFlagRequired("inference-base-url")
}

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Check host version and inference endpoint connectivity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetString("openclaw-version")
		spec, _ := cmd.Flags().GetString("supported-spec")
		baseURL, _ := cmd.Flags().GetString("inference-base-url")
		timeoutMS, _ := cmd.Flags().GetInt("timeout-ms")

		report := preflight.Run(cmd.Context(), preflight.Options{
			HostVersion:      version,
			SupportedSpec:    spec,
			InferenceBaseURL: baseURL,
			Timeout:          time.Duration(timeoutMS) * time.Millisecond,
		})

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(out))

		if !report.OK {
			return fmt.Errorf("%d preflight check(s) failed", report.Failures)
		}
		return nil
	},
}
