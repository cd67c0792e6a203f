package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/config"
	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/inference"
	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/ledger"
	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/plugin"
	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/telemetry"
)

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().String("config", "", "plugin config file (YAML or JSON)")
	classifyCmd.Flags().String("message-id", "", "message identifier")
	classifyCmd.Flags().String("sender", "", "sender address")
	classifyCmd.Flags().String("to", "", "recipient address")
	classifyCmd.Flags().String("subject", "", "subject line")
	classifyCmd.Flags().String("body", "", "body text; - reads stdin")
	classifyCmd.MarkFlagRequired("config")
	classifyCmd.MarkFlagRequired("message-id")
	classifyCmd.MarkFlagRequired("sender")
	classifyCmd.MarkFlagRequired("to")
}

// logRuntime is an action runtime that only logs what it would do. The
// classify command is a smoke test, not a mailbox mutator.
type logRuntime struct{}

func (logRuntime) ArchiveEmail(messageID string) error {
	slog.Info("would archive", "message_id", messageID)
	return nil
}

func (logRuntime) KeepInInbox(messageID string) error {
	slog.Info("keeping in inbox", "message_id", messageID)
	return nil
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Run one email through the full triage pipeline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		messageID, _ := cmd.Flags().GetString("message-id")
		sender, _ := cmd.Flags().GetString("sender")
		to, _ := cmd.Flags().GetString("to")
		subject, _ := cmd.Flags().GetString("subject")
		body, _ := cmd.Flags().GetString("body")

		if body == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read body from stdin: %w", err)
			}
			body = string(data)
		}

		conf, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		env := config.EnvMap()
		cfg, err := config.FromSources(conf, env)
		if err != nil {
			return err
		}

		client, err := inference.New(inference.Config{
			BaseURL:        cfg.InferenceBaseURL,
			Timeout:        cfg.InferenceTimeout,
			APIKey:         cfg.APIKey(env),
			CAFile:         cfg.MTLSCAFile,
			ClientCertFile: cfg.MTLSClientCertFile,
			ClientKeyFile:  cfg.MTLSClientKeyFile,
		})
		if err != nil {
			return err
		}

		var store ledger.Store = ledger.NewMemoryStore()
		if cfg.IdempotencySQLitePath != "" {
			sqlite, err := ledger.NewSQLiteStore(cfg.IdempotencySQLitePath)
			if err != nil {
				return err
			}
			defer sqlite.Close()
			store = sqlite
		}

		var sink telemetry.Sink = telemetry.NullSink{}
		if cfg.TelemetryJSONLPath != "" {
			sink = telemetry.NewJSONLSink(cfg.TelemetryJSONLPath)
		}

		command := plugin.NewCommand(cfg, client, store, sink)
		event := map[string]any{
			"request_id": uuid.New().String(),
			"message_id": messageID,
			"sender":     sender,
			"to":         to,
			"subject":    subject,
			"date":       time.Now().UTC().Format(time.RFC3339),
			"body_text":  body,
		}

		result, err := command.Execute(cmd.Context(), event, logRuntime{})
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	},
}
