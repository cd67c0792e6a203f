package plugin

import (
	"fmt"
	"log/slog"

	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/compat"
	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/config"
	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/inference"
	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/ledger"
	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/telemetry"
)

// CommandName is the registry name the triage handler is registered under.
const CommandName = "email.triage.v1"

// RegistrationError reports that the plugin cannot be registered safely:
// invalid configuration, an unsupported host version, or a collaborator
// that failed to initialize.
type RegistrationError struct {
	msg   string
	cause error
}

func (e *RegistrationError) Error() string { return e.msg }

// Unwrap exposes the underlying config/compat error.
func (e *RegistrationError) Unwrap() error { return e.cause }

func registrationError(cause error, format string, args ...any) *RegistrationError {
	return &RegistrationError{msg: fmt.Sprintf(format, args...), cause: cause}
}

// Register builds the plugin configuration from the host context, asserts
// the version gate, wires the pipeline's collaborators, and registers the
// email.triage.v1 command. On any error nothing is registered and no
// classification traffic can flow.
func Register(registry Registry, host HostContext) (*Command, error) {
	env := config.EnvMap()

	cfg, err := config.FromSources(host.Config(), env)
	if err != nil {
		return nil, registrationError(err, "invalid plugin config: %v", err)
	}

	if err := compat.AssertSupported(host.Version(), cfg.SupportedVersions); err != nil {
		return nil, registrationError(err, "%v", err)
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
		return nil, registrationError(err, "inference client: %v", err)
	}

	var store ledger.Store
	if cfg.IdempotencySQLitePath != "" {
		sqlite, err := ledger.NewSQLiteStore(cfg.IdempotencySQLitePath)
		if err != nil {
			return nil, registrationError(err, "idempotency ledger: %v", err)
		}
		store = sqlite
	} else {
		store = ledger.NewMemoryStore()
	}

	var sink telemetry.Sink = telemetry.NullSink{}
	if cfg.TelemetryJSONLPath != "" {
		sink = telemetry.NewJSONLSink(cfg.TelemetryJSONLPath)
	}

	command := NewCommand(cfg, client, store, sink)
	registry.RegisterCommand(CommandName, command.Execute)
	slog.Info("registered triage command",
		"command", CommandName,
		"model_version", cfg.ModelVersion,
		"shadow_mode", cfg.ShadowMode,
		"canary_percent", cfg.CanaryPercent)
	return command, nil
}
