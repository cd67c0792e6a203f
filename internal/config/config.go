// Package config builds the plugin's immutable configuration snapshot from
// the host-supplied config mapping merged with an environment overlay.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigError reports invalid or missing required configuration.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// Environment variables recognized by the overlay. The toggle variables win
// over the host config mapping; everything else is authoritative in the
// mapping.
const (
	EnvInferenceBaseURL   = "EMAIL_TRIAGE_INFERENCE_BASE_URL"
	EnvEngine             = "EMAIL_TRIAGE_ENGINE"
	EnvArchiveEnabled     = "EMAIL_TRIAGE_ARCHIVE_ENABLED"
	EnvFailOpen           = "EMAIL_TRIAGE_FAIL_OPEN"
	EnvBlocklistEnabled   = "EMAIL_TRIAGE_BLOCKLIST_ENABLED"
	EnvLegacyRulesEnabled = "EMAIL_TRIAGE_LEGACY_RULES_ENABLED"

	defaultAPIKeyEnv = "OPENCLAW_TRIAGE_API_KEY"
)

// Config is the process-wide configuration snapshot. It is built once at
// registration and held read-only afterwards; components receive it
// explicitly rather than reading ambient state.
type Config struct {
	InferenceBaseURL   string
	InferenceAPIKeyEnv string
	InferenceTimeout   time.Duration
	InferenceRetries   int
	InferenceBackoff   time.Duration

	ModelVersion               string
	ArchiveConfidenceThreshold float64

	Engine             string
	ArchiveEnabled     bool
	FailOpen           bool
	BlocklistEnabled   bool
	LegacyRulesEnabled bool

	ShadowMode        bool
	CanaryPercent     float64
	SupportedVersions string

	TelemetryJSONLPath    string
	IdempotencySQLitePath string

	MTLSCAFile         string
	MTLSClientCertFile string
	MTLSClientKeyFile  string
}

// FromSources merges the host config mapping with the environment overlay
// into an immutable Config. Unparseable optional values fall back to their
// defaults; only a missing inference base URL is fatal.
func FromSources(conf map[string]any, env map[string]string) (*Config, error) {
	if conf == nil {
		conf = map[string]any{}
	}
	if env == nil {
		env = map[string]string{}
	}

	baseURL := stringValue(conf["inference_base_url"], "")
	if baseURL == "" {
		baseURL = env[EnvInferenceBaseURL]
	}
	if baseURL == "" {
		return nil, configErrorf("inference_base_url is required")
	}

	canaryPercent := floatValue(conf["canary_percent"], 100.0)
	canaryPercent = min(100.0, max(0.0, canaryPercent))

	return &Config{
		InferenceBaseURL:   baseURL,
		InferenceAPIKeyEnv: stringValue(conf["inference_api_key_env"], defaultAPIKeyEnv),
		InferenceTimeout:   time.Duration(intValue(conf["inference_timeout_ms"], 1500)) * time.Millisecond,
		InferenceRetries:   intValue(conf["inference_retries"], 2),
		InferenceBackoff:   time.Duration(intValue(conf["inference_backoff_ms"], 200)) * time.Millisecond,

		ModelVersion:               stringValue(conf["model_version"], "v1"),
		ArchiveConfidenceThreshold: floatValue(conf["archive_confidence_threshold"], 0.995),

		Engine:             overlayString(env[EnvEngine], conf["email_triage_engine"], "v1"),
		ArchiveEnabled:     overlayBool(env[EnvArchiveEnabled], conf["email_triage_archive_enabled"], true),
		FailOpen:           overlayBool(env[EnvFailOpen], conf["email_triage_fail_open"], true),
		BlocklistEnabled:   overlayBool(env[EnvBlocklistEnabled], conf["email_triage_blocklist_enabled"], true),
		LegacyRulesEnabled: overlayBool(env[EnvLegacyRulesEnabled], conf["email_triage_legacy_rules_enabled"], false),

		ShadowMode:        boolValue(conf["shadow_mode"], false),
		CanaryPercent:     canaryPercent,
		SupportedVersions: stringValue(conf["supported_openclaw_versions"], ">=1.8.0,<2.0.0"),

		TelemetryJSONLPath:    stringValue(conf["telemetry_jsonl_path"], ""),
		IdempotencySQLitePath: stringValue(conf["idempotency_sqlite_path"], ""),

		MTLSCAFile:         stringValue(conf["mtls_ca_file"], ""),
		MTLSClientCertFile: stringValue(conf["mtls_client_cert_file"], ""),
		MTLSClientKeyFile:  stringValue(conf["mtls_client_key_file"], ""),
	}, nil
}

// APIKey resolves the inference bearer token from the environment variable
// named by inference_api_key_env. Empty when unset.
func (c *Config) APIKey(env map[string]string) string {
	if env == nil {
		env = EnvMap()
	}
	return env[c.InferenceAPIKeyEnv]
}

// EnvMap snapshots the process environment as a map.
func EnvMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func overlayString(envValue string, confValue any, def string) string {
	if envValue != "" {
		return envValue
	}
	return stringValue(confValue, def)
}

func overlayBool(envValue string, confValue any, def bool) bool {
	if envValue != "" {
		return parseBool(envValue, def)
	}
	return boolValue(confValue, def)
}

func stringValue(value any, def string) string {
	switch s := value.(type) {
	case nil:
		return def
	case string:
		if s == "" {
			return def
		}
		return s
	default:
		return fmt.Sprint(value)
	}
}

func boolValue(value any, def bool) bool {
	switch v := value.(type) {
	case nil:
		return def
	case bool:
		return v
	case string:
		return parseBool(v, def)
	default:
		return def
	}
}

func parseBool(value string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func intValue(value any, def int) int {
	switch v := value.(type) {
	case nil:
		return def
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
		return def
	default:
		return def
	}
}

func floatValue(value any, def float64) float64 {
	switch v := value.(type) {
	case nil:
		return def
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
		return def
	default:
		return def
	}
}
