// Package plugin wires the email triage decision pipeline and registers it
// as an OpenClaw command.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/canary"
	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/config"
	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/ledger"
	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/retry"
	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/telemetry"
	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/triage"
)

// Action statuses reported in results and telemetry.
const (
	StatusDuplicateSkipped    = "duplicate_skipped"
	StatusShadowKept          = "shadow_kept"
	StatusArchiveDisabledKept = "archive_disabled_kept"
	StatusKeptInInbox         = "kept_in_inbox"
	StatusArchived            = "archived"
	StatusActionFailed        = "action_failed"
)

// Classifier produces a triage verdict for a validated request. Satisfied
// by inference.Client.
type Classifier interface {
	Classify(ctx context.Context, req *triage.Request) (*triage.Response, error)
}

// Result is what the caller of the pipeline receives for a completed
// invocation.
type Result struct {
	ActionStatus  string  `json:"action_status"`
	Decision      string  `json:"decision"`
	Confidence    float64 `json:"confidence"`
	Source        string  `json:"source"`
	Rule          string  `json:"rule,omitempty"`
	Reasoning     string  `json:"reasoning"`
	ModelVersion  string  `json:"model_version"`
	ThresholdUsed float64 `json:"threshold_used"`
	LatencyMS     int64   `json:"latency_ms"`
}

// Command is the decision pipeline behind the email.triage.v1 command. Each
// Execute call is one synchronous unit of work; the ledger and sink
// serialize their own mutations, so concurrent calls for different messages
// are safe.
type Command struct {
	config     *config.Config
	classifier Classifier
	ledger     ledger.Store
	sink       telemetry.Sink
	retry      retry.Policy

	// now is overridable in tests.
	now func() time.Time
}

// NewCommand assembles the pipeline from its collaborators.
func NewCommand(cfg *config.Config, classifier Classifier, store ledger.Store, sink telemetry.Sink) *Command {
	return &Command{
		config:     cfg,
		classifier: classifier,
		ledger:     store,
		sink:       sink,
		retry: retry.Policy{
			MaxRetries:  cfg.InferenceRetries,
			BaseBackoff: cfg.InferenceBackoff,
		},
		now: time.Now,
	}
}

// Execute runs the pipeline for one inbound email event: validate, check
// the idempotency ledger, classify with retries, re-check the archive
// threshold locally, apply the rollout-gated action, record the ledger
// entry, and emit a redacted decision event.
func (c *Command) Execute(ctx context.Context, event map[string]any, rt ActionRuntime) (*Result, error) {
	request, err := triage.ParseRequestMap(event)
	if err != nil {
		return nil, err
	}

	applied, err := c.ledger.IsApplied(request.MessageID, c.config.ModelVersion)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	if applied {
		return c.skipDuplicate(request)
	}

	response, err := c.classify(ctx, request)
	if err != nil {
		if !c.config.FailOpen {
			return nil, err
		}
		response = c.syntheticResponse(fmt.Sprintf("fail-open due to inference error: %v", err))
	}

	response = c.recheckThreshold(response)

	status, err := c.applyAction(response, request, rt)
	if err != nil {
		return nil, err
	}

	if err := c.ledger.MarkApplied(request.MessageID, c.config.ModelVersion); err != nil {
		return nil, fmt.Errorf("idempotency record: %w", err)
	}
	if err := c.sink.Log(telemetry.BuildDecisionEvent(request, response, status, c.now().UTC())); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	return &Result{
		ActionStatus:  status,
		Decision:      response.Decision,
		Confidence:    response.Confidence,
		Source:        response.Source,
		Rule:          response.Rule,
		Reasoning:     response.Reasoning,
		ModelVersion:  response.ModelVersion,
		ThresholdUsed: response.ThresholdUsed,
		LatencyMS:     response.LatencyMS,
	}, nil
}

// skipDuplicate synthesizes the zero-confidence verdict for a message whose
// action has already been applied. The remote classifier is not consulted
// and the ledger entry is left untouched.
func (c *Command) skipDuplicate(request *triage.Request) (*Result, error) {
	duplicate := c.syntheticResponse("duplicate message skipped by idempotency guard")
	event := telemetry.BuildDecisionEvent(request, duplicate, StatusDuplicateSkipped, c.now().UTC())
	if err := c.sink.Log(event); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return &Result{
		ActionStatus:  StatusDuplicateSkipped,
		Decision:      duplicate.Decision,
		Source:        duplicate.Source,
		Reasoning:     duplicate.Reasoning,
		ModelVersion:  duplicate.ModelVersion,
		ThresholdUsed: duplicate.ThresholdUsed,
	}, nil
}

// classify calls the remote classifier through the retry executor.
func (c *Command) classify(ctx context.Context, request *triage.Request) (*triage.Response, error) {
	var response *triage.Response
	err := c.retry.Execute(func() error {
		r, err := c.classifier.Classify(ctx, request)
		if err != nil {
			return err
		}
		response = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// syntheticResponse builds the safe default verdict used for duplicates and
// fail-open degradation.
func (c *Command) syntheticResponse(reasoning string) *triage.Response {
	return &triage.Response{
		Decision:      triage.DecisionNeedsAttention,
		Confidence:    0.0,
		Source:        "plugin",
		Reasoning:     reasoning,
		ModelVersion:  c.config.ModelVersion,
		ThresholdUsed: c.config.ArchiveConfidenceThreshold,
		LatencyMS:     0,
	}
}

// recheckThreshold downgrades an archive verdict whose confidence falls
// below the locally configured threshold. The remote side's own threshold
// check is not trusted on its own; this applies equally to genuine and
// fail-open-synthesized responses.
func (c *Command) recheckThreshold(response *triage.Response) *triage.Response {
	if response.Decision != triage.DecisionArchive {
		return response
	}
	if response.Confidence >= c.config.ArchiveConfidenceThreshold {
		return response
	}
	return &triage.Response{
		Decision:   triage.DecisionNeedsAttention,
		Confidence: response.Confidence,
		Source:     response.Source,
		Reasoning: fmt.Sprintf("archive confidence below threshold (%.3f < %.3f)",
			response.Confidence, c.config.ArchiveConfidenceThreshold),
		Rule:          response.Rule,
		ModelVersion:  response.ModelVersion,
		ThresholdUsed: c.config.ArchiveConfidenceThreshold,
		LatencyMS:     response.LatencyMS,
	}
}

// applyAction resolves and applies the mailbox action for the verdict. A
// failed archive is compensated by keeping the message in place; that
// failure is logged, never propagated.
func (c *Command) applyAction(response *triage.Response, request *triage.Request, rt ActionRuntime) (string, error) {
	if c.config.ShadowMode || !canary.InRollout(request.MessageID, c.config.CanaryPercent) {
		if err := rt.KeepInInbox(request.MessageID); err != nil {
			return "", fmt.Errorf("keep in inbox: %w", err)
		}
		return StatusShadowKept, nil
	}

	if response.Decision != triage.DecisionArchive || !c.config.ArchiveEnabled {
		if err := rt.KeepInInbox(request.MessageID); err != nil {
			return "", fmt.Errorf("keep in inbox: %w", err)
		}
		if !c.config.ArchiveEnabled && response.Decision == triage.DecisionArchive {
			return StatusArchiveDisabledKept, nil
		}
		return StatusKeptInInbox, nil
	}

	if err := rt.ArchiveEmail(request.MessageID); err != nil {
		slog.Warn("archive action failed", "message_id", request.MessageID, "error", err)
		if keepErr := rt.KeepInInbox(request.MessageID); keepErr != nil {
			return "", fmt.Errorf("keep in inbox after failed archive: %w", keepErr)
		}
		return StatusActionFailed, nil
	}
	return StatusArchived, nil
}
