// Package rollback evaluates the false-positive rollback trigger over
// recorded decision and correction logs.
package rollback

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// DecisionRecord is the slice of a decision event the evaluator needs.
type DecisionRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	MessageID    string    `json:"message_id"`
	ActionStatus string    `json:"action_status"`
}

// CorrectionRecord marks a message whose archive decision was confirmed to
// be a false positive.
type CorrectionRecord struct {
	Timestamp time.Time `json:"timestamp"`
	MessageID string    `json:"message_id"`
}

// Report is the evaluation outcome, serialized for operators.
type Report struct {
	OK                 bool           `json:"ok"`
	Reason             string         `json:"reason,omitempty"`
	WindowHours        int            `json:"window_hours,omitempty"`
	Cutoff             string         `json:"cutoff,omitempty"`
	TotalArchived      int            `json:"total_archived"`
	ConfirmedFP        int            `json:"confirmed_fp"`
	FPRate             float64        `json:"fp_rate"`
	RollbackThreshold  float64        `json:"rollback_threshold"`
	RollbackTriggered  bool           `json:"rollback_triggered"`
	ActionCounts       map[string]int `json:"action_counts,omitempty"`
	EnvOverrideWritten string         `json:"env_override_written,omitempty"`
}

// LoadDecisions reads a decision JSONL file, skipping blank lines.
func LoadDecisions(path string) ([]DecisionRecord, error) {
	var records []DecisionRecord
	err := scanJSONL(path, func(line []byte) error {
		var rec DecisionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("parse decision line: %w", err)
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

// LoadCorrections reads a correction JSONL file, skipping blank lines.
func LoadCorrections(path string) ([]CorrectionRecord, error) {
	var records []CorrectionRecord
	err := scanJSONL(path, func(line []byte) error {
		var rec CorrectionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("parse correction line: %w", err)
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

func scanJSONL(path string, handle func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := handle(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Evaluate computes the false-positive rate among archived decisions inside
// a trailing window anchored at the newest decision, and decides whether
// the rollback trigger fires. fp_rate counts corrections whose message was
// actually archived within the window.
func Evaluate(decisions []DecisionRecord, corrections []CorrectionRecord, window time.Duration, threshold float64) *Report {
	if len(decisions) == 0 {
		return &Report{OK: true, Reason: "no decisions", RollbackThreshold: threshold}
	}

	now := decisions[0].Timestamp
	for _, d := range decisions[1:] {
		if d.Timestamp.After(now) {
			now = d.Timestamp
		}
	}
	cutoff := now.Add(-window)

	archivedIDs := make(map[string]struct{})
	actionCounts := make(map[string]int)
	archived := 0
	for _, d := range decisions {
		if d.Timestamp.Before(cutoff) {
			continue
		}
		actionCounts[d.ActionStatus]++
		if d.ActionStatus == "archived" {
			archived++
			archivedIDs[d.MessageID] = struct{}{}
		}
	}

	confirmedFP := 0
	for _, c := range corrections {
		if c.Timestamp.Before(cutoff) {
			continue
		}
		if _, ok := archivedIDs[c.MessageID]; ok {
			confirmedFP++
		}
	}

	fpRate := 0.0
	if archived > 0 {
		fpRate = float64(confirmedFP) / float64(archived)
	}

	return &Report{
		OK:                true,
		WindowHours:       int(window.Hours()),
		Cutoff:            cutoff.Format(time.RFC3339Nano),
		TotalArchived:     archived,
		ConfirmedFP:       confirmedFP,
		FPRate:            fpRate,
		RollbackThreshold: threshold,
		RollbackTriggered: fpRate > threshold,
		ActionCounts:      actionCounts,
	}
}

// envOverrideLines disable live archiving while keeping the safe toggles in
// their defensive positions.
var envOverrideLines = []string{
	"EMAIL_TRIAGE_ARCHIVE_ENABLED=false",
	"EMAIL_TRIAGE_FAIL_OPEN=true",
	"EMAIL_TRIAGE_BLOCKLIST_ENABLED=true",
	"EMAIL_TRIAGE_LEGACY_RULES_ENABLED=false",
	"EMAIL_TRIAGE_ENGINE=v1",
}

// WriteEnvOverride writes the rollback environment override file.
func WriteEnvOverride(path string) error {
	var out []byte
	for _, line := range envOverrideLines {
		out = append(out, line...)
		out = append(out, '\n')
	}
	return os.WriteFile(path, out, 0o644)
}
