package rollback

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func ts(hoursAgo int) time.Time {
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	return base.Add(-time.Duration(hoursAgo) * time.Hour)
}

func TestEvaluateNoDecisions(t *testing.T) {
	report := Evaluate(nil, nil, 24*time.Hour, 0.002)
	if !report.OK {
		t.Error("empty input should still be OK")
	}
	if report.RollbackTriggered {
		t.Error("no decisions must not trigger rollback")
	}
	if report.Reason != "no decisions" {
		t.Errorf("reason = %q", report.Reason)
	}
}

func TestEvaluateBelowThreshold(t *testing.T) {
	var decisions []DecisionRecord
	for i := 0; i < 1000; i++ {
		decisions = append(decisions, DecisionRecord{
			Timestamp:    ts(1),
			MessageID:    "m" + string(rune('a'+i%26)) + string(rune('0'+i%10)),
			ActionStatus: "archived",
		})
	}
	corrections := []CorrectionRecord{{Timestamp: ts(0), MessageID: decisions[0].MessageID}}

	report := Evaluate(decisions, corrections, 24*time.Hour, 0.002)
	if report.RollbackTriggered {
		t.Errorf("fp_rate %v should be below threshold", report.FPRate)
	}
}

func TestEvaluateTriggersAboveThreshold(t *testing.T) {
	decisions := []DecisionRecord{
		{Timestamp: ts(1), MessageID: "m1", ActionStatus: "archived"},
		{Timestamp: ts(2), MessageID: "m2", ActionStatus: "archived"},
		{Timestamp: ts(3), MessageID: "m3", ActionStatus: "kept_in_inbox"},
	}
	corrections := []CorrectionRecord{{Timestamp: ts(0), MessageID: "m1"}}

	report := Evaluate(decisions, corrections, 24*time.Hour, 0.002)
	if report.TotalArchived != 2 {
		t.Errorf("total archived = %d, want 2", report.TotalArchived)
	}
	if report.ConfirmedFP != 1 {
		t.Errorf("confirmed fp = %d, want 1", report.ConfirmedFP)
	}
	if report.FPRate != 0.5 {
		t.Errorf("fp rate = %v, want 0.5", report.FPRate)
	}
	if !report.RollbackTriggered {
		t.Error("expected rollback to trigger")
	}
	if report.ActionCounts["kept_in_inbox"] != 1 {
		t.Errorf("action counts = %v", report.ActionCounts)
	}
}

func TestEvaluateWindowExcludesOldRecords(t *testing.T) {
	decisions := []DecisionRecord{
		{Timestamp: ts(0), MessageID: "fresh", ActionStatus: "archived"},
		{Timestamp: ts(48), MessageID: "stale", ActionStatus: "archived"},
	}
	corrections := []CorrectionRecord{{Timestamp: ts(48), MessageID: "stale"}}

	report := Evaluate(decisions, corrections, 24*time.Hour, 0.002)
	if report.TotalArchived != 1 {
		t.Errorf("total archived = %d, want 1 (stale excluded)", report.TotalArchived)
	}
	if report.ConfirmedFP != 0 {
		t.Errorf("confirmed fp = %d, want 0 (stale correction excluded)", report.ConfirmedFP)
	}
	if report.RollbackTriggered {
		t.Error("stale false positive must not trigger rollback")
	}
}

func TestEvaluateCorrectionForUnarchivedMessageIgnored(t *testing.T) {
	decisions := []DecisionRecord{
		{Timestamp: ts(1), MessageID: "m1", ActionStatus: "kept_in_inbox"},
	}
	corrections := []CorrectionRecord{{Timestamp: ts(0), MessageID: "m1"}}

	report := Evaluate(decisions, corrections, 24*time.Hour, 0.002)
	if report.ConfirmedFP != 0 {
		t.Errorf("correction without an archive should not count, got %d", report.ConfirmedFP)
	}
}

func TestLoadDecisionsSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	content := `{"timestamp":"2026-08-31T10:00:00Z","message_id":"m1","action_status":"archived"}

{"timestamp":"2026-08-31T11:00:00Z","message_id":"m2","action_status":"kept_in_inbox"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := LoadDecisions(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].MessageID != "m1" || records[1].ActionStatus != "kept_in_inbox" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestLoadDecisionsRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	if err := os.WriteFile(path, []byte("{broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDecisions(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWriteEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollback.env")
	if err := WriteEnvOverride(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{
		"EMAIL_TRIAGE_ARCHIVE_ENABLED=false",
		"EMAIL_TRIAGE_FAIL_OPEN=true",
		"EMAIL_TRIAGE_ENGINE=v1",
	} {
		if !strings.Contains(content, want+"\n") {
			t.Errorf("override file missing %q:\n%s", want, content)
		}
	}
}
