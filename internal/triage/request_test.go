package triage

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func validPayload() map[string]any {
	return map[string]any{
		"request_id":   "req-1",
		"message_id":   "msg-1",
		"thread_id":    "thread-1",
		"sender":       "Promo Sender <promo@example.com>",
		"to":           "user@example.com",
		"subject":      "50% off everything",
		"date":         "2026-08-30T12:00:00Z",
		"body_text":    "Big sale ends soon",
		"gmail_labels": []any{"INBOX", "CATEGORY_PROMOTIONS"},
		"is_starred":   false,
		"is_read":      true,
	}
}

func TestParseRequestMap(t *testing.T) {
	req, err := ParseRequestMap(validPayload())
	if err != nil {
		t.Fatal(err)
	}
	if req.RequestID != "req-1" || req.MessageID != "msg-1" {
		t.Errorf("unexpected identifiers: %q %q", req.RequestID, req.MessageID)
	}
	if req.Date != time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) {
		t.Errorf("unexpected date: %v", req.Date)
	}
	if len(req.GmailLabels) != 2 || req.GmailLabels[1] != "CATEGORY_PROMOTIONS" {
		t.Errorf("unexpected labels: %v", req.GmailLabels)
	}
	if !req.IsRead || req.IsStarred {
		t.Errorf("unexpected flags: read=%v starred=%v", req.IsRead, req.IsStarred)
	}
}

func TestParseRequestMapSchemaErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing message_id", func(m map[string]any) { delete(m, "message_id") }},
		{"empty message_id", func(m map[string]any) { m["message_id"] = "" }},
		{"missing sender", func(m map[string]any) { delete(m, "sender") }},
		{"missing date", func(m map[string]any) { delete(m, "date") }},
		{"numeric subject", func(m map[string]any) { m["subject"] = 42.0 }},
		{"bad date", func(m map[string]any) { m["date"] = "yesterday" }},
		{"mixed labels", func(m map[string]any) { m["gmail_labels"] = []any{"INBOX", 7.0} }},
		{"string flag", func(m map[string]any) { m["is_read"] = "yes" }},
	}

	for _, tc := range cases {
		payload := validPayload()
		tc.mutate(payload)
		_, err := ParseRequestMap(payload)
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			t.Errorf("%s: expected SchemaError, got %T", tc.name, err)
		}
	}
}

func TestNaiveTimestampTreatedAsUTC(t *testing.T) {
	payload := validPayload()
	payload["date"] = "2026-08-30T12:00:00"
	req, err := ParseRequestMap(payload)
	if err != nil {
		t.Fatal(err)
	}
	if !req.Date.Equal(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("naive timestamp not treated as UTC: %v", req.Date)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	payload := validPayload()
	payload["date"] = "2026-08-30T14:30:00+02:00"
	original, err := ParseRequestMap(payload)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseRequest(data)
	if err != nil {
		t.Fatal(err)
	}

	if parsed.RequestID != original.RequestID ||
		parsed.MessageID != original.MessageID ||
		parsed.ThreadID != original.ThreadID ||
		parsed.Sender != original.Sender ||
		parsed.To != original.To ||
		parsed.Subject != original.Subject ||
		parsed.BodyText != original.BodyText ||
		parsed.IsRead != original.IsRead ||
		parsed.IsStarred != original.IsStarred {
		t.Errorf("round trip changed fields:\n  got  %+v\n  want %+v", parsed, original)
	}
	if !parsed.Date.Equal(original.Date) {
		t.Errorf("round trip changed timestamp: %v != %v", parsed.Date, original.Date)
	}
	if len(parsed.GmailLabels) != len(original.GmailLabels) {
		t.Errorf("round trip changed labels: %v != %v", parsed.GmailLabels, original.GmailLabels)
	}
}

func TestParseRequestRejectsNonObject(t *testing.T) {
	if _, err := ParseRequest([]byte(`["not", "an", "object"]`)); err == nil {
		t.Fatal("expected error for non-object payload")
	}
}

func TestPlainBodyFallsBackToHTML(t *testing.T) {
	payload := validPayload()
	payload["body_text"] = ""
	payload["body_html"] = "<p>Exclusive <strong>offer</strong> inside</p>"
	req, err := ParseRequestMap(payload)
	if err != nil {
		t.Fatal(err)
	}
	body := req.PlainBody()
	if body == "" {
		t.Fatal("expected HTML-derived body")
	}
	if want := "offer"; !strings.Contains(body, want) {
		t.Errorf("expected %q in derived body %q", want, body)
	}
}

func TestPlainBodyPrefersText(t *testing.T) {
	payload := validPayload()
	payload["body_html"] = "<p>ignored</p>"
	req, err := ParseRequestMap(payload)
	if err != nil {
		t.Fatal(err)
	}
	if req.PlainBody() != "Big sale ends soon" {
		t.Errorf("expected body_text to win, got %q", req.PlainBody())
	}
}
