package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/triage"
)

func testRequest() *triage.Request {
	return &triage.Request{
		RequestID: "req-1",
		MessageID: "msg-1",
		ThreadID:  "thread-1",
		Sender:    "promo@example.com",
		To:        "user@example.com",
		Subject:   "Sale",
		Date:      time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		BodyText:  "Big sale",
	}
}

func TestClassify(t *testing.T) {
	var gotPath, gotContentType, gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]any{
			"decision":       "archive",
			"confidence":     0.999,
			"source":         "model",
			"reasoning":      "promotional bulk mail",
			"model_version":  "v1",
			"threshold_used": 0.995,
			"latency_ms":     87,
		})
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL + "/", Timeout: 2 * time.Second, APIKey: "secret-token"})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := client.Classify(context.Background(), testRequest())
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/v1/classify/email" {
		t.Errorf("path = %q, want /v1/classify/email", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotBody["message_id"] != "msg-1" {
		t.Errorf("request body message_id = %v", gotBody["message_id"])
	}
	if resp.Decision != triage.DecisionArchive || resp.Confidence != 0.999 {
		t.Errorf("unexpected verdict: %+v", resp)
	}
	if resp.LatencyMS != 87 {
		t.Errorf("latency_ms = %d, want 87", resp.LatencyMS)
	}
}

func TestClassifyNoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{
			"decision": "needs_attention", "confidence": 0.4,
			"source": "model", "model_version": "v1",
		})
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Classify(context.Background(), testRequest()); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "" {
		t.Errorf("unexpected authorization header %q", gotAuth)
	}
}

func TestClassifyHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Classify(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected ClientError, got %T", err)
	}
}

func TestClassifyMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Classify(context.Background(), testRequest())
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected ClientError for malformed JSON, got %v", err)
	}
}

func TestClassifySchemaViolation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"decision": "archive", "confidence": 1.7,
			"source": "model", "model_version": "v1",
		})
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Classify(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error for out-of-range confidence")
	}
	var schemaErr *triage.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("expected wrapped SchemaError, got %v", err)
	}
}

func TestClassifyUnreachable(t *testing.T) {
	client, err := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: 500 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.Classify(context.Background(), testRequest())
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
}
