// Package telemetry emits privacy-redacted decision events. Raw subjects,
// sender local parts, and untruncated bodies never reach a sink.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/triage"
)

// snippetMaxChars bounds how much body text survives into a decision event.
const snippetMaxChars = 180

// DecisionEvent is the append-only audit record for one pipeline invocation.
// Sender, subject, thread, and body fields are derived/redacted forms only.
type DecisionEvent struct {
	Timestamp       time.Time `json:"timestamp"`
	RequestID       string    `json:"request_id"`
	MessageID       string    `json:"message_id"`
	ThreadIDHash    string    `json:"thread_id_hash"`
	SenderDomain    string    `json:"sender_domain"`
	SubjectHash     string    `json:"subject_hash"`
	SnippetRedacted string    `json:"snippet_redacted"`
	Decision        string    `json:"decision"`
	Confidence      float64   `json:"confidence"`
	Source          string    `json:"source"`
	Rule            string    `json:"rule,omitempty"`
	ModelVersion    string    `json:"model_version"`
	LatencyMS       int64     `json:"latency_ms"`
	ActionStatus    string    `json:"action_status"`
}

var (
	emailPattern      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	longNumberPattern = regexp.MustCompile(`\b\d{4,}\b`)
)

func sha256Hex(value string) string {
	digest := sha256.Sum256([]byte(value))
	return hex.EncodeToString(digest[:])
}

// senderDomain reduces a display-name-plus-address sender to its lower-cased
// domain. Unparseable or domainless senders reduce to "".
func senderDomain(sender string) string {
	addr := sender
	if parsed, err := mail.ParseAddress(sender); err == nil {
		addr = parsed.Address
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}

// RedactSnippet truncates text to the snippet bound and replaces
// email-address-shaped and long-digit-run substrings with placeholders.
func RedactSnippet(text string) string {
	runes := []rune(text)
	if len(runes) > snippetMaxChars {
		runes = runes[:snippetMaxChars]
	}
	snippet := string(runes)
	snippet = emailPattern.ReplaceAllString(snippet, "[email]")
	snippet = longNumberPattern.ReplaceAllString(snippet, "[number]")
	return snippet
}

// BuildDecisionEvent derives the redacted audit record for a resolved
// (request, verdict, action) triple.
func BuildDecisionEvent(req *triage.Request, resp *triage.Response, actionStatus string, timestamp time.Time) *DecisionEvent {
	return &DecisionEvent{
		Timestamp:       timestamp,
		RequestID:       req.RequestID,
		MessageID:       req.MessageID,
		ThreadIDHash:    sha256Hex(req.ThreadID),
		SenderDomain:    senderDomain(req.Sender),
		SubjectHash:     sha256Hex(req.Subject),
		SnippetRedacted: RedactSnippet(req.PlainBody()),
		Decision:        resp.Decision,
		Confidence:      resp.Confidence,
		Source:          resp.Source,
		Rule:            resp.Rule,
		ModelVersion:    resp.ModelVersion,
		LatencyMS:       resp.LatencyMS,
		ActionStatus:    actionStatus,
	}
}
