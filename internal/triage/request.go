package triage

import (
	"encoding/json"
	"time"
)

// Request is a normalized inbound email awaiting a triage decision. It is
// only constructed through ParseRequest/ParseRequestMap, which reject
// payloads with missing required fields or mistyped values.
type Request struct {
	RequestID      string
	MessageID      string
	ThreadID       string
	Sender         string
	To             string
	Subject        string
	Date           time.Time
	BodyText       string
	BodyHTML       string
	GmailLabels    []string
	GmailCategory  string
	InReplyTo      string
	References     []string
	SentMessageIDs []string
	IsStarred      bool
	IsRead         bool
}

// ParseRequestMap validates a decoded payload and builds a Request.
func ParseRequestMap(data map[string]any) (*Request, error) {
	var (
		req Request
		err error
	)
	if req.RequestID, err = requireString(data, "request_id", false); err != nil {
		return nil, err
	}
	if req.MessageID, err = requireString(data, "message_id", false); err != nil {
		return nil, err
	}
	if req.ThreadID, err = optionalString(data, "thread_id"); err != nil {
		return nil, err
	}
	if req.Sender, err = requireString(data, "sender", false); err != nil {
		return nil, err
	}
	if req.To, err = requireString(data, "to", false); err != nil {
		return nil, err
	}
	if req.Subject, err = stringOrDefault(data, "subject", ""); err != nil {
		return nil, err
	}
	if req.Date, err = parseTimestamp(data["date"], "date"); err != nil {
		return nil, err
	}
	if req.BodyText, err = stringOrDefault(data, "body_text", ""); err != nil {
		return nil, err
	}
	if req.BodyHTML, err = optionalString(data, "body_html"); err != nil {
		return nil, err
	}
	if req.GmailLabels, err = stringList(data, "gmail_labels"); err != nil {
		return nil, err
	}
	if req.GmailCategory, err = optionalString(data, "gmail_category"); err != nil {
		return nil, err
	}
	if req.InReplyTo, err = optionalString(data, "in_reply_to"); err != nil {
		return nil, err
	}
	if req.References, err = stringList(data, "references"); err != nil {
		return nil, err
	}
	if req.SentMessageIDs, err = stringList(data, "sent_message_ids"); err != nil {
		return nil, err
	}
	if req.IsStarred, err = boolField(data, "is_starred", false); err != nil {
		return nil, err
	}
	if req.IsRead, err = boolField(data, "is_read", false); err != nil {
		return nil, err
	}
	return &req, nil
}

// ParseRequest decodes a JSON payload and validates it into a Request.
func ParseRequest(data []byte) (*Request, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, schemaErrorf("payload is not a JSON object: %v", err)
	}
	return ParseRequestMap(raw)
}

// requestWire is the canonical JSON form sent to the inference endpoint.
type requestWire struct {
	RequestID      string   `json:"request_id"`
	MessageID      string   `json:"message_id"`
	ThreadID       string   `json:"thread_id,omitempty"`
	Sender         string   `json:"sender"`
	To             string   `json:"to"`
	Subject        string   `json:"subject"`
	Date           string   `json:"date"`
	BodyText       string   `json:"body_text"`
	BodyHTML       string   `json:"body_html,omitempty"`
	GmailLabels    []string `json:"gmail_labels"`
	GmailCategory  string   `json:"gmail_category,omitempty"`
	InReplyTo      string   `json:"in_reply_to,omitempty"`
	References     []string `json:"references"`
	SentMessageIDs []string `json:"sent_message_ids"`
	IsStarred      bool     `json:"is_starred"`
	IsRead         bool     `json:"is_read"`
}

// MarshalJSON serializes the request in its canonical wire form, with the
// date normalized to RFC 3339 in UTC.
func (r *Request) MarshalJSON() ([]byte, error) {
	labels := r.GmailLabels
	if labels == nil {
		labels = []string{}
	}
	references := r.References
	if references == nil {
		references = []string{}
	}
	sent := r.SentMessageIDs
	if sent == nil {
		sent = []string{}
	}
	return json.Marshal(requestWire{
		RequestID:      r.RequestID,
		MessageID:      r.MessageID,
		ThreadID:       r.ThreadID,
		Sender:         r.Sender,
		To:             r.To,
		Subject:        r.Subject,
		Date:           r.Date.UTC().Format(time.RFC3339Nano),
		BodyText:       r.BodyText,
		BodyHTML:       r.BodyHTML,
		GmailLabels:    labels,
		GmailCategory:  r.GmailCategory,
		InReplyTo:      r.InReplyTo,
		References:     references,
		SentMessageIDs: sent,
		IsStarred:      r.IsStarred,
		IsRead:         r.IsRead,
	})
}
