package triage

import "encoding/json"

// Triage decisions returned by the classifier.
const (
	DecisionArchive        = "archive"
	DecisionNeedsAttention = "needs_attention"
)

// Response is the classifier's verdict for a single request. A Response is
// never mutated in place; a downgrade constructs a new value.
type Response struct {
	Decision      string  `json:"decision"`
	Confidence    float64 `json:"confidence"`
	Source        string  `json:"source"`
	Reasoning     string  `json:"reasoning"`
	Rule          string  `json:"rule,omitempty"`
	ModelVersion  string  `json:"model_version"`
	ThresholdUsed float64 `json:"threshold_used"`
	LatencyMS     int64   `json:"latency_ms"`
}

// Validate checks the invariants every Response must satisfy.
func (r *Response) Validate() error {
	if r.Decision != DecisionArchive && r.Decision != DecisionNeedsAttention {
		return schemaErrorf("decision must be one of: %s, %s", DecisionArchive, DecisionNeedsAttention)
	}
	if r.Confidence < 0.0 || r.Confidence > 1.0 {
		return schemaErrorf("confidence must be between 0.0 and 1.0")
	}
	if r.LatencyMS < 0 {
		return schemaErrorf("latency_ms must be >= 0")
	}
	return nil
}

// ParseResponseMap validates a decoded classifier payload into a Response.
func ParseResponseMap(data map[string]any) (*Response, error) {
	decision, err := requireString(data, "decision", false)
	if err != nil {
		return nil, err
	}
	source, err := requireString(data, "source", false)
	if err != nil {
		return nil, err
	}
	reasoning, err := stringOrDefault(data, "reasoning", "")
	if err != nil {
		return nil, err
	}
	rule, err := optionalString(data, "rule")
	if err != nil {
		return nil, err
	}
	modelVersion, err := requireString(data, "model_version", false)
	if err != nil {
		return nil, err
	}
	confidence, err := numberField(data, "confidence")
	if err != nil {
		return nil, err
	}
	threshold, err := numberField(data, "threshold_used")
	if err != nil {
		return nil, err
	}
	latency, err := numberField(data, "latency_ms")
	if err != nil {
		return nil, err
	}
	resp := &Response{
		Decision:      decision,
		Confidence:    confidence,
		Source:        source,
		Reasoning:     reasoning,
		Rule:          rule,
		ModelVersion:  modelVersion,
		ThresholdUsed: threshold,
		LatencyMS:     int64(latency),
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return resp, nil
}

// ParseResponse decodes a JSON classifier payload and validates it.
func ParseResponse(data []byte) (*Response, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, schemaErrorf("payload is not a JSON object: %v", err)
	}
	return ParseResponseMap(raw)
}

func numberField(data map[string]any, key string) (float64, error) {
	value, ok := data[key]
	if !ok || value == nil {
		return 0, nil
	}
	switch n := value.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, schemaErrorf("invalid numeric field %s in response payload", key)
		}
		return f, nil
	default:
		return 0, schemaErrorf("invalid numeric field %s in response payload", key)
	}
}
