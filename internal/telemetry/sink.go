package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Sink persists decision events.
type Sink interface {
	Log(event *DecisionEvent) error
}

// JSONLSink appends one JSON object per line to a file, creating parent
// directories on first write. Appends are mutex-serialized so concurrent
// pipeline invocations never interleave partial lines.
type JSONLSink struct {
	path string
	mu   sync.Mutex
}

// NewJSONLSink creates a sink writing to the given file path.
func NewJSONLSink(path string) *JSONLSink {
	return &JSONLSink{path: path}
}

// Log appends the event to the sink file.
func (s *JSONLSink) Log(event *DecisionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create telemetry dir: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal decision event: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write decision event: %w", err)
	}
	return nil
}

// NullSink discards every event.
type NullSink struct{}

// Log discards the event.
func (NullSink) Log(*DecisionEvent) error { return nil }
