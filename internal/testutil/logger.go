package testutil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
)

// NopLogger returns a logger that drops every record
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// LogCapture collects JSON log records for assertions. Safe for concurrent use.
type LogCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLogCapture returns a capture and a debug-level logger writing into it
func NewLogCapture() (*LogCapture, *slog.Logger) {
	c := &LogCapture{}
	return c, slog.New(slog.NewJSONHandler(c, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (c *LogCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// Records decodes every captured line
func (c *LogCapture) Records() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	var records []map[string]any
	dec := json.NewDecoder(bytes.NewReader(c.buf.Bytes()))
	for dec.More() {
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			break
		}
		records = append(records, rec)
	}
	return records
}

// Find returns the first record with the given message, or nil
func (c *LogCapture) Find(msg string) map[string]any {
	for _, rec := range c.Records() {
		if rec[slog.MessageKey] == msg {
			return rec
		}
	}
	return nil
}
