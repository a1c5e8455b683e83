// Package auditlog appends structured trading events to a JSONL file for
// offline replay and debugging. The agent only ever writes here.
package auditlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Event actions written by the agent.
const (
	ActionTradeCreated       = "trade_created"
	ActionPaperTradeExecuted = "paper_trade_executed"
	ActionTradeUpdated       = "trade_updated"
)

// Event is one audit log entry.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Action    string                 `json:"action"`
	TradeID   string                 `json:"trade_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Sink accepts audit events.
type Sink interface {
	Append(event Event) error
	Close() error
}

// FileSink appends events to a JSONL file, one event per line.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

// NewFileSink opens (or creates) the JSONL file at path in append mode.
func NewFileSink(path string, logger *zap.Logger) (*FileSink, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	logger.Info("audit-log-opened", zap.String("path", path))

	return &FileSink{
		file:   file,
		logger: logger,
	}, nil
}

// Append writes one event as a JSON line.
func (s *FileSink) Append(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.file.Write(append(line, '\n'))
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.logger.Info("closing-audit-log")
	return s.file.Close()
}

// NopSink discards all events. Used in tests and when no log path is set.
type NopSink struct{}

// Append discards the event.
func (NopSink) Append(Event) error { return nil }

// Close is a no-op.
func (NopSink) Close() error { return nil }
