// Package audit provides structured event logging for fixture lifecycle events.
// Events are stored as JSON Lines (JSONL) files, one per fixture.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/firefly-engineering/fixture-ctl/internal/config"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventCreate   EventType = "create"
	EventRefresh  EventType = "refresh"
	EventValidate EventType = "validate"
	EventLoad     EventType = "load"
	EventRollback EventType = "rollback"
	EventCleanup  EventType = "cleanup"
	EventChecksum EventType = "checksum"
	EventError    EventType = "error"
)

// Event represents a single audit log entry.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Fixture   string    `json:"fixture"`
	Namespace string    `json:"namespace,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// Logger writes and reads audit events for fixtures.
// Events are stored in {eventsDir}/{fixture}.events.jsonl.
type Logger struct {
	mu        sync.Mutex
	eventsDir string
	now       func() time.Time
}

// NewLogger creates a new audit logger rooted at eventsDir.
func NewLogger(eventsDir string) *Logger {
	return &Logger{eventsDir: eventsDir, now: time.Now}
}

// Dir returns the directory holding the event logs.
func (l *Logger) Dir() string {
	return l.eventsDir
}

// eventPath returns the path to the JSONL event log for a fixture.
func (l *Logger) eventPath(fixture string) (string, error) {
	if err := config.ValidateFixtureID(fixture); err != nil {
		return "", err
	}
	return filepath.Join(l.eventsDir, fixture+".events.jsonl"), nil
}

// Log appends an event to the fixture's audit log.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	path, err := l.eventPath(event.Fixture)
	if err != nil {
		return fmt.Errorf("invalid audit log name: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogEvent is a convenience method that creates and logs an event.
func (l *Logger) LogEvent(eventType EventType, fixture, namespace, details string) error {
	return l.Log(Event{
		Type:      eventType,
		Fixture:   fixture,
		Namespace: namespace,
		Details:   details,
	})
}

// Events reads all events for a fixture in chronological order.
func (l *Logger) Events(fixture string) ([]Event, error) {
	path, err := l.eventPath(fixture)
	if err != nil {
		return nil, fmt.Errorf("invalid audit log name: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// Remove deletes the audit log for a fixture.
func (l *Logger) Remove(fixture string) error {
	path, err := l.eventPath(fixture)
	if err != nil {
		return fmt.Errorf("invalid audit log name: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
