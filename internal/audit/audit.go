package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of auditable pipeline event
type EventType string

const (
	EventSessionStarted      EventType = "SESSION_STARTED"
	EventBlinkCounted        EventType = "BLINK_COUNTED"
	EventLivenessPassed      EventType = "LIVENESS_PASSED"
	EventDescriptorExtracted EventType = "DESCRIPTOR_EXTRACTED"
	EventExtractionFailed    EventType = "EXTRACTION_FAILED"
	EventMatchFound          EventType = "MATCH_FOUND"
	EventNearMatch           EventType = "NEAR_MATCH"
	EventEnrollmentCreated   EventType = "ENROLLMENT_CREATED"
	EventSessionCancelled    EventType = "SESSION_CANCELLED"
)

// Event represents an audit event for biometric-processing compliance
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	SessionID string            `json:"session_id,omitempty"`
	OwnerID   string            `json:"owner_id,omitempty"`
	EventType EventType         `json:"event_type"`
	Scope     string            `json:"scope,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a new audit logger using slog
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	l.logger.InfoContext(ctx, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("session_id", event.SessionID),
		slog.String("owner_id", event.OwnerID),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

// NoOpLogger is a logger that does nothing (for testing or when audit is disabled)
type NoOpLogger struct{}

// Log does nothing and returns nil
func (NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
