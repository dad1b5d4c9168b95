package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	auditLogger := NewSlogLogger(logger)

	event := Event{
		SessionID: "sess-1",
		OwnerID:   "alice",
		EventType: EventEnrollmentCreated,
		Scope:     "per-user",
		Success:   true,
		Metadata:  map[string]string{"similarity": "0.4211"},
	}

	err := auditLogger.Log(context.Background(), event)
	require.NoError(t, err)

	var logged map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logged))
	assert.Equal(t, "audit_event", logged["msg"])
	assert.Equal(t, "ENROLLMENT_CREATED", logged["event_type"])
	assert.Equal(t, "alice", logged["owner_id"])
	assert.Equal(t, true, logged["success"])

	// ID and timestamp are filled in when absent.
	eventID, err := uuid.Parse(logged["event_id"].(string))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, eventID)
}

func TestSlogLogger_PreservesExplicitID(t *testing.T) {
	var buf bytes.Buffer
	auditLogger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	id := uuid.New()
	err := auditLogger.Log(context.Background(), Event{
		ID:        id,
		EventType: EventSessionStarted,
	})
	require.NoError(t, err)

	var logged map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logged))
	assert.Equal(t, id.String(), logged["event_id"])
}

func TestNoOpLogger(t *testing.T) {
	assert.NoError(t, NoOpLogger{}.Log(context.Background(), Event{
		EventType: EventSessionCancelled,
	}))
}
