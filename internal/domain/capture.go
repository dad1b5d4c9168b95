package domain

import "time"

// CaptureOutcome is the terminal outcome of a capture session.
type CaptureOutcome string

const (
	OutcomeNewEnrollment  CaptureOutcome = "new-enrollment"
	OutcomeReturningMatch CaptureOutcome = "returning-match"
	OutcomeError          CaptureOutcome = "error"
)

// CaptureResult is handed to the caller exactly once, when a capture
// session reaches a terminal state.
type CaptureResult struct {
	Outcome    CaptureOutcome `json:"outcome"`
	Similarity float64        `json:"similarity,omitempty"`
	CapturedAt time.Time      `json:"captured_at,omitempty"`
	Vector     FaceDescriptor `json:"vector,omitempty"`
	// Persisted is false when a new enrollment could not be written to
	// storage. The outcome is still reported as new-enrollment; failing
	// the user's liveness flow over a storage hiccup is the wrong call.
	Persisted bool `json:"persisted"`
}
