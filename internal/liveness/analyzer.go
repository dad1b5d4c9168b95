// Package liveness turns a noisy per-frame stream of facial landmarks
// into a two-stage liveness decision: a blink gate followed by an
// ordered head-turn gate.
package liveness

import (
	"fmt"
	"time"

	"github.com/visage-id/visage/internal/detector"
)

// Thresholds tune the liveness state machine. Zero values are replaced
// by DefaultThresholds in NewAnalyzer.
type Thresholds struct {
	// EyesClosedEAR: average EAR below this value means the eyes are
	// closed.
	EyesClosedEAR float64
	// BlinkCooldown is the minimum gap between two counted blinks, so a
	// prolonged closure or detector flicker is not double-counted.
	BlinkCooldown time.Duration
	// RequiredBlinks unlocks the head-turn stage. The blink counter
	// saturates here.
	RequiredBlinks int
	// HeadTilt is the magnitude the tilt must exceed to pass a turn
	// challenge.
	HeadTilt float64
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		EyesClosedEAR:  0.28,
		BlinkCooldown:  time.Second,
		RequiredBlinks: 2,
		HeadTilt:       0.10,
	}
}

// State is the mutable per-session liveness state. It only ever moves
// forward: the latch booleans are set once and never reset within a
// session.
type State struct {
	BlinkCount           int
	EyesClosed           bool
	LastBlinkAt          time.Time
	HeadCheckLeftPassed  bool
	HeadCheckRightPassed bool
	Complete             bool
}

// Event reports the transition, if any, produced by one frame.
type Event int

const (
	EventNone Event = iota
	// EventNoFace: frame had no usable face; state untouched.
	EventNoFace
	// EventBlink: one blink was counted.
	EventBlink
	// EventBlinkGateUnlocked: the required blink count was reached and
	// the head-turn stage is now active.
	EventBlinkGateUnlocked
	// EventHeadLeft: the left-turn challenge passed.
	EventHeadLeft
	// EventComplete: the right-turn challenge passed and the session is
	// complete. Delivered exactly once.
	EventComplete
)

// Analyzer drives the liveness state machine for a single capture
// session. It is not safe for concurrent use; the session layer
// serializes frame delivery.
type Analyzer struct {
	thresholds Thresholds
	state      State

	// blinkGateUnlocked is latched separately from the derived count
	// comparison so later EAR noise can never re-lock the gate.
	blinkGateUnlocked bool

	onStatus func(string)
}

// AnalyzerOption configures the analyzer.
type AnalyzerOption func(*Analyzer)

// WithStatusFunc registers a callback receiving a human-readable
// progress message at each state transition.
func WithStatusFunc(fn func(string)) AnalyzerOption {
	return func(a *Analyzer) { a.onStatus = fn }
}

// NewAnalyzer creates a session-scoped analyzer.
func NewAnalyzer(thresholds Thresholds, opts ...AnalyzerOption) *Analyzer {
	if thresholds.EyesClosedEAR == 0 {
		thresholds.EyesClosedEAR = DefaultThresholds().EyesClosedEAR
	}
	if thresholds.BlinkCooldown == 0 {
		thresholds.BlinkCooldown = DefaultThresholds().BlinkCooldown
	}
	if thresholds.RequiredBlinks == 0 {
		thresholds.RequiredBlinks = DefaultThresholds().RequiredBlinks
	}
	if thresholds.HeadTilt == 0 {
		thresholds.HeadTilt = DefaultThresholds().HeadTilt
	}

	a := &Analyzer{thresholds: thresholds}
	for _, opt := range opts {
		opt(a)
	}
	a.status("position your face in front of the camera")
	return a
}

// State returns a snapshot of the current liveness state.
func (a *Analyzer) State() State {
	return a.state
}

// Complete reports whether the session has passed both gates.
func (a *Analyzer) Complete() bool {
	return a.state.Complete
}

// ProcessFrame consumes one detection frame observed at the given
// monotonic instant and returns the resulting transition. Frames
// without a face, malformed frames and frames after completion leave
// the state unchanged. The geometry work is synchronous and cheap; no
// blocking calls happen here.
func (a *Analyzer) ProcessFrame(f *detector.Frame, now time.Time) (Event, error) {
	if a.state.Complete {
		return EventNone, nil
	}
	if err := f.Validate(); err != nil {
		return EventNoFace, err
	}
	if !f.FaceFound {
		a.status("no face detected, hold still")
		return EventNoFace, nil
	}

	if !a.blinkGateUnlocked {
		return a.processBlink(f, now), nil
	}
	return a.processHeadTurn(f), nil
}

func (a *Analyzer) processBlink(f *detector.Frame, now time.Time) Event {
	closed := AverageEAR(f.LeftEye, f.RightEye) < a.thresholds.EyesClosedEAR

	ev := EventNone
	// A blink fires on the open->closed transition only, and only once
	// the cooldown since the previous counted blink has elapsed.
	if closed && !a.state.EyesClosed &&
		now.Sub(a.state.LastBlinkAt) >= a.thresholds.BlinkCooldown {
		if a.state.BlinkCount < a.thresholds.RequiredBlinks {
			a.state.BlinkCount++
		}
		a.state.LastBlinkAt = now
		ev = EventBlink

		if a.state.BlinkCount >= a.thresholds.RequiredBlinks {
			a.blinkGateUnlocked = true
			ev = EventBlinkGateUnlocked
			a.status("blinks done, now turn your head to the left")
		} else {
			a.status(fmt.Sprintf("blink slowly (%d/%d)",
				a.state.BlinkCount, a.thresholds.RequiredBlinks))
		}
	}
	a.state.EyesClosed = closed
	return ev
}

func (a *Analyzer) processHeadTurn(f *detector.Frame) Event {
	a.state.EyesClosed = AverageEAR(f.LeftEye, f.RightEye) < a.thresholds.EyesClosedEAR
	tilt := HeadTilt(f.LeftEye, f.RightEye)

	// Order is mandatory: right can only pass after left.
	if !a.state.HeadCheckLeftPassed {
		if tilt < -a.thresholds.HeadTilt {
			a.state.HeadCheckLeftPassed = true
			a.status("good, now turn your head to the right")
			return EventHeadLeft
		}
		return EventNone
	}

	if !a.state.HeadCheckRightPassed && tilt > a.thresholds.HeadTilt {
		a.state.HeadCheckRightPassed = true
		a.state.Complete = true
		a.status("liveness check complete")
		return EventComplete
	}
	return EventNone
}

func (a *Analyzer) status(msg string) {
	if a.onStatus != nil {
		a.onStatus(msg)
	}
}
