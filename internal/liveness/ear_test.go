package liveness

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/visage-id/visage/internal/detector"
	"github.com/visage-id/visage/internal/detector/mock"
)

func TestEyeAspectRatio_Clamped(t *testing.T) {
	// Any valid contour, however extreme, must land in [0.10, 0.45].
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		var eye [detector.EyePointCount]detector.Point
		for j := range eye {
			eye[j] = detector.Point{
				X: rng.Float64()*400 - 200,
				Y: rng.Float64()*400 - 200,
			}
		}
		ear := EyeAspectRatio(eye)
		assert.GreaterOrEqual(t, ear, 0.10)
		assert.LessOrEqual(t, ear, 0.45)
	}
}

func TestEyeAspectRatio_ZeroWidth(t *testing.T) {
	// All points stacked: dist(p0,p3) == 0 must yield the neutral
	// open-eye value, not a division by zero.
	var eye [detector.EyePointCount]detector.Point
	for j := range eye {
		eye[j] = detector.Point{X: 50, Y: 50}
	}
	assert.Equal(t, 0.35, EyeAspectRatio(eye))
}

func TestEyeAspectRatio_SyntheticContours(t *testing.T) {
	tests := []struct {
		name string
		ear  float64
		want float64
	}{
		{"open eye", 0.35, 0.35},
		{"closed eye", 0.15, 0.15},
		{"clamped low", 0.02, 0.10},
		{"clamped high", 0.60, 0.45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mock.FaceFrame(tt.ear, 0)
			assert.InDelta(t, tt.want, EyeAspectRatio(f.LeftEye), 1e-9)
		})
	}
}

func TestAverageEAR_InRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		var left, right [detector.EyePointCount]detector.Point
		for j := range left {
			left[j] = detector.Point{X: rng.Float64() * 300, Y: rng.Float64() * 300}
			right[j] = detector.Point{X: rng.Float64() * 300, Y: rng.Float64() * 300}
		}
		avg := AverageEAR(left, right)
		assert.GreaterOrEqual(t, avg, 0.10)
		assert.LessOrEqual(t, avg, 0.45)
	}
}

func TestHeadTilt(t *testing.T) {
	tests := []struct {
		name string
		tilt float64
	}{
		{"straight", 0},
		{"left turn", -0.15},
		{"right turn", 0.15},
		{"strong left", -0.30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mock.TiltedFrame(tt.tilt)
			got := HeadTilt(f.LeftEye, f.RightEye)
			assert.InDelta(t, tt.tilt, got, 1e-9)
		})
	}
}
