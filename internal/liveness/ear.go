package liveness

import (
	"math"

	"github.com/visage-id/visage/internal/detector"
)

// Eye aspect ratio bounds. Single-eye values are clamped into this range
// before combining to suppress detector jitter.
const (
	earMin = 0.10
	earMax = 0.45

	// neutralEAR is substituted when an eye contour is degenerate
	// (zero horizontal distance), standing in for a plain open eye.
	neutralEAR = 0.35
)

// EyeAspectRatio computes the EAR for a 6-point eye contour p0..p5:
//
//	EAR = (dist(p1,p5) + dist(p2,p4)) / (2 * dist(p0,p3))
//
// The result is clamped to [0.10, 0.45]. A contour with zero width
// yields the neutral open-eye value instead of dividing by zero.
func EyeAspectRatio(eye [detector.EyePointCount]detector.Point) float64 {
	horizontal := dist(eye[0], eye[3])
	if horizontal == 0 {
		return neutralEAR
	}
	ear := (dist(eye[1], eye[5]) + dist(eye[2], eye[4])) / (2 * horizontal)
	return clamp(ear, earMin, earMax)
}

// AverageEAR combines both eyes. Since each per-eye value is clamped,
// the average also stays within [0.10, 0.45].
func AverageEAR(left, right [detector.EyePointCount]detector.Point) float64 {
	return (EyeAspectRatio(left) + EyeAspectRatio(right)) / 2
}

// HeadTilt derives the head roll from the eye-centroid line:
//
//	eyeAngle = atan2(rightCenter.y - leftCenter.y, rightCenter.x - leftCenter.x)
//	headTilt = sin(eyeAngle)
//
// Negative values mean the head is tilted toward the left challenge,
// positive toward the right.
func HeadTilt(left, right [detector.EyePointCount]detector.Point) float64 {
	lc := eyeCenter(left)
	rc := eyeCenter(right)
	angle := math.Atan2(rc.Y-lc.Y, rc.X-lc.X)
	return math.Sin(angle)
}

func eyeCenter(eye [detector.EyePointCount]detector.Point) detector.Point {
	var c detector.Point
	for _, p := range eye {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= detector.EyePointCount
	c.Y /= detector.EyePointCount
	return c
}

func dist(a, b detector.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
