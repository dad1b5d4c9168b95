package mock

import (
	"math"

	"github.com/visage-id/visage/internal/detector"
)

// Synthetic landmark geometry used across tests and the demo harness.
// Eyes are 40 units wide with centroids 80 units apart, roughly the
// proportions a landmark model reports for a centered face.

const (
	eyeWidth      = 40.0
	eyeGap        = 80.0
	leftEyeCX     = 100.0
	eyeCY         = 100.0
	openEyeAspect = 0.35
)

// eyeContour builds a 6-point eye contour centered at (cx, cy) whose
// aspect ratio evaluates to ear.
func eyeContour(cx, cy, ear float64) [detector.EyePointCount]detector.Point {
	half := eyeWidth / 2
	// height/width = (2h+2h)/(2*width) => h = ear*width/2
	h := ear * eyeWidth / 2
	return [detector.EyePointCount]detector.Point{
		{X: cx - half, Y: cy},
		{X: cx - half + 12, Y: cy - h},
		{X: cx + half - 12, Y: cy - h},
		{X: cx + half, Y: cy},
		{X: cx + half - 12, Y: cy + h},
		{X: cx - half + 12, Y: cy + h},
	}
}

// FaceFrame builds a frame with the given average eye aspect ratio and
// head tilt. Tilt is sin(eyeAngle): negative tilts the head left,
// positive right, zero keeps the eye line horizontal.
func FaceFrame(ear, tilt float64) *detector.Frame {
	dy := 0.0
	if tilt != 0 {
		// sin(atan2(dy, dx)) = tilt  =>  dy = tilt*dx/sqrt(1-tilt^2)
		dy = tilt * eyeGap / math.Sqrt(1-tilt*tilt)
	}

	f := &detector.Frame{
		FaceFound: true,
		LeftEye:   eyeContour(leftEyeCX, eyeCY, ear),
		RightEye:  eyeContour(leftEyeCX+eyeGap, eyeCY+dy, ear),
		Nose:      []detector.Point{{X: leftEyeCX + eyeGap/2, Y: eyeCY + 30}},
	}
	f.Jaw = make([]detector.Point, detector.JawPointCount)
	for i := range f.Jaw {
		f.Jaw[i] = detector.Point{
			X: leftEyeCX - 40 + float64(i)*10,
			Y: eyeCY + 80,
		}
	}
	return f
}

// OpenEyesFrame is a neutral frame: eyes open, head straight.
func OpenEyesFrame() *detector.Frame {
	return FaceFrame(openEyeAspect, 0)
}

// ClosedEyesFrame is a frame with both eyes shut.
func ClosedEyesFrame() *detector.Frame {
	return FaceFrame(0.15, 0)
}

// TiltedFrame is an open-eyes frame with the given head tilt.
func TiltedFrame(tilt float64) *detector.Frame {
	return FaceFrame(openEyeAspect, tilt)
}

// NoFaceFrame is a frame in which the detector found no face.
func NoFaceFrame() *detector.Frame {
	return &detector.Frame{FaceFound: false}
}

// PassSequence scripts a full liveness pass: two blinks, a left turn and
// a right turn, with neutral frames in between. Frames are meant to be
// delivered at an interval that clears the blink cooldown between the
// two closures (the session test injects its own clock; the demo simply
// paces delivery).
func PassSequence() []*detector.Frame {
	return []*detector.Frame{
		OpenEyesFrame(),
		ClosedEyesFrame(),
		OpenEyesFrame(),
		ClosedEyesFrame(),
		OpenEyesFrame(),
		TiltedFrame(-0.15),
		TiltedFrame(0.15),
	}
}
