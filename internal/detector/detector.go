// Package detector defines the boundary contract between the capture
// pipeline and whatever produces facial landmark detections: a browser
// model feed, a cloud detection API, or a synthetic source in tests.
package detector

import (
	"context"
	"math"

	"github.com/visage-id/visage/internal/domain"
)

// Point is a 2D landmark coordinate. The pipeline only consumes ratios
// and angles, so the coordinate space (pixels or normalized) is up to
// the producing detector as long as it is consistent within a frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EyePointCount is the number of contour points per eye in the standard
// 68-point facial landmark scheme.
const EyePointCount = 6

// JawPointCount is the number of jaw outline points in the same scheme.
const JawPointCount = 17

// Frame is one detection delivered by the frame feed. When FaceFound is
// false every other field is ignored.
type Frame struct {
	FaceFound  bool                  `json:"face_found"`
	LeftEye    [EyePointCount]Point  `json:"left_eye"`
	RightEye   [EyePointCount]Point  `json:"right_eye"`
	Nose       []Point               `json:"nose"`
	Jaw        []Point               `json:"jaw"`
	Descriptor domain.FaceDescriptor `json:"descriptor,omitempty"`
}

// Validate rejects malformed landmark data at the boundary, so the
// liveness math never indexes into garbage coordinates. A frame without
// a face is valid by definition.
func (f *Frame) Validate() error {
	if f == nil {
		return domain.ErrMalformedFrame.WithError(nil)
	}
	if !f.FaceFound {
		return nil
	}
	for _, eye := range [2][EyePointCount]Point{f.LeftEye, f.RightEye} {
		for _, p := range eye {
			if !finite(p) {
				return domain.ErrMalformedFrame
			}
		}
	}
	for _, p := range f.Nose {
		if !finite(p) {
			return domain.ErrMalformedFrame
		}
	}
	for _, p := range f.Jaw {
		if !finite(p) {
			return domain.ErrMalformedFrame
		}
	}
	return nil
}

func finite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// FrameSource delivers detection frames. It is pull-based: an external
// scheduler (UI loop, ticker) decides when the next frame is consumed;
// the pipeline itself never owns a timer.
type FrameSource interface {
	NextFrame(ctx context.Context) (*Frame, error)
}

// DescriptorSource produces one face descriptor from the current frame.
// Implementations are expected to be slow (model inference or a network
// round trip) and must honor ctx cancellation.
type DescriptorSource interface {
	Descriptor(ctx context.Context) (domain.FaceDescriptor, error)
}

// Detector combines frame detection and descriptor extraction over one
// scoped camera/model resource. Close releases the resource and must be
// called on every exit path of a capture session.
type Detector interface {
	FrameSource
	DescriptorSource
	Close() error
}

type composed struct {
	FrameSource
	DescriptorSource
	closeFn func() error
}

func (c *composed) Close() error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn()
}

// Compose builds a Detector from independent frame and descriptor
// sources. Useful when the two capabilities come from different
// backends, e.g. cloud landmark detection paired with a local embedding
// model.
func Compose(fs FrameSource, ds DescriptorSource, closeFn func() error) Detector {
	return &composed{FrameSource: fs, DescriptorSource: ds, closeFn: closeFn}
}
