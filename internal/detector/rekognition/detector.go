package rekognition

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/visage-id/visage/internal/detector"
	"github.com/visage-id/visage/internal/domain"
)

// ImageSource supplies the camera stills fed into DetectFaces, one per
// frame tick. NextImage returns io.EOF when the stream ends.
type ImageSource interface {
	NextImage(ctx context.Context) ([]byte, error)
}

// Detector implements detector.FrameSource on top of the Rekognition
// DetectFaces API. It does not implement descriptor extraction:
// Rekognition keeps embeddings internal to its collection APIs and never
// returns the vectors, so Descriptor always fails with
// domain.ErrUnsupportedOperation.
type Detector struct {
	api    RekognitionAPI
	images ImageSource
	logger *slog.Logger
}

func New(api RekognitionAPI, images ImageSource, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{api: api, images: images, logger: logger}
}

// NextFrame pulls the next still from the image source and maps the
// first detected face's landmarks into a detection frame. An image in
// which Rekognition finds no face yields a no-face frame, not an error.
func (d *Detector) NextFrame(ctx context.Context) (*detector.Frame, error) {
	image, err := d.images.NextImage(ctx)
	if err != nil {
		return nil, err
	}

	input := &rekognition.DetectFacesInput{
		Image: &types.Image{
			Bytes: image,
		},
		Attributes: []types.Attribute{types.AttributeAll},
	}

	output, err := d.api.DetectFaces(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", parseAPIError(err))
	}

	if len(output.FaceDetails) == 0 {
		return &detector.Frame{FaceFound: false}, nil
	}

	frame, ok := mapFaceDetail(output.FaceDetails[0])
	if !ok {
		// Rekognition found a face but not the eye landmarks the
		// liveness math needs. Treat it like a no-face frame so the
		// session keeps polling.
		d.logger.Debug("face detected without usable eye landmarks")
		return &detector.Frame{FaceFound: false}, nil
	}

	return frame, nil
}

// Descriptor always fails: see the Detector doc comment.
func (d *Detector) Descriptor(ctx context.Context) (domain.FaceDescriptor, error) {
	return nil, domain.ErrUnsupportedOperation
}

// Close releases the image source if it holds a resource.
func (d *Detector) Close() error {
	if closer, ok := d.images.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// mapFaceDetail converts Rekognition's named landmarks into the 6-point
// eye contours the pipeline expects. Rekognition reports 4 points per
// eye (left, up, right, down); the two top and two bottom contour slots
// are collapsed onto the single up/down points, which preserves the
// aspect-ratio math.
func mapFaceDetail(face types.FaceDetail) (*detector.Frame, bool) {
	points := make(map[types.LandmarkType]detector.Point, len(face.Landmarks))
	for _, lm := range face.Landmarks {
		if lm.X == nil || lm.Y == nil {
			continue
		}
		points[lm.Type] = detector.Point{X: float64(*lm.X), Y: float64(*lm.Y)}
	}

	leftEye, ok := eyeContour(points,
		types.LandmarkTypeLeftEyeLeft,
		types.LandmarkTypeLeftEyeUp,
		types.LandmarkTypeLeftEyeRight,
		types.LandmarkTypeLeftEyeDown,
	)
	if !ok {
		return nil, false
	}

	rightEye, ok := eyeContour(points,
		types.LandmarkTypeRightEyeLeft,
		types.LandmarkTypeRightEyeUp,
		types.LandmarkTypeRightEyeRight,
		types.LandmarkTypeRightEyeDown,
	)
	if !ok {
		return nil, false
	}

	frame := &detector.Frame{
		FaceFound: true,
		LeftEye:   leftEye,
		RightEye:  rightEye,
	}

	for _, lt := range []types.LandmarkType{
		types.LandmarkTypeNoseLeft,
		types.LandmarkTypeNose,
		types.LandmarkTypeNoseRight,
	} {
		if p, found := points[lt]; found {
			frame.Nose = append(frame.Nose, p)
		}
	}

	for _, lt := range []types.LandmarkType{
		types.LandmarkTypeUpperJawlineLeft,
		types.LandmarkTypeMidJawlineLeft,
		types.LandmarkTypeChinBottom,
		types.LandmarkTypeMidJawlineRight,
		types.LandmarkTypeUpperJawlineRight,
	} {
		if p, found := points[lt]; found {
			frame.Jaw = append(frame.Jaw, p)
		}
	}

	return frame, true
}

func eyeContour(points map[types.LandmarkType]detector.Point, left, up, right, down types.LandmarkType) ([detector.EyePointCount]detector.Point, bool) {
	var contour [detector.EyePointCount]detector.Point

	l, okL := points[left]
	u, okU := points[up]
	r, okR := points[right]
	d, okD := points[down]
	if !okL || !okU || !okR || !okD {
		return contour, false
	}

	contour[0] = l
	contour[1] = u
	contour[2] = u
	contour[3] = r
	contour[4] = d
	contour[5] = d
	return contour, true
}
