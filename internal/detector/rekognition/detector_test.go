package rekognition

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visage-id/visage/internal/domain"
)

// mockRekognitionAPI is a mock implementation of RekognitionAPI for testing
type mockRekognitionAPI struct {
	detectFacesFunc func(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

func (m *mockRekognitionAPI) DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error) {
	if m.detectFacesFunc != nil {
		return m.detectFacesFunc(ctx, params, optFns...)
	}
	return &rekognition.DetectFacesOutput{}, nil
}

type stubImageSource struct {
	images [][]byte
	next   int
	closed bool
}

func (s *stubImageSource) NextImage(ctx context.Context) ([]byte, error) {
	if s.next >= len(s.images) {
		return nil, io.EOF
	}
	img := s.images[s.next]
	s.next++
	return img, nil
}

func (s *stubImageSource) Close() error {
	s.closed = true
	return nil
}

func landmark(lt types.LandmarkType, x, y float32) types.Landmark {
	return types.Landmark{Type: lt, X: &x, Y: &y}
}

// fullFaceDetail returns a face whose eye landmarks describe open eyes
// at a known geometry.
func fullFaceDetail() types.FaceDetail {
	return types.FaceDetail{
		Landmarks: []types.Landmark{
			landmark(types.LandmarkTypeLeftEyeLeft, 0.30, 0.40),
			landmark(types.LandmarkTypeLeftEyeUp, 0.33, 0.38),
			landmark(types.LandmarkTypeLeftEyeRight, 0.36, 0.40),
			landmark(types.LandmarkTypeLeftEyeDown, 0.33, 0.42),
			landmark(types.LandmarkTypeRightEyeLeft, 0.54, 0.40),
			landmark(types.LandmarkTypeRightEyeUp, 0.57, 0.38),
			landmark(types.LandmarkTypeRightEyeRight, 0.60, 0.40),
			landmark(types.LandmarkTypeRightEyeDown, 0.57, 0.42),
			landmark(types.LandmarkTypeNose, 0.45, 0.50),
			landmark(types.LandmarkTypeChinBottom, 0.45, 0.75),
		},
	}
}

func TestDetector_NextFrame(t *testing.T) {
	tests := []struct {
		name          string
		output        *rekognition.DetectFacesOutput
		apiErr        error
		wantErr       error
		wantFaceFound bool
	}{
		{
			name:          "maps detected face landmarks",
			output:        &rekognition.DetectFacesOutput{FaceDetails: []types.FaceDetail{fullFaceDetail()}},
			wantFaceFound: true,
		},
		{
			name:          "no faces yields no-face frame",
			output:        &rekognition.DetectFacesOutput{},
			wantFaceFound: false,
		},
		{
			name: "face without eye landmarks yields no-face frame",
			output: &rekognition.DetectFacesOutput{FaceDetails: []types.FaceDetail{{
				Landmarks: []types.Landmark{
					landmark(types.LandmarkTypeNose, 0.45, 0.50),
				},
			}}},
			wantFaceFound: false,
		},
		{
			name:    "access denied maps to credentials error",
			apiErr:  &smithy.GenericAPIError{Code: errCodeAccessDenied, Message: "not allowed"},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "invalid image maps to image error",
			apiErr:  &smithy.GenericAPIError{Code: errCodeInvalidImage, Message: "bad bytes"},
			wantErr: ErrInvalidImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockRekognitionAPI{
				detectFacesFunc: func(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error) {
					assert.NotEmpty(t, params.Image.Bytes)
					require.Contains(t, params.Attributes, types.AttributeAll)
					if tt.apiErr != nil {
						return nil, tt.apiErr
					}
					return tt.output, nil
				},
			}
			images := &stubImageSource{images: [][]byte{[]byte("jpeg-bytes")}}
			d := New(api, images, nil)

			frame, err := d.NextFrame(context.Background())

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NoError(t, frame.Validate())
			assert.Equal(t, tt.wantFaceFound, frame.FaceFound)
		})
	}
}

func TestDetector_NextFrameEyeGeometry(t *testing.T) {
	api := &mockRekognitionAPI{
		detectFacesFunc: func(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error) {
			return &rekognition.DetectFacesOutput{FaceDetails: []types.FaceDetail{fullFaceDetail()}}, nil
		},
	}
	images := &stubImageSource{images: [][]byte{[]byte("jpeg-bytes")}}
	d := New(api, images, nil)

	frame, err := d.NextFrame(context.Background())
	require.NoError(t, err)
	require.True(t, frame.FaceFound)

	// Corner points sit on the eye line, top points above, bottom below.
	assert.InDelta(t, 0.30, frame.LeftEye[0].X, 1e-9)
	assert.InDelta(t, 0.36, frame.LeftEye[3].X, 1e-9)
	assert.Equal(t, frame.LeftEye[1], frame.LeftEye[2], "both top slots collapse onto the up landmark")
	assert.Equal(t, frame.LeftEye[4], frame.LeftEye[5], "both bottom slots collapse onto the down landmark")
	assert.Less(t, frame.LeftEye[1].Y, frame.LeftEye[0].Y)
	assert.Greater(t, frame.LeftEye[4].Y, frame.LeftEye[0].Y)

	assert.NotEmpty(t, frame.Nose)
	assert.NotEmpty(t, frame.Jaw)
}

func TestDetector_NextFrameImageSourceExhausted(t *testing.T) {
	d := New(&mockRekognitionAPI{}, &stubImageSource{}, nil)

	_, err := d.NextFrame(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestDetector_DescriptorUnsupported(t *testing.T) {
	d := New(&mockRekognitionAPI{}, &stubImageSource{}, nil)

	_, err := d.Descriptor(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)
}

func TestDetector_CloseReleasesImageSource(t *testing.T) {
	images := &stubImageSource{}
	d := New(&mockRekognitionAPI{}, images, nil)

	require.NoError(t, d.Close())
	assert.True(t, images.closed)
}
