package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/visage-id/visage/internal/config"
	"github.com/visage-id/visage/internal/detector"
	"github.com/visage-id/visage/internal/detector/mock"
	"github.com/visage-id/visage/internal/detector/rekognition"
)

// DetectorType defines supported landmark detector backends
type DetectorType string

const (
	// DetectorTypeMock is the scripted detector (local, for dev/test)
	DetectorTypeMock DetectorType = "mock"
	// DetectorTypeRekognition detects landmarks via AWS Rekognition
	// (cloud). Descriptors still come from a local source: Rekognition
	// never exposes its embeddings.
	DetectorTypeRekognition DetectorType = "rekognition"
)

// NewDetector creates a Detector instance based on configuration.
//
// Environment variables:
//   - DETECTOR_TYPE: "mock" or "rekognition" (default: "mock")
//   - AWS_REGION: AWS region for Rekognition (default: "us-east-1")
//   - AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY: via the AWS SDK
//     credential chain
//
// imageDir is only used by the rekognition backend; it is the directory
// of stills fed into DetectFaces.
func NewDetector(ctx context.Context, cfg *config.Config, ownerID, imageDir string, logger *slog.Logger) (detector.Detector, error) {
	switch DetectorType(cfg.DetectorType) {
	case DetectorTypeRekognition:
		return createRekognitionDetector(ctx, cfg, ownerID, imageDir, logger)

	case DetectorTypeMock, "":
		// Default to the scripted detector for dev/test environments
		return createMockDetector(cfg, ownerID), nil

	default:
		return nil, fmt.Errorf("unknown detector type: %s (supported: %s, %s)",
			cfg.DetectorType, DetectorTypeMock, DetectorTypeRekognition)
	}
}

// createRekognitionDetector pairs cloud landmark detection with the
// deterministic local descriptor source.
func createRekognitionDetector(ctx context.Context, cfg *config.Config, ownerID, imageDir string, logger *slog.Logger) (detector.Detector, error) {
	if imageDir == "" {
		return nil, fmt.Errorf("image directory is required for the rekognition detector")
	}

	source, err := rekognition.NewFileImageSource(imageDir)
	if err != nil {
		return nil, err
	}

	api, err := rekognition.NewClient(ctx, rekognition.Config{Region: cfg.AWSRegion})
	if err != nil {
		return nil, err
	}

	frames := rekognition.New(api, source, logger)
	descriptors := mock.New(
		mock.WithSeed([]byte(ownerID)),
		mock.WithDimension(cfg.DescriptorDim),
	)
	return detector.Compose(frames, descriptors, frames.Close), nil
}

// createMockDetector scripts a full liveness pass with a per-owner
// deterministic descriptor.
func createMockDetector(cfg *config.Config, ownerID string) detector.Detector {
	return mock.New(
		mock.WithFrames(mock.PassSequence()...),
		mock.WithSeed([]byte(ownerID)),
		mock.WithDimension(cfg.DescriptorDim),
	)
}
