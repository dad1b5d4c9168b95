// Package rekognition adapts AWS Rekognition face detection into a
// landmark frame source. Rekognition exposes landmark positions but no
// face embeddings, so this package only implements frame detection; pair
// it with a local descriptor source via detector.Compose.
package rekognition

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
)

// Config holds settings for the Rekognition-backed detector.
type Config struct {
	// Region is the AWS region the Rekognition calls go to (e.g. "us-east-1").
	Region string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Region: "us-east-1",
	}
}

// RekognitionAPI is the subset of the AWS Rekognition client this
// package calls. Tests substitute a mock.
type RekognitionAPI interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// NewClient builds a Rekognition client using the AWS default credential
// chain.
func NewClient(ctx context.Context, cfg Config) (RekognitionAPI, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return rekognition.NewFromConfig(awsCfg), nil
}
