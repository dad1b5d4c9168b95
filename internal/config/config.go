package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/visage-id/visage/internal/liveness"
	"github.com/visage-id/visage/internal/matcher"
)

type Config struct {
	Environment string `envconfig:"ENV" default:"development"`

	// Database. Empty means the in-memory store; enrollments are then
	// lost on restart.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Detector
	DetectorType  string `envconfig:"DETECTOR_TYPE" default:"mock"`
	AWSRegion     string `envconfig:"AWS_REGION" default:"us-east-1"`
	DescriptorDim int    `envconfig:"DESCRIPTOR_DIM" default:"128"`

	// Liveness gates
	EyesClosedEAR  float64 `envconfig:"EYES_CLOSED_EAR" default:"0.28"`
	BlinkCooldown  int     `envconfig:"BLINK_COOLDOWN_MS" default:"1000"`
	RequiredBlinks int     `envconfig:"REQUIRED_BLINKS" default:"2"`
	HeadTilt       float64 `envconfig:"HEAD_TILT_THRESHOLD" default:"0.10"`

	// Matching
	MatchThreshold     float64 `envconfig:"MATCH_THRESHOLD" default:"0.90"`
	NearMatchThreshold float64 `envconfig:"NEAR_MATCH_THRESHOLD" default:"0.75"`
	MatchScope         string  `envconfig:"MATCH_SCOPE" default:"per-user"`

	// Session throttling. Zero disables the limiter; it also requires a
	// database, so it is off for in-memory runs regardless.
	SessionRateLimit  int `envconfig:"SESSION_RATE_LIMIT" default:"0"`
	SessionRateWindow int `envconfig:"SESSION_RATE_WINDOW_MS" default:"60000"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DetectorType {
	case "mock", "rekognition":
	default:
		return fmt.Errorf("invalid DETECTOR_TYPE %q: must be mock or rekognition", c.DetectorType)
	}

	switch matcher.Scope(c.MatchScope) {
	case matcher.ScopePerUser, matcher.ScopeGlobal:
	default:
		return fmt.Errorf("invalid MATCH_SCOPE %q: must be per-user or global", c.MatchScope)
	}

	if c.NearMatchThreshold > c.MatchThreshold {
		return fmt.Errorf("NEAR_MATCH_THRESHOLD (%v) must not exceed MATCH_THRESHOLD (%v)",
			c.NearMatchThreshold, c.MatchThreshold)
	}

	if c.DescriptorDim <= 0 {
		return fmt.Errorf("DESCRIPTOR_DIM must be positive, got %d", c.DescriptorDim)
	}

	return nil
}

// LivenessThresholds maps the env settings onto the analyzer's gates.
func (c *Config) LivenessThresholds() liveness.Thresholds {
	return liveness.Thresholds{
		EyesClosedEAR:  c.EyesClosedEAR,
		BlinkCooldown:  time.Duration(c.BlinkCooldown) * time.Millisecond,
		RequiredBlinks: c.RequiredBlinks,
		HeadTilt:       c.HeadTilt,
	}
}

// MatcherThresholds maps the env settings onto the matcher's decision
// boundaries.
func (c *Config) MatcherThresholds() matcher.Thresholds {
	return matcher.Thresholds{
		Match:     c.MatchThreshold,
		NearMatch: c.NearMatchThreshold,
	}
}

func (c *Config) Scope() matcher.Scope {
	return matcher.Scope(c.MatchScope)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
