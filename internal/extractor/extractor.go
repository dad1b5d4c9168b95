// Package extractor is the thin adapter that requests exactly one face
// descriptor from the detector once liveness completes. Its only job
// beyond orchestration is the single-flight contract: one extraction in
// flight per session, never two concurrently.
package extractor

import (
	"context"
	"sync"

	"github.com/visage-id/visage/internal/detector"
	"github.com/visage-id/visage/internal/domain"
)

type Extractor struct {
	source detector.DescriptorSource

	mu       sync.Mutex
	inFlight bool
}

func New(source detector.DescriptorSource) *Extractor {
	return &Extractor{source: source}
}

// Extract requests one descriptor from the underlying detection
// capability. A call arriving while another is in flight is rejected
// with ErrExtractionInFlight rather than queued. Failures surface as
// ErrExtractionFailed and are recoverable: the caller may retry without
// repeating the liveness gestures.
func (e *Extractor) Extract(ctx context.Context) (domain.FaceDescriptor, error) {
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return nil, domain.ErrExtractionInFlight
	}
	e.inFlight = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
	}()

	descriptor, err := e.source.Descriptor(ctx)
	if err != nil {
		return nil, domain.ErrExtractionFailed.WithError(err)
	}
	if err := descriptor.Validate(); err != nil {
		return nil, domain.ErrExtractionFailed.WithError(err)
	}
	return descriptor.Clone(), nil
}

// InFlight reports whether an extraction is currently running.
func (e *Extractor) InFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}
