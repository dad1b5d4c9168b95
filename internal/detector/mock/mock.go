// Package mock implementa detector.Detector para testes e desenvolvimento.
// Frames are scripted and descriptors are derived deterministically from a
// seed, so the same seed always produces the same identity.
package mock

import (
	"context"
	"crypto/sha256"
	"errors"
	"math"
	"sync"

	"github.com/visage-id/visage/internal/detector"
	"github.com/visage-id/visage/internal/domain"
)

// DescriptorDimension is the embedding length produced by the mock,
// matching the 128-dimensional descriptors of common landmark models.
const DescriptorDimension = 128

// ErrClosed is returned after Close has released the detector.
var ErrClosed = errors.New("mock detector closed")

// Detector replays a scripted frame sequence and serves deterministic
// descriptors.
type Detector struct {
	mu            sync.Mutex
	frames        []*detector.Frame
	idx           int
	seed          []byte
	dim           int
	descriptorErr error
	closed        bool
}

// Option configures the mock detector.
type Option func(*Detector)

// WithFrames sets the scripted frame sequence. Once exhausted the last
// frame is repeated.
func WithFrames(frames ...*detector.Frame) Option {
	return func(d *Detector) { d.frames = frames }
}

// WithSeed sets the identity seed the descriptor is derived from.
func WithSeed(seed []byte) Option {
	return func(d *Detector) { d.seed = seed }
}

// WithDimension overrides the descriptor length.
func WithDimension(dim int) Option {
	return func(d *Detector) { d.dim = dim }
}

// WithDescriptorError makes every Descriptor call fail, simulating a
// face lost right at the completion frame.
func WithDescriptorError(err error) Option {
	return func(d *Detector) { d.descriptorErr = err }
}

// New cria uma nova instância do mock detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		seed: []byte("mock-identity"),
		dim:  DescriptorDimension,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NextFrame returns the next scripted frame.
func (d *Detector) NextFrame(ctx context.Context) (*detector.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if len(d.frames) == 0 {
		return NoFaceFrame(), nil
	}
	f := d.frames[d.idx]
	if d.idx < len(d.frames)-1 {
		d.idx++
	}
	return f, nil
}

// Descriptor gera um descritor determinístico a partir do seed.
func (d *Detector) Descriptor(ctx context.Context) (domain.FaceDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if d.descriptorErr != nil {
		return nil, d.descriptorErr
	}
	return GenerateDescriptor(d.seed, d.dim), nil
}

// Close releases the detector. Further calls fail with ErrClosed.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (d *Detector) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// GenerateDescriptor derives a unit-norm descriptor from a seed by
// expanding its hash, the same trick the mock uses for embeddings.
func GenerateDescriptor(seed []byte, dim int) domain.FaceDescriptor {
	hash := sha256.Sum256(seed)
	descriptor := make(domain.FaceDescriptor, dim)
	hashLen := len(hash)

	for i := 0; i < dim; i++ {
		// Re-hash every block so the expansion does not just repeat the
		// same 32 values.
		if i > 0 && i%hashLen == 0 {
			hash = sha256.Sum256(hash[:])
		}
		descriptor[i] = (float64(hash[i%hashLen])/255.0)*2 - 1
	}

	var norm float64
	for _, v := range descriptor {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return descriptor
	}
	for i := range descriptor {
		descriptor[i] /= norm
	}
	return descriptor
}

var _ detector.Detector = (*Detector)(nil)
