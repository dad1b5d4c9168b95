package domain

import "math"

// FaceDescriptor is a fixed-length face embedding, produced once per
// successful liveness pass. Immutable once created.
type FaceDescriptor []float64

// Validate checks that the descriptor is non-empty and contains only
// finite values.
func (d FaceDescriptor) Validate() error {
	if len(d) == 0 {
		return ErrEmptyDescriptor
	}
	for _, v := range d {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrVectorShape
		}
	}
	return nil
}

// Clone returns an independent copy so that callers cannot mutate a
// stored descriptor through a shared backing array.
func (d FaceDescriptor) Clone() FaceDescriptor {
	if d == nil {
		return nil
	}
	out := make(FaceDescriptor, len(d))
	copy(out, d)
	return out
}
