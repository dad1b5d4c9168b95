package matcher

import (
	"fmt"
	"math"

	"github.com/visage-id/visage/internal/domain"
)

// CosineSimilarity calculates the similarity between two descriptors,
// clamped to [0, 1] so opposite vectors never surface as negative.
// Mismatched lengths or non-finite components return ErrVectorShape; a
// zero-norm vector yields similarity 0 without error, since a zero
// vector cannot match anything.
func CosineSimilarity(a, b domain.FaceDescriptor) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, domain.ErrVectorShape.WithError(fmt.Errorf("empty vector (%d, %d)", len(a), len(b)))
	}
	if len(a) != len(b) {
		return 0, domain.ErrVectorShape.WithError(fmt.Errorf("length mismatch (%d vs %d)", len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		if !finite(a[i]) || !finite(b[i]) {
			return 0, domain.ErrVectorShape.WithError(fmt.Errorf("non-finite component at index %d", i))
		}
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0, nil
	}
	if sim > 1 {
		return 1, nil
	}
	return sim, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
