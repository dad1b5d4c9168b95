package domain

import (
	"time"

	"github.com/google/uuid"
)

// EnrollmentRecord representa um descritor facial cadastrado para um usuário.
// Records are append-only: created at most once per successful
// new-enrollment event and never mutated afterwards.
type EnrollmentRecord struct {
	ID            uuid.UUID      `json:"id"`
	OwnerID       string         `json:"owner_id"`
	Vector        FaceDescriptor `json:"-"`
	WalletAddress string         `json:"wallet_address,omitempty"`
	CapturedAt    time.Time      `json:"captured_at"`
}

// Decision classifies the best similarity found during a match.
type Decision string

const (
	// DecisionMatch: same person returning (similarity above the match
	// threshold).
	DecisionMatch Decision = "match"
	// DecisionNearMatch: inside the gray zone between the near-match
	// floor and the match threshold. Treated as no-match for enrollment
	// purposes but surfaced distinctly for diagnostics.
	DecisionNearMatch Decision = "near_match"
	// DecisionNoMatch: clean non-match.
	DecisionNoMatch Decision = "no_match"
)

// MatchResult is the outcome of comparing a new descriptor against the
// scoped enrollment set.
type MatchResult struct {
	Matched        bool              `json:"matched"`
	BestSimilarity float64           `json:"best_similarity"`
	Decision       Decision          `json:"decision"`
	Record         *EnrollmentRecord `json:"record,omitempty"`
}
