package questions

import (
	"context"
	"math/rand"
	"time"

	"github.com/streetrush/backend/internal/models"
)

// RecencyWindow is how long a question stays out of rotation for a user
// after they have seen it.
const RecencyWindow = 2 * time.Hour

// Catalog is the read side of the question store used for sampling.
type Catalog interface {
	CountCandidates(ctx context.Context, userID int64, minDiff, maxDiff int, excludeSubtopic string) (int, error)
	CandidateAt(ctx context.Context, userID int64, minDiff, maxDiff int, excludeSubtopic string, offset int) (*models.QuestionView, error)
}

// Sampler picks the next question for a run: exact difficulty first, then the
// clamped one-step band around it. Selection is count-then-offset so the
// candidate set is never loaded into memory.
type Sampler struct {
	catalog Catalog
	intn    func(n int) int
}

func NewSampler(catalog Catalog) *Sampler {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Sampler{catalog: catalog, intn: rng.Intn}
}

func (s *Sampler) Sample(ctx context.Context, userID int64, difficulty int, excludeSubtopic string) (*models.QuestionView, error) {
	d := clampDifficulty(difficulty)

	q, err := s.sampleRange(ctx, userID, d, d, excludeSubtopic)
	if err != nil || q != nil {
		return q, err
	}

	// Band expansion: one step either side, no further fallback.
	minD := clampDifficulty(d - 1)
	maxD := clampDifficulty(d + 1)
	q, err = s.sampleRange(ctx, userID, minD, maxD, excludeSubtopic)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, models.ErrNoCandidates
	}
	return q, nil
}

func (s *Sampler) sampleRange(ctx context.Context, userID int64, minDiff, maxDiff int, excludeSubtopic string) (*models.QuestionView, error) {
	count, err := s.catalog.CountCandidates(ctx, userID, minDiff, maxDiff, excludeSubtopic)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	offset := s.intn(count)
	q, err := s.catalog.CandidateAt(ctx, userID, minDiff, maxDiff, excludeSubtopic, offset)
	if err != nil {
		return nil, err
	}
	if q == nil && offset > 0 {
		// The candidate set shrank between the count and the fetch. That race
		// is benign; fall back to the first remaining row.
		q, err = s.catalog.CandidateAt(ctx, userID, minDiff, maxDiff, excludeSubtopic, 0)
		if err != nil {
			return nil, err
		}
	}
	return q, nil
}

func clampDifficulty(d int) int {
	if d < models.MinDifficulty {
		return models.MinDifficulty
	}
	if d > models.MaxDifficulty {
		return models.MaxDifficulty
	}
	return d
}
