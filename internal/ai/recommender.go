package ai

import (
	"context"

	"github.com/spigell/assessment-recommender/internal/recommendation"
)

// Recommender answers a free-text hiring query with a normalized result.
type Recommender interface {
	Recommend(ctx context.Context, query string) (*recommendation.Result, error)
}
