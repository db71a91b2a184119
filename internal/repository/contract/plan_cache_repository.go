package contract

import (
	"context"

	"ai-orchestrator-be/internal/entity"
)

// ScoredPlanEntry pairs a cached plan with its cosine similarity to a query.
type ScoredPlanEntry struct {
	Cached     *entity.CachedPlan
	Similarity float64
}

// PlanCacheRepository is the append-only similarity store for validated plans.
type PlanCacheRepository interface {
	// Append inserts one entry. Entries are never updated in place.
	Append(ctx context.Context, fingerprint, routingProfile, normalizedText string, embedding []float32, cached *entity.CachedPlan, threshold float64) error

	// SearchSimilar returns the best entries above threshold for the
	// routing profile, ordered by similarity descending.
	SearchSimilar(ctx context.Context, embedding []float32, routingProfile string, limit int, threshold float64) ([]*ScoredPlanEntry, error)

	Count(ctx context.Context) (int64, error)
}
