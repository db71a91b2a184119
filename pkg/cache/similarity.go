package cache

import (
	"context"
	"fmt"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/repository/contract"
	"ai-orchestrator-be/pkg/embedding"
)

// SimilarityStore finds validated plans from semantically close past
// requests. Hits reuse the plan only; steps always re-execute for freshness.
type SimilarityStore struct {
	repo      contract.PlanCacheRepository
	embedder  embedding.Provider
	threshold float64
}

func NewSimilarityStore(repo contract.PlanCacheRepository, embedder embedding.Provider, threshold float64) *SimilarityStore {
	return &SimilarityStore{
		repo:      repo,
		embedder:  embedder,
		threshold: threshold,
	}
}

// Lookup embeds the normalized text and returns the closest cached plan at
// or above the configured threshold, or (nil, 0) on a miss.
func (s *SimilarityStore) Lookup(ctx context.Context, normalizedText, routingProfile string) (*entity.CachedPlan, float64, error) {
	vector, err := s.embedder.Generate(ctx, normalizedText)
	if err != nil {
		return nil, 0, fmt.Errorf("embed query: %w", err)
	}

	entries, err := s.repo.SearchSimilar(ctx, vector, routingProfile, 1, s.threshold)
	if err != nil {
		return nil, 0, fmt.Errorf("similarity search: %w", err)
	}
	if len(entries) == 0 {
		return nil, 0, nil
	}
	return entries[0].Cached, entries[0].Similarity, nil
}

// Append stores a freshly validated plan. Entries are append-only.
func (s *SimilarityStore) Append(ctx context.Context, req *entity.Request, cached *entity.CachedPlan) error {
	vector, err := s.embedder.Generate(ctx, req.NormalizedText)
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}
	return s.repo.Append(ctx, req.Fingerprint, req.RoutingProfile, req.NormalizedText, vector, cached, s.threshold)
}
