package implementation

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/model"
	"ai-orchestrator-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PlanCacheRepositoryImpl struct {
	db *gorm.DB
}

func NewPlanCacheRepository(db *gorm.DB) contract.PlanCacheRepository {
	return &PlanCacheRepositoryImpl{db: db}
}

func (r *PlanCacheRepositoryImpl) Append(ctx context.Context, fingerprint, routingProfile, normalizedText string, embedding []float32, cached *entity.CachedPlan, threshold float64) error {
	payload, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal cached plan: %w", err)
	}

	m := &model.PlanCacheEntry{
		Fingerprint:    fingerprint,
		RoutingProfile: routingProfile,
		NormalizedText: normalizedText,
		Embedding:      pgvector.NewVector(embedding),
		Plan:           datatypes.JSON(payload),
		Threshold:      threshold,
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *PlanCacheRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, routingProfile string, limit int, threshold float64) ([]*contract.ScoredPlanEntry, error) {
	if limit <= 0 {
		limit = 1
	}

	// Cosine distance in pgvector is: 1 - cosine_similarity
	// So we compute: 1 - (embedding <=> query_vector) = cosine_similarity
	type result struct {
		model.PlanCacheEntry
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("plan_cache_entries").
		Select("plan_cache_entries.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("routing_profile = ?", routingProfile).
		Where("1 - (embedding <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	entries := make([]*contract.ScoredPlanEntry, 0, len(results))
	for _, res := range results {
		var cached entity.CachedPlan
		if err := json.Unmarshal(res.Plan, &cached); err != nil {
			// A corrupt row must not break lookups; skip it.
			continue
		}
		entries = append(entries, &contract.ScoredPlanEntry{
			Cached:     &cached,
			Similarity: res.Similarity,
		})
	}
	return entries, nil
}

func (r *PlanCacheRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PlanCacheEntry{}).Count(&count).Error
	return count, err
}
