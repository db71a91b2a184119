package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/model"
	"ai-orchestrator-be/internal/repository/implementation"
	"ai-orchestrator-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	require.NoError(t, gormDB.AutoMigrate(&model.PlanCacheEntry{}, &model.MetricBaseline{}))

	sqlDB, _ := gormDB.DB()
	assert.NoError(t, sqlDB.Ping())

	ctx := context.Background()

	t.Run("Plan Cache Append And Search", func(t *testing.T) {
		repo := implementation.NewPlanCacheRepository(gormDB)

		embedding := make([]float32, 768)
		embedding[0] = 1

		cached := &entity.CachedPlan{
			SourceRequestId: uuid.New(),
			NormalizedText:  "total revenue from 2025-01-01 to 2025-02-01",
			Plan: entity.Plan{
				Id:         uuid.New(),
				Complexity: entity.ComplexitySimple,
				Steps: []entity.Step{
					{Id: "s1", Action: "query_sales_metrics", Parameters: map[string]interface{}{"metrics": []interface{}{"revenue"}}},
				},
			},
			Intent: entity.Intent{Category: entity.IntentAnalytics, Confidence: 0.9},
		}

		err := repo.Append(ctx, uuid.New().String(), "integration-test", cached.NormalizedText, embedding, cached, 0.92)
		require.NoError(t, err)

		entries, err := repo.SearchSimilar(ctx, embedding, "integration-test", 1, 0.92)
		require.NoError(t, err)
		require.NotEmpty(t, entries)

		assert.GreaterOrEqual(t, entries[0].Similarity, 0.99, "identical vector should score ~1")
		assert.Equal(t, cached.NormalizedText, entries[0].Cached.NormalizedText)
		require.Len(t, entries[0].Cached.Plan.Steps, 1)
		assert.Equal(t, "query_sales_metrics", entries[0].Cached.Plan.Steps[0].Action)
	})

	t.Run("Baseline Record And Average", func(t *testing.T) {
		repo := implementation.NewBaselineRepository(gormDB)

		action := "it_" + uuid.New().String()[:8]
		for _, v := range []float64{90, 100, 110} {
			require.NoError(t, repo.Record(ctx, action, "revenue", v))
		}

		avg, count, err := repo.RecentAverage(ctx, action, "revenue", 20)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.InDelta(t, 100, avg, 0.001)
	})
}
