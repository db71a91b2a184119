package implementation

import (
	"context"

	"ai-orchestrator-be/internal/model"
	"ai-orchestrator-be/internal/repository/contract"

	"gorm.io/gorm"
)

type BaselineRepositoryImpl struct {
	db *gorm.DB
}

func NewBaselineRepository(db *gorm.DB) contract.BaselineRepository {
	return &BaselineRepositoryImpl{db: db}
}

func (r *BaselineRepositoryImpl) Record(ctx context.Context, action, metric string, value float64) error {
	m := &model.MetricBaseline{
		Action: action,
		Metric: metric,
		Value:  value,
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *BaselineRepositoryImpl) RecentAverage(ctx context.Context, action, metric string, window int) (float64, int, error) {
	if window <= 0 {
		window = 20
	}

	type result struct {
		Avg   float64
		Count int
	}
	var res result

	// Average over the newest `window` observations only.
	sub := r.db.WithContext(ctx).
		Model(&model.MetricBaseline{}).
		Select("value").
		Where("action = ? AND metric = ?", action, metric).
		Order("observed_at DESC").
		Limit(window)

	err := r.db.WithContext(ctx).
		Table("(?) as recent", sub).
		Select("COALESCE(AVG(value), 0) as avg, COUNT(*) as count").
		Scan(&res).Error
	if err != nil {
		return 0, 0, err
	}
	return res.Avg, res.Count, nil
}
