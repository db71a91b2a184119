package model

import (
	"time"

	"github.com/google/uuid"
)

// MetricBaseline records one observed magnitude for an (action, metric) pair.
// The result validator compares fresh values against a rolling window of these.
type MetricBaseline struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Action     string    `gorm:"type:varchar(128);not null;index:idx_baseline_key"`
	Metric     string    `gorm:"type:varchar(128);not null;index:idx_baseline_key"`
	Value      float64   `gorm:"not null"`
	ObservedAt time.Time `gorm:"autoCreateTime;index"`
}

func (MetricBaseline) TableName() string {
	return "metric_baselines"
}
