package model

import (
	"time"

	"github.com/google/uuid"
)

// AnalyticsFact is one row of the read-only reporting table the analytics
// connector aggregates over. Populated by external ETL, never written here.
type AnalyticsFact struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Metric     string    `gorm:"type:varchar(128);not null;index"`
	Segment    string    `gorm:"type:varchar(128);index"`
	Region     string    `gorm:"type:varchar(128);index"`
	OrgId      string    `gorm:"type:varchar(64);not null;index"`
	Value      float64   `gorm:"not null"`
	OccurredAt time.Time `gorm:"not null;index"`
}

func (AnalyticsFact) TableName() string {
	return "analytics_facts"
}
