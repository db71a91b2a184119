package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// PlanCacheEntry is one append-only row of the similarity cache: the
// normalized request text, its embedding, and the validated plan it produced.
type PlanCacheEntry struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Fingerprint    string          `gorm:"type:varchar(64);not null;index"`
	RoutingProfile string          `gorm:"type:varchar(64);not null;index"`
	NormalizedText string          `gorm:"type:text;not null"`
	Embedding      pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text uses 768 dimensions
	Plan           datatypes.JSON  `gorm:"type:jsonb;not null"`
	Threshold      float64         `gorm:"not null"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (PlanCacheEntry) TableName() string {
	return "plan_cache_entries"
}
