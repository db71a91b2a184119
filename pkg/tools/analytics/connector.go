package analytics

import (
	"context"
	"fmt"
	"time"

	"ai-orchestrator-be/pkg/tools"

	"gorm.io/gorm"
)

// dimension name -> reporting table column. The plan validator guarantees
// incoming dimensions/filters are declared in the capability contract, but
// only columns listed here ever reach SQL.
var dimensionColumns = map[string]string{
	"segment": "segment",
	"region":  "region",
	"org_id":  "org_id",
}

// Connector aggregates metrics from the read-only analytics_facts table.
// It is the concrete back-end for Analytics plan steps.
type Connector struct {
	db *gorm.DB
}

func NewConnector(db *gorm.DB) *Connector {
	return &Connector{db: db}
}

var _ tools.Connector = &Connector{}

// Call executes one validated aggregate query. Expected parameters:
// metrics []string, dimensions []string, filters map[string]interface{},
// limit int, from/to RFC3339 timestamps (optional).
func (c *Connector) Call(ctx context.Context, action string, parameters map[string]interface{}) (interface{}, error) {
	metrics := stringSlice(parameters["metrics"])
	if len(metrics) == 0 {
		return nil, tools.NewLogicalError(action, fmt.Errorf("no metrics requested"))
	}
	dimensions := stringSlice(parameters["dimensions"])
	limit := intValue(parameters["limit"], 100)

	selectCols := "metric, SUM(value) AS value, COUNT(*) AS samples"
	groupCols := "metric"
	for _, d := range dimensions {
		col, ok := dimensionColumns[d]
		if !ok {
			return nil, tools.NewLogicalError(action, fmt.Errorf("unknown dimension %q", d))
		}
		selectCols += ", " + col
		groupCols += ", " + col
	}

	query := c.db.WithContext(ctx).
		Table("analytics_facts").
		Select(selectCols).
		Where("metric IN ?", metrics).
		Group(groupCols).
		Limit(limit)

	if filters, ok := parameters["filters"].(map[string]interface{}); ok {
		for field, value := range filters {
			col, known := dimensionColumns[field]
			if !known {
				return nil, tools.NewLogicalError(action, fmt.Errorf("unknown filter field %q", field))
			}
			query = query.Where(fmt.Sprintf("%s = ?", col), value)
		}
	}

	if from, ok := timeValue(parameters["from"]); ok {
		query = query.Where("occurred_at >= ?", from)
	}
	if to, ok := timeValue(parameters["to"]); ok {
		query = query.Where("occurred_at < ?", to)
	}

	var rows []map[string]interface{}
	if err := query.Find(&rows).Error; err != nil {
		// Driver/connection failures are retryable; everything above this
		// point was a logical rejection.
		return nil, tools.NewTransportError(action, err)
	}

	return rows, nil
}

func stringSlice(v interface{}) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []interface{}:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func intValue(v interface{}, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return fallback
}

func timeValue(v interface{}) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
