package resultcheck

import (
	"context"
	"fmt"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/repository/contract"
	"ai-orchestrator-be/pkg/capability"
)

// StatisticalPolicy is the default anomaly rule:
//   - empty payload where the contract declares non-empty expected
//   - malformed rows (schema mismatch against the tabular result shape)
//   - total magnitude deviating more than deviationRatio from the rolling
//     baseline for the (action, metric) pair
//
// Baselines with fewer than minBaselineSamples observations cannot judge
// magnitude and are skipped.
type StatisticalPolicy struct {
	contract       *capability.Contract
	baselines      contract.BaselineRepository
	deviationRatio float64
	window         int
}

const minBaselineSamples = 3

func NewStatisticalPolicy(cap *capability.Contract, baselines contract.BaselineRepository, deviationRatio float64, window int) *StatisticalPolicy {
	if deviationRatio <= 1 {
		deviationRatio = 5.0
	}
	return &StatisticalPolicy{
		contract:       cap,
		baselines:      baselines,
		deviationRatio: deviationRatio,
		window:         window,
	}
}

var _ Policy = &StatisticalPolicy{}

func (p *StatisticalPolicy) Evaluate(ctx context.Context, plan *entity.Plan, results map[string]entity.StepResult) Verdict {
	for _, step := range plan.Steps {
		result, ok := results[step.Id]
		if !ok {
			continue
		}
		tool, ok := p.contract.Tool(step.Action)
		if !ok {
			continue
		}

		if result.Status == entity.StepEmpty && tool.ExpectNonEmpty {
			return Verdict{
				AnomalousStepId: step.Id,
				Reason:          "empty result where non-empty expected",
			}
		}

		if result.Status != entity.StepSuccess {
			continue
		}

		rows, ok := tabularRows(result.Payload)
		if tool.Connector == "analytics" && !ok {
			return Verdict{
				AnomalousStepId: step.Id,
				Reason:          "malformed result: expected tabular rows",
			}
		}

		if reason := p.checkMagnitude(ctx, step.Action, rows); reason != "" {
			return Verdict{AnomalousStepId: step.Id, Reason: reason}
		}
	}
	return Verdict{OK: true}
}

// checkMagnitude compares each metric's summed value against its baseline.
func (p *StatisticalPolicy) checkMagnitude(ctx context.Context, action string, rows []map[string]interface{}) string {
	totals := metricTotals(rows)
	for metric, total := range totals {
		avg, count, err := p.baselines.RecentAverage(ctx, action, metric, p.window)
		if err != nil || count < minBaselineSamples || avg == 0 {
			continue
		}
		if total > avg*p.deviationRatio || total < avg/p.deviationRatio {
			return fmt.Sprintf("metric %s magnitude %.2f deviates from baseline %.2f beyond ratio %.1f", metric, total, avg, p.deviationRatio)
		}
	}
	return ""
}

// Observe records the magnitudes of a completed request so future requests
// have a baseline. Called by the orchestrator only after Completed.
func (p *StatisticalPolicy) Observe(ctx context.Context, plan *entity.Plan, results map[string]entity.StepResult) {
	for _, step := range plan.Steps {
		result, ok := results[step.Id]
		if !ok || result.Status != entity.StepSuccess {
			continue
		}
		rows, ok := tabularRows(result.Payload)
		if !ok {
			continue
		}
		for metric, total := range metricTotals(rows) {
			// Best effort; a failed write only weakens the baseline.
			_ = p.baselines.Record(ctx, step.Action, metric, total)
		}
	}
}

// tabularRows coerces a payload into the common row shape connectors return.
func tabularRows(payload interface{}) ([]map[string]interface{}, bool) {
	switch rows := payload.(type) {
	case []map[string]interface{}:
		return rows, true
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(rows))
		for _, r := range rows {
			m, ok := r.(map[string]interface{})
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	}
	return nil, false
}

// metricTotals sums the "value" column grouped by the "metric" column.
func metricTotals(rows []map[string]interface{}) map[string]float64 {
	totals := make(map[string]float64)
	for _, row := range rows {
		metric, _ := row["metric"].(string)
		if metric == "" {
			continue
		}
		totals[metric] += numericValue(row["value"])
	}
	return totals
}

func numericValue(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
