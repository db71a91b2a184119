package validator

import (
	"fmt"
	"strings"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/pkg/capability"
)

// Rejection carries every violation found in a plan. A single violation
// rejects the whole plan; there is no partial validity.
type Rejection struct {
	PlanId     string
	Violations []string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("plan %s rejected: %s", r.PlanId, strings.Join(r.Violations, "; "))
}

// Validator is the hard gate between planning and execution. Every step is
// checked against the capability contract; mandatory filters and result
// limits are injected on the validated copy.
type Validator struct {
	contract *capability.Contract
}

func NewValidator(contract *capability.Contract) *Validator {
	return &Validator{contract: contract}
}

// Validate returns a validated copy of the plan or a *Rejection. The input
// plan is never mutated.
func (v *Validator) Validate(plan *entity.Plan) (*entity.Plan, error) {
	var violations []string

	validated := &entity.Plan{
		Id:         plan.Id,
		Complexity: plan.Complexity,
		Steps:      make([]entity.Step, len(plan.Steps)),
	}

	ids := make(map[string]bool, len(plan.Steps))
	for _, s := range plan.Steps {
		ids[s.Id] = true
	}

	for i, step := range plan.Steps {
		tool, ok := v.contract.Tool(step.Action)
		if !ok {
			violations = append(violations, fmt.Sprintf("step %s: action %q is not an allowed capability", step.Id, step.Action))
			continue
		}

		params := cloneParameters(step.Parameters)
		violations = append(violations, checkFields(step.Id, tool, params)...)
		violations = append(violations, injectMandatoryFilters(tool, params)...)
		violations = append(violations, enforceLimit(step.Id, tool, params)...)

		for _, dep := range step.DependsOn {
			if !ids[dep] {
				violations = append(violations, fmt.Sprintf("step %s: depends on unknown step %q", step.Id, dep))
			}
		}

		validated.Steps[i] = entity.Step{
			Id:         step.Id,
			Action:     step.Action,
			Parameters: params,
			DependsOn:  append([]string(nil), step.DependsOn...),
		}
	}

	if cycle := findCycle(plan.Steps); cycle != "" {
		violations = append(violations, "dependency cycle involving step "+cycle)
	}

	if len(violations) > 0 {
		return nil, &Rejection{PlanId: plan.Id.String(), Violations: violations}
	}
	return validated, nil
}

// checkFields verifies metrics/dimensions exist in the contract and that no
// denied field appears anywhere in the step.
func checkFields(stepId string, tool *capability.Tool, params map[string]interface{}) []string {
	var violations []string

	for _, m := range stringSlice(params["metrics"]) {
		if tool.IsDenied(m) {
			violations = append(violations, fmt.Sprintf("step %s: metric %q is denied", stepId, m))
		} else if !tool.HasMetric(m) {
			violations = append(violations, fmt.Sprintf("step %s: unknown metric %q", stepId, m))
		}
	}

	for _, d := range stringSlice(params["dimensions"]) {
		if tool.IsDenied(d) {
			violations = append(violations, fmt.Sprintf("step %s: dimension %q is denied", stepId, d))
		} else if !tool.HasDimension(d) {
			violations = append(violations, fmt.Sprintf("step %s: unknown dimension %q", stepId, d))
		}
	}

	if filters, ok := params["filters"].(map[string]interface{}); ok {
		for field := range filters {
			if tool.IsDenied(field) {
				violations = append(violations, fmt.Sprintf("step %s: filter field %q is denied", stepId, field))
			} else if !tool.HasDimension(field) && !isMandatoryField(tool, field) {
				violations = append(violations, fmt.Sprintf("step %s: unknown filter field %q", stepId, field))
			}
		}
	}

	return violations
}

// injectMandatoryFilters adds scoping filters the planner omitted. An
// existing filter on the same field must match the mandated value.
func injectMandatoryFilters(tool *capability.Tool, params map[string]interface{}) []string {
	if len(tool.MandatoryFilters) == 0 {
		return nil
	}

	filters, ok := params["filters"].(map[string]interface{})
	if !ok {
		filters = map[string]interface{}{}
		params["filters"] = filters
	}

	var violations []string
	for _, mf := range tool.MandatoryFilters {
		existing, present := filters[mf.Field]
		if !present {
			filters[mf.Field] = mf.Value
			continue
		}
		if fmt.Sprint(existing) != fmt.Sprint(mf.Value) {
			violations = append(violations, fmt.Sprintf("mandatory filter %s=%v overridden with %v", mf.Field, mf.Value, existing))
		}
	}
	return violations
}

// enforceLimit injects the default limit when absent and rejects limits
// over the policy maximum.
func enforceLimit(stepId string, tool *capability.Tool, params map[string]interface{}) []string {
	limit, present := intParam(params["limit"])
	if !present {
		params["limit"] = tool.DefaultLimit
		return nil
	}
	if tool.MaxLimit > 0 && limit > tool.MaxLimit {
		return []string{fmt.Sprintf("step %s: limit %d exceeds maximum %d", stepId, limit, tool.MaxLimit)}
	}
	return nil
}

// findCycle detects a cycle in depends_on via three-color DFS. Returns the
// id of one step on a cycle, or "".
func findCycle(steps []entity.Step) string {
	deps := make(map[string][]string, len(steps))
	for _, s := range steps {
		deps[s.Id] = s.DependsOn
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(steps))

	var visit func(id string) string
	visit = func(id string) string {
		color[id] = gray
		for _, dep := range deps[id] {
			switch color[dep] {
			case gray:
				return dep
			case white:
				if found := visit(dep); found != "" {
					return found
				}
			}
		}
		color[id] = black
		return ""
	}

	for _, s := range steps {
		if color[s.Id] == white {
			if found := visit(s.Id); found != "" {
				return found
			}
		}
	}
	return ""
}

func isMandatoryField(tool *capability.Tool, field string) bool {
	for _, mf := range tool.MandatoryFilters {
		if mf.Field == field {
			return true
		}
	}
	return false
}

func cloneParameters(params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		if nested, ok := v.(map[string]interface{}); ok {
			nestedCopy := make(map[string]interface{}, len(nested))
			for nk, nv := range nested {
				nestedCopy[nk] = nv
			}
			out[k] = nestedCopy
			continue
		}
		out[k] = v
	}
	return out
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

func intParam(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
