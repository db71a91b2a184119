package entity

import (
	"time"

	"github.com/google/uuid"
)

type PlanComplexity string

const (
	ComplexitySimple  PlanComplexity = "SIMPLE"
	ComplexityComplex PlanComplexity = "COMPLEX"
)

// Plan is a DAG of tool steps describing how to answer a request.
type Plan struct {
	Id         uuid.UUID
	Complexity PlanComplexity
	Steps      []Step
}

// Step is one unit of work: a single connector call with its dependencies.
type Step struct {
	Id         string
	Action     string
	Parameters map[string]interface{}
	DependsOn  []string
}

type StepStatus string

const (
	StepSuccess   StepStatus = "SUCCESS"
	StepEmpty     StepStatus = "EMPTY"
	StepAnomalous StepStatus = "ANOMALOUS"
	StepError     StepStatus = "ERROR"
)

// StepResult carries the opaque payload of one executed step.
// AttemptNumber is 2 only when the result validator re-ran a fallback step.
type StepResult struct {
	StepId        string
	Status        StepStatus
	Payload       interface{}
	Duration      time.Duration
	AttemptNumber int
	Error         string
}
