package application

import "context"

// Compensation undoes one committed saga step.
type Compensation func(ctx context.Context) error

// SagaStep pairs a committed step with its inverse action.
type SagaStep struct {
	Name        string
	compensate  Compensation
	compensated bool
}

// CompensationManager records committed steps for a single saga invocation and
// unwinds them LIFO on failure. It is not safe for concurrent use; each saga
// owns its own manager.
type CompensationManager struct {
	steps []*SagaStep
}

// NewCompensationManager returns an empty manager.
func NewCompensationManager() *CompensationManager {
	return &CompensationManager{}
}

// Record appends a committed step and its compensating action.
func (m *CompensationManager) Record(name string, compensate Compensation) {
	m.steps = append(m.steps, &SagaStep{Name: name, compensate: compensate})
}

// CommitAll forgets every recorded step; the saga completed.
func (m *CompensationManager) CommitAll() {
	m.steps = nil
}

// Pending reports how many steps still await compensation.
func (m *CompensationManager) Pending() int {
	n := 0
	for _, s := range m.steps {
		if !s.compensated {
			n++
		}
	}
	return n
}

// UnwindAll runs every outstanding compensation in reverse recording order.
// It never stops at the first failure. Steps that were compensated are not
// run again, so a second call only retries what previously failed.
func (m *CompensationManager) UnwindAll(ctx context.Context) error {
	var failures []StepFailure
	for i := len(m.steps) - 1; i >= 0; i-- {
		step := m.steps[i]
		if step.compensated {
			continue
		}
		if err := step.compensate(ctx); err != nil {
			failures = append(failures, StepFailure{Step: step.Name, Err: err})
			continue
		}
		step.compensated = true
	}
	if len(failures) > 0 {
		return &CompensationFailureError{Failures: failures}
	}
	return nil
}
