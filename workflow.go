package sparkbatch

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// StepStatus is the terminal status of a step or workflow.
type StepStatus int

const (
	StatusCompleted StepStatus = iota
	StatusFailed
)

func (s StepStatus) String() string {
	if s == StatusCompleted {
		return "COMPLETED"
	}
	return "FAILED"
}

// StepResult is the outcome of a single step.
type StepResult struct {
	Status     StepStatus
	Kind       ErrorKind // failure classification, meaningful when Status is StatusFailed
	Diagnostic string
}

// Completed returns a successful StepResult.
func Completed() StepResult {
	return StepResult{Status: StatusCompleted}
}

// Failed returns a failed StepResult with the given classification.
func Failed(kind ErrorKind, diagnostic string) StepResult {
	return StepResult{
		Status:     StatusFailed,
		Kind:       kind,
		Diagnostic: diagnostic,
	}
}

func failedErr(err error, fallback ErrorKind) StepResult {
	return StepResult{
		Status:     StatusFailed,
		Kind:       errorKind(err, fallback),
		Diagnostic: err.Error(),
	}
}

// Tasklet is a single orchestrated unit of work within a workflow
// step. Execute blocks for the lifetime of the work and never panics
// across the step boundary.
type Tasklet interface {
	Execute() StepResult
}

// TaskletFunc adapts a plain function to the Tasklet interface.
type TaskletFunc func() StepResult

func (f TaskletFunc) Execute() StepResult {
	return f()
}

// Step is a named unit of a workflow.
type Step struct {
	Name    string
	Tasklet Tasklet
}

// StepOutcome records the result of one executed step.
type StepOutcome struct {
	Name   string
	Result StepResult
}

// WorkflowRun is the record of one workflow invocation. It lives only
// for the invoking process, nothing is persisted.
type WorkflowRun struct {
	ID     string
	Start  time.Time
	Steps  []StepOutcome
	Status StepStatus
}

// Diagnostic returns the diagnostic of the first failed step, if any.
func (w *WorkflowRun) Diagnostic() string {
	for _, step := range w.Steps {
		if step.Result.Status == StatusFailed {
			return step.Result.Diagnostic
		}
	}
	return ""
}

// runWorkflow executes steps strictly in order on the calling
// goroutine. It stops at the first failed step, later steps are never
// invoked. The terminal status is COMPLETED only if every step
// completed. onStep, if non-nil, observes each executed step.
func runWorkflow(id string, steps []Step, onStep func(name string, result StepResult)) *WorkflowRun {
	run := &WorkflowRun{
		ID:     id,
		Start:  time.Now(),
		Steps:  make([]StepOutcome, 0, len(steps)),
		Status: StatusCompleted,
	}

	for _, step := range steps {
		log.Infof("Starting step %s", step.Name)
		result := step.Tasklet.Execute()
		run.Steps = append(run.Steps, StepOutcome{Name: step.Name, Result: result})

		if onStep != nil {
			onStep(step.Name, result)
		}

		if result.Status == StatusFailed {
			log.Errorf("Step %s failed (%s): %s", step.Name, result.Kind, result.Diagnostic)
			run.Status = StatusFailed
			break
		}
		log.Infof("Step %s completed", step.Name)
	}

	return run
}
