package models

import "time"

type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// Terminal states do not transition further.
func (self ExecutionStatus) IsTerminal() bool {
	return self == ExecutionCompleted || self == ExecutionFailed
}

type StepResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
}

// One run instance of an automation definition.
type WorkflowExecution struct {
	Id          string          `json:"id"`
	WorkflowId  string          `json:"workflow_id"`
	TriggeredAt time.Time       `json:"triggered_at"`
	Status      ExecutionStatus `json:"status"`
	Steps       []*StepResult   `json:"steps,omitempty"`
}

// An execution succeeded only if every step reported success.
func (self *WorkflowExecution) Succeeded() bool {
	for _, step := range self.Steps {
		if !step.Success {
			return false
		}
	}
	return true
}

func (self *WorkflowExecution) Copy() *WorkflowExecution {
	result := *self
	result.Steps = append([]*StepResult{}, self.Steps...)
	return &result
}
