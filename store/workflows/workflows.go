// Workflow execution history and derived success statistics. History
// is append-then-cap per workflow, newest first.
package workflows

import (
	"context"
	"sort"
	"sync"

	"github.com/argussoc/console/api"
	"github.com/argussoc/console/comms"
	"github.com/argussoc/console/config"
	"github.com/argussoc/console/json"
	"github.com/argussoc/console/logging"
	"github.com/argussoc/console/models"
	"github.com/argussoc/console/store"
)

const (
	DefaultHistoryLimit = 10
)

// Derived from terminal "completed" executions only - pending,
// running and failed runs do not participate in the rate.
type ExecutionStats struct {
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

type WorkflowStore struct {
	mu sync.Mutex

	config_obj *config.Config
	logger     *logging.LogContext
	client     api.Client

	// workflow id -> executions, newest first, capped.
	history  map[string][]*models.WorkflowExecution
	max_size int

	last_error *store.StoreError
}

func NewWorkflowStore(config_obj *config.Config, client api.Client) *WorkflowStore {
	return &WorkflowStore{
		config_obj: config_obj,
		logger:     logging.GetLogger(config_obj, &logging.StoreComponent),
		client:     client,
		history:    make(map[string][]*models.WorkflowExecution),
		max_size:   config_obj.Client.WorkflowHistorySize,
	}
}

// Trigger a run through the API and record the pending execution.
func (self *WorkflowStore) Trigger(ctx context.Context, workflow_id string) (
	*models.WorkflowExecution, error) {

	execution, err := self.client.TriggerWorkflow(ctx, workflow_id)
	if err != nil {
		self.mu.Lock()
		self.last_error = store.NewStoreError(err)
		self.mu.Unlock()
		return nil, err
	}

	self.RecordExecution(execution)
	return execution, nil
}

// Insert or replace an execution in its workflow's history, keeping
// newest-first order by trigger timestamp and the configured cap.
func (self *WorkflowStore) RecordExecution(execution *models.WorkflowExecution) {
	self.mu.Lock()
	defer self.mu.Unlock()

	execution = execution.Copy()
	history := self.history[execution.WorkflowId]

	replaced := false
	for idx, existing := range history {
		if existing.Id == execution.Id {
			history[idx] = execution
			replaced = true
			break
		}
	}
	if !replaced {
		history = append(history, execution)
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].TriggeredAt.After(history[j].TriggeredAt)
	})

	if len(history) > self.max_size {
		history = history[:self.max_size]
	}
	self.history[execution.WorkflowId] = history
}

// Step completions arrive as updates to an existing execution.
func (self *WorkflowStore) UpdateExecution(execution *models.WorkflowExecution) {
	self.RecordExecution(execution)
}

func (self *WorkflowStore) ApplyEvent(envelope *comms.Envelope) {
	execution := &models.WorkflowExecution{}
	err := json.Unmarshal(envelope.Payload, execution)
	if err != nil || execution.Id == "" || execution.WorkflowId == "" {
		self.logger.Error("WorkflowStore: dropping %v event: %v",
			envelope.Type, err)
		return
	}
	self.RecordExecution(execution)
}

// Execution history newest first, capped to limit (default 10).
func (self *WorkflowStore) History(workflow_id string, limit int) []*models.WorkflowExecution {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	history := self.history[workflow_id]
	if len(history) > limit {
		history = history[:limit]
	}

	var result []*models.WorkflowExecution
	for _, execution := range history {
		result = append(result, execution.Copy())
	}
	return result
}

func (self *WorkflowStore) GetExecutionStats(workflow_id string) ExecutionStats {
	self.mu.Lock()
	defer self.mu.Unlock()

	result := ExecutionStats{}
	for _, execution := range self.history[workflow_id] {
		if execution.Status != models.ExecutionCompleted {
			continue
		}

		result.Total++
		if execution.Succeeded() {
			result.Successful++
		} else {
			result.Failed++
		}
	}

	if result.Total > 0 {
		result.SuccessRate = float64(result.Successful) /
			float64(result.Total) * 100
	}
	return result
}

func (self *WorkflowStore) LastError() *store.StoreError {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.last_error
}

func (self *WorkflowStore) ClearError() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.last_error = nil
}
