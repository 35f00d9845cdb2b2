package api

import (
	"context"

	"github.com/pkg/errors"

	"github.com/argussoc/console/models"
)

var (
	notImplementedError = errors.New("Not implemented")
)

// NullClient implements Client with errors everywhere. Tests embed
// it and override only the calls they exercise.
type NullClient struct{}

func (self *NullClient) SetToken(token string) {}

func (self *NullClient) Close() error { return nil }

func (self *NullClient) ListAlerts(ctx context.Context, query Query) (
	[]*models.AlertRecord, int, error) {
	return nil, 0, notImplementedError
}

func (self *NullClient) GetAlert(ctx context.Context, id string) (
	*models.AlertRecord, error) {
	return nil, notImplementedError
}

func (self *NullClient) UpdateAlert(ctx context.Context, id string,
	fields map[string]interface{}) (*models.AlertRecord, error) {
	return nil, notImplementedError
}

func (self *NullClient) ChangeStatus(ctx context.Context, id string,
	status models.AlertStatus, notes string) (*models.AlertRecord, error) {
	return nil, notImplementedError
}

func (self *NullClient) AddNote(ctx context.Context, id, text string) (
	*models.AuditEntry, error) {
	return nil, notImplementedError
}

func (self *NullClient) ListAudit(ctx context.Context, query Query) (
	[]*models.AuditEntry, int, error) {
	return nil, 0, notImplementedError
}

func (self *NullClient) ListQuarantine(ctx context.Context, query Query) (
	[]*models.QuarantinedMessage, int, error) {
	return nil, 0, notImplementedError
}

func (self *NullClient) ReleaseMessage(ctx context.Context, id string) error {
	return notImplementedError
}

func (self *NullClient) DeleteMessage(ctx context.Context, id string) error {
	return notImplementedError
}

func (self *NullClient) TriggerWorkflow(ctx context.Context, workflow_id string) (
	*models.WorkflowExecution, error) {
	return nil, notImplementedError
}
