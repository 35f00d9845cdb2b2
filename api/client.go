package api

import (
	"context"
	"fmt"

	"github.com/argussoc/console/models"
)

// Paging and filtering parameters accepted by all list endpoints.
type Query struct {
	Page     int
	PageSize int
	Sort     string

	// Server side filters, passed through verbatim.
	Filter map[string]string
}

func (self Query) String() string {
	return fmt.Sprintf("page=%d&page_size=%d&sort=%s&filter=%v",
		self.Page, self.PageSize, self.Sort, self.Filter)
}

// A structured error surfaced by the REST layer. Stores copy the
// code and message into their own error slot so the GUI can show a
// dismissible notification.
type APIError struct {
	Code    string
	Message string
}

func (self *APIError) Error() string {
	return fmt.Sprintf("%s: %s", self.Code, self.Message)
}

// The REST collaborator surface consumed by the stores. Implemented
// over HTTP below; tests substitute their own.
type Client interface {
	SetToken(token string)
	Close() error

	ListAlerts(ctx context.Context, query Query) ([]*models.AlertRecord, int, error)
	GetAlert(ctx context.Context, id string) (*models.AlertRecord, error)
	UpdateAlert(ctx context.Context, id string,
		fields map[string]interface{}) (*models.AlertRecord, error)
	ChangeStatus(ctx context.Context, id string,
		status models.AlertStatus, notes string) (*models.AlertRecord, error)
	AddNote(ctx context.Context, id, text string) (*models.AuditEntry, error)

	ListAudit(ctx context.Context, query Query) ([]*models.AuditEntry, int, error)

	ListQuarantine(ctx context.Context, query Query) ([]*models.QuarantinedMessage, int, error)
	ReleaseMessage(ctx context.Context, id string) error
	DeleteMessage(ctx context.Context, id string) error

	TriggerWorkflow(ctx context.Context, workflow_id string) (*models.WorkflowExecution, error)
}
