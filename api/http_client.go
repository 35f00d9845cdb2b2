package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Velocidex/ttlcache/v2"
	"github.com/pkg/errors"

	"github.com/argussoc/console/config"
	"github.com/argussoc/console/json"
	"github.com/argussoc/console/logging"
	"github.com/argussoc/console/models"
)

const (
	auditCacheTTL = 30 * time.Second
)

// List responses arrive as {items, total} envelopes.
type listEnvelope struct {
	Items json.RawMessage `json:"items"`
	Total int             `json:"total"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HTTPClient struct {
	mu sync.Mutex

	config_obj *config.Config
	logger     *logging.LogContext
	client     *http.Client
	base_url   string
	token      string

	// Audit pages are read heavy and append only on the server, so
	// a short TTL cache keeps table scrolling cheap.
	audit_lru *ttlcache.Cache
}

func NewHTTPClient(config_obj *config.Config) *HTTPClient {
	result := &HTTPClient{
		config_obj: config_obj,
		logger:     logging.GetLogger(config_obj, &logging.APIComponent),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		base_url:  strings.TrimSuffix(config_obj.Client.APIUrl, "/"),
		audit_lru: ttlcache.NewCache(),
	}
	_ = result.audit_lru.SetTTL(auditCacheTTL)
	return result
}

func (self *HTTPClient) Close() error {
	return self.audit_lru.Close()
}

func (self *HTTPClient) SetToken(token string) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.token = token
}

func (self *HTTPClient) getToken() string {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.token
}

func (self *HTTPClient) do(ctx context.Context,
	method, path string, query url.Values,
	body interface{}) ([]byte, error) {

	var reader io.Reader
	if body != nil {
		serialized, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "serializing request")
		}
		reader = bytes.NewReader(serialized)
	}

	endpoint := self.base_url + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if token := self.getToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := self.client.Do(req)
	if err != nil {
		return nil, &APIError{
			Code:    "NETWORK_ERROR",
			Message: err.Error(),
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The server sends structured errors where it can; fall
		// back on the HTTP status.
		envelope := &errorEnvelope{}
		if json.Unmarshal(data, envelope) == nil && envelope.Code != "" {
			return nil, &APIError{
				Code:    envelope.Code,
				Message: envelope.Message,
			}
		}
		return nil, &APIError{
			Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: resp.Status,
		}
	}

	return data, nil
}

func buildQuery(query Query) url.Values {
	values := url.Values{}
	values.Set("page", strconv.Itoa(query.Page))
	values.Set("page_size", strconv.Itoa(query.PageSize))
	if query.Sort != "" {
		values.Set("sort", query.Sort)
	}
	for k, v := range query.Filter {
		values.Set(k, v)
	}
	return values
}

func (self *HTTPClient) ListAlerts(ctx context.Context, query Query) (
	[]*models.AlertRecord, int, error) {

	data, err := self.do(ctx, "GET", "/alerts", buildQuery(query), nil)
	if err != nil {
		return nil, 0, err
	}

	envelope := &listEnvelope{}
	err = json.Unmarshal(data, envelope)
	if err != nil {
		return nil, 0, errors.Wrap(err, "decoding alert list")
	}

	var items []*models.AlertRecord
	err = json.Unmarshal(envelope.Items, &items)
	if err != nil {
		return nil, 0, errors.Wrap(err, "decoding alert list")
	}
	return items, envelope.Total, nil
}

func (self *HTTPClient) GetAlert(ctx context.Context, id string) (
	*models.AlertRecord, error) {

	data, err := self.do(ctx, "GET", "/alerts/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}

	result := &models.AlertRecord{}
	err = json.Unmarshal(data, result)
	if err != nil {
		return nil, errors.Wrap(err, "decoding alert")
	}
	return result, nil
}

func (self *HTTPClient) UpdateAlert(ctx context.Context, id string,
	fields map[string]interface{}) (*models.AlertRecord, error) {

	data, err := self.do(ctx, "PATCH",
		"/alerts/"+url.PathEscape(id), nil, fields)
	if err != nil {
		return nil, err
	}

	result := &models.AlertRecord{}
	err = json.Unmarshal(data, result)
	if err != nil {
		return nil, errors.Wrap(err, "decoding alert")
	}
	return result, nil
}

func (self *HTTPClient) ChangeStatus(ctx context.Context, id string,
	status models.AlertStatus, notes string) (*models.AlertRecord, error) {

	body := map[string]interface{}{
		"status": status,
		"notes":  notes,
	}
	data, err := self.do(ctx, "POST",
		"/alerts/"+url.PathEscape(id)+"/status", nil, body)
	if err != nil {
		return nil, err
	}

	result := &models.AlertRecord{}
	err = json.Unmarshal(data, result)
	if err != nil {
		return nil, errors.Wrap(err, "decoding alert")
	}
	return result, nil
}

func (self *HTTPClient) AddNote(ctx context.Context, id, text string) (
	*models.AuditEntry, error) {

	body := map[string]interface{}{
		"text": text,
	}
	data, err := self.do(ctx, "POST",
		"/alerts/"+url.PathEscape(id)+"/notes", nil, body)
	if err != nil {
		return nil, err
	}

	result := &models.AuditEntry{}
	err = json.Unmarshal(data, result)
	if err != nil {
		return nil, errors.Wrap(err, "decoding audit entry")
	}
	return result, nil
}

func (self *HTTPClient) ListAudit(ctx context.Context, query Query) (
	[]*models.AuditEntry, int, error) {

	type auditPage struct {
		items []*models.AuditEntry
		total int
	}

	key := query.String()
	cached, err := self.audit_lru.Get(key)
	if err == nil {
		page := cached.(*auditPage)
		return page.items, page.total, nil
	}

	data, err := self.do(ctx, "GET", "/audit", buildQuery(query), nil)
	if err != nil {
		return nil, 0, err
	}

	envelope := &listEnvelope{}
	err = json.Unmarshal(data, envelope)
	if err != nil {
		return nil, 0, errors.Wrap(err, "decoding audit list")
	}

	var items []*models.AuditEntry
	err = json.Unmarshal(envelope.Items, &items)
	if err != nil {
		return nil, 0, errors.Wrap(err, "decoding audit list")
	}

	_ = self.audit_lru.Set(key, &auditPage{items: items, total: envelope.Total})
	return items, envelope.Total, nil
}

func (self *HTTPClient) ListQuarantine(ctx context.Context, query Query) (
	[]*models.QuarantinedMessage, int, error) {

	data, err := self.do(ctx, "GET", "/quarantine", buildQuery(query), nil)
	if err != nil {
		return nil, 0, err
	}

	envelope := &listEnvelope{}
	err = json.Unmarshal(data, envelope)
	if err != nil {
		return nil, 0, errors.Wrap(err, "decoding quarantine list")
	}

	var items []*models.QuarantinedMessage
	err = json.Unmarshal(envelope.Items, &items)
	if err != nil {
		return nil, 0, errors.Wrap(err, "decoding quarantine list")
	}
	return items, envelope.Total, nil
}

func (self *HTTPClient) ReleaseMessage(ctx context.Context, id string) error {
	_, err := self.do(ctx, "POST",
		"/quarantine/"+url.PathEscape(id)+"/release", nil, nil)
	return err
}

func (self *HTTPClient) DeleteMessage(ctx context.Context, id string) error {
	_, err := self.do(ctx, "DELETE",
		"/quarantine/"+url.PathEscape(id), nil, nil)
	return err
}

func (self *HTTPClient) TriggerWorkflow(ctx context.Context, workflow_id string) (
	*models.WorkflowExecution, error) {

	data, err := self.do(ctx, "POST",
		"/workflows/"+url.PathEscape(workflow_id)+"/trigger", nil, nil)
	if err != nil {
		return nil, err
	}

	result := &models.WorkflowExecution{}
	err = json.Unmarshal(data, result)
	if err != nil {
		return nil, errors.Wrap(err, "decoding execution")
	}
	return result, nil
}
