package alerts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/argussoc/console/api"
	"github.com/argussoc/console/comms"
	"github.com/argussoc/console/config"
	"github.com/argussoc/console/json"
	"github.com/argussoc/console/models"
)

// Function fields let each test script exactly the calls it
// exercises; everything else falls through to NullClient errors.
type testAPI struct {
	api.NullClient

	ListAlertsFn   func(ctx context.Context, query api.Query) ([]*models.AlertRecord, int, error)
	GetAlertFn     func(ctx context.Context, id string) (*models.AlertRecord, error)
	ChangeStatusFn func(ctx context.Context, id string, status models.AlertStatus, notes string) (*models.AlertRecord, error)
	AddNoteFn      func(ctx context.Context, id, text string) (*models.AuditEntry, error)
}

func (self *testAPI) ListAlerts(ctx context.Context, query api.Query) (
	[]*models.AlertRecord, int, error) {
	if self.ListAlertsFn != nil {
		return self.ListAlertsFn(ctx, query)
	}
	return self.NullClient.ListAlerts(ctx, query)
}

func (self *testAPI) GetAlert(ctx context.Context, id string) (
	*models.AlertRecord, error) {
	if self.GetAlertFn != nil {
		return self.GetAlertFn(ctx, id)
	}
	return self.NullClient.GetAlert(ctx, id)
}

func (self *testAPI) ChangeStatus(ctx context.Context, id string,
	status models.AlertStatus, notes string) (*models.AlertRecord, error) {
	if self.ChangeStatusFn != nil {
		return self.ChangeStatusFn(ctx, id, status, notes)
	}
	return self.NullClient.ChangeStatus(ctx, id, status, notes)
}

func (self *testAPI) AddNote(ctx context.Context, id, text string) (
	*models.AuditEntry, error) {
	if self.AddNoteFn != nil {
		return self.AddNoteFn(ctx, id, text)
	}
	return self.NullClient.AddNote(ctx, id, text)
}

func sampleAlert(id, sender, subject string, updated time.Time) *models.AlertRecord {
	return &models.AlertRecord{
		Id:        id,
		Score:     80,
		RiskLevel: models.RiskHot,
		Status:    models.StatusNew,
		Sender:    sender,
		Recipient: "soc@corp.example",
		Subject:   subject,
		UpdatedAt: updated,
	}
}

type AlertStoreTestSuite struct {
	suite.Suite

	config_obj *config.Config
	client     *testAPI
	store      *AlertStore
}

// Seed the cache through the same code path a server push would use.
func (self *AlertStoreTestSuite) applyRecord(record *models.AlertRecord) {
	serialized, err := json.Marshal(record)
	require.NoError(self.T(), err)

	self.store.ApplyEvent(&comms.Envelope{
		Type:    comms.EvAlertUpdated,
		Payload: serialized,
		AlertId: record.Id,
	})
}

func (self *AlertStoreTestSuite) SetupTest() {
	self.config_obj = config.GetDefaultConfig()
	self.client = &testAPI{}
	self.store = NewAlertStore(self.config_obj, self.client)
}

func (self *AlertStoreTestSuite) TestFetchAndPagination() {
	now := time.Unix(1700000000, 0)
	self.client.ListAlertsFn = func(ctx context.Context, query api.Query) (
		[]*models.AlertRecord, int, error) {
		return []*models.AlertRecord{
			sampleAlert("A-1", "a@x.com", "Alpha", now),
			sampleAlert("A-2", "b@y.com", "Beta", now),
		}, 41, nil
	}

	err := self.store.Fetch(context.Background(), api.Query{Page: 1, PageSize: 20})
	require.NoError(self.T(), err)

	assert.Equal(self.T(), 41, self.store.Total())
	assert.Equal(self.T(), 3, self.store.TotalPages(20))
	assert.Len(self.T(), self.store.Page(), 2)
}

func (self *AlertStoreTestSuite) TestSearchComposition() {
	now := time.Unix(1700000000, 0)
	self.applyRecord(sampleAlert("A-1", "a@x.com", "Alpha", now))
	self.applyRecord(sampleAlert("A-2", "b@y.com", "Beta", now))

	// Query "a" against the sender field matches only the first.
	result := self.store.Filtered(FilterSpec{
		Search:      "a",
		SearchField: SearchSender,
	})
	require.Len(self.T(), result, 1)
	assert.Equal(self.T(), "A-1", result[0].Id)

	// Query "beta" against all fields matches only the second.
	result = self.store.Filtered(FilterSpec{
		Search:      "beta",
		SearchField: SearchAll,
	})
	require.Len(self.T(), result, 1)
	assert.Equal(self.T(), "A-2", result[0].Id)
}

func (self *AlertStoreTestSuite) TestFilterMembershipAndSort() {
	base := time.Unix(1700000000, 0)

	older := sampleAlert("A-1", "a@x.com", "Alpha", base)
	older.RiskLevel = models.RiskCold

	newer := sampleAlert("A-2", "b@y.com", "Beta", base.Add(time.Hour))
	newer.Status = models.StatusResolved

	self.applyRecord(older)
	self.applyRecord(newer)

	result := self.store.Filtered(FilterSpec{
		RiskLevels: []models.RiskLevel{models.RiskHot},
	})
	require.Len(self.T(), result, 1)
	assert.Equal(self.T(), "A-2", result[0].Id)

	result = self.store.Filtered(FilterSpec{
		Statuses: []models.AlertStatus{models.StatusNew},
	})
	require.Len(self.T(), result, 1)
	assert.Equal(self.T(), "A-1", result[0].Id)

	// No filter: sorted by last update descending.
	result = self.store.Filtered(FilterSpec{})
	require.Len(self.T(), result, 2)
	assert.Equal(self.T(), "A-2", result[0].Id)
	assert.Equal(self.T(), "A-1", result[1].Id)
}

func (self *AlertStoreTestSuite) TestSelectUsesCacheThenFetches() {
	now := time.Unix(1700000000, 0)
	fetches := 0
	self.client.GetAlertFn = func(ctx context.Context, id string) (
		*models.AlertRecord, error) {
		fetches++
		return sampleAlert(id, "a@x.com", "Alpha", now), nil
	}

	item, err := self.store.Select(context.Background(), "A-1")
	require.NoError(self.T(), err)
	assert.Equal(self.T(), "A-1", item.Id)
	assert.Equal(self.T(), 1, fetches)

	// Second select is served from the cache.
	_, err = self.store.Select(context.Background(), "A-1")
	require.NoError(self.T(), err)
	assert.Equal(self.T(), 1, fetches)
}

// Applying the same status change twice ends with the same status;
// audit history legitimately grows because the server owns it.
func (self *AlertStoreTestSuite) TestChangeStatusIdempotentOnStatus() {
	now := time.Unix(1700000000, 0)
	self.applyRecord(sampleAlert("A-1", "a@x.com", "Alpha", now))

	history_len := 0
	self.client.ChangeStatusFn = func(ctx context.Context, id string,
		status models.AlertStatus, notes string) (*models.AlertRecord, error) {

		record := sampleAlert(id, "a@x.com", "Alpha", now)
		record.Status = status
		history_len++
		for i := 0; i < history_len; i++ {
			record.History = append(record.History, &models.AuditEntry{
				AlertId: id,
				Action:  "status_change",
				Details: notes,
			})
		}
		return record, nil
	}

	ctx := context.Background()
	err := self.store.ChangeStatus(ctx, "A-1", models.StatusResolved, "x")
	require.NoError(self.T(), err)
	err = self.store.ChangeStatus(ctx, "A-1", models.StatusResolved, "x")
	require.NoError(self.T(), err)

	item, pres := self.store.Get("A-1")
	require.True(self.T(), pres)
	assert.Equal(self.T(), models.StatusResolved, item.Status)
	assert.Len(self.T(), item.History, 2)
}

func (self *AlertStoreTestSuite) TestAddNotesAppendsAuditEntry() {
	now := time.Unix(1700000000, 0)
	self.applyRecord(sampleAlert("A-1", "a@x.com", "Alpha", now))

	self.client.AddNoteFn = func(ctx context.Context, id, text string) (
		*models.AuditEntry, error) {
		return &models.AuditEntry{
			Id:      "audit-1",
			AlertId: id,
			Action:  "note",
			Details: text,
		}, nil
	}

	err := self.store.AddNotes(context.Background(), "A-1", "looked at headers")
	require.NoError(self.T(), err)

	item, _ := self.store.Get("A-1")
	require.Len(self.T(), item.History, 1)
	assert.Equal(self.T(), "note", item.History[0].Action)
}

// Failed actions capture a structured error and leave the cache
// untouched.
func (self *AlertStoreTestSuite) TestErrorsPreserveState() {
	now := time.Unix(1700000000, 0)
	self.applyRecord(sampleAlert("A-1", "a@x.com", "Alpha", now))

	self.client.ChangeStatusFn = func(ctx context.Context, id string,
		status models.AlertStatus, notes string) (*models.AlertRecord, error) {
		return nil, &api.APIError{Code: "HTTP_500", Message: "boom"}
	}

	err := self.store.ChangeStatus(
		context.Background(), "A-1", models.StatusResolved, "x")
	require.Error(self.T(), err)

	item, pres := self.store.Get("A-1")
	require.True(self.T(), pres)
	assert.Equal(self.T(), models.StatusNew, item.Status)

	store_err := self.store.LastError()
	require.NotNil(self.T(), store_err)
	assert.Equal(self.T(), "HTTP_500", store_err.Code)

	self.store.ClearError()
	assert.Nil(self.T(), self.store.LastError())
}

// Two in-flight fetches are not coalesced: whichever response lands
// last wins, regardless of issue order. This is the documented
// accept-last-writer policy.
func (self *AlertStoreTestSuite) TestConcurrentFetchLastResponseWins() {
	now := time.Unix(1700000000, 0)

	release_page1 := make(chan struct{})
	release_page2 := make(chan struct{})

	self.client.ListAlertsFn = func(ctx context.Context, query api.Query) (
		[]*models.AlertRecord, int, error) {
		switch query.Page {
		case 1:
			<-release_page1
			return []*models.AlertRecord{
				sampleAlert("A-1", "a@x.com", "Alpha", now),
			}, 1, nil
		default:
			<-release_page2
			return []*models.AlertRecord{
				sampleAlert("A-2", "b@y.com", "Beta", now),
			}, 2, nil
		}
	}

	var wg sync.WaitGroup
	ctx := context.Background()

	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = self.store.Fetch(ctx, api.Query{Page: 1, PageSize: 20})
	}()
	go func() {
		defer wg.Done()
		_ = self.store.Fetch(ctx, api.Query{Page: 2, PageSize: 20})
	}()

	// Page 2 resolves first, then the older page 1 response lands
	// last and overwrites it.
	close(release_page2)
	time.Sleep(10 * time.Millisecond)
	close(release_page1)
	wg.Wait()

	page := self.store.Page()
	require.Len(self.T(), page, 1)
	assert.Equal(self.T(), "A-1", page[0].Id)
	assert.Equal(self.T(), 1, self.store.Total())
}

// The store owns the only live instance of each record. Every read
// path hands out a copy, so callers can not reach back into the
// cache.
func (self *AlertStoreTestSuite) TestReadPathsReturnCopies() {
	now := time.Unix(1700000000, 0)
	self.client.ListAlertsFn = func(ctx context.Context, query api.Query) (
		[]*models.AlertRecord, int, error) {
		return []*models.AlertRecord{
			sampleAlert("A-1", "a@x.com", "Alpha", now),
		}, 1, nil
	}
	require.NoError(self.T(),
		self.store.Fetch(context.Background(), api.Query{Page: 1, PageSize: 20}))

	item, pres := self.store.Get("A-1")
	require.True(self.T(), pres)
	item.Status = models.StatusResolved
	item.History = append(item.History, &models.AuditEntry{Action: "bogus"})

	stored, _ := self.store.Get("A-1")
	assert.Equal(self.T(), models.StatusNew, stored.Status)
	assert.Len(self.T(), stored.History, 0)

	self.store.Page()[0].Subject = "tampered"
	assert.Equal(self.T(), "Alpha", self.store.Page()[0].Subject)

	self.store.Filtered(FilterSpec{})[0].Notes = "tampered"
	stored, _ = self.store.Get("A-1")
	assert.Equal(self.T(), "", stored.Notes)

	selected, err := self.store.Select(context.Background(), "A-1")
	require.NoError(self.T(), err)
	selected.Sender = "tampered"
	stored, _ = self.store.Get("A-1")
	assert.Equal(self.T(), "a@x.com", stored.Sender)
}

// A reader iterating the history of a previously returned record
// must not observe concurrent note appends.
func (self *AlertStoreTestSuite) TestConcurrentReadsAndNoteAppends() {
	now := time.Unix(1700000000, 0)
	self.applyRecord(sampleAlert("A-1", "a@x.com", "Alpha", now))

	self.client.AddNoteFn = func(ctx context.Context, id, text string) (
		*models.AuditEntry, error) {
		return &models.AuditEntry{
			AlertId: id,
			Action:  "note",
			Details: text,
		}, nil
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			err := self.store.AddNotes(
				context.Background(), "A-1", "looked again")
			require.NoError(self.T(), err)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			item, pres := self.store.Get("A-1")
			if !pres {
				continue
			}
			for _, entry := range item.History {
				_ = entry.Action
			}
		}
	}()

	wg.Wait()

	item, _ := self.store.Get("A-1")
	assert.Len(self.T(), item.History, 200)
}

func (self *AlertStoreTestSuite) TestRemoveAndClear() {
	now := time.Unix(1700000000, 0)
	self.applyRecord(sampleAlert("A-1", "a@x.com", "Alpha", now))
	self.applyRecord(sampleAlert("A-2", "b@y.com", "Beta", now))

	self.store.Remove("A-1")
	_, pres := self.store.Get("A-1")
	assert.False(self.T(), pres)

	self.store.Clear()
	assert.Len(self.T(), self.store.Filtered(FilterSpec{}), 0)
	assert.Equal(self.T(), 0, self.store.Total())
}

func (self *AlertStoreTestSuite) TestFailingFetchFallsThrough() {
	errs := errors.New("network down")
	self.client.ListAlertsFn = func(ctx context.Context, query api.Query) (
		[]*models.AlertRecord, int, error) {
		return nil, 0, errs
	}

	err := self.store.Fetch(context.Background(), api.Query{Page: 1, PageSize: 20})
	require.Error(self.T(), err)

	store_err := self.store.LastError()
	require.NotNil(self.T(), store_err)
	assert.Equal(self.T(), "INTERNAL_ERROR", store_err.Code)
}

func TestAlertStore(t *testing.T) {
	suite.Run(t, &AlertStoreTestSuite{})
}
