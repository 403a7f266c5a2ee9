package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/leadsweeper-backend/internal/model"
)

// --- Fake vendor API ---

type fakeAPI struct {
	mu           sync.Mutex
	campaigns    []model.Campaign
	campaignsErr error
	leads        map[int][]int
	leadErrs     map[int]error
	histories    map[string][]model.MessageEvent
	historyFn    func(ctx context.Context, campaignID, leadID int) ([]model.MessageEvent, error)
	deleted      []model.LeadTask
	deleteErr    error
	exportCalls  int
	historyCalls int
}

func historyKey(campaignID, leadID int) string {
	return fmt.Sprintf("%d/%d", campaignID, leadID)
}

func (f *fakeAPI) CompletedCampaigns(ctx context.Context) ([]model.Campaign, error) {
	return f.campaigns, f.campaignsErr
}

func (f *fakeAPI) CompletedLeadIDs(ctx context.Context, campaignID int) ([]int, error) {
	f.mu.Lock()
	f.exportCalls++
	f.mu.Unlock()
	if err := f.leadErrs[campaignID]; err != nil {
		return nil, err
	}
	return f.leads[campaignID], nil
}

func (f *fakeAPI) MessageHistory(ctx context.Context, campaignID, leadID int) ([]model.MessageEvent, error) {
	f.mu.Lock()
	f.historyCalls++
	f.mu.Unlock()
	if f.historyFn != nil {
		return f.historyFn(ctx, campaignID, leadID)
	}
	return f.histories[historyKey(campaignID, leadID)], nil
}

func (f *fakeAPI) DeleteLead(ctx context.Context, campaignID, leadID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, model.LeadTask{CampaignID: campaignID, LeadID: leadID})
	return nil
}

func (f *fakeAPI) deletedTasks() []model.LeadTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.LeadTask{}, f.deleted...)
}

func eventAt(eventType string, age time.Duration) model.MessageEvent {
	return model.MessageEvent{
		Type: eventType,
		Time: time.Now().Add(-age).UTC().Format(time.RFC3339),
	}
}

const week = 7 * 24 * time.Hour

// --- Tests ---

func TestRunDeletesStaleLead(t *testing.T) {
	api := &fakeAPI{
		campaigns: []model.Campaign{{ID: 1, Name: "Spring launch", Status: "COMPLETED"}},
		leads:     map[int][]int{1: {100}},
		histories: map[string][]model.MessageEvent{
			historyKey(1, 100): {eventAt("OPEN", 9*24*time.Hour)},
		},
	}

	sweep := &Pipeline{API: api, GracePeriod: week}
	report, err := sweep.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []model.LeadTask{{CampaignID: 1, LeadID: 100}}, api.deletedTasks())
	assert.Equal(t, 1, report.CampaignsFound)
	assert.Equal(t, 1, report.CampaignsExpanded)
	assert.Equal(t, 1, report.LeadsQueued)
	assert.Equal(t, 1, report.LeadsEvaluated)
	assert.Equal(t, 1, report.LeadsDeleted)
	assert.Equal(t, 0, report.Errors)
}

func TestRunNeverDeletesRepliedLead(t *testing.T) {
	api := &fakeAPI{
		campaigns: []model.Campaign{{ID: 1, Status: "COMPLETED"}},
		leads:     map[int][]int{1: {100}},
		histories: map[string][]model.MessageEvent{
			historyKey(1, 100): {
				eventAt("SENT", 30*24*time.Hour),
				eventAt("REPLY", 20*24*time.Hour),
				eventAt("OPEN", 9*24*time.Hour),
			},
		},
	}

	sweep := &Pipeline{API: api, GracePeriod: week}
	report, err := sweep.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, api.deletedTasks())
	assert.Equal(t, 1, report.LeadsSkipped)
	assert.Equal(t, 0, report.LeadsDeleted)
}

func TestRunSkipsLeadInsideGracePeriod(t *testing.T) {
	api := &fakeAPI{
		campaigns: []model.Campaign{{ID: 1, Status: "COMPLETED"}},
		leads:     map[int][]int{1: {100}},
		histories: map[string][]model.MessageEvent{
			historyKey(1, 100): {eventAt("OPEN", 2*24*time.Hour)},
		},
	}

	sweep := &Pipeline{API: api, GracePeriod: week}
	report, err := sweep.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, api.deletedTasks())
	assert.Equal(t, 0, report.LeadsDeleted)
}

func TestRunSkipsLeadWithEmptyHistory(t *testing.T) {
	api := &fakeAPI{
		campaigns: []model.Campaign{{ID: 1, Status: "COMPLETED"}},
		leads:     map[int][]int{1: {100}},
		histories: map[string][]model.MessageEvent{},
	}

	sweep := &Pipeline{API: api, GracePeriod: week}
	report, err := sweep.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, api.deletedTasks())
	assert.Equal(t, 1, report.LeadsSkipped)
	assert.Equal(t, 0, report.Errors)
}

func TestRunCountsUnparseableTimestampAsError(t *testing.T) {
	api := &fakeAPI{
		campaigns: []model.Campaign{{ID: 1, Status: "COMPLETED"}},
		leads:     map[int][]int{1: {100}},
		histories: map[string][]model.MessageEvent{
			historyKey(1, 100): {{Type: "OPEN", Time: "not-a-timestamp"}},
		},
	}

	sweep := &Pipeline{API: api, GracePeriod: week}
	report, err := sweep.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, api.deletedTasks())
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.LeadsEvaluated)
}

func TestRunEmptyCampaignListTerminatesImmediately(t *testing.T) {
	api := &fakeAPI{}

	sweep := &Pipeline{API: api, GracePeriod: week}
	report, err := sweep.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.CampaignsFound)
	assert.Equal(t, 0, api.exportCalls)
	assert.Equal(t, 0, api.historyCalls)
}

func TestRunTreatsCampaignFetchFailureAsEmpty(t *testing.T) {
	api := &fakeAPI{campaignsErr: errors.New("connection refused")}

	sweep := &Pipeline{API: api, GracePeriod: week}
	report, err := sweep.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.CampaignsFound)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 0, api.exportCalls)
}

func TestRunContinuesPastFailingCampaign(t *testing.T) {
	api := &fakeAPI{
		campaigns: []model.Campaign{
			{ID: 1, Status: "COMPLETED"},
			{ID: 2, Status: "COMPLETED"},
		},
		leadErrs: map[int]error{1: errors.New("export unavailable")},
		leads:    map[int][]int{2: {200}},
		histories: map[string][]model.MessageEvent{
			historyKey(2, 200): {eventAt("OPEN", 10*24*time.Hour)},
		},
	}

	sweep := &Pipeline{API: api, GracePeriod: week}
	report, err := sweep.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []model.LeadTask{{CampaignID: 2, LeadID: 200}}, api.deletedTasks())
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.CampaignsExpanded)
}

func TestRunHonorsCampaignCap(t *testing.T) {
	api := &fakeAPI{
		campaigns: []model.Campaign{
			{ID: 1, Status: "COMPLETED"},
			{ID: 2, Status: "COMPLETED"},
			{ID: 3, Status: "COMPLETED"},
			{ID: 4, Status: "COMPLETED"},
			{ID: 5, Status: "COMPLETED"},
		},
		leads: map[int][]int{},
	}

	sweep := &Pipeline{API: api, GracePeriod: week, MaxCampaigns: 3}
	report, err := sweep.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, api.exportCalls)
	assert.Equal(t, 3, report.CampaignsExpanded)
	assert.Equal(t, 5, report.CampaignsFound)
}

func TestRunDryRunIssuesNoDeletes(t *testing.T) {
	api := &fakeAPI{
		campaigns: []model.Campaign{{ID: 1, Status: "COMPLETED"}},
		leads:     map[int][]int{1: {100}},
		histories: map[string][]model.MessageEvent{
			historyKey(1, 100): {eventAt("OPEN", 9*24*time.Hour)},
		},
	}

	sweep := &Pipeline{API: api, GracePeriod: week, DryRun: true}
	report, err := sweep.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, api.deletedTasks())
	assert.Equal(t, 1, report.LeadsDeleted)
	assert.True(t, report.DryRun)
}

func TestRunStopsPromptlyOnCancellation(t *testing.T) {
	leadIDs := make([]int, 50)
	for i := range leadIDs {
		leadIDs[i] = 100 + i
	}
	api := &fakeAPI{
		campaigns: []model.Campaign{{ID: 1, Status: "COMPLETED"}},
		leads:     map[int][]int{1: leadIDs},
		historyFn: func(ctx context.Context, campaignID, leadID int) ([]model.MessageEvent, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_, err := (&Pipeline{API: api, GracePeriod: week}).Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}
	assert.Empty(t, api.deletedTasks())
}

// --- Publisher / audit wiring ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.LeadTask
	err    error
}

func (p *recordingPublisher) LeadDeleted(campaignID, leadID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, model.LeadTask{CampaignID: campaignID, LeadID: leadID})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingAudit struct {
	mu   sync.Mutex
	rows []model.LeadTask
}

func (a *recordingAudit) RecordDeletion(campaignID, leadID int, deletedAt time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = append(a.rows, model.LeadTask{CampaignID: campaignID, LeadID: leadID})
	return nil
}

func TestRunPublishesAndAuditsDeletions(t *testing.T) {
	api := &fakeAPI{
		campaigns: []model.Campaign{{ID: 1, Status: "COMPLETED"}},
		leads:     map[int][]int{1: {100}},
		histories: map[string][]model.MessageEvent{
			historyKey(1, 100): {eventAt("OPEN", 9*24*time.Hour)},
		},
	}
	publisher := &recordingPublisher{}
	audit := &recordingAudit{}

	sweep := &Pipeline{API: api, Events: publisher, Audit: audit, GracePeriod: week}
	_, err := sweep.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []model.LeadTask{{CampaignID: 1, LeadID: 100}}, publisher.events)
	assert.Equal(t, []model.LeadTask{{CampaignID: 1, LeadID: 100}}, audit.rows)
}

func TestRunPublisherFailureDoesNotFailItem(t *testing.T) {
	api := &fakeAPI{
		campaigns: []model.Campaign{{ID: 1, Status: "COMPLETED"}},
		leads:     map[int][]int{1: {100}},
		histories: map[string][]model.MessageEvent{
			historyKey(1, 100): {eventAt("OPEN", 9*24*time.Hour)},
		},
	}
	publisher := &recordingPublisher{err: errors.New("broker down")}

	sweep := &Pipeline{API: api, Events: publisher, GracePeriod: week}
	report, err := sweep.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, api.deletedTasks(), 1)
	assert.Equal(t, 1, report.LeadsDeleted)
	assert.Equal(t, 0, report.Errors)
}
