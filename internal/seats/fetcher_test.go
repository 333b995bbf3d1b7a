package seats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.dfds.cloud/copilot-seat-reporter/internal/github"
	"go.uber.org/zap"
)

var testRef = time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)

func apiSeat(login string, lastActivity *time.Time) github.CopilotSeat {
	return github.CopilotSeat{
		Assignee:       github.Assignee{Login: login},
		LastActivityAt: lastActivity,
	}
}

func newTestFetcher(api SeatsAPI) *Fetcher {
	f := NewFetcher(api, zap.NewNop())
	f.now = func() time.Time { return testRef }
	return f
}

func TestFetchAllSinglePage(t *testing.T) {
	recent := testRef.Add(-time.Hour)
	api := &fakeSeatsAPI{pages: []github.SeatsResponse{
		{TotalSeats: 2, Seats: []github.CopilotSeat{
			apiSeat("alice", &recent),
			apiSeat("bob", nil),
		}},
	}}

	records, err := newTestFetcher(api).FetchAll(context.Background(), OrganizationScope("acme"))
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "acme", rec.Organization)
	assert.Empty(t, rec.Enterprise)
	assert.Equal(t, 1, rec.Page)
	assert.False(t, rec.HasNextPage)
	assert.Equal(t, 2, rec.TotalSeats)
	assert.Equal(t, testRef.UTC().Format(DateLayout), rec.Date)
	require.NotNil(t, rec.TotalActiveSeats)
	assert.Equal(t, 1, *rec.TotalActiveSeats)
}

func TestFetchAllFollowsPaginationToCompletion(t *testing.T) {
	recent := testRef.Add(-time.Hour)
	api := &fakeSeatsAPI{pages: []github.SeatsResponse{
		{TotalSeats: 3, Seats: []github.CopilotSeat{apiSeat("alice", &recent)}},
		{TotalSeats: 3, Seats: []github.CopilotSeat{apiSeat("bob", nil)}},
		{TotalSeats: 3, Seats: []github.CopilotSeat{apiSeat("carol", &recent)}},
	}}

	records, err := newTestFetcher(api).FetchAll(context.Background(), EnterpriseScope("megacorp"))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 3, api.calls)

	for i, rec := range records {
		assert.Equal(t, i+1, rec.Page)
		assert.Equal(t, "megacorp", rec.Enterprise)
		assert.Equal(t, i < 2, rec.HasNextPage)
	}
}

func TestFetchAllOverwritesActiveCountGlobally(t *testing.T) {
	recent := testRef.Add(-time.Hour)
	api := &fakeSeatsAPI{pages: []github.SeatsResponse{
		{Seats: []github.CopilotSeat{apiSeat("alice", &recent), apiSeat("bob", nil)}},
		{Seats: []github.CopilotSeat{apiSeat("carol", &recent)}},
	}}

	records, err := newTestFetcher(api).FetchAll(context.Background(), OrganizationScope("acme"))
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Every page carries the cross-page active count, not its own.
	for _, rec := range records {
		require.NotNil(t, rec.TotalActiveSeats)
		assert.Equal(t, 2, *rec.TotalActiveSeats)
	}
}

func TestFetchAllDiscardsPartialResultOnFailure(t *testing.T) {
	api := &fakeSeatsAPI{
		pages: []github.SeatsResponse{
			{Seats: []github.CopilotSeat{apiSeat("alice", nil)}},
			{Seats: []github.CopilotSeat{apiSeat("bob", nil)}},
			{Seats: []github.CopilotSeat{apiSeat("carol", nil)}},
		},
		failAt: 2,
	}

	records, err := newTestFetcher(api).FetchAll(context.Background(), OrganizationScope("acme"))
	assert.Error(t, err)
	assert.Nil(t, records)
	// The failure stops fetching immediately: page 3 is never requested.
	assert.Equal(t, 2, api.calls)
}

func TestPagesSequenceIsRestartable(t *testing.T) {
	api := &fakeSeatsAPI{pages: []github.SeatsResponse{
		{Seats: []github.CopilotSeat{apiSeat("alice", nil)}},
		{Seats: []github.CopilotSeat{apiSeat("bob", nil)}},
	}}
	fetcher := newTestFetcher(api)

	for range 2 {
		var pages []int
		for rec, err := range fetcher.Pages(context.Background(), OrganizationScope("acme")) {
			require.NoError(t, err)
			pages = append(pages, rec.Page)
		}
		assert.Equal(t, []int{1, 2}, pages)
	}
}

func TestPagesSequenceStopsWhenConsumerBreaks(t *testing.T) {
	api := &fakeSeatsAPI{pages: []github.SeatsResponse{
		{Seats: []github.CopilotSeat{apiSeat("alice", nil)}},
		{Seats: []github.CopilotSeat{apiSeat("bob", nil)}},
		{Seats: []github.CopilotSeat{apiSeat("carol", nil)}},
	}}

	for rec := range newTestFetcher(api).Pages(context.Background(), OrganizationScope("acme")) {
		if rec.Page == 1 {
			break
		}
	}
	assert.Equal(t, 1, api.calls)
}
