package seats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAggregator(api TeamsAPI) *Aggregator {
	if api == nil {
		api = &fakeTeamsAPI{}
	}
	a := NewAggregator(NewTeamResolver(api, nil, zap.NewNop()))
	a.now = func() time.Time { return testRef }
	return a
}

func seat(login string, lastActivity *time.Time, team string) SeatAssignment {
	a := SeatAssignment{
		Assignee:       Assignee{Login: login},
		LastActivityAt: lastActivity,
	}
	if team != "" {
		a.AssigningTeam = &TeamReference{Name: team}
	}
	return a
}

func TestAggregateEmptyInput(t *testing.T) {
	result := newTestAggregator(nil).Aggregate(context.Background(), nil, nil)

	assert.Empty(t, result.Seats)
	assert.Equal(t, 0, result.TotalSeats)
	require.NotNil(t, result.TotalActiveSeats)
	assert.Equal(t, 0, *result.TotalActiveSeats)
}

// Two pages: page 1 has A (active, team X) and B (inactive, no team); page 2
// has A again and C (active, team Y).
func twoPageFixture() []*SeatRecord {
	recent := testRef.Add(-time.Hour)
	three := 3
	return []*SeatRecord{
		{
			Organization: "acme",
			Page:         1,
			HasNextPage:  true,
			Date:         "2026-04-15",
			Seats: []SeatAssignment{
				seat("a", &recent, "X"),
				seat("b", nil, ""),
			},
			TotalSeats:       4,
			TotalActiveSeats: &three,
		},
		{
			Organization: "acme",
			Page:         2,
			Date:         "2026-04-15",
			Seats: []SeatAssignment{
				seat("a", &recent, "X"),
				seat("c", &recent, "Y"),
			},
			TotalSeats:       4,
			TotalActiveSeats: &three,
		},
	}
}

func TestAggregateMultiPageDeduplicates(t *testing.T) {
	records := twoPageFixture()
	result := newTestAggregator(nil).Aggregate(context.Background(), records, nil)

	require.Len(t, result.Seats, 3)
	assert.Equal(t, "a", result.Seats[0].Assignee.Login)
	assert.Equal(t, "b", result.Seats[1].Assignee.Login)
	assert.Equal(t, "c", result.Seats[2].Assignee.Login)
	assert.Equal(t, 3, result.TotalSeats)
	require.NotNil(t, result.TotalActiveSeats)
	assert.Equal(t, 2, *result.TotalActiveSeats)

	// Metadata comes from the first record; pagination is resolved.
	assert.Equal(t, "acme", result.Organization)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, "2026-04-15", result.Date)
	assert.False(t, result.HasNextPage)

	// Inputs are not mutated.
	assert.Len(t, records[0].Seats, 2)
	assert.True(t, records[0].HasNextPage)
}

func TestAggregateWithTeamFilter(t *testing.T) {
	result := newTestAggregator(nil).Aggregate(context.Background(), twoPageFixture(), []string{"X"})

	require.Len(t, result.Seats, 1)
	assert.Equal(t, "a", result.Seats[0].Assignee.Login)
	assert.Equal(t, 1, result.TotalSeats)
	require.NotNil(t, result.TotalActiveSeats)
	assert.Equal(t, 1, *result.TotalActiveSeats)
}

func TestAggregateSingleRecordRecounts(t *testing.T) {
	recent := testRef.Add(-time.Hour)
	stale := testRef.Add(-60 * 24 * time.Hour)
	nine := 9
	rec := &SeatRecord{
		Enterprise: "megacorp",
		Page:       1,
		Seats: []SeatAssignment{
			seat("a", &recent, ""),
			seat("b", &stale, ""),
		},
		TotalSeats:       9,
		TotalActiveSeats: &nine,
	}

	result := newTestAggregator(nil).Aggregate(context.Background(), []*SeatRecord{rec}, nil)

	assert.Equal(t, 2, result.TotalSeats)
	require.NotNil(t, result.TotalActiveSeats)
	assert.Equal(t, 1, *result.TotalActiveSeats)
	assert.Equal(t, "megacorp", result.Enterprise)
	// The input still carries its stored totals.
	assert.Equal(t, 9, rec.TotalSeats)
}

func TestAggregateBackfillsMissingActiveCount(t *testing.T) {
	recent := testRef.Add(-time.Hour)
	rec := &SeatRecord{
		Organization: "acme",
		Seats: []SeatAssignment{
			seat("a", &recent, ""),
			seat("b", nil, ""),
			seat("c", &recent, ""),
		},
		TotalSeats: 3,
		// TotalActiveSeats absent, as on legacy documents.
	}

	result := newTestAggregator(nil).Aggregate(context.Background(), []*SeatRecord{rec}, nil)

	require.NotNil(t, result.TotalActiveSeats)
	assert.Equal(t, 2, *result.TotalActiveSeats)
	assert.Nil(t, rec.TotalActiveSeats)
}

func TestAggregateIsDeterministic(t *testing.T) {
	agg := newTestAggregator(nil)

	first := agg.Aggregate(context.Background(), twoPageFixture(), nil)
	second := agg.Aggregate(context.Background(), twoPageFixture(), nil)

	assert.Equal(t, first, second)
}
