package seats

import (
	"context"
	"time"
)

// Aggregator reduces one or more seat page-records into a single canonical
// result. Inputs are never mutated; aggregation always returns a new record.
type Aggregator struct {
	resolver *TeamResolver
	now      func() time.Time
}

func NewAggregator(resolver *TeamResolver) *Aggregator {
	return &Aggregator{resolver: resolver, now: time.Now}
}

// Aggregate flattens the records' seats in input order, applies the team
// filter when one is given, deduplicates by assignee login keeping the first
// occurrence, and recounts both totals from the surviving list. Scope, page,
// date, last_update and id come from the first record; pagination is resolved,
// so the result never reports a next page. Identical inputs always produce
// identical output ordering and counts.
func (a *Aggregator) Aggregate(ctx context.Context, records []*SeatRecord, teams []string) *SeatRecord {
	ref := a.now()

	if len(records) == 0 {
		zero := 0
		return &SeatRecord{
			Seats:            []SeatAssignment{},
			TotalSeats:       0,
			TotalActiveSeats: &zero,
		}
	}

	first := records[0]
	out := *first

	// Records written before total_active_seats existed carry none; backfill
	// from the record's own seats so the field is never absent downstream.
	if out.TotalActiveSeats == nil {
		n := CountActive(first.Seats, ref)
		out.TotalActiveSeats = &n
	}

	flat := first.Seats
	if len(records) > 1 {
		flat = nil
		for _, rec := range records {
			flat = append(flat, rec.Seats...)
		}
	}

	if len(teams) > 0 {
		scope := Scope{Enterprise: first.Enterprise, Organization: first.Organization}
		flat = a.resolver.Filter(ctx, scope, flat, teams)
	}

	if len(records) > 1 {
		flat = dedupeByLogin(flat)
		out.HasNextPage = false
	}

	if flat == nil {
		flat = []SeatAssignment{}
	}
	out.Seats = flat
	out.TotalSeats = len(flat)
	active := CountActive(flat, ref)
	out.TotalActiveSeats = &active
	return &out
}

// dedupeByLogin keeps the first occurrence of each assignee login, preserving
// input order.
func dedupeByLogin(in []SeatAssignment) []SeatAssignment {
	seen := make(map[string]struct{}, len(in))
	out := make([]SeatAssignment, 0, len(in))
	for _, a := range in {
		if _, ok := seen[a.Assignee.Login]; ok {
			continue
		}
		seen[a.Assignee.Login] = struct{}{}
		out = append(out, a)
	}
	return out
}
