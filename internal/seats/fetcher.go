package seats

import (
	"context"
	"fmt"
	"iter"
	"time"

	"go.dfds.cloud/copilot-seat-reporter/internal/github"
	"go.uber.org/zap"
)

// SeatsAPI is the slice of the GitHub client the fetcher depends on.
type SeatsAPI interface {
	FirstSeatsPageURL(enterprise, organization string) string
	GetSeatsPage(ctx context.Context, pageURL string) (*github.SeatsResponse, string, error)
}

// Fetcher retrieves the complete set of seat pages for one scope.
type Fetcher struct {
	api    SeatsAPI
	logger *zap.Logger
	now    func() time.Time
}

func NewFetcher(api SeatsAPI, logger *zap.Logger) *Fetcher {
	return &Fetcher{api: api, logger: logger, now: time.Now}
}

// Pages returns a finite sequence of seat pages for the scope, one SeatRecord
// per round trip, terminated by the absence of a next link. Each call
// restarts from the first page. Requests are strictly sequential: every page
// URL comes from the previous response's link header.
func (f *Fetcher) Pages(ctx context.Context, scope Scope) iter.Seq2[*SeatRecord, error] {
	return func(yield func(*SeatRecord, error) bool) {
		pageURL := f.api.FirstSeatsPageURL(scope.Enterprise, scope.Organization)
		date := f.now().UTC().Format(DateLayout)

		for page := 1; pageURL != ""; page++ {
			resp, next, err := f.api.GetSeatsPage(ctx, pageURL)
			if err != nil {
				yield(nil, fmt.Errorf("fetching seats page %d for %s: %w", page, scope.Name(), err))
				return
			}

			assignments := make([]SeatAssignment, 0, len(resp.Seats))
			for _, seat := range resp.Seats {
				assignments = append(assignments, assignmentFromAPI(seat))
			}

			now := f.now()
			rec := &SeatRecord{
				Enterprise:   scope.Enterprise,
				Organization: scope.Organization,
				Seats:        assignments,
				TotalSeats:   resp.TotalSeats,
				Page:         page,
				HasNextPage:  next != "",
				Date:         date,
				LastUpdate:   &now,
			}
			if !yield(rec, nil) {
				return
			}
			pageURL = next
		}
	}
}

// FetchAll collects every page for the scope. Any page failure discards the
// pages already fetched; the caller gets all pages or none. After collection
// each page's total_active_seats carries the global active count across all
// pages combined, not a per-page figure.
func (f *Fetcher) FetchAll(ctx context.Context, scope Scope) ([]*SeatRecord, error) {
	var records []*SeatRecord
	for rec, err := range f.Pages(ctx, scope) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	ref := f.now()
	active := 0
	for _, rec := range records {
		active += CountActive(rec.Seats, ref)
	}
	for _, rec := range records {
		n := active
		rec.TotalActiveSeats = &n
	}

	f.logger.Debug("fetched seat pages",
		zap.String("scope", scope.Name()),
		zap.Int("pages", len(records)),
		zap.Int("activeSeats", active),
	)
	return records, nil
}
