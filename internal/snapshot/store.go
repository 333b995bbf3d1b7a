package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.dfds.cloud/copilot-seat-reporter/internal/seats"
	"go.uber.org/zap"
)

// ErrNoData reports a query that matched no snapshot documents. Distinct from
// a store failure: the date simply has nothing recorded.
var ErrNoData = errors.New("no snapshot data for query")

// Filter selects snapshot documents by scope, calendar date and, optionally,
// a single page. Page 0 selects all pages of the date.
type Filter struct {
	Scope seats.Scope
	Date  string
	Page  int
}

// NewRedisClient creates and pings a Redis client for the snapshot store.
func NewRedisClient(addr, password string, db int) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Store keeps one JSON document per seat page-record, keyed by scope, date
// and page. Documents written before pages were recorded live under a key
// without the page segment. Retention is the operator's concern; the store
// never deletes.
type Store struct {
	rdb    redis.UniversalClient
	logger *zap.Logger
}

func NewStore(rdb redis.UniversalClient, logger *zap.Logger) *Store {
	return &Store{rdb: rdb, logger: logger}
}

func scopeKey(scope seats.Scope) string {
	if scope.IsEnterprise() {
		return "enterprise:" + scope.Enterprise
	}
	return "org:" + scope.Organization
}

func recordKey(scope seats.Scope, date string, page int) string {
	key := fmt.Sprintf("seats:%s:%s", scopeKey(scope), date)
	if page > 0 {
		key += fmt.Sprintf(":page:%d", page)
	}
	return key
}

// Save writes one page-record document. A record without a page number is
// written under the legacy un-paged key.
func (s *Store) Save(ctx context.Context, rec *seats.SeatRecord) error {
	scope := seats.Scope{Enterprise: rec.Enterprise, Organization: rec.Organization}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling seat record: %w", err)
	}

	key := recordKey(scope, rec.Date, rec.Page)
	if err := s.rdb.Set(ctx, key, body, 0).Err(); err != nil {
		return fmt.Errorf("storing seat record %s: %w", key, err)
	}
	return nil
}

// SaveAll writes every record of one fetch.
func (s *Store) SaveAll(ctx context.Context, records []*seats.SeatRecord) error {
	for _, rec := range records {
		if err := s.Save(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Query returns the page-records matching the filter, ordered by page. A
// page-qualified lookup that finds nothing is retried without the page
// predicate, which picks up every document stored for the date including
// legacy un-paged ones. No documents at all yields ErrNoData.
func (s *Store) Query(ctx context.Context, f Filter) ([]*seats.SeatRecord, error) {
	if f.Page > 0 {
		records, err := s.fetch(ctx, []string{recordKey(f.Scope, f.Date, f.Page)})
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			return records, nil
		}
	}

	keys, err := s.pageKeys(ctx, f)
	if err != nil {
		return nil, err
	}

	records, err := s.fetch(ctx, keys)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		// Legacy documents carry no page segment.
		records, err = s.fetch(ctx, []string{recordKey(f.Scope, f.Date, 0)})
		if err != nil {
			return nil, err
		}
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}
	return records, nil
}

// pageKeys scans for every paged key of the date, sorted by page number.
func (s *Store) pageKeys(ctx context.Context, f Filter) ([]string, error) {
	pattern := recordKey(f.Scope, f.Date, 0) + ":page:*"

	var keys []string
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning snapshot keys %s: %w", pattern, err)
	}

	sort.Slice(keys, func(i, j int) bool {
		return pageOfKey(keys[i]) < pageOfKey(keys[j])
	})
	return keys, nil
}

func pageOfKey(key string) int {
	n, _ := strconv.Atoi(key[strings.LastIndex(key, ":")+1:])
	return n
}

func (s *Store) fetch(ctx context.Context, keys []string) ([]*seats.SeatRecord, error) {
	records := make([]*seats.SeatRecord, 0, len(keys))
	for _, key := range keys {
		body, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading snapshot %s: %w", key, err)
		}

		var rec seats.SeatRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			// A corrupt document should not make the whole date unreadable.
			s.logger.Warn("skipping undecodable snapshot document",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		if rec.ID == "" {
			rec.ID = key
		}
		records = append(records, &rec)
	}
	return records, nil
}
