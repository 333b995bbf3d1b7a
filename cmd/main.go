package main

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.dfds.cloud/copilot-seat-reporter/internal"
	"go.dfds.cloud/copilot-seat-reporter/internal/config"
	"go.dfds.cloud/copilot-seat-reporter/internal/github"
	"go.dfds.cloud/copilot-seat-reporter/internal/seats"
	"go.dfds.cloud/copilot-seat-reporter/internal/server"
	"go.dfds.cloud/copilot-seat-reporter/internal/snapshot"
	"go.uber.org/zap"
)

var logger *zap.Logger

func main() {
	conf, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger = newLogger(conf.LogDebug)
	defer logger.Sync()

	logger.Info("starting copilot-seat-reporter")

	scope := seats.OrganizationScope(conf.Github.Organization)
	if conf.Github.Enterprise != "" {
		scope = seats.EnterpriseScope(conf.Github.Enterprise)
	}

	rdb, err := snapshot.NewRedisClient(conf.Redis.Address, conf.Redis.Password, conf.Redis.DB)
	if err != nil {
		logger.Fatal("connecting to redis", zap.Error(err))
	}
	store := snapshot.NewStore(rdb, logger)

	client := github.NewClient(conf.Github.Token, logger)
	fetcher := seats.NewFetcher(client, logger)
	resolver := seats.NewTeamResolver(client, teamChildren(conf), logger)
	aggregator := seats.NewAggregator(resolver)
	catalog := seats.NewCatalogBuilder(client, logger)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(pprof.New())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	server.New(scope, fetcher, aggregator, catalog, store, logger).Register(app)

	go worker(conf, scope, fetcher, store)

	if err := app.Listen(conf.ListenAddress); err != nil {
		panic(err)
	}
}

// worker periodically fetches all seat pages, snapshots them for the day, and
// publishes the seat gauges.
func worker(conf config.Config, scope seats.Scope, fetcher *seats.Fetcher, store *snapshot.Store) {
	sleepInterval := time.Duration(conf.WorkerInterval) * time.Second

	for {
		logger.Info("collecting copilot seat snapshot", zap.String("scope", scope.Name()))

		if err := collect(scope, fetcher, store); err != nil {
			logger.Error("failed to collect seat snapshot", zap.Error(err))
		} else {
			logger.Info("seat snapshot stored")
		}

		time.Sleep(sleepInterval)
	}
}

func collect(scope seats.Scope, fetcher *seats.Fetcher, store *snapshot.Store) error {
	ctx := context.Background()

	records, err := fetcher.FetchAll(ctx, scope)
	if err != nil {
		return err
	}
	if err := store.SaveAll(ctx, records); err != nil {
		return err
	}

	total := 0
	active := 0
	for _, rec := range records {
		total += len(rec.Seats)
		if rec.TotalActiveSeats != nil {
			active = *rec.TotalActiveSeats
		}
	}

	internal.SeatsTotal.WithLabelValues(scope.Name()).Set(float64(total))
	internal.SeatsActive.WithLabelValues(scope.Name()).Set(float64(active))
	internal.SeatPages.WithLabelValues(scope.Name()).Set(float64(len(records)))

	logger.Info("collected copilot seats",
		zap.Int("totalSeats", total),
		zap.Int("activeSeats", active),
		zap.Int("pages", len(records)),
	)
	return nil
}

// teamChildren parses the configured parent-to-children map; child teams are
// separated by ";" within one map value.
func teamChildren(conf config.Config) map[string][]string {
	out := make(map[string][]string, len(conf.Github.TeamChildren))
	for parent, joined := range conf.Github.TeamChildren {
		for _, child := range strings.Split(joined, ";") {
			if child = strings.TrimSpace(child); child != "" {
				out[parent] = append(out[parent], child)
			}
		}
	}
	return out
}

func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return l
}
