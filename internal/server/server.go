package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.dfds.cloud/copilot-seat-reporter/internal/seats"
	"go.dfds.cloud/copilot-seat-reporter/internal/snapshot"
	"go.uber.org/zap"
)

// Server exposes the aggregated seat data and the team catalog as JSON.
type Server struct {
	scope      seats.Scope
	fetcher    *seats.Fetcher
	aggregator *seats.Aggregator
	catalog    *seats.CatalogBuilder
	store      *snapshot.Store
	logger     *zap.Logger
}

func New(scope seats.Scope, fetcher *seats.Fetcher, aggregator *seats.Aggregator,
	catalog *seats.CatalogBuilder, store *snapshot.Store, logger *zap.Logger) *Server {
	return &Server{
		scope:      scope,
		fetcher:    fetcher,
		aggregator: aggregator,
		catalog:    catalog,
		store:      store,
		logger:     logger,
	}
}

func (s *Server) Register(app *fiber.App) {
	app.Get("/seats", s.handleSeats)
	app.Get("/teams", s.handleTeams)
}

// handleSeats returns one aggregated seat result. Without a date it fetches
// live from the API; with a date it reads the stored snapshot for that day.
func (s *Server) handleSeats(c *fiber.Ctx) error {
	date, err := dateParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	records, status, err := s.records(c, date)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	result := s.aggregator.Aggregate(c.UserContext(), records, teamsParam(c))
	return c.JSON(result)
}

// handleTeams returns the sorted catalog of assigning teams, live or for a
// stored snapshot date.
func (s *Server) handleTeams(c *fiber.Ctx) error {
	date, err := dateParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	records, status, err := s.records(c, date)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	if date == "" {
		return c.JSON(s.catalog.Live(c.UserContext(), s.scope, records))
	}
	return c.JSON(s.catalog.Observed(records))
}

// records loads the page-records for the request: live fetch when date is
// empty, snapshot query otherwise. The returned status is meaningful only on
// error: 404 for an empty snapshot date, 502 for upstream or store failures.
func (s *Server) records(c *fiber.Ctx, date string) ([]*seats.SeatRecord, int, error) {
	ctx := c.UserContext()

	if date == "" {
		records, err := s.fetcher.FetchAll(ctx, s.scope)
		if err != nil {
			s.logger.Error("live seat fetch failed", zap.Error(err))
			return nil, fiber.StatusBadGateway, err
		}
		return records, fiber.StatusOK, nil
	}

	records, err := s.store.Query(ctx, snapshot.Filter{
		Scope: s.scope,
		Date:  date,
		Page:  c.QueryInt("page"),
	})
	if errors.Is(err, snapshot.ErrNoData) {
		return nil, fiber.StatusNotFound, err
	}
	if err != nil {
		s.logger.Error("snapshot query failed", zap.String("date", date), zap.Error(err))
		return nil, fiber.StatusBadGateway, err
	}
	return records, fiber.StatusOK, nil
}

func dateParam(c *fiber.Ctx) (string, error) {
	date := c.Query("date")
	if date == "" {
		return "", nil
	}
	if _, err := time.Parse(seats.DateLayout, date); err != nil {
		return "", errors.New("date must be yyyy-MM-dd")
	}
	return date, nil
}

func teamsParam(c *fiber.Ctx) []string {
	var teams []string
	for _, v := range c.Context().QueryArgs().PeekMulti("team") {
		if len(v) > 0 {
			teams = append(teams, string(v))
		}
	}
	return teams
}
