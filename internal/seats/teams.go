package seats

import (
	"context"
	"sort"

	"go.dfds.cloud/copilot-seat-reporter/internal/github"
	"go.uber.org/zap"
)

// TeamsAPI is the slice of the GitHub client used for team membership and
// team listing lookups.
type TeamsAPI interface {
	FirstTeamMembersPageURL(organization, team string) string
	GetTeamMembersPage(ctx context.Context, pageURL string) ([]github.Member, string, error)
	FirstTeamsPageURL(organization string) string
	GetTeamsPage(ctx context.Context, pageURL string) ([]github.Team, string, error)
}

// TeamResolver selects the seats belonging to a set of requested teams.
type TeamResolver struct {
	api    TeamsAPI
	logger *zap.Logger
	// children maps a parent team to configured child teams, unioned with
	// the parent lookup against the team-listing endpoint. Deployment
	// configuration, for hierarchies the listing does not expose.
	children map[string][]string
}

func NewTeamResolver(api TeamsAPI, children map[string][]string, logger *zap.Logger) *TeamResolver {
	return &TeamResolver{api: api, children: children, logger: logger}
}

// Filter returns the subset of assignments belonging to the requested teams.
// Seats carrying a matching assigning_team win outright; only when no seat
// carries one does the resolver fall back to membership lookups. When both
// tiers come up empty the result is an empty list, never the unfiltered
// input: a team filter must not silently become a no-op.
func (r *TeamResolver) Filter(ctx context.Context, scope Scope, assignments []SeatAssignment, teams []string) []SeatAssignment {
	if len(teams) == 0 {
		return assignments
	}

	requested := make(map[string]struct{}, len(teams))
	for _, t := range teams {
		requested[t] = struct{}{}
	}

	direct := make([]SeatAssignment, 0, len(assignments))
	for _, a := range assignments {
		if a.AssigningTeam == nil {
			continue
		}
		if _, ok := requested[a.AssigningTeam.Name]; ok {
			direct = append(direct, a)
		}
	}
	if len(direct) > 0 {
		return direct
	}

	members := r.membership(ctx, scope, teams)
	matched := make([]SeatAssignment, 0, len(assignments))
	for _, a := range assignments {
		if _, ok := members[a.Assignee.Login]; ok {
			matched = append(matched, a)
		}
	}
	return matched
}

// membership unions the member logins of every requested team and of its
// child teams. Lookup failures are absorbed as empty membership for that
// call; resolution continues with the remaining teams.
func (r *TeamResolver) membership(ctx context.Context, scope Scope, teams []string) map[string]struct{} {
	logins := make(map[string]struct{})
	if scope.Organization == "" {
		// Team membership and team listing are organization endpoints; an
		// enterprise scope has nothing to look up.
		r.logger.Warn("team membership lookup needs an organization scope",
			zap.String("scope", scope.Name()),
		)
		return logins
	}
	for _, team := range teams {
		r.collectMembers(ctx, scope, team, logins)
		for _, child := range r.childTeams(ctx, scope, team) {
			r.collectMembers(ctx, scope, child, logins)
		}
	}
	return logins
}

func (r *TeamResolver) collectMembers(ctx context.Context, scope Scope, team string, logins map[string]struct{}) {
	pageURL := r.api.FirstTeamMembersPageURL(scope.Organization, team)
	for pageURL != "" {
		members, next, err := r.api.GetTeamMembersPage(ctx, pageURL)
		if err != nil {
			r.logger.Warn("failed to list team members",
				zap.String("team", team),
				zap.String("scope", scope.Name()),
				zap.Error(err),
			)
			return
		}
		for _, m := range members {
			logins[m.Login] = struct{}{}
		}
		pageURL = next
	}
}

// childTeams resolves the teams nested directly under parent: configured
// overrides plus any team in the organization listing whose parent matches.
func (r *TeamResolver) childTeams(ctx context.Context, scope Scope, parent string) []string {
	var children []string
	seen := make(map[string]struct{})

	for _, c := range r.children[parent] {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		children = append(children, c)
	}

	pageURL := r.api.FirstTeamsPageURL(scope.Organization)
	for pageURL != "" {
		teams, next, err := r.api.GetTeamsPage(ctx, pageURL)
		if err != nil {
			r.logger.Warn("failed to list teams for child lookup",
				zap.String("parent", parent),
				zap.String("scope", scope.Name()),
				zap.Error(err),
			)
			return children
		}
		for _, t := range teams {
			if t.Parent == nil || t.Parent.Name != parent {
				continue
			}
			name := t.Slug
			if name == "" {
				name = t.Name
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			children = append(children, name)
		}
		pageURL = next
	}
	return children
}

// CatalogBuilder derives the distinct set of assigning teams for a seat data
// set.
type CatalogBuilder struct {
	api    TeamsAPI
	logger *zap.Logger
}

func NewCatalogBuilder(api TeamsAPI, logger *zap.Logger) *CatalogBuilder {
	return &CatalogBuilder{api: api, logger: logger}
}

// Observed returns the distinct assigning teams across the records, sorted by
// name (case-sensitive, empty name first). Two references denote the same
// team by id when both carry one, by name otherwise.
func (b *CatalogBuilder) Observed(records []*SeatRecord) []TeamReference {
	catalog := []TeamReference{}
	for _, rec := range records {
		for _, a := range rec.Seats {
			if a.AssigningTeam == nil {
				continue
			}
			if !containsTeam(catalog, *a.AssigningTeam) {
				catalog = append(catalog, *a.AssigningTeam)
			}
		}
	}
	sortCatalog(catalog)
	return catalog
}

// Live returns the catalog for freshly fetched records. When no seat carries
// an assigning team, an organization scope falls back to the full team
// listing; an enterprise has no listing to fall back to and yields an empty
// catalog.
func (b *CatalogBuilder) Live(ctx context.Context, scope Scope, records []*SeatRecord) []TeamReference {
	catalog := b.Observed(records)
	if len(catalog) > 0 || scope.IsEnterprise() {
		return catalog
	}

	pageURL := b.api.FirstTeamsPageURL(scope.Organization)
	for pageURL != "" {
		teams, next, err := b.api.GetTeamsPage(ctx, pageURL)
		if err != nil {
			b.logger.Warn("failed to list teams for catalog",
				zap.String("scope", scope.Name()),
				zap.Error(err),
			)
			break
		}
		for _, t := range teams {
			ref := *teamFromAPI(t)
			if !containsTeam(catalog, ref) {
				catalog = append(catalog, ref)
			}
		}
		pageURL = next
	}
	sortCatalog(catalog)
	return catalog
}

func containsTeam(catalog []TeamReference, ref TeamReference) bool {
	for _, c := range catalog {
		if sameTeam(c, ref) {
			return true
		}
	}
	return false
}

func sortCatalog(catalog []TeamReference) {
	sort.SliceStable(catalog, func(i, j int) bool {
		return catalog[i].Name < catalog[j].Name
	})
}
