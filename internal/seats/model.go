package seats

import (
	"time"

	"go.dfds.cloud/copilot-seat-reporter/internal/github"
)

// DateLayout is the calendar-date form used on records and store keys.
const DateLayout = "2006-01-02"

// Scope identifies the billing boundary of a seat query. Exactly one of the
// two fields is set.
type Scope struct {
	Enterprise   string
	Organization string
}

func EnterpriseScope(name string) Scope   { return Scope{Enterprise: name} }
func OrganizationScope(name string) Scope { return Scope{Organization: name} }

func (s Scope) IsEnterprise() bool { return s.Enterprise != "" }

func (s Scope) Name() string {
	if s.Enterprise != "" {
		return s.Enterprise
	}
	return s.Organization
}

// SeatRecord is one page of seat data for a scope and date. Aggregated
// results reuse the same shape with pagination resolved.
type SeatRecord struct {
	ID           string           `json:"id,omitempty"`
	Enterprise   string           `json:"enterprise,omitempty"`
	Organization string           `json:"organization,omitempty"`
	Seats        []SeatAssignment `json:"seats"`
	TotalSeats   int              `json:"total_seats"`
	// TotalActiveSeats is nil on legacy documents written before the field
	// existed; the aggregator backfills it from the record's own seats.
	TotalActiveSeats *int       `json:"total_active_seats,omitempty"`
	Page             int        `json:"page"`
	HasNextPage      bool       `json:"has_next_page"`
	Date             string     `json:"date"`
	LastUpdate       *time.Time `json:"last_update,omitempty"`
}

// SeatAssignment is one assigned Copilot seat.
type SeatAssignment struct {
	Assignee                Assignee       `json:"assignee"`
	Organization            string         `json:"organization,omitempty"`
	AssigningTeam           *TeamReference `json:"assigning_team,omitempty"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
	LastActivityAt          *time.Time     `json:"last_activity_at,omitempty"`
	LastActivityEditor      string         `json:"last_activity_editor,omitempty"`
	PlanType                string         `json:"plan_type,omitempty"`
	PendingCancellationDate *string        `json:"pending_cancellation_date,omitempty"`
}

type Assignee struct {
	Login      string `json:"login"`
	Name       string `json:"name,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
}

// TeamReference names the team through which a seat was granted. Parent, when
// set, names the enclosing team; the hierarchy is two levels deep at most.
type TeamReference struct {
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// sameTeam reports whether two references denote the same team: by id when
// both carry one, by name otherwise.
func sameTeam(a, b TeamReference) bool {
	if a.ID != 0 && b.ID != 0 {
		return a.ID == b.ID
	}
	return a.Name == b.Name
}

func assignmentFromAPI(seat github.CopilotSeat) SeatAssignment {
	a := SeatAssignment{
		Assignee: Assignee{
			Login:      seat.Assignee.Login,
			Name:       seat.Assignee.Name,
			ProfileURL: seat.Assignee.HTMLURL,
		},
		CreatedAt:               seat.CreatedAt,
		UpdatedAt:               seat.UpdatedAt,
		LastActivityAt:          seat.LastActivityAt,
		LastActivityEditor:      seat.LastActivityEditor,
		PlanType:                seat.PlanType,
		PendingCancellationDate: seat.PendingCancellationDate,
	}
	if seat.Organization != nil {
		a.Organization = seat.Organization.Login
	}
	if seat.AssigningTeam != nil {
		a.AssigningTeam = teamFromAPI(*seat.AssigningTeam)
	}
	return a
}

func teamFromAPI(team github.Team) *TeamReference {
	ref := &TeamReference{ID: team.ID, Name: team.Name}
	if ref.Name == "" {
		ref.Name = team.Slug
	}
	if team.Parent != nil {
		ref.Parent = team.Parent.Name
		if ref.Parent == "" {
			ref.Parent = team.Parent.Slug
		}
	}
	return ref
}
