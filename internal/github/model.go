package github

import "time"

type SeatsResponse struct {
	TotalSeats int           `json:"total_seats"`
	Seats      []CopilotSeat `json:"seats"`
}

type CopilotSeat struct {
	Assignee                Assignee      `json:"assignee"`
	Organization            *Organization `json:"organization,omitempty"`
	AssigningTeam           *Team         `json:"assigning_team,omitempty"`
	CreatedAt               time.Time     `json:"created_at"`
	UpdatedAt               time.Time     `json:"updated_at"`
	LastActivityAt          *time.Time    `json:"last_activity_at,omitempty"`
	LastActivityEditor      string        `json:"last_activity_editor,omitempty"`
	PlanType                string        `json:"plan_type,omitempty"`
	PendingCancellationDate *string       `json:"pending_cancellation_date,omitempty"`
}

type Assignee struct {
	Login   string `json:"login"`
	Name    string `json:"name,omitempty"`
	HTMLURL string `json:"html_url,omitempty"`
}

type Organization struct {
	Login string `json:"login"`
}

type Team struct {
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name"`
	Slug   string `json:"slug,omitempty"`
	Parent *Team  `json:"parent,omitempty"`
}

type Member struct {
	Login string `json:"login"`
}
