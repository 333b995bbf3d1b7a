package seats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.dfds.cloud/copilot-seat-reporter/internal/github"
)

// fakeSeatsAPI serves a canned sequence of seat pages, optionally failing at
// a given page.
type fakeSeatsAPI struct {
	pages  []github.SeatsResponse
	failAt int // 1-based page to fail on, 0 for none
	calls  int
}

func (f *fakeSeatsAPI) FirstSeatsPageURL(enterprise, organization string) string {
	return "fake/seats/1"
}

func (f *fakeSeatsAPI) GetSeatsPage(ctx context.Context, pageURL string) (*github.SeatsResponse, string, error) {
	f.calls++
	page, _ := strconv.Atoi(pageURL[strings.LastIndex(pageURL, "/")+1:])
	if f.failAt != 0 && page == f.failAt {
		return nil, "", errors.New("upstream failure")
	}
	resp := f.pages[page-1]
	next := ""
	if page < len(f.pages) {
		next = fmt.Sprintf("fake/seats/%d", page+1)
	}
	return &resp, next, nil
}

// fakeTeamsAPI serves canned team members and a canned team listing, each as
// a single page.
type fakeTeamsAPI struct {
	members     map[string][]github.Member
	membersErr  map[string]error
	teams       []github.Team
	teamsErr    error
	memberCalls []string
	teamCalls   int
}

func (f *fakeTeamsAPI) FirstTeamMembersPageURL(organization, team string) string {
	return "fake/members/" + team
}

func (f *fakeTeamsAPI) GetTeamMembersPage(ctx context.Context, pageURL string) ([]github.Member, string, error) {
	team := pageURL[strings.LastIndex(pageURL, "/")+1:]
	f.memberCalls = append(f.memberCalls, team)
	if err := f.membersErr[team]; err != nil {
		return nil, "", err
	}
	return f.members[team], "", nil
}

func (f *fakeTeamsAPI) FirstTeamsPageURL(organization string) string {
	return "fake/teams"
}

func (f *fakeTeamsAPI) GetTeamsPage(ctx context.Context, pageURL string) ([]github.Team, string, error) {
	f.teamCalls++
	if f.teamsErr != nil {
		return nil, "", f.teamsErr
	}
	return f.teams, "", nil
}
