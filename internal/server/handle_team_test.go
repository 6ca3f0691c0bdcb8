package server

import (
	"net/http"
	"testing"
)

func TestTeam(t *testing.T) {
	env := setupEnv(t, nil)

	w := env.do(t, http.MethodGet, "/sprint/teams/"+env.team.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[TeamResponse](t, w)
	if resp.Name != "Rocket" {
		t.Errorf("name = %q, want Rocket", resp.Name)
	}
	if resp.CohortEndsAt == nil || *resp.CohortEndsAt != "2026-12-18T00:00:00.000Z" {
		t.Errorf("cohortEndsAt = %v", resp.CohortEndsAt)
	}
	if len(resp.UnlockedChapters) != 0 {
		t.Errorf("expected no unlocked chapters, got %v", resp.UnlockedChapters)
	}
	if len(resp.Members) != 2 || resp.Members[0].Role != "Product Owner" || resp.Members[1].Name != "Bo" {
		t.Errorf("members = %+v", resp.Members)
	}

	if w := env.do(t, http.MethodGet, "/sprint/teams/ghost", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown team: expected 404, got %d", w.Code)
	}
}

func TestTeamTasksFollowUnlocks(t *testing.T) {
	env := setupEnv(t, nil)
	path := "/sprint/teams/" + env.team.ID + "/tasks"

	w := env.do(t, http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if tasks := decode[[]TaskResponse](t, w); len(tasks) != 0 {
		t.Fatalf("expected no tasks before the story starts, got %+v", tasks)
	}

	env.do(t, http.MethodPost, "/story/intro-complete", IntroCompleteRequest{TeamID: env.team.ID})
	env.do(t, http.MethodPost, "/story/advance", AdvanceRequest{TeamID: env.team.ID, SegmentID: "intro-ready", ChoiceID: "go"})

	tasks := decode[[]TaskResponse](t, env.do(t, http.MethodGet, path, nil))
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %+v", tasks)
	}

	team := decode[TeamResponse](t, env.do(t, http.MethodGet, "/sprint/teams/"+env.team.ID, nil))
	if len(team.UnlockedChapters) != 1 || team.UnlockedChapters[0] != 1 {
		t.Errorf("unlockedChapters = %v, want [1]", team.UnlockedChapters)
	}
	if tasks[0].ID != "ch1-customer-interviews" || tasks[0].Chapter != 1 || tasks[0].UnlockedAt == "" {
		t.Errorf("unexpected first task %+v", tasks[0])
	}
}
