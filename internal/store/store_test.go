package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/playperu/sprintstory/internal/database"
	"github.com/playperu/sprintstory/internal/migrations"
	"github.com/playperu/sprintstory/internal/sprint"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return New(db)
}

func seedTeam(t *testing.T, s *Store) sprint.Team {
	t.Helper()
	ctx := context.Background()

	end := time.Date(2026, time.December, 18, 0, 0, 0, 0, time.UTC)
	c, err := s.CreateCohort(ctx, sprint.Cohort{Name: "Winter 2026", EndsAt: &end})
	if err != nil {
		t.Fatalf("create cohort: %v", err)
	}
	team, err := s.CreateTeam(ctx, c.ID, "Rocket", []sprint.Member{
		{Name: "Ana", Role: "PM"},
		{Name: "Bo", Role: "Developer"},
	})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	return team
}

func TestTeamRoundTrip(t *testing.T) {
	s := setupStore(t)
	want := seedTeam(t, s)

	got, err := s.Team(context.Background(), want.ID)
	if err != nil {
		t.Fatalf("Team: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("team mismatch (-want +got):\n%s", diff)
	}
	if got.Members[0].Name != "Ana" || got.Members[1].Name != "Bo" {
		t.Errorf("members out of order: %+v", got.Members)
	}
}

func TestTeamNotFound(t *testing.T) {
	s := setupStore(t)
	_, err := s.Team(context.Background(), "missing")
	if !errors.Is(err, sprint.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateTeamUnknownCohort(t *testing.T) {
	s := setupStore(t)
	_, err := s.CreateTeam(context.Background(), "nope", "x", nil)
	if !errors.Is(err, sprint.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListTeams(t *testing.T) {
	s := setupStore(t)
	team := seedTeam(t, s)

	teams, err := s.ListTeams(context.Background(), team.CohortID)
	if err != nil {
		t.Fatalf("ListTeams: %v", err)
	}
	if len(teams) != 1 || teams[0].ID != team.ID || len(teams[0].Members) != 2 {
		t.Errorf("unexpected teams: %+v", teams)
	}
}

func TestPutBaselineOverwrites(t *testing.T) {
	s := setupStore(t)
	team := seedTeam(t, s)
	ctx := context.Background()

	if _, err := s.StoryState(ctx, team.ID); !errors.Is(err, sprint.ErrNotFound) {
		t.Fatalf("fresh team: err = %v, want ErrNotFound", err)
	}

	first, err := s.PutBaseline(ctx, sprint.Baseline(team.ID))
	if err != nil {
		t.Fatalf("first baseline: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("version = %d, want 1", first.Version)
	}

	ch := 1
	seg := "ch1-kickoff"
	next := first.Clone()
	next.CurrentChapter = &ch
	next.CurrentSegment = &seg
	next.History = []string{"intro-ready"}
	if _, _, err := s.ApplyTransition(ctx, sprint.Transition{TeamID: team.ID, FromVersion: first.Version, Next: next}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	second, err := s.PutBaseline(ctx, sprint.Baseline(team.ID))
	if err != nil {
		t.Fatalf("second baseline: %v", err)
	}
	if second.Version != 3 {
		t.Errorf("version = %d, want 3", second.Version)
	}

	got, err := s.StoryState(ctx, team.ID)
	if err != nil {
		t.Fatalf("StoryState: %v", err)
	}
	want := sprint.Baseline(team.ID)
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(sprint.StoryState{}, "Version", "UpdatedAt")); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyTransitionVersionConflict(t *testing.T) {
	s := setupStore(t)
	team := seedTeam(t, s)
	ctx := context.Background()

	base, err := s.PutBaseline(ctx, sprint.Baseline(team.ID))
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}

	seg := "intro-ready"
	next := base.Clone()
	next.CurrentSegment = &seg
	_, _, err = s.ApplyTransition(ctx, sprint.Transition{TeamID: team.ID, FromVersion: base.Version + 5, Next: next})
	if !errors.Is(err, sprint.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	got, err := s.StoryState(ctx, team.ID)
	if err != nil {
		t.Fatalf("StoryState: %v", err)
	}
	if got.CurrentSegment != nil || got.Version != base.Version {
		t.Errorf("state changed after conflict: %+v", got)
	}
}

func TestApplyTransitionUnlocksOnce(t *testing.T) {
	s := setupStore(t)
	team := seedTeam(t, s)
	ctx := context.Background()

	err := s.SyncTaskDefinitions(ctx, []sprint.Task{
		{ID: "ch1-a", Chapter: 1, Title: "A"},
		{ID: "ch1-b", Chapter: 1, Title: "B"},
		{ID: "ch2-a", Chapter: 2, Title: "C"},
	})
	if err != nil {
		t.Fatalf("sync tasks: %v", err)
	}

	st, err := s.PutBaseline(ctx, sprint.Baseline(team.ID))
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}

	ch := 1
	st, unlocked, err := s.ApplyTransition(ctx, sprint.Transition{TeamID: team.ID, FromVersion: st.Version, Next: st, UnlockChapter: &ch})
	if err != nil {
		t.Fatalf("first unlock: %v", err)
	}
	if diff := cmp.Diff([]string{"ch1-a", "ch1-b"}, unlocked); diff != "" {
		t.Errorf("first unlock mismatch (-want +got):\n%s", diff)
	}

	_, unlocked, err = s.ApplyTransition(ctx, sprint.Transition{TeamID: team.ID, FromVersion: st.Version, Next: st, UnlockChapter: &ch})
	if err != nil {
		t.Fatalf("second unlock: %v", err)
	}
	if len(unlocked) != 0 {
		t.Errorf("second unlock = %v, want none", unlocked)
	}

	tasks, err := s.UnlockedTasks(ctx, team.ID)
	if err != nil {
		t.Fatalf("UnlockedTasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "ch1-a" || tasks[1].ID != "ch1-b" {
		t.Errorf("unexpected tasks: %+v", tasks)
	}

	chapters, err := s.UnlockedChapters(ctx, team.ID)
	if err != nil {
		t.Fatalf("UnlockedChapters: %v", err)
	}
	if diff := cmp.Diff([]int{1}, chapters); diff != "" {
		t.Errorf("chapters mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyTransitionConflictSkipsUnlock(t *testing.T) {
	s := setupStore(t)
	team := seedTeam(t, s)
	ctx := context.Background()

	if err := s.SyncTaskDefinitions(ctx, []sprint.Task{{ID: "ch1-a", Chapter: 1, Title: "A"}}); err != nil {
		t.Fatalf("sync tasks: %v", err)
	}
	st, err := s.PutBaseline(ctx, sprint.Baseline(team.ID))
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}

	ch := 1
	_, _, err = s.ApplyTransition(ctx, sprint.Transition{TeamID: team.ID, FromVersion: st.Version - 1, Next: st, UnlockChapter: &ch})
	if !errors.Is(err, sprint.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	tasks, err := s.UnlockedTasks(ctx, team.ID)
	if err != nil {
		t.Fatalf("UnlockedTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("tasks unlocked despite conflict: %+v", tasks)
	}
}
