// Package story runs the sprint story: it reads a team's position, checks a
// requested move against the script's branch table and persists the result
// together with any chapter unlock.
package story

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/playperu/sprintstory/internal/script"
	"github.com/playperu/sprintstory/internal/sprint"
	"github.com/playperu/sprintstory/internal/tokens"
)

type Teams interface {
	Team(ctx context.Context, id string) (sprint.Team, error)
}

// States is the durable story state record. ApplyTransition must write the
// state and the chapter unlock atomically and reject stale versions with
// sprint.ErrConflict.
type States interface {
	StoryState(ctx context.Context, teamID string) (sprint.StoryState, error)
	PutBaseline(ctx context.Context, st sprint.StoryState) (sprint.StoryState, error)
	ApplyTransition(ctx context.Context, tr sprint.Transition) (sprint.StoryState, []string, error)
}

// Notifier receives story events after they are persisted.
type Notifier interface {
	Notify(teamID string, ev Event)
}

type Event struct {
	Type          string   `json:"type"`
	SegmentID     string   `json:"segmentId,omitempty"`
	Chapter       *int     `json:"chapter,omitempty"`
	UnlockedTasks []string `json:"unlockedTasks,omitempty"`
}

const (
	EventIntroCompleted  = "intro_completed"
	EventSegmentAdvanced = "segment_advanced"
	EventChapterUnlocked = "chapter_unlocked"
)

type Engine struct {
	catalog  *script.Catalog
	teams    Teams
	states   States
	renderer tokens.Renderer
	notifier Notifier
	logger   *slog.Logger
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithRenderer(r tokens.Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

func New(logger *slog.Logger, catalog *script.Catalog, teams Teams, states States, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		teams:   teams,
		states:  states,
		logger:  logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Result is returned by AdvanceSegment.
type Result struct {
	Next          View
	UnlockedTasks []string
	State         sprint.StoryState
}

// GetCurrentSegment returns what the team should see now.
func (e *Engine) GetCurrentSegment(ctx context.Context, teamID string) (View, error) {
	if teamID == "" {
		return View{}, fmt.Errorf("teamId is required: %w", sprint.ErrInvalidArgument)
	}
	team, err := e.teams.Team(ctx, teamID)
	if err != nil {
		return View{}, err
	}

	st, err := e.states.StoryState(ctx, teamID)
	if errors.Is(err, sprint.ErrNotFound) {
		return View{Kind: ViewIntro}, nil
	}
	if err != nil {
		return View{}, err
	}
	if !st.Started {
		return View{Kind: ViewIntro}, nil
	}

	segmentID := e.catalog.Entry()
	if st.CurrentSegment != nil {
		segmentID = *st.CurrentSegment
	} else if st.CurrentChapter != nil {
		return View{Kind: ViewFinished, Chapter: st.CurrentChapter}, nil
	}

	seg, ok := e.catalog.Segment(segmentID)
	if !ok {
		return View{}, fmt.Errorf("team %q sits on unknown segment %q: %w", teamID, segmentID, sprint.ErrInvalidState)
	}
	return View{Kind: ViewSegment, Segment: renderSegment(e.renderer, seg, tokens.FromTeam(team))}, nil
}

// CompleteIntro resets the team to the post-intro baseline, discarding any
// earlier progress. Calling it repeatedly yields the same baseline.
func (e *Engine) CompleteIntro(ctx context.Context, teamID string) (sprint.StoryState, error) {
	if teamID == "" {
		return sprint.StoryState{}, fmt.Errorf("teamId is required: %w", sprint.ErrInvalidArgument)
	}
	if _, err := e.teams.Team(ctx, teamID); err != nil {
		return sprint.StoryState{}, err
	}

	st, err := e.states.PutBaseline(ctx, sprint.Baseline(teamID))
	if err != nil {
		return sprint.StoryState{}, fmt.Errorf("writing baseline: %w", err)
	}
	e.logger.Info("story intro completed", "team_id", teamID)
	e.notify(teamID, Event{Type: EventIntroCompleted})
	return st, nil
}

// AdvanceSegment completes segmentID (with choiceID for choice segments) and
// moves the team along the branch table.
func (e *Engine) AdvanceSegment(ctx context.Context, teamID, segmentID, choiceID string) (Result, error) {
	if teamID == "" || segmentID == "" {
		return Result{}, fmt.Errorf("teamId and segmentId are required: %w", sprint.ErrInvalidArgument)
	}

	team, err := e.teams.Team(ctx, teamID)
	if err != nil {
		return Result{}, err
	}
	st, err := e.states.StoryState(ctx, teamID)
	if err != nil {
		return Result{}, err
	}

	out, err := Step(e.catalog, st, segmentID, choiceID)
	if err != nil {
		return Result{}, err
	}

	saved, unlocked, err := e.states.ApplyTransition(ctx, sprint.Transition{
		TeamID:        teamID,
		FromVersion:   st.Version,
		Next:          out.Next,
		UnlockChapter: out.UnlockChapter,
	})
	if err != nil {
		return Result{}, err
	}
	if unlocked == nil {
		unlocked = []string{}
	}

	res := Result{UnlockedTasks: unlocked, State: saved}
	switch {
	case out.CompletedChapter != nil:
		res.Next = View{Kind: ViewChapterComplete, Chapter: out.CompletedChapter}
	case saved.CurrentSegment != nil:
		seg, _ := e.catalog.Segment(*saved.CurrentSegment)
		res.Next = View{Kind: ViewSegment, Segment: renderSegment(e.renderer, seg, tokens.FromTeam(team))}
	default:
		res.Next = View{Kind: ViewFinished, Chapter: saved.CurrentChapter}
	}

	e.logger.Info("story advanced",
		"team_id", teamID,
		"segment", segmentID,
		"choice", choiceID,
		"version", saved.Version,
		"unlocked_tasks", len(unlocked),
	)

	ev := Event{Type: EventSegmentAdvanced, SegmentID: segmentID, Chapter: saved.CurrentChapter}
	e.notify(teamID, ev)
	if out.UnlockChapter != nil {
		e.notify(teamID, Event{Type: EventChapterUnlocked, Chapter: out.UnlockChapter, UnlockedTasks: unlocked})
	}
	return res, nil
}

func (e *Engine) notify(teamID string, ev Event) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(teamID, ev)
}
