// Package sprint defines the core domain types shared by the story engine,
// the store and the HTTP layer. It has no external dependencies.
package sprint

import (
	"errors"
	"slices"
	"time"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrConflict        = errors.New("conflict")
	ErrUnconfigured    = errors.New("unconfigured")
)

type Cohort struct {
	ID       string
	Name     string
	StartsAt *time.Time
	EndsAt   *time.Time
}

type Member struct {
	ID   string
	Name string
	Role string
}

type Team struct {
	ID           string
	CohortID     string
	Name         string
	Members      []Member
	CohortEndsAt *time.Time
}

// StoryState is a team's position in the narrative. Only the story engine
// writes it.
type StoryState struct {
	TeamID         string    `json:"teamId"`
	Started        bool      `json:"started"`
	SeenIntro      bool      `json:"seenIntro"`
	CurrentChapter *int      `json:"currentChapter"`
	CurrentSegment *string   `json:"currentSegment"`
	History        []string  `json:"history"`
	Version        int64     `json:"version"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Baseline returns the state a team holds right after finishing the intro.
func Baseline(teamID string) StoryState {
	return StoryState{
		TeamID:    teamID,
		Started:   true,
		SeenIntro: true,
		History:   []string{},
	}
}

// AppendHistory records segmentID unless it is already present.
func (s *StoryState) AppendHistory(segmentID string) {
	if slices.Contains(s.History, segmentID) {
		return
	}
	s.History = append(s.History, segmentID)
}

// Clone returns a deep copy.
func (s StoryState) Clone() StoryState {
	out := s
	out.History = slices.Clone(s.History)
	if s.CurrentChapter != nil {
		c := *s.CurrentChapter
		out.CurrentChapter = &c
	}
	if s.CurrentSegment != nil {
		seg := *s.CurrentSegment
		out.CurrentSegment = &seg
	}
	if out.History == nil {
		out.History = []string{}
	}
	return out
}

// Transition is a computed state change the store must apply atomically:
// the new state replaces the one observed at FromVersion, and when
// UnlockChapter is set that chapter's tasks become visible in the same write.
type Transition struct {
	TeamID        string
	FromVersion   int64
	Next          StoryState
	UnlockChapter *int
}

type Task struct {
	ID         string    `json:"id"`
	Chapter    int       `json:"chapter"`
	Title      string    `json:"title"`
	UnlockedAt time.Time `json:"unlockedAt"`
}
