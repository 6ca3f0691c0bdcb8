package story

import (
	"fmt"
	"slices"

	"github.com/playperu/sprintstory/internal/script"
	"github.com/playperu/sprintstory/internal/sprint"
)

// Outcome is the result of applying one branch-table edge to a state.
type Outcome struct {
	Next sprint.StoryState
	// UnlockChapter is set when the move enters a chapter.
	UnlockChapter *int
	// CompletedChapter is set when the edge target was CHAPTER_COMPLETE.
	CompletedChapter *int
}

// Step computes the state that follows st when segmentID is completed with
// choiceID. It does no I/O. Linear segments ignore choiceID. segmentID must
// be the team's position or a segment it already completed.
func Step(c *script.Catalog, st sprint.StoryState, segmentID, choiceID string) (Outcome, error) {
	seg, ok := c.Segment(segmentID)
	if !ok {
		return Outcome{}, fmt.Errorf("segment %q is not in the script: %w", segmentID, sprint.ErrInvalidState)
	}
	if !reached(c, st, segmentID) {
		return Outcome{}, fmt.Errorf("segment %q has not been reached yet: %w", segmentID, sprint.ErrInvalidState)
	}
	if seg.Kind == script.KindChoice {
		if choiceID == "" {
			return Outcome{}, fmt.Errorf("segment %q needs a choiceId: %w", segmentID, sprint.ErrInvalidArgument)
		}
		if !seg.HasChoice(choiceID) {
			return Outcome{}, fmt.Errorf("segment %q has no choice %q: %w", segmentID, choiceID, sprint.ErrInvalidArgument)
		}
	}

	target, ok := c.Next(segmentID, choiceID)
	if !ok {
		return Outcome{}, fmt.Errorf("no branch for segment %q choice %q: %w", segmentID, choiceID, sprint.ErrInvalidState)
	}

	out := Outcome{Next: st.Clone()}
	out.Next.AppendHistory(segmentID)

	if target.ChapterComplete {
		done := seg.Chapter
		out.CompletedChapter = &done
		if nc, ok := c.NextChapter(done); ok {
			if first, ok := c.FirstSegment(nc.Number); ok {
				number := nc.Number
				out.Next.CurrentChapter = &number
				out.Next.CurrentSegment = &first
				out.UnlockChapter = &number
				return out, nil
			}
		}
		// Last chapter: no position left, the story is finished.
		out.Next.CurrentChapter = &done
		out.Next.CurrentSegment = nil
		return out, nil
	}

	chapter, ok := c.ChapterOf(target.Segment)
	if !ok {
		return Outcome{}, fmt.Errorf("branch target %q is not in the script: %w", target.Segment, sprint.ErrInvalidState)
	}
	id := target.Segment
	out.Next.CurrentChapter = &chapter
	out.Next.CurrentSegment = &id
	if chapter != seg.Chapter {
		out.UnlockChapter = &chapter
	}
	return out, nil
}

// reached reports whether a team at st may complete segmentID: its current
// segment, the entry segment before any move, or one it already completed.
func reached(c *script.Catalog, st sprint.StoryState, segmentID string) bool {
	switch {
	case st.CurrentSegment != nil:
		if *st.CurrentSegment == segmentID {
			return true
		}
	case st.CurrentChapter == nil:
		if c.Entry() == segmentID {
			return true
		}
	}
	return slices.Contains(st.History, segmentID)
}

// TaskDefinitions flattens the catalog's per-chapter tasks into the rows the
// task store keeps.
func TaskDefinitions(c *script.Catalog) []sprint.Task {
	var defs []sprint.Task
	for _, ch := range c.Chapters() {
		for _, t := range ch.Tasks {
			defs = append(defs, sprint.Task{ID: t.ID, Chapter: ch.Number, Title: t.Title})
		}
	}
	return defs
}
