package story

import (
	"github.com/playperu/sprintstory/internal/script"
	"github.com/playperu/sprintstory/internal/tokens"
)

type ViewKind string

const (
	// ViewIntro tells the client to play the intro script.
	ViewIntro           ViewKind = "intro"
	ViewSegment         ViewKind = "segment"
	ViewChapterComplete ViewKind = "chapter_complete"
	// ViewFinished means every chapter is done.
	ViewFinished ViewKind = "finished"
)

type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Segment is a script segment with placeholders rendered for one team.
type Segment struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Chapter   int      `json:"chapter"`
	Media     string   `json:"media,omitempty"`
	Character string   `json:"character,omitempty"`
	Text      string   `json:"text,omitempty"`
	Prompt    string   `json:"prompt,omitempty"`
	Choices   []Choice `json:"choices,omitempty"`
}

type View struct {
	Kind    ViewKind
	Segment *Segment
	// Chapter is the completed chapter for ViewChapterComplete.
	Chapter *int
}

func renderSegment(r tokens.Renderer, seg script.Segment, c tokens.Context) *Segment {
	out := &Segment{
		ID:        seg.ID,
		Type:      string(seg.Kind),
		Chapter:   seg.Chapter,
		Media:     seg.Media,
		Character: r.Render(seg.Character, c),
		Text:      r.Render(seg.Text, c),
		Prompt:    r.Render(seg.Prompt, c),
	}
	for _, ch := range seg.Choices {
		out.Choices = append(out.Choices, Choice{ID: ch.ID, Label: r.Render(ch.Label, c)})
	}
	return out
}
