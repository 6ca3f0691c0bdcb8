package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "intro-ready", c.Entry())
	require.Len(t, c.Chapters(), 4)

	intro, ok := c.Chapter(0)
	require.True(t, ok)
	assert.Empty(t, intro.Tasks)
	last := intro.Segments[len(intro.Segments)-1]
	assert.Equal(t, "intro-ready", last)

	seg, ok := c.Segment("intro-ready")
	require.True(t, ok)
	assert.Equal(t, KindChoice, seg.Kind)
	assert.True(t, seg.HasChoice("go"))
	assert.False(t, seg.HasChoice("stay"))

	ch1, ok := c.Chapter(1)
	require.True(t, ok)
	assert.Equal(t, []Task{
		{ID: "ch1-customer-interviews", Title: "Run five customer interviews"},
		{ID: "ch1-problem-statement", Title: "Write the problem statement"},
	}, ch1.Tasks)
}

func TestBranchTable(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name    string
		segment string
		choice  string
		want    Target
		ok      bool
	}{
		{"linear default successor", "intro-video", "", Target{Segment: "intro-hello"}, true},
		{"linear ignores choice", "intro-video", "whatever", Target{Segment: "intro-hello"}, true},
		{"linear explicit next", "ch1-interview", "", Target{Segment: "ch1-wrap"}, true},
		{"choice crosses chapter", "intro-ready", "go", Target{Segment: "ch1-kickoff"}, true},
		{"choice completes chapter", "ch1-wrap", "continue", Target{ChapterComplete: true}, true},
		{"choice loops back", "ch1-wrap", "revisit", Target{Segment: "ch1-approach"}, true},
		{"choice without option", "intro-ready", "", Target{}, false},
		{"unknown option", "intro-ready", "nope", Target{}, false},
		{"unknown segment", "missing", "", Target{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Next(tt.segment, tt.choice)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEveryChoiceHasABranch(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	branches := c.Branches()
	for _, ch := range c.Chapters() {
		for _, id := range ch.Segments {
			seg, _ := c.Segment(id)
			if seg.Kind != KindChoice {
				_, ok := branches[Edge{Segment: id}]
				assert.True(t, ok, "linear segment %s has no successor", id)
				continue
			}
			for _, choice := range seg.Choices {
				_, ok := branches[Edge{Segment: id, Choice: choice.ID}]
				assert.True(t, ok, "segment %s choice %s has no branch", id, choice.ID)
			}
		}
	}
}

func TestNextChapter(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	ch, ok := c.NextChapter(1)
	require.True(t, ok)
	assert.Equal(t, 2, ch.Number)

	_, ok = c.NextChapter(3)
	assert.False(t, ok)
}

func TestChapterLookups(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	n, ok := c.ChapterOf("ch2-sketch")
	require.True(t, ok)
	assert.Equal(t, 2, n)
	_, ok = c.ChapterOf("nowhere")
	assert.False(t, ok)

	first, ok := c.FirstSegment(3)
	require.True(t, ok)
	assert.Equal(t, "ch3-build", first)
	_, ok = c.FirstSegment(9)
	assert.False(t, ok)
}

func TestLastLinearSegmentCompletesChapter(t *testing.T) {
	c, err := Parse([]byte(`
chapters:
  - number: 1
    segments:
      - id: a
        type: VIDEO
      - id: b
        type: DIALOGUE
        text: hi
`))
	require.NoError(t, err)

	got, ok := c.Next("b", "")
	require.True(t, ok)
	assert.True(t, got.ChapterComplete)
	assert.Equal(t, "a", c.Entry())
}

func TestParseRejectsBrokenScripts(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no chapters", `version: 1`},
		{"dangling next", `
chapters:
  - number: 1
    segments:
      - id: a
        type: VIDEO
        next: nowhere
`},
		{"duplicate segment", `
chapters:
  - number: 1
    segments:
      - id: a
        type: VIDEO
      - id: a
        type: VIDEO
`},
		{"choice without options", `
chapters:
  - number: 1
    segments:
      - id: a
        type: CHOICE
`},
		{"duplicate choice id", `
chapters:
  - number: 1
    segments:
      - id: a
        type: CHOICE
        choices:
          - {id: x, next: CHAPTER_COMPLETE}
          - {id: x, next: CHAPTER_COMPLETE}
`},
		{"unknown type", `
chapters:
  - number: 1
    segments:
      - id: a
        type: AUDIO
`},
		{"chapters out of order", `
chapters:
  - number: 2
    segments: [{id: a, type: VIDEO}]
  - number: 1
    segments: [{id: b, type: VIDEO}]
`},
		{"missing entry", `
entry: nope
chapters:
  - number: 1
    segments: [{id: a, type: VIDEO}]
`},
		{"duplicate task", `
chapters:
  - number: 1
    tasks: [{id: t}, {id: t}]
    segments: [{id: a, type: VIDEO}]
`},
		{"not yaml", `chapters: [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
