// Package script holds the static sprint story: its chapters, segments and
// the branch table that links them.
package script

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
)

//go:embed script.yaml
var defaultScript []byte

type Kind string

const (
	KindVideo    Kind = "VIDEO"
	KindDialogue Kind = "DIALOGUE"
	KindChoice   Kind = "CHOICE"
)

// ChapterComplete is the branch target that ends the current chapter.
const ChapterComplete = "CHAPTER_COMPLETE"

type Choice struct {
	ID    string
	Label string
}

type Segment struct {
	ID        string
	Kind      Kind
	Chapter   int
	Media     string
	Character string
	Text      string
	Prompt    string
	Choices   []Choice
}

// HasChoice reports whether id is one of the segment's declared options.
func (s Segment) HasChoice(id string) bool {
	return slices.ContainsFunc(s.Choices, func(c Choice) bool { return c.ID == id })
}

type Task struct {
	ID    string
	Title string
}

type Chapter struct {
	Number   int
	Title    string
	Tasks    []Task
	Segments []string
}

// Edge is a key of the branch table. Choice is empty for linear segments.
type Edge struct {
	Segment string
	Choice  string
}

// Target is where an edge leads: a segment, or the end of the chapter.
type Target struct {
	Segment         string
	ChapterComplete bool
}

// Catalog is immutable once loaded.
type Catalog struct {
	version  int
	entry    string
	chapters []Chapter
	segments map[string]Segment
	branches map[Edge]Target
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultScript)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return Parse(data)
}

func (c *Catalog) Version() int { return c.version }

// Entry is the segment shown to a team that finished the intro but has not
// advanced yet.
func (c *Catalog) Entry() string { return c.entry }

func (c *Catalog) Segment(id string) (Segment, bool) {
	s, ok := c.segments[id]
	return s, ok
}

// Next looks up the branch table. choiceID is ignored for linear segments.
func (c *Catalog) Next(segmentID, choiceID string) (Target, bool) {
	s, ok := c.segments[segmentID]
	if !ok {
		return Target{}, false
	}
	if s.Kind != KindChoice {
		choiceID = ""
	}
	t, ok := c.branches[Edge{Segment: segmentID, Choice: choiceID}]
	return t, ok
}

func (c *Catalog) Chapters() []Chapter { return c.chapters }

func (c *Catalog) Chapter(n int) (Chapter, bool) {
	i := slices.IndexFunc(c.chapters, func(ch Chapter) bool { return ch.Number == n })
	if i < 0 {
		return Chapter{}, false
	}
	return c.chapters[i], true
}

// ChapterOf returns the chapter number a segment belongs to.
func (c *Catalog) ChapterOf(segmentID string) (int, bool) {
	s, ok := c.segments[segmentID]
	return s.Chapter, ok
}

// FirstSegment returns the opening segment of chapter n.
func (c *Catalog) FirstSegment(n int) (string, bool) {
	ch, ok := c.Chapter(n)
	if !ok || len(ch.Segments) == 0 {
		return "", false
	}
	return ch.Segments[0], true
}

// NextChapter returns the chapter following n, if any.
func (c *Catalog) NextChapter(n int) (Chapter, bool) {
	for _, ch := range c.chapters {
		if ch.Number > n {
			return ch, true
		}
	}
	return Chapter{}, false
}

// Branches returns a copy of the branch table.
func (c *Catalog) Branches() map[Edge]Target {
	out := make(map[Edge]Target, len(c.branches))
	for k, v := range c.branches {
		out[k] = v
	}
	return out
}
