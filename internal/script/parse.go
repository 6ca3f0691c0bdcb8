package script

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

type scriptDoc struct {
	Version  int          `yaml:"version"`
	Entry    string       `yaml:"entry"`
	Chapters []chapterDoc `yaml:"chapters"`
}

type chapterDoc struct {
	Number   int          `yaml:"number"`
	Title    string       `yaml:"title"`
	Tasks    []taskDoc    `yaml:"tasks"`
	Segments []segmentDoc `yaml:"segments"`
}

type taskDoc struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
}

type segmentDoc struct {
	ID        string      `yaml:"id"`
	Type      Kind        `yaml:"type"`
	Media     string      `yaml:"media"`
	Character string      `yaml:"character"`
	Text      string      `yaml:"text"`
	Prompt    string      `yaml:"prompt"`
	Next      string      `yaml:"next"`
	Choices   []choiceDoc `yaml:"choices"`
}

type choiceDoc struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Next  string `yaml:"next"`
}

// Parse decodes and validates a YAML catalog, compiling its branch table.
func Parse(data []byte) (*Catalog, error) {
	var doc scriptDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding script: %w", err)
	}
	c, err := compile(doc)
	if err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return c, nil
}

func compile(doc scriptDoc) (*Catalog, error) {
	if len(doc.Chapters) == 0 {
		return nil, errors.New("no chapters")
	}

	c := &Catalog{
		version:  doc.Version,
		entry:    doc.Entry,
		segments: make(map[string]Segment),
		branches: make(map[Edge]Target),
	}
	taskIDs := make(map[string]bool)

	for i, chd := range doc.Chapters {
		if i > 0 && chd.Number <= doc.Chapters[i-1].Number {
			return nil, fmt.Errorf("chapter %d: numbers must ascend", chd.Number)
		}
		if len(chd.Segments) == 0 {
			return nil, fmt.Errorf("chapter %d: no segments", chd.Number)
		}
		ch := Chapter{Number: chd.Number, Title: chd.Title}
		for _, td := range chd.Tasks {
			if td.ID == "" {
				return nil, fmt.Errorf("chapter %d: task without id", chd.Number)
			}
			if taskIDs[td.ID] {
				return nil, fmt.Errorf("task %q: duplicate id", td.ID)
			}
			taskIDs[td.ID] = true
			ch.Tasks = append(ch.Tasks, Task{ID: td.ID, Title: td.Title})
		}

		for j, sd := range chd.Segments {
			if sd.ID == "" {
				return nil, fmt.Errorf("chapter %d: segment without id", chd.Number)
			}
			if sd.ID == ChapterComplete {
				return nil, fmt.Errorf("segment id %q is reserved", sd.ID)
			}
			if _, dup := c.segments[sd.ID]; dup {
				return nil, fmt.Errorf("segment %q: duplicate id", sd.ID)
			}
			seg := Segment{
				ID:        sd.ID,
				Kind:      sd.Type,
				Chapter:   chd.Number,
				Media:     sd.Media,
				Character: sd.Character,
				Text:      sd.Text,
				Prompt:    sd.Prompt,
			}

			switch sd.Type {
			case KindVideo, KindDialogue:
				if len(sd.Choices) > 0 {
					return nil, fmt.Errorf("segment %q: only CHOICE segments take choices", sd.ID)
				}
				next := sd.Next
				if next == "" {
					next = ChapterComplete
					if j+1 < len(chd.Segments) {
						next = chd.Segments[j+1].ID
					}
				}
				c.branches[Edge{Segment: sd.ID}] = target(next)
			case KindChoice:
				if len(sd.Choices) == 0 {
					return nil, fmt.Errorf("segment %q: choice without options", sd.ID)
				}
				seen := make(map[string]bool, len(sd.Choices))
				for _, cd := range sd.Choices {
					if cd.ID == "" || seen[cd.ID] {
						return nil, fmt.Errorf("segment %q: missing or duplicate choice id %q", sd.ID, cd.ID)
					}
					if cd.Next == "" {
						return nil, fmt.Errorf("segment %q choice %q: no next", sd.ID, cd.ID)
					}
					seen[cd.ID] = true
					seg.Choices = append(seg.Choices, Choice{ID: cd.ID, Label: cd.Label})
					c.branches[Edge{Segment: sd.ID, Choice: cd.ID}] = target(cd.Next)
				}
			default:
				return nil, fmt.Errorf("segment %q: unknown type %q", sd.ID, sd.Type)
			}

			c.segments[sd.ID] = seg
			ch.Segments = append(ch.Segments, sd.ID)
		}
		c.chapters = append(c.chapters, ch)
	}

	for e, t := range c.branches {
		if t.ChapterComplete {
			continue
		}
		if _, ok := c.segments[t.Segment]; !ok {
			return nil, fmt.Errorf("segment %q: next %q does not exist", e.Segment, t.Segment)
		}
	}
	if c.entry == "" {
		c.entry = c.chapters[0].Segments[0]
	}
	if _, ok := c.segments[c.entry]; !ok {
		return nil, fmt.Errorf("entry %q does not exist", c.entry)
	}
	return c, nil
}

func target(next string) Target {
	if next == ChapterComplete {
		return Target{ChapterComplete: true}
	}
	return Target{Segment: next}
}
