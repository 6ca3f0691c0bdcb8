// Package tokens substitutes team placeholders such as {{pm.name}} or
// {{sprint.endDate|date}} in script text.
package tokens

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/playperu/sprintstory/internal/sprint"
)

// Namespaces lists the role namespaces in a stable order.
var Namespaces = []string{"pm", "developer", "designer", "marketer", "sales", "analyst"}

// Synonyms maps a lowercased role label to its namespace.
var Synonyms = map[string]string{
	"pm":                "pm",
	"product manager":   "pm",
	"product owner":     "pm",
	"po":                "pm",
	"developer":         "developer",
	"dev":               "developer",
	"engineer":          "developer",
	"software engineer": "developer",
	"designer":          "designer",
	"ux":                "designer",
	"ui designer":       "designer",
	"product designer":  "designer",
	"marketer":          "marketer",
	"marketing":         "marketer",
	"growth":            "marketer",
	"sales":             "sales",
	"sales rep":         "sales",
	"account executive": "sales",
	"bizdev":            "sales",
	"analyst":           "analyst",
	"data analyst":      "analyst",
	"business analyst":  "analyst",
}

// Defaults is the label used when no member holds a namespace's role.
var Defaults = map[string]string{
	"pm":        "PM",
	"developer": "Developer",
	"designer":  "Designer",
	"marketer":  "Marketer",
	"sales":     "Sales",
	"analyst":   "Analyst",
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z]+)\.([A-Za-z]+)\s*(?:\|\s*([A-Za-z]+)\s*)?\}\}`)

// Context is the team data placeholders resolve against.
type Context struct {
	TeamName string
	Members  []sprint.Member
	EndsAt   *time.Time
}

// FromTeam builds a Context from a team record.
func FromTeam(t sprint.Team) Context {
	return Context{TeamName: t.Name, Members: t.Members, EndsAt: t.CohortEndsAt}
}

// Renderer replaces placeholders. The zero value renders dates for en-US.
type Renderer struct {
	locale language.Tag
}

func NewRenderer(locale language.Tag) Renderer {
	return Renderer{locale: locale}
}

// Resolve returns the member bound to each namespace. The last member in
// list order wins when several share a synonym class.
func Resolve(members []sprint.Member) map[string]sprint.Member {
	out := make(map[string]sprint.Member, len(Namespaces))
	for _, m := range members {
		ns, ok := Synonyms[strings.ToLower(strings.TrimSpace(m.Role))]
		if !ok {
			continue
		}
		out[ns] = m
	}
	return out
}

// Render returns text with every recognized placeholder replaced.
func (r Renderer) Render(text string, c Context) string {
	if text == "" {
		return ""
	}
	roles := Resolve(c.Members)

	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		parts := placeholder.FindStringSubmatch(match)
		ns := strings.ToLower(parts[1])
		field := strings.ToLower(parts[2])
		modifier := strings.ToLower(parts[3])

		if ns == "sprint" {
			return r.sprintField(field, modifier, c, match)
		}

		def, known := Defaults[ns]
		if !known {
			return match
		}
		m, ok := roles[ns]
		if !ok {
			return def
		}
		switch field {
		case "name":
			return m.Name
		case "role":
			return m.Role
		}
		return def
	})
}

func (r Renderer) sprintField(field, modifier string, c Context, raw string) string {
	switch field {
	case "enddate":
		if c.EndsAt == nil {
			return ""
		}
		if modifier == "date" {
			return FormatShortDate(*c.EndsAt, r.locale)
		}
		return c.EndsAt.Format(time.DateOnly)
	case "name", "team":
		return c.TeamName
	}
	return raw
}
