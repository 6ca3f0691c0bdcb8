package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/sprintstory/internal/sprint"
	"github.com/playperu/sprintstory/internal/tokens"
)

type MemberInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type TeamResponse struct {
	ID               string       `json:"id"`
	CohortID         string       `json:"cohortId"`
	Name             string       `json:"name"`
	CohortEndsAt     *string      `json:"cohortEndsAt"`
	Members          []MemberInfo `json:"members"`
	UnlockedChapters []int        `json:"unlockedChapters,omitempty"`
}

type TaskResponse struct {
	ID         string `json:"id"`
	Chapter    int    `json:"chapter"`
	Title      string `json:"title"`
	UnlockedAt string `json:"unlockedAt"`
}

func toTeamResponse(t sprint.Team) TeamResponse {
	resp := TeamResponse{
		ID:           t.ID,
		CohortID:     t.CohortID,
		Name:         t.Name,
		CohortEndsAt: formatOptional(t.CohortEndsAt),
		Members:      []MemberInfo{},
	}
	for _, m := range t.Members {
		resp.Members = append(resp.Members, MemberInfo{ID: m.ID, Name: m.Name, Role: m.Role})
	}
	return resp
}

func handleTeam(logger *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := dir.Team(r.Context(), chi.URLParam(r, "teamID"))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		chapters, err := dir.UnlockedChapters(r.Context(), team.ID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		resp := toTeamResponse(team)
		resp.UnlockedChapters = chapters
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleTeamTasks lists the tasks a team has unlocked, with titles rendered
// for the team's members.
func handleTeamTasks(logger *slog.Logger, dir Directory, renderer tokens.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := dir.Team(r.Context(), chi.URLParam(r, "teamID"))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		tasks, err := dir.UnlockedTasks(r.Context(), team.ID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		tc := tokens.FromTeam(team)
		resp := make([]TaskResponse, 0, len(tasks))
		for _, t := range tasks {
			resp = append(resp, TaskResponse{
				ID:         t.ID,
				Chapter:    t.Chapter,
				Title:      renderer.Render(t.Title, tc),
				UnlockedAt: t.UnlockedAt.UTC().Format(dateTimeLayout),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
