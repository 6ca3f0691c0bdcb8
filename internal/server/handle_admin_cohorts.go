package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/sprintstory/internal/sprint"
)

const dateTimeLayout = "2006-01-02T15:04:05.000Z"

type AdminCohortRequest struct {
	Name     string `json:"name"`
	StartsAt string `json:"startsAt,omitempty"`
	EndsAt   string `json:"endsAt,omitempty"`
}

type CohortResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	StartsAt *string `json:"startsAt"`
	EndsAt   *string `json:"endsAt"`
}

type AdminMember struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type AdminTeamRequest struct {
	Name    string        `json:"name"`
	Members []AdminMember `json:"members"`
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(dateTimeLayout)
	return &s
}

// parseOptionalTime accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseOptionalTime(field, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s must be RFC 3339 or YYYY-MM-DD: %w", field, sprint.ErrInvalidArgument)
}

func toCohortResponse(c sprint.Cohort) CohortResponse {
	return CohortResponse{
		ID:       c.ID,
		Name:     c.Name,
		StartsAt: formatOptional(c.StartsAt),
		EndsAt:   formatOptional(c.EndsAt),
	}
}

func handleAdminListCohorts(logger *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cohorts, err := dir.ListCohorts(r.Context())
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		resp := make([]CohortResponse, 0, len(cohorts))
		for _, c := range cohorts {
			resp = append(resp, toCohortResponse(c))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAdminCreateCohort(logger *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminCohortRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		starts, err := parseOptionalTime("startsAt", req.StartsAt)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		ends, err := parseOptionalTime("endsAt", req.EndsAt)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		if starts != nil && ends != nil && ends.Before(*starts) {
			writeError(w, http.StatusBadRequest, "endsAt must not be before startsAt")
			return
		}

		c, err := dir.CreateCohort(r.Context(), sprint.Cohort{Name: req.Name, StartsAt: starts, EndsAt: ends})
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toCohortResponse(c))
	}
}

func handleAdminListTeams(logger *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := dir.ListTeams(r.Context(), chi.URLParam(r, "cohortID"))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		resp := make([]TeamResponse, 0, len(teams))
		for _, t := range teams {
			resp = append(resp, toTeamResponse(t))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAdminCreateTeam(logger *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminTeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		members := make([]sprint.Member, 0, len(req.Members))
		for i, m := range req.Members {
			name := strings.TrimSpace(m.Name)
			role := strings.TrimSpace(m.Role)
			if name == "" || role == "" {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("member %d: name and role are required", i+1))
				return
			}
			members = append(members, sprint.Member{Name: name, Role: role})
		}

		team, err := dir.CreateTeam(r.Context(), chi.URLParam(r, "cohortID"), req.Name, members)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toTeamResponse(team))
	}
}
