package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/sprintstory/internal/sprint"
)

// Directory is the team and cohort lookup used by the HTTP layer.
type Directory interface {
	Team(ctx context.Context, id string) (sprint.Team, error)
	UnlockedTasks(ctx context.Context, teamID string) ([]sprint.Task, error)
	UnlockedChapters(ctx context.Context, teamID string) ([]int, error)
	CreateCohort(ctx context.Context, c sprint.Cohort) (sprint.Cohort, error)
	ListCohorts(ctx context.Context) ([]sprint.Cohort, error)
	CreateTeam(ctx context.Context, cohortID, name string, members []sprint.Member) (sprint.Team, error)
	ListTeams(ctx context.Context, cohortID string) ([]sprint.Team, error)
}

func handleStoryEvents(logger *slog.Logger, dir Directory, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := r.URL.Query().Get("teamId")
		if teamID == "" {
			writeError(w, http.StatusBadRequest, "teamId is required")
			return
		}
		if _, err := dir.Team(r.Context(), teamID); err != nil {
			writeDomainError(w, logger, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		team := broker.Subscribe(teamTopic(teamID))
		defer broker.Unsubscribe(teamTopic(teamID), team)
		news := broker.Subscribe(announcementsTopic)
		defer broker.Unsubscribe(announcementsTopic, news)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-team:
				fmt.Fprintf(w, "event: story\ndata: %s\n\n", data)
				flusher.Flush()
			case data := <-news:
				fmt.Fprintf(w, "event: announcement\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
