package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/playperu/sprintstory/internal/sprint"
	"github.com/playperu/sprintstory/internal/story"
)

// StoryService is the story engine as seen by the HTTP layer.
type StoryService interface {
	GetCurrentSegment(ctx context.Context, teamID string) (story.View, error)
	CompleteIntro(ctx context.Context, teamID string) (sprint.StoryState, error)
	AdvanceSegment(ctx context.Context, teamID, segmentID, choiceID string) (story.Result, error)
}

type CurrentSegmentResponse struct {
	Segment   *story.Segment `json:"segment"`
	ShowIntro bool           `json:"showIntro"`
	Finished  bool           `json:"finished"`
}

type IntroCompleteRequest struct {
	TeamID string `json:"teamId"`
}

type StoryStateResponse struct {
	TeamID         string   `json:"teamId"`
	Started        bool     `json:"started"`
	SeenIntro      bool     `json:"seenIntro"`
	CurrentChapter *int     `json:"currentChapter"`
	CurrentSegment *string  `json:"currentSegment"`
	History        []string `json:"history"`
	Version        int64    `json:"version"`
	UpdatedAt      string   `json:"updatedAt"`
}

type AdvanceRequest struct {
	TeamID    string `json:"teamId"`
	SegmentID string `json:"segmentId"`
	ChoiceID  string `json:"choiceId,omitempty"`
}

type ChapterCompleteInfo struct {
	Chapter int `json:"chapter"`
}

type AdvanceResponse struct {
	NextSegment     *story.Segment       `json:"nextSegment"`
	ChapterComplete *ChapterCompleteInfo `json:"chapterComplete,omitempty"`
	Finished        bool                 `json:"finished,omitempty"`
	UnlockedTasks   []string             `json:"unlockedTasks"`
}

func toStateResponse(st sprint.StoryState) StoryStateResponse {
	resp := StoryStateResponse{
		TeamID:         st.TeamID,
		Started:        st.Started,
		SeenIntro:      st.SeenIntro,
		CurrentChapter: st.CurrentChapter,
		CurrentSegment: st.CurrentSegment,
		History:        st.History,
		Version:        st.Version,
		UpdatedAt:      st.UpdatedAt.UTC().Format(dateTimeLayout),
	}
	if resp.History == nil {
		resp.History = []string{}
	}
	return resp
}

func handleCurrentSegment(logger *slog.Logger, svc StoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := strings.TrimSpace(r.URL.Query().Get("teamId"))
		if teamID == "" {
			writeError(w, http.StatusBadRequest, "teamId is required")
			return
		}

		v, err := svc.GetCurrentSegment(r.Context(), teamID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, CurrentSegmentResponse{
			Segment:   v.Segment,
			ShowIntro: v.Kind == story.ViewIntro,
			Finished:  v.Kind == story.ViewFinished,
		})
	}
}

func handleIntroComplete(logger *slog.Logger, svc StoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req IntroCompleteRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.TeamID = strings.TrimSpace(req.TeamID)
		if req.TeamID == "" {
			writeError(w, http.StatusBadRequest, "teamId is required")
			return
		}

		st, err := svc.CompleteIntro(r.Context(), req.TeamID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toStateResponse(st))
	}
}

func handleAdvance(logger *slog.Logger, svc StoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdvanceRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.TeamID = strings.TrimSpace(req.TeamID)
		req.SegmentID = strings.TrimSpace(req.SegmentID)
		req.ChoiceID = strings.TrimSpace(req.ChoiceID)
		if req.TeamID == "" || req.SegmentID == "" {
			writeError(w, http.StatusBadRequest, "teamId and segmentId are required")
			return
		}

		res, err := svc.AdvanceSegment(r.Context(), req.TeamID, req.SegmentID, req.ChoiceID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		resp := AdvanceResponse{UnlockedTasks: res.UnlockedTasks}
		switch res.Next.Kind {
		case story.ViewSegment:
			resp.NextSegment = res.Next.Segment
		case story.ViewChapterComplete:
			if res.Next.Chapter != nil {
				resp.ChapterComplete = &ChapterCompleteInfo{Chapter: *res.Next.Chapter}
			}
		case story.ViewFinished:
			resp.Finished = true
		}
		if resp.UnlockedTasks == nil {
			resp.UnlockedTasks = []string{}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
