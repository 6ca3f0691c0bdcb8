package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Sprint Story API", "/openapi.json", "/docs"))
	if deps.Health != nil {
		r.Mount("/healthz", deps.Health)
	}

	r.Route("/story", func(r chi.Router) {
		r.Get("/current", handleCurrentSegment(logger, deps.Story))
		r.Post("/intro-complete", handleIntroComplete(logger, deps.Story))
		r.Post("/advance", handleAdvance(logger, deps.Story))
		r.Get("/events", handleStoryEvents(logger, deps.Directory, deps.Broker))
	})

	r.Route("/sprint", func(r chi.Router) {
		r.Get("/teams/{teamID}", handleTeam(logger, deps.Directory))
		r.Get("/teams/{teamID}/tasks", handleTeamTasks(logger, deps.Directory, deps.Renderer))
		r.Get("/announcements/ws", handleAnnouncementsWS(logger, deps.Broker))

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminKeyMiddleware(logger, deps.AdminKeyHash))
			r.Post("/announce", handleAnnounce(logger, deps.Announcer))
			r.Get("/cohorts", handleAdminListCohorts(logger, deps.Directory))
			r.Post("/cohorts", handleAdminCreateCohort(logger, deps.Directory))
			r.Get("/cohorts/{cohortID}/teams", handleAdminListTeams(logger, deps.Directory))
			r.Post("/cohorts/{cohortID}/teams", handleAdminCreateTeam(logger, deps.Directory))
		})
	})
}
