package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi31"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthStatus is one dependency's entry in the /healthz body.
type HealthStatus struct {
	Status string `json:"status"`
}

func newOpenAPISpec() *openapi31.Spec {
	r := openapi31.NewReflector()
	r.Spec.Info.Title = "Sprint Story API"
	r.Spec.Info.Version = "0.3.0"
	r.Spec.Info.WithDescription("Sprint story progression, team tasks and admin announcements.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /story/current
	getCurrent, _ := r.NewOperationContext(http.MethodGet, "/story/current")
	getCurrent.SetSummary("Current segment")
	getCurrent.SetDescription("Returns the team's current rendered segment. segment is null and showIntro is true when the intro has not been played.")
	getCurrent.AddReqStructure(struct {
		TeamID string `query:"teamId" required:"true"`
	}{})
	getCurrent.AddRespStructure(CurrentSegmentResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getCurrent.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	getCurrent.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getCurrent.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(getCurrent)

	// POST /story/intro-complete
	postIntro, _ := r.NewOperationContext(http.MethodPost, "/story/intro-complete")
	postIntro.SetSummary("Complete intro")
	postIntro.SetDescription("Resets the team to the post-intro baseline state. Idempotent.")
	postIntro.AddReqStructure(IntroCompleteRequest{})
	postIntro.AddRespStructure(StoryStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postIntro.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postIntro.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postIntro)

	// POST /story/advance
	postAdvance, _ := r.NewOperationContext(http.MethodPost, "/story/advance")
	postAdvance.SetSummary("Advance segment")
	postAdvance.SetDescription("Completes a segment and moves the team along the script. choiceId is required for CHOICE segments.")
	postAdvance.AddReqStructure(AdvanceRequest{})
	postAdvance.AddRespStructure(AdvanceResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postAdvance.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postAdvance.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postAdvance.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAdvance)

	// GET /story/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/story/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events for a team's story progress and admin announcements.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /sprint/teams/{teamID}
	getTeam, _ := r.NewOperationContext(http.MethodGet, "/sprint/teams/{teamID}")
	getTeam.SetSummary("Get team")
	getTeam.AddReqStructure(struct {
		TeamID string `path:"teamID"`
	}{})
	getTeam.AddRespStructure(TeamResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getTeam)

	// GET /sprint/teams/{teamID}/tasks
	getTasks, _ := r.NewOperationContext(http.MethodGet, "/sprint/teams/{teamID}/tasks")
	getTasks.SetSummary("Unlocked tasks")
	getTasks.SetDescription("Lists the tasks the team's story progress has unlocked.")
	getTasks.AddReqStructure(struct {
		TeamID string `path:"teamID"`
	}{})
	getTasks.AddRespStructure([]TaskResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getTasks.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getTasks)

	// GET /sprint/announcements/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/sprint/announcements/ws")
	getWS.SetSummary("Announcement WebSocket")
	getWS.SetDescription("Upgrades to a WebSocket connection that receives admin announcements.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// POST /sprint/admin/announce
	postAnnounce, _ := r.NewOperationContext(http.MethodPost, "/sprint/admin/announce")
	postAnnounce.SetSummary("Broadcast announcement")
	postAnnounce.SetDescription("Publishes a message on the shared announcement channel. 500 when no channel is configured.")
	postAnnounce.AddReqStructure(AnnounceRequest{})
	postAnnounce.AddRespStructure(AnnounceResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postAnnounce.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postAnnounce.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postAnnounce.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(postAnnounce)

	// GET /sprint/admin/cohorts
	listCohorts, _ := r.NewOperationContext(http.MethodGet, "/sprint/admin/cohorts")
	listCohorts.SetSummary("List cohorts")
	listCohorts.AddRespStructure([]CohortResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listCohorts.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listCohorts)

	// POST /sprint/admin/cohorts
	createCohort, _ := r.NewOperationContext(http.MethodPost, "/sprint/admin/cohorts")
	createCohort.SetSummary("Create cohort")
	createCohort.AddReqStructure(AdminCohortRequest{})
	createCohort.AddRespStructure(CohortResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createCohort.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createCohort.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(createCohort)

	// GET /sprint/admin/cohorts/{cohortID}/teams
	listTeams, _ := r.NewOperationContext(http.MethodGet, "/sprint/admin/cohorts/{cohortID}/teams")
	listTeams.SetSummary("List teams")
	listTeams.AddReqStructure(struct {
		CohortID string `path:"cohortID"`
	}{})
	listTeams.AddRespStructure([]TeamResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listTeams.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	listTeams.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listTeams)

	// POST /sprint/admin/cohorts/{cohortID}/teams
	createTeam, _ := r.NewOperationContext(http.MethodPost, "/sprint/admin/cohorts/{cohortID}/teams")
	createTeam.SetSummary("Create team")
	createTeam.SetDescription("Creates a team with its members in display order.")
	createTeam.AddReqStructure(struct {
		CohortID string `path:"cohortID"`
		AdminTeamRequest
	}{})
	createTeam.AddRespStructure(TeamResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	createTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(createTeam)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
