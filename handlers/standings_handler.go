package handlers

import (
	"net/http"

	"github.com/Dosada05/bp-tabulation/models"
	"github.com/Dosada05/bp-tabulation/services"
)

type StandingsHandler struct {
	standingsService services.StandingsService
}

func NewStandingsHandler(ss services.StandingsService) *StandingsHandler {
	return &StandingsHandler{standingsService: ss}
}

func scopeFromQuery(r *http.Request) models.StandingScope {
	if scope := r.URL.Query().Get("scope"); scope != "" {
		return models.StandingScope(scope)
	}
	return models.ScopeOverall
}

// PublicStandingsHandler обрабатывает GET /competitions/{competitionID}/standings.
// Замороженные раунды в таблицу не попадают.
func (h *StandingsHandler) PublicStandingsHandler(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	board, err := h.standingsService.PublicLeaderboard(r.Context(), competitionID, scopeFromQuery(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": board}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdminStandingsHandler обрабатывает GET /admin/competitions/{competitionID}/standings
func (h *StandingsHandler) AdminStandingsHandler(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	board, err := h.standingsService.ListStandings(r.Context(), competitionID, scopeFromQuery(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": board}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecomputeHandler обрабатывает POST /admin/competitions/{competitionID}/standings/recompute
func (h *StandingsHandler) RecomputeHandler(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.standingsService.RecomputeStandings(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
