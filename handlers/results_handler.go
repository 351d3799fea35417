package handlers

import (
	"net/http"

	"github.com/Dosada05/bp-tabulation/services"
)

// ResultsHandler serves room results. The public and admin routes share the
// handlers and differ only in whether the freeze gate applies.
type ResultsHandler struct {
	resultsService services.ResultsService
}

func NewResultsHandler(rs services.ResultsService) *ResultsHandler {
	return &ResultsHandler{resultsService: rs}
}

// RoundResultsHandler обрабатывает GET /rounds/{roundID}/results и
// GET /admin/rounds/{roundID}/results.
func (h *ResultsHandler) RoundResultsHandler(privileged bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roundID, err := getIDFromURL(r, "roundID")
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}

		results, err := h.resultsService.RoundResults(r.Context(), roundID, privileged)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}

		if err := writeJSON(w, http.StatusOK, jsonResponse{"withheld": false, "results": results}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
	}
}

// MatchResultsHandler обрабатывает GET /matches/{matchID}/results и
// GET /admin/matches/{matchID}/results.
func (h *ResultsHandler) MatchResultsHandler(privileged bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID, err := getIDFromURL(r, "matchID")
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}

		room, err := h.resultsService.MatchResults(r.Context(), matchID, privileged)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}

		if err := writeJSON(w, http.StatusOK, jsonResponse{"withheld": false, "room": room}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
	}
}
