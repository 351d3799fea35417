package handlers

import (
	"net/http"

	"github.com/Dosada05/bp-tabulation/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	stageService      services.StageService
}

func NewTournamentHandler(ts services.TournamentService, ss services.StageService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
		stageService:      ss,
	}
}

// GenerateHandler обрабатывает POST /admin/competitions/{competitionID}/generate
func (h *TournamentHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.GenerateRoundsInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.tournamentService.GenerateRounds(r.Context(), competitionID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"generation": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetStageHandler обрабатывает GET /admin/competitions/{competitionID}/stage
func (h *TournamentHandler) GetStageHandler(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	status, err := h.stageService.CurrentStage(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stage": status}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdvanceStageHandler обрабатывает POST /admin/competitions/{competitionID}/stage/advance.
// Тело запроса необязательно.
func (h *TournamentHandler) AdvanceStageHandler(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.AdvanceStageInput
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}
	if input.Target != "" && !input.Target.Valid() {
		errorResponse(w, r, http.StatusBadRequest, "validation_failed", "unknown target stage "+string(input.Target))
		return
	}

	result, err := h.stageService.AdvanceStage(r.Context(), competitionID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"advance": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
