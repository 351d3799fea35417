package handlers

import (
	"net/http"

	"github.com/Dosada05/bp-tabulation/middleware"
	"github.com/Dosada05/bp-tabulation/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

// SubmitScoresHandler обрабатывает POST /matches/{matchID}/scores.
// Судья берётся из токена, а не из тела запроса.
func (h *MatchHandler) SubmitScoresHandler(w http.ResponseWriter, r *http.Request) {
	judge, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to submit scores")
		return
	}

	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.SubmitScoresInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	scores, err := h.matchService.SubmitScores(r.Context(), matchID, judge.UserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusCreated
	if input.Update {
		status = http.StatusOK
	}
	if err := writeJSON(w, status, jsonResponse{"scores": scores}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CompleteHandler обрабатывает POST /admin/matches/{matchID}/complete
func (h *MatchHandler) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.CompleteMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReopenHandler обрабатывает POST /admin/matches/{matchID}/reopen
func (h *MatchHandler) ReopenHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.ReopenMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type assignJudgesInput struct {
	JudgeIDs []int `json:"judge_ids"`
}

// AssignJudgesHandler обрабатывает PUT /admin/matches/{matchID}/judges
func (h *MatchHandler) AssignJudgesHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input assignJudgesInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.AssignJudges(r.Context(), matchID, input.JudgeIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateRoomHandler обрабатывает POST /admin/rounds/{roundID}/matches
func (h *MatchHandler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := getIDFromURL(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CreateRoomInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.CreateRoom(r.Context(), roundID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
