package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/bp-tabulation/middleware"
	"github.com/Dosada05/bp-tabulation/services"
)

type RoundHandler struct {
	roundService services.RoundService
}

func NewRoundHandler(rs services.RoundService) *RoundHandler {
	return &RoundHandler{roundService: rs}
}

// ListRoundsHandler обрабатывает GET /competitions/{competitionID}/rounds
func (h *RoundHandler) ListRoundsHandler(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rounds, err := h.roundService.ListRounds(r.Context(), competitionID, false)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rounds": rounds}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type freezeInput struct {
	Frozen *bool `json:"frozen"`
}

// FreezeHandler обрабатывает POST /admin/rounds/{roundID}/freeze
func (h *RoundHandler) FreezeHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	roundID, err := getIDFromURL(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input freezeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Frozen == nil {
		badRequestResponse(w, r, errors.New("field \"frozen\" is required"))
		return
	}

	round, err := h.roundService.SetFrozen(r.Context(), roundID, *input.Frozen, actor.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"round": round}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type motionInput struct {
	Motion string `json:"motion"`
}

// MotionHandler обрабатывает PUT /admin/rounds/{roundID}/motion
func (h *RoundHandler) MotionHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := getIDFromURL(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input motionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	round, err := h.roundService.SetMotion(r.Context(), roundID, input.Motion)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"round": round}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
