package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/bp-tabulation/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

// errorBody is the error envelope of every failed request.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Ошибка программиста: передан не указатель
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	env := jsonResponse{"error": errorBody{Kind: kind, Message: message}}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, "internal", message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, "bad_request", err.Error())
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, "unauthorized", message)
}

// withheldResponse answers a viewer asking for a frozen round. It is not an error.
func withheldResponse(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, jsonResponse{"withheld": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrResultsWithheld):
		withheldResponse(w, r)

	// Не найдено
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrCompetitionNotFound),
		errors.Is(err, services.ErrRoundNotFound),
		errors.Is(err, services.ErrMatchNotFound):
		errorResponse(w, r, http.StatusNotFound, "not_found", err.Error())

	// Конфликты
	case errors.Is(err, services.ErrDuplicateJudgeScore):
		errorResponse(w, r, http.StatusConflict, "duplicate_score", err.Error())
	case errors.Is(err, services.ErrConcurrentRegeneration):
		errorResponse(w, r, http.StatusConflict, "concurrent_operation", err.Error())
	case errors.Is(err, services.ErrMatchAlreadyCompleted):
		errorResponse(w, r, http.StatusConflict, "match_completed", err.Error())
	case errors.Is(err, services.ErrRoomConflict):
		errorResponse(w, r, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, services.ErrRoundNotOpen):
		errorResponse(w, r, http.StatusConflict, "round_not_open", err.Error())

	// Нарушение правил турнира
	case errors.Is(err, services.ErrInsufficientTeams):
		errorResponse(w, r, http.StatusUnprocessableEntity, "insufficient_teams", err.Error())
	case errors.Is(err, services.ErrScoreIncomplete):
		errorResponse(w, r, http.StatusUnprocessableEntity, "score_incomplete", err.Error())
	case errors.Is(err, services.ErrInvalidStageTransition):
		errorResponse(w, r, http.StatusUnprocessableEntity, "invalid_stage_transition", err.Error())
	case errors.Is(err, services.ErrMatchNotCompleted):
		errorResponse(w, r, http.StatusUnprocessableEntity, "match_not_completed", err.Error())

	// Невалидный запрос
	case errors.Is(err, services.ErrConfirmationRequired):
		errorResponse(w, r, http.StatusBadRequest, "confirmation_required", err.Error())
	case errors.Is(err, services.ErrInvalidScore),
		errors.Is(err, services.ErrUnknownParticipant),
		errors.Is(err, services.ErrInvalidScope),
		errors.Is(err, services.ErrValidationFailed):
		errorResponse(w, r, http.StatusBadRequest, "validation_failed", err.Error())

	// Доступ
	case errors.Is(err, services.ErrAuthenticationFailed):
		unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrUnexpectedJudge):
		errorResponse(w, r, http.StatusForbidden, "forbidden", err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}

func getIDFromURL(r *http.Request, paramName string) (int, error) {
	idStr := chi.URLParam(r, paramName)
	if idStr == "" {
		return 0, fmt.Errorf("missing %s in URL path", paramName)
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %q", paramName, idStr)
	}

	if id <= 0 {
		return 0, fmt.Errorf("invalid %s value: %d", paramName, id)
	}

	return id, nil
}
