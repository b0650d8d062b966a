package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"surplus-redistribution-service/internal/api/dto"
	"surplus-redistribution-service/internal/ports"
	"surplus-redistribution-service/internal/services"
)

// writeServiceError maps engine errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var stageErr *services.StageError
	switch {
	case errors.Is(err, ports.ErrRunInProgress):
		writeError(w, r, http.StatusConflict, "another run is in progress")
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, ports.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.As(err, &stageErr):
		slog.ErrorContext(r.Context(), op+" failed", "stage", stageErr.Stage, "err", err)
		writeJSON(w, r, http.StatusInternalServerError, dto.StageErrorResponse{
			Error:           "run failed",
			Stage:           stageErr.Stage,
			ItemsProcessed:  stageErr.ItemsProcessed,
			ActionsProduced: stageErr.ActionsProduced,
		})
	default:
		slog.ErrorContext(r.Context(), op+" failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
