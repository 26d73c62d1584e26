package handler

import (
	"errors"
	"net/http"

	"github.com/torvik/resellerpanel/internal/api/response"
	"github.com/torvik/resellerpanel/internal/core"
)

// writeServiceError maps core service errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidState):
		response.WriteError(w, http.StatusConflict, err.Error())
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
