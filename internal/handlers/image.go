package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zackedds/no-rulez-web/internal/engine"
	"github.com/zackedds/no-rulez-web/internal/logger"
	"github.com/zackedds/no-rulez-web/internal/services"
)

type ImageRequest struct {
	Prompt any `json:"prompt"`
}

type ImageResponse struct {
	ImageURL string `json:"image_url"`
}

type ImageHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewImageHandler(e *engine.Engine, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{engine: e, logger: logger}
}

// ServeHTTP handles POST /api/image.
func (h *ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)
	if !methodAllowed(w, r, log, http.MethodPost) {
		return
	}

	var req ImageRequest
	if !decodeBody(w, r, log, SmallBodyLimit, &req) {
		return
	}

	url, err := h.engine.Illustrate(r.Context(), text(req.Prompt))
	if err == nil {
		writeJSON(w, log, http.StatusOK, ImageResponse{ImageURL: url})
		return
	}

	var apiErr *services.ReplicateAPIError
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		writeError(w, log, http.StatusBadRequest, "Missing prompt")
	case errors.Is(err, engine.ErrImageUnavailable):
		writeError(w, log, http.StatusInternalServerError, "Image generation not configured")
	case errors.Is(err, services.ErrImageTimeout), errors.Is(err, context.DeadlineExceeded):
		writeError(w, log, http.StatusGatewayTimeout, "Image generation timed out")
	case errors.As(err, &apiErr):
		log.Warn("Replicate rejected image request", "status", apiErr.StatusCode)
		writeError(w, log, apiErr.StatusCode, apiErr.Error())
	default:
		log.Error("Image generation failed", "error", err)
		writeError(w, log, http.StatusInternalServerError, "Image generation failed")
	}
}
