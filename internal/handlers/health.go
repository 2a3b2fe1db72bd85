package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/zackedds/no-rulez-web/internal/services"
)

const ServiceName = "no-rulez"

type HealthResponse struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Service    string                 `json:"service"`
	Components map[string]interface{} `json:"components"`
}

type HealthHandler struct {
	cache         services.Cache
	llmService    services.LLMService
	imagesEnabled bool
	logger        *slog.Logger
}

func NewHealthHandler(cache services.Cache, llmService services.LLMService, imagesEnabled bool, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		cache:         cache,
		llmService:    llmService,
		imagesEnabled: imagesEnabled,
		logger:        logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]interface{})
	overallStatus := "healthy"

	// Game records live only in the cache, so it alone decides health.
	if err := h.cache.Ping(ctx); err != nil {
		h.logger.Warn("Cache health check failed", "error", err)
		components["cache"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["cache"] = "healthy"
	}

	components["referee"] = map[string]interface{}{
		"status":   "configured",
		"provider": h.llmService.Name(),
	}
	if h.imagesEnabled {
		components["images"] = "enabled"
	} else {
		components["images"] = "disabled"
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    ServiceName,
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding health response",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
}
