package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/zackedds/no-rulez-web/internal/engine"
	"github.com/zackedds/no-rulez-web/internal/logger"
	"github.com/zackedds/no-rulez-web/pkg/state"
)

const DefaultAIName = "DeepSeek"

type RefereeRequest struct {
	State      *state.Snapshot `json:"state"`
	PlayerName any             `json:"player_name"`
	PlayerNum  any             `json:"player_num"`
	Action     any             `json:"action"`
}

type OpponentRequest struct {
	State     *state.Snapshot `json:"state"`
	AIName    any             `json:"ai_name"`
	PlayerNum any             `json:"player_num"`
}

type OpponentResponse struct {
	Action string `json:"action"`
}

// RefereeHandler serves hot-seat play where the client owns the state.
type RefereeHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewRefereeHandler(e *engine.Engine, logger *slog.Logger) *RefereeHandler {
	return &RefereeHandler{engine: e, logger: logger}
}

// Referee handles POST /api/referee.
func (h *RefereeHandler) Referee(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)
	if !methodAllowed(w, r, log, http.MethodPost) {
		return
	}

	var req RefereeRequest
	if !decodeBody(w, r, log, LargeBodyLimit, &req) {
		return
	}
	if req.State == nil {
		writeError(w, log, http.StatusBadRequest, "Missing or invalid fields")
		return
	}

	res, err := h.engine.Referee(r.Context(), engine.RefereeRequest{
		State:      *req.State,
		PlayerName: text(req.PlayerName),
		PlayerNum:  seat(req.PlayerNum),
		Action:     text(req.Action),
	})
	if err != nil {
		h.writeRefereeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, res)
}

// Opponent handles POST /api/opponent.
func (h *RefereeHandler) Opponent(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.logger)
	if !methodAllowed(w, r, log, http.MethodPost) {
		return
	}

	var req OpponentRequest
	if !decodeBody(w, r, log, LargeBodyLimit, &req) {
		return
	}
	if req.State == nil {
		writeError(w, log, http.StatusBadRequest, "Missing or invalid fields")
		return
	}

	aiName := text(req.AIName)
	if aiName == "" {
		aiName = DefaultAIName
	}

	action, err := h.engine.Opponent(r.Context(), engine.OpponentRequest{
		State:     *req.State,
		AIName:    aiName,
		PlayerNum: seat(req.PlayerNum),
	})
	if err != nil {
		h.writeRefereeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, OpponentResponse{Action: action})
}

func (h *RefereeHandler) writeRefereeError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		writeError(w, log, http.StatusBadRequest, "Missing or invalid fields")
	case errors.Is(err, engine.ErrRefereeUnavailable):
		writeError(w, log, http.StatusBadGateway, "Referee unavailable. Try again.")
	case errors.Is(err, engine.ErrRefereeFumbled):
		writeError(w, log, http.StatusInternalServerError, "Referee fumbled — could not parse response")
	default:
		log.Error("Referee request failed", "error", err)
		writeError(w, log, http.StatusInternalServerError, "Internal server error")
	}
}

// Register mounts the hot-seat routes on mux.
func (h *RefereeHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/referee", h.Referee)
	mux.HandleFunc("/api/opponent", h.Opponent)
}
