package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zackedds/no-rulez-web/internal/engine"
	"github.com/zackedds/no-rulez-web/internal/logger"
	"github.com/zackedds/no-rulez-web/pkg/state"
)

type CreateRequest struct {
	PlayerName any `json:"player_name"`
}

type CreateResponse struct {
	Code      string           `json:"code"`
	PlayerNum int              `json:"player_num"`
	Game      *state.GameState `json:"game"`
}

type JoinRequest struct {
	Code       any `json:"code"`
	PlayerName any `json:"player_name"`
}

type JoinResponse struct {
	PlayerNum int              `json:"player_num"`
	Game      *state.GameState `json:"game"`
}

// TurnRequest keeps player_num loose so a string "1" is rejected rather
// than failing the whole decode.
type TurnRequest struct {
	Code      any `json:"code"`
	PlayerNum any `json:"player_num"`
	Action    any `json:"action"`
}

type GameResponse struct {
	Game *state.GameState `json:"game"`
}

type PollResponse struct {
	Changed bool             `json:"changed"`
	Game    *state.GameState `json:"game,omitempty"`
}

// GameHandler serves the online game lifecycle: create, join, turn and poll.
type GameHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewGameHandler(e *engine.Engine, logger *slog.Logger) *GameHandler {
	return &GameHandler{engine: e, logger: logger}
}

func (h *GameHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContext(r.Context(), h.logger)
}

// Create handles POST /api/create.
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	if !methodAllowed(w, r, log, http.MethodPost) {
		return
	}

	var req CreateRequest
	if !decodeBody(w, r, log, SmallBodyLimit, &req) {
		return
	}

	gs, err := h.engine.Create(r.Context(), text(req.PlayerName))
	if err != nil {
		if errors.Is(err, engine.ErrCodeSpaceExhausted) {
			log.Error("Could not allocate game code", "error", err)
			writeError(w, log, http.StatusInternalServerError, "Could not generate unique code")
			return
		}
		log.Error("Failed to create game", "error", err)
		writeError(w, log, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, log, http.StatusOK, CreateResponse{Code: gs.Code, PlayerNum: 1, Game: gs})
}

// Join handles POST /api/join.
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	if !methodAllowed(w, r, log, http.MethodPost) {
		return
	}

	var req JoinRequest
	if !decodeBody(w, r, log, SmallBodyLimit, &req) {
		return
	}

	gs, err := h.engine.Join(r.Context(), text(req.Code), text(req.PlayerName))
	switch {
	case err == nil:
		writeJSON(w, log, http.StatusOK, JoinResponse{PlayerNum: 2, Game: gs})
	case errors.Is(err, engine.ErrInvalidCode):
		writeError(w, log, http.StatusBadRequest, "Invalid game code")
	case errors.Is(err, state.ErrGameNotFound):
		writeError(w, log, http.StatusNotFound, "Game not found. Check the code and try again.")
	case errors.Is(err, state.ErrGameFull):
		writeError(w, log, http.StatusConflict, "Game is already full.")
	default:
		log.Error("Failed to join game", "error", err)
		writeError(w, log, http.StatusInternalServerError, "Internal server error")
	}
}

// Turn handles POST /api/turn.
func (h *GameHandler) Turn(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	if !methodAllowed(w, r, log, http.MethodPost) {
		return
	}

	var req TurnRequest
	if !decodeBody(w, r, log, LargeBodyLimit, &req) {
		return
	}

	gs, err := h.engine.SubmitTurn(r.Context(), engine.TurnRequest{
		Code:      text(req.Code),
		PlayerNum: seat(req.PlayerNum),
		Action:    text(req.Action),
	})
	if err != nil {
		status, msg := turnError(err)
		if status >= http.StatusInternalServerError {
			log.Error("Turn failed", "error", err)
		}
		writeError(w, log, status, msg)
		return
	}

	writeJSON(w, log, http.StatusOK, GameResponse{Game: gs})
}

func turnError(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrInvalidInput), errors.Is(err, state.ErrInvalidPlayer):
		return http.StatusBadRequest, "Missing or invalid fields"
	case errors.Is(err, state.ErrGameNotFound):
		return http.StatusNotFound, "Game not found"
	case errors.Is(err, state.ErrGameFinished):
		return http.StatusBadRequest, "Game is already over"
	case errors.Is(err, state.ErrGameNotActive):
		return http.StatusBadRequest, "Game hasn't started yet"
	case errors.Is(err, state.ErrNotYourTurn):
		return http.StatusBadRequest, "Not your turn"
	case errors.Is(err, engine.ErrRefereeUnavailable):
		return http.StatusBadGateway, "Referee unavailable. Try again."
	case errors.Is(err, engine.ErrRefereeFumbled):
		return http.StatusInternalServerError, "Referee fumbled — could not parse response"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// Poll handles GET /api/poll?code=&since=. An unparsable since is ignored
// and the full record is returned.
func (h *GameHandler) Poll(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	if !methodAllowed(w, r, log, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	code := q.Get("code")
	if code == "" {
		writeError(w, log, http.StatusBadRequest, "Missing code")
		return
	}

	var since *float64
	if raw := q.Get("since"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			since = &v
		}
	}

	gs, changed, err := h.engine.Poll(r.Context(), code, since)
	switch {
	case err == nil:
		writeJSON(w, log, http.StatusOK, PollResponse{Changed: changed, Game: gs})
	case errors.Is(err, engine.ErrInvalidInput):
		writeError(w, log, http.StatusBadRequest, "Missing code")
	case errors.Is(err, state.ErrGameNotFound):
		writeError(w, log, http.StatusNotFound, "Game not found or expired")
	default:
		log.Error("Failed to poll game", "error", err)
		writeError(w, log, http.StatusInternalServerError, "Internal server error")
	}
}

// Register mounts the game routes on mux.
func (h *GameHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/create", h.Create)
	mux.HandleFunc("/api/join", h.Join)
	mux.HandleFunc("/api/turn", h.Turn)
	mux.HandleFunc("/api/poll", h.Poll)
}
