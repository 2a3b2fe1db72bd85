// Package client talks to the battle API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zackedds/no-rulez-web/pkg/state"
)

const DefaultTimeout = 60 * time.Second

// APIError is a non-2xx answer carrying the server's error message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
}

// StatusCode extracts the HTTP status from an APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type CreateResult struct {
	Code      string           `json:"code"`
	PlayerNum int              `json:"player_num"`
	Game      *state.GameState `json:"game"`
}

type JoinResult struct {
	PlayerNum int              `json:"player_num"`
	Game      *state.GameState `json:"game"`
}

type gameResult struct {
	Game *state.GameState `json:"game"`
}

type pollResult struct {
	Changed bool             `json:"changed"`
	Game    *state.GameState `json:"game"`
}

// RefereeResult is the stateless referee's answer.
type RefereeResult struct {
	Narrative string               `json:"narrative"`
	Scene     string               `json:"scene"`
	State     state.SnapshotResult `json:"state"`
}

// Health returns nil when the API reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Create starts a game and returns its code with the creator seated as player 1.
func (c *Client) Create(ctx context.Context, playerName string) (*CreateResult, error) {
	var res CreateResult
	body := map[string]any{"player_name": playerName}
	if err := c.do(ctx, http.MethodPost, "/api/create", body, &res); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return &res, nil
}

func (c *Client) Join(ctx context.Context, code, playerName string) (*JoinResult, error) {
	var res JoinResult
	body := map[string]any{"code": code, "player_name": playerName}
	if err := c.do(ctx, http.MethodPost, "/api/join", body, &res); err != nil {
		return nil, fmt.Errorf("failed to join game: %w", err)
	}
	return &res, nil
}

// Turn submits an action and blocks until the referee has resolved it.
func (c *Client) Turn(ctx context.Context, code string, playerNum int, action string) (*state.GameState, error) {
	var res gameResult
	body := map[string]any{"code": code, "player_num": playerNum, "action": action}
	if err := c.do(ctx, http.MethodPost, "/api/turn", body, &res); err != nil {
		return nil, fmt.Errorf("failed to submit turn: %w", err)
	}
	return res.Game, nil
}

// Poll fetches the game when it changed after since. A zero since always
// returns the game.
func (c *Client) Poll(ctx context.Context, code string, since float64) (*state.GameState, bool, error) {
	q := url.Values{"code": {code}}
	if since > 0 {
		q.Set("since", strconv.FormatFloat(since, 'f', -1, 64))
	}

	var res pollResult
	if err := c.do(ctx, http.MethodGet, "/api/poll?"+q.Encode(), nil, &res); err != nil {
		return nil, false, fmt.Errorf("failed to poll game: %w", err)
	}
	return res.Game, res.Changed, nil
}

// Referee resolves one hot-seat action against a client-held snapshot.
func (c *Client) Referee(ctx context.Context, snap state.Snapshot, playerName string, playerNum int, action string) (*RefereeResult, error) {
	var res RefereeResult
	body := map[string]any{
		"state":       snap,
		"player_name": playerName,
		"player_num":  playerNum,
		"action":      action,
	}
	if err := c.do(ctx, http.MethodPost, "/api/referee", body, &res); err != nil {
		return nil, fmt.Errorf("referee request failed: %w", err)
	}
	return &res, nil
}

// Opponent asks the AI for its next move. An empty aiName uses the server default.
func (c *Client) Opponent(ctx context.Context, snap state.Snapshot, aiName string, playerNum int) (string, error) {
	var res struct {
		Action string `json:"action"`
	}
	body := map[string]any{"state": snap, "player_num": playerNum}
	if aiName != "" {
		body["ai_name"] = aiName
	}
	if err := c.do(ctx, http.MethodPost, "/api/opponent", body, &res); err != nil {
		return "", fmt.Errorf("opponent request failed: %w", err)
	}
	return res.Action, nil
}

func (c *Client) Image(ctx context.Context, prompt string) (string, error) {
	var res struct {
		ImageURL string `json:"image_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/image", map[string]any{"prompt": prompt}, &res); err != nil {
		return "", fmt.Errorf("image request failed: %w", err)
	}
	return res.ImageURL, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
			return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
