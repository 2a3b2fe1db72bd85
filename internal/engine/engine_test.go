package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zackedds/no-rulez-web/internal/metrics"
	"github.com/zackedds/no-rulez-web/internal/services"
	"github.com/zackedds/no-rulez-web/internal/storage"
	"github.com/zackedds/no-rulez-web/pkg/chat"
	"github.com/zackedds/no-rulez-web/pkg/state"
)

type harness struct {
	engine *Engine
	cache  *services.MockCache
	store  *storage.GameStore
	llm    *services.MockLLMAPI
	images *services.MockImageService
	clock  time.Time
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	h := &harness{
		cache:  services.NewMockCache(),
		llm:    services.NewMockLLMAPI(),
		images: services.NewMockImageService(),
		clock:  time.Unix(1700000000, 0),
	}
	h.cache.Now = func() time.Time { return h.clock }
	h.store = storage.NewGameStore(h.cache, time.Hour, logger).WithCodeGenerator(func() string { return "482913" })

	if opts.Images == nil {
		opts.Images = h.images
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	opts.Now = func() time.Time {
		h.clock = h.clock.Add(time.Second)
		return h.clock
	}
	h.engine = New(h.store, h.llm, logger, opts)
	return h
}

func (h *harness) activeGame(t *testing.T) *state.GameState {
	t.Helper()
	ctx := context.Background()
	_, err := h.engine.Create(ctx, "Ari")
	require.NoError(t, err)
	gs, err := h.engine.Join(ctx, "482913", "Bo")
	require.NoError(t, err)
	return gs
}

func (h *harness) stored(t *testing.T) *state.GameState {
	t.Helper()
	gs, err := h.store.Load(context.Background(), "482913")
	require.NoError(t, err)
	require.NotNil(t, gs)
	return gs
}

func refereeReply(p1, p2 int, extra string) string {
	return fmt.Sprintf("===NARRATIVE===\nBoom!\n===SCENE===\n  O  O\n===STATE===\n{\"p1_hp\": %d, \"p2_hp\": %d, \"situation\": \"Dust settles.\", \"last_action\": \"A hit.\"%s}", p1, p2, extra)
}

func TestScenario_CreateJoinTurn(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	created, err := h.engine.Create(ctx, "Ari")
	require.NoError(t, err)
	assert.Equal(t, "482913", created.Code)
	assert.Equal(t, state.StatusWaiting, created.Status)
	assert.Nil(t, created.P2Name)

	joined, err := h.engine.Join(ctx, " 482913 ", "Bo")
	require.NoError(t, err)
	assert.Equal(t, state.StatusActive, joined.Status)
	assert.Equal(t, 1, joined.CurrentPlayer)

	gs, err := h.engine.SubmitTurn(ctx, TurnRequest{Code: "482913", PlayerNum: 1, Action: "I throw a rock"})
	require.NoError(t, err)
	assert.Equal(t, 2, gs.Turn)
	assert.Equal(t, 2, gs.CurrentPlayer)
	assert.Equal(t, state.StatusActive, gs.Status)
	assert.Equal(t, 100, gs.P1HP)
	assert.Equal(t, 85, gs.P2HP)
	assert.Equal(t, 1, gs.LastActor)
	assert.Equal(t, "I throw a rock", gs.LastActorAction)
	require.NotNil(t, gs.ImageURL)
	assert.Equal(t, h.images.URL, *gs.ImageURL)

	call, ok := h.llm.LastCall()
	require.True(t, ok)
	assert.Equal(t, TurnMaxTokens, call.Options.MaxTokens)
	assert.Equal(t, chat.DefaultTemperature, call.Options.Temperature)
	require.Len(t, call.Messages, 2)
	assert.Contains(t, call.Messages[1].Content, "Ari (Player 1): 100 HP")
	assert.Contains(t, call.Messages[1].Content, "NOW ACTING: Ari (Player 1)")
	assert.Contains(t, call.Messages[1].Content, "ACTION: I throw a rock")

	before := h.stored(t)
	_, err = h.engine.SubmitTurn(ctx, TurnRequest{Code: "482913", PlayerNum: 1, Action: "again"})
	assert.ErrorIs(t, err, state.ErrNotYourTurn)
	assert.Equal(t, before, h.stored(t), "rejected turn must not mutate the record")
	assert.Equal(t, 1, h.llm.CallCount())
}

func TestJoin(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	_, err := h.engine.Join(ctx, "12345", "Bo")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = h.engine.Join(ctx, "999999", "Bo")
	assert.ErrorIs(t, err, state.ErrGameNotFound)

	h.activeGame(t)
	_, err = h.engine.Join(ctx, "482913", "Cy")
	assert.ErrorIs(t, err, state.ErrGameFull)
	assert.Equal(t, "Bo", *h.stored(t).P2Name)
}

func TestCreate_SanitizesNameAndExhaustsCodes(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	gs, err := h.engine.Create(ctx, "<b>Ari!</b>")
	require.NoError(t, err)
	assert.Equal(t, "bArib", gs.P1Name)

	_, err = h.engine.Create(ctx, "Bo")
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
}

func TestSubmitTurn_Rejections(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	_, err := h.engine.Create(ctx, "Ari")
	require.NoError(t, err)

	tests := []struct {
		name string
		req  TurnRequest
		want error
	}{
		{"missing code", TurnRequest{PlayerNum: 1, Action: "x"}, ErrInvalidInput},
		{"bad seat", TurnRequest{Code: "482913", PlayerNum: 3, Action: "x"}, ErrInvalidInput},
		{"blank action", TurnRequest{Code: "482913", PlayerNum: 1, Action: " \x00 "}, ErrInvalidInput},
		{"unknown game", TurnRequest{Code: "000000", PlayerNum: 1, Action: "x"}, state.ErrGameNotFound},
		{"waiting for p2", TurnRequest{Code: "482913", PlayerNum: 1, Action: "x"}, state.ErrGameNotActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.SubmitTurn(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsRejection(err))
		})
	}
	assert.Zero(t, h.llm.CallCount())
}

func TestSubmitTurn_FinishesGame(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	h.activeGame(t)

	// p2 takes three heavy hits; each is capped at 40
	hp := 100
	for i, player := range []int{1, 2, 1, 2, 1} {
		p1, p2 := 100, hp-90
		if player == 2 {
			p1, p2 = 100, hp
		}
		h.llm.Response = refereeReply(p1, p2, "")
		gs, err := h.engine.SubmitTurn(ctx, TurnRequest{Code: "482913", PlayerNum: player, Action: "smash"})
		require.NoError(t, err, "turn %d", i)
		hp = gs.P2HP
	}

	gs := h.stored(t)
	assert.Equal(t, 0, gs.P2HP)
	assert.Equal(t, state.StatusFinished, gs.Status)
	assert.Equal(t, 1, gs.Winner())

	_, err := h.engine.SubmitTurn(ctx, TurnRequest{Code: "482913", PlayerNum: 2, Action: "revenge"})
	assert.ErrorIs(t, err, state.ErrGameFinished)
}

func TestSubmitTurn_CollaboratorFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("referee down", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.activeGame(t)
		before := h.stored(t)
		h.llm.ChatFunc = func(ctx context.Context, m []chat.ChatMessage, o chat.Options) (string, error) {
			return "", errors.New("503 from provider")
		}

		_, err := h.engine.SubmitTurn(ctx, TurnRequest{Code: "482913", PlayerNum: 1, Action: "x"})
		assert.ErrorIs(t, err, ErrRefereeUnavailable)
		assert.Equal(t, before, h.stored(t))
	})

	t.Run("unparsable reply", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.activeGame(t)
		before := h.stored(t)
		h.llm.Response = "I refuse to referee this."

		_, err := h.engine.SubmitTurn(ctx, TurnRequest{Code: "482913", PlayerNum: 1, Action: "x"})
		assert.ErrorIs(t, err, ErrRefereeFumbled)
		assert.Equal(t, before, h.stored(t))
	})

	t.Run("image failure keeps the turn", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.activeGame(t)
		h.images.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
			return "", services.ErrImageTimeout
		}

		gs, err := h.engine.SubmitTurn(ctx, TurnRequest{Code: "482913", PlayerNum: 1, Action: "x"})
		require.NoError(t, err)
		assert.Nil(t, gs.ImageURL)
		assert.Equal(t, 2, gs.Turn)
	})

	t.Run("unsafe scene skips the image", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.activeGame(t)
		h.llm.Response = refereeReply(100, 90, `, "image_safe": false, "image_prompt": "gore"`)

		gs, err := h.engine.SubmitTurn(ctx, TurnRequest{Code: "482913", PlayerNum: 1, Action: "x"})
		require.NoError(t, err)
		assert.Nil(t, gs.ImageURL)
		assert.Empty(t, h.images.Calls())
	})
}

func TestSubmitTurn_LooksCarryForward(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	h.activeGame(t)

	h.llm.Response = refereeReply(100, 90, `, "p1_look": "tiny wizard in a pink robe"`)
	_, err := h.engine.SubmitTurn(ctx, TurnRequest{Code: "482913", PlayerNum: 1, Action: "x"})
	require.NoError(t, err)

	h.llm.Response = refereeReply(95, 90, "")
	gs, err := h.engine.SubmitTurn(ctx, TurnRequest{Code: "482913", PlayerNum: 2, Action: "y"})
	require.NoError(t, err)
	assert.Equal(t, "tiny wizard in a pink robe", gs.P1Look)

	call, _ := h.llm.LastCall()
	assert.Contains(t, call.Messages[1].Content, "tiny wizard in a pink robe")
}

func TestSubmitTurn_ContentFilter(t *testing.T) {
	h := newHarness(t, Options{ContentRating: "PG"})
	ctx := context.Background()
	h.activeGame(t)

	h.llm.Response = "===NARRATIVE===\nWhat the hell!\n===SCENE===\nx\n===STATE===\n{\"p1_hp\": 100, \"p2_hp\": 90, \"situation\": \"Damn dusty.\", \"last_action\": \"x\"}"
	gs, err := h.engine.SubmitTurn(ctx, TurnRequest{Code: "482913", PlayerNum: 1, Action: "x"})
	require.NoError(t, err)
	assert.Equal(t, "What the heck!", *gs.Narrative)
	assert.Equal(t, "Dang dusty.", gs.Situation)
}

func TestPoll(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	_, _, err := h.engine.Poll(ctx, "", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = h.engine.Poll(ctx, "000000", nil)
	assert.ErrorIs(t, err, state.ErrGameNotFound)

	created, err := h.engine.Create(ctx, "Ari")
	require.NoError(t, err)

	gs, changed, err := h.engine.Poll(ctx, "482913", nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, created.LastUpdated, gs.LastUpdated)

	since := gs.LastUpdated
	for i := 0; i < 2; i++ {
		gs, changed, err = h.engine.Poll(ctx, "482913", &since)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Nil(t, gs)
	}

	_, err = h.engine.Join(ctx, "482913", "Bo")
	require.NoError(t, err)
	gs, changed, err = h.engine.Poll(ctx, "482913", &since)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Greater(t, gs.LastUpdated, since)
}

func TestPoll_Expired(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	h.activeGame(t)

	h.clock = h.clock.Add(2 * time.Hour)
	_, _, err := h.engine.Poll(ctx, "482913", nil)
	assert.ErrorIs(t, err, state.ErrGameNotFound)
}

func TestReferee(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	p1, p2 := 60, 50

	h.llm.Response = refereeReply(60, 0, "")
	res, err := h.engine.Referee(ctx, RefereeRequest{
		State:      state.Snapshot{P1Name: "Ari", P2Name: "Bo", P1HP: &p1, P2HP: &p2},
		PlayerName: "Ari",
		PlayerNum:  1,
		Action:     strings.Repeat("a", 600),
	})
	require.NoError(t, err)
	assert.Equal(t, 60, res.State.P1HP)
	assert.Equal(t, 10, res.State.P2HP, "drop capped at 40")
	assert.Equal(t, "Dust settles.", res.State.Situation)
	assert.Equal(t, "Boom!", res.Narrative)

	call, _ := h.llm.LastCall()
	assert.Equal(t, RefereeMaxTokens, call.Options.MaxTokens)
	assert.Contains(t, call.Messages[1].Content, "ACTION: "+strings.Repeat("a", 500)+"\n")
	assert.NotContains(t, call.Messages[0].Content, "image_safe", "classic mode has no image fields")

	_, err = h.engine.Referee(ctx, RefereeRequest{PlayerNum: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	h.llm.Response = "nonsense"
	_, err = h.engine.Referee(ctx, RefereeRequest{PlayerNum: 2, Action: "x"})
	assert.ErrorIs(t, err, ErrRefereeFumbled)
}

func TestOpponent(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	h.llm.Response = `"I summon a thousand angry pigeons"`
	action, err := h.engine.Opponent(ctx, OpponentRequest{State: state.Snapshot{P1Name: "Ari"}, AIName: "DeepSeek", PlayerNum: 2})
	require.NoError(t, err)
	assert.Equal(t, "I summon a thousand angry pigeons", action)

	call, _ := h.llm.LastCall()
	assert.Equal(t, OpponentMaxTokens, call.Options.MaxTokens)
	assert.Contains(t, call.Messages[0].Content, "You are DeepSeek")
	assert.Contains(t, call.Messages[1].Content, "Your opponent is Ari")

	h.llm.ChatFunc = func(ctx context.Context, m []chat.ChatMessage, o chat.Options) (string, error) {
		return "", services.ErrEmptyResponse
	}
	action, err = h.engine.Opponent(ctx, OpponentRequest{AIName: "DeepSeek", PlayerNum: 1})
	require.NoError(t, err)
	assert.Equal(t, DefaultOpponentAction, action)

	_, err = h.engine.Opponent(ctx, OpponentRequest{PlayerNum: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIllustrate(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	url, err := h.engine.Illustrate(ctx, "  a duck in armor ")
	require.NoError(t, err)
	assert.Equal(t, h.images.URL, url)
	require.Len(t, h.images.Calls(), 1)
	assert.True(t, strings.HasPrefix(h.images.Calls()[0], "a duck in armor "))
	assert.Contains(t, h.images.Calls()[0], "no watermark")

	_, err = h.engine.Illustrate(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	h.images.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", services.ErrImageFailed
	}
	_, err = h.engine.Illustrate(ctx, "x")
	assert.ErrorIs(t, err, services.ErrImageFailed)

	noImages := New(h.store, h.llm, h.engine.logger, Options{})
	assert.False(t, noImages.ImagesEnabled())
	_, err = noImages.Illustrate(ctx, "x")
	assert.ErrorIs(t, err, ErrImageUnavailable)
}
