package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/zackedds/no-rulez-web/internal/services"
	"github.com/zackedds/no-rulez-web/pkg/state"
)

const (
	keyPrefix = "game:"

	// CodeLength is the number of digits in a game code.
	CodeLength = 6
	// MaxCodeAttempts bounds the collision retry when allocating a code.
	MaxCodeAttempts = 10

	DefaultTTL = time.Hour
)

// ErrCodeSpaceExhausted is returned when every candidate code was taken.
var ErrCodeSpaceExhausted = errors.New("could not generate unique code")

// CodeGenerator returns a candidate game code.
type CodeGenerator func() string

// GameStore keeps game records in the cache under game:<code>. Every write
// refreshes the TTL.
type GameStore struct {
	cache   services.Cache
	ttl     time.Duration
	logger  *slog.Logger
	newCode CodeGenerator
}

func NewGameStore(cache services.Cache, ttl time.Duration, logger *slog.Logger) *GameStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &GameStore{
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		newCode: RandomCode,
	}
}

// WithCodeGenerator replaces the random code source.
func (s *GameStore) WithCodeGenerator(g CodeGenerator) *GameStore {
	s.newCode = g
	return s
}

// Create allocates a fresh code, builds the record with build and stores it.
// The code is claimed with SET NX so two concurrent creates never share one.
func (s *GameStore) Create(ctx context.Context, build func(code string) *state.GameState) (*state.GameState, error) {
	for i := 0; i < MaxCodeAttempts; i++ {
		code := s.newCode()
		gs := build(code)

		data, err := json.Marshal(gs)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal game: %w", err)
		}
		ok, err := s.cache.SetNX(ctx, key(code), data, s.ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to store game: %w", err)
		}
		if ok {
			return gs, nil
		}
		s.logger.Debug("Game code collision", "code", code, "attempt", i+1)
	}

	s.logger.Error("Code space exhausted", "attempts", MaxCodeAttempts)
	return nil, ErrCodeSpaceExhausted
}

// Save writes the record and refreshes its TTL.
func (s *GameStore) Save(ctx context.Context, gs *state.GameState) error {
	data, err := json.Marshal(gs)
	if err != nil {
		s.logger.Error("Failed to marshal game", "code", gs.Code, "error", err)
		return fmt.Errorf("failed to marshal game: %w", err)
	}
	if err := s.cache.Set(ctx, key(gs.Code), data, s.ttl); err != nil {
		s.logger.Error("Failed to save game", "code", gs.Code, "error", err)
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

// Load returns the record for code, or nil when it does not exist or expired.
func (s *GameStore) Load(ctx context.Context, code string) (*state.GameState, error) {
	data, err := s.cache.Get(ctx, key(code))
	if err != nil {
		s.logger.Error("Failed to load game", "code", code, "error", err)
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	if data == "" {
		return nil, nil
	}

	var gs state.GameState
	if err := json.Unmarshal([]byte(data), &gs); err != nil {
		s.logger.Error("Failed to unmarshal game", "code", code, "error", err)
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}
	return &gs, nil
}

// Delete removes a record before its TTL runs out.
func (s *GameStore) Delete(ctx context.Context, code string) error {
	if err := s.cache.Del(ctx, key(code)); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return nil
}

// Ping checks the underlying cache.
func (s *GameStore) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

// RandomCode returns six decimal digits.
func RandomCode() string {
	var sb strings.Builder
	for i := 0; i < CodeLength; i++ {
		sb.WriteByte(byte('0' + rand.IntN(10)))
	}
	return sb.String()
}

// NormalizeCode trims and upper-cases a user-typed code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether a normalized code has the right length.
func ValidCode(code string) bool {
	return len(code) == CodeLength
}

func key(code string) string {
	return keyPrefix + code
}
