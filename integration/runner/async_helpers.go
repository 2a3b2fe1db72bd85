package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/zackedds/no-rulez-web/pkg/client"
	"github.com/zackedds/no-rulez-web/pkg/state"
)

const (
	// PollInterval matches the cadence of the browser and console clients.
	PollInterval = 2 * time.Second
	// SyncTimeout is how long the other seat may take to see a resolved turn.
	SyncTimeout = 10 * time.Second
)

// WaitForTurn polls as the opposing seat until the record reaches turn, the
// way a waiting player's client would discover the move.
func WaitForTurn(ctx context.Context, api *client.Client, code string, since float64, turn int) (*state.GameState, error) {
	timeout := time.After(SyncTimeout)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		gs, changed, err := api.Poll(ctx, code, since)
		if err == nil && changed && gs.Turn >= turn {
			return gs, nil
		}
		if changed && gs != nil {
			since = gs.LastUpdated
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, fmt.Errorf("timeout waiting for turn %d to sync (waited %v)", turn, SyncTimeout)
		case <-ticker.C:
		}
	}
}
