package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/milk9111/gridpatrol/levels"
	"github.com/milk9111/gridpatrol/patrol"
	"github.com/milk9111/gridpatrol/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, ticks int) *Game {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lvl, err := levels.LoadLevelFromFS("sweep")
	require.NoError(t, err)
	world, err := sim.Build(lvl, nil, sim.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, world.Start())
	return NewGame(world, logger, ticks, false, true)
}

func TestGameRunsFixedTicks(t *testing.T) {
	game := newTestGame(t, 120)
	require.NoError(t, game.Run(context.Background()))
	assert.Equal(t, 120, game.world.Tick())
	assert.Equal(t, 0, game.world.Events().Len())
	assert.NotEqual(t, patrol.Idle, game.world.Agents()[0].Controller().State())
}

func TestGameStopsOnCancel(t *testing.T) {
	game := newTestGame(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, game.Run(ctx), context.Canceled)
	assert.Equal(t, 0, game.world.Tick())
}

func TestGameAppliesReloadsBetweenSteps(t *testing.T) {
	game := newTestGame(t, 1)
	game.Reload(context.Background(), "prefabs/sentry.yaml")
	game.Reload(context.Background(), "prefabs/patroller.yaml")
	game.Reload(context.Background(), "prefabs/scripts/sweep.tengo")
	game.Reload(context.Background(), "prefabs/missing.yaml")

	require.NoError(t, game.Run(context.Background()))
	assert.Len(t, game.reloads, 0)
	assert.Equal(t, 200*time.Millisecond, game.world.Agents()[0].Controller().Config().MinUpdateInterval)
}

func TestForwardReloadsSurvivesClosedErrors(t *testing.T) {
	game := newTestGame(t, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	events := make(chan string, 2)
	errs := make(chan error, 1)
	errs <- assert.AnError
	close(errs)
	events <- "prefabs/patroller.yaml"
	close(events)

	require.NoError(t, forwardReloads(context.Background(), events, errs, game, logger))
	assert.Len(t, game.reloads, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- forwardReloads(ctx, make(chan string), errs, game, logger) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("forwardReloads did not return after cancel")
	}
}
