package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/milk9111/gridpatrol/prefabs"
	"github.com/milk9111/gridpatrol/sim"
)

// Game drives a world in fixed steps and applies hot reloads between steps.
type Game struct {
	world    *sim.World
	logger   *slog.Logger
	reloads  chan string
	ticks    int
	realtime bool
	debug    bool
	frames   int
}

func NewGame(world *sim.World, logger *slog.Logger, ticks int, realtime, debug bool) *Game {
	return &Game{
		world:    world,
		logger:   logger,
		reloads:  make(chan string, 16),
		ticks:    ticks,
		realtime: realtime,
		debug:    debug,
	}
}

// Reload queues an edited spec or script path. It may be called from any
// goroutine; the world is only touched by Run.
func (g *Game) Reload(ctx context.Context, path string) {
	select {
	case g.reloads <- path:
	case <-ctx.Done():
	}
}

func (g *Game) Run(ctx context.Context) error {
	var pace <-chan time.Time
	if g.realtime {
		t := time.NewTicker(g.world.StepDuration())
		defer t.Stop()
		pace = t.C
	}

	for g.ticks <= 0 || g.frames < g.ticks {
		g.drainReloads()
		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		g.Update()
	}

	g.summary()
	return nil
}

func (g *Game) Update() {
	g.frames++
	g.world.Step()

	for _, evt := range g.world.Events().Drain() {
		switch data := evt.Data.(type) {
		case sim.TargetReachedEvent:
			g.logger.Info("target reached", "agent", data.Agent, "target", data.Target, "laps", data.Laps, "tick", g.frames)
		case sim.TurnEvent:
			g.logger.Debug("turn", "agent", data.Agent, "turn", data.Turn, "heading", data.Heading, "cell", data.Cell)
		case sim.HaltedEvent:
			g.logger.Debug("halted", "agent", data.Agent, "cell", data.Cell)
		case sim.CellEnteredEvent:
			g.logger.Debug("cell entered", "agent", data.Agent, "cell", data.Cell, "previous", data.Previous)
		}
	}

	if g.debug && g.frames%int(time.Second/g.world.StepDuration()) == 0 {
		for _, a := range g.world.Agents() {
			c := a.Controller()
			g.logger.Debug("agent",
				"id", a.ID(),
				"state", c.State(),
				"active", c.Active(),
				"cell", a.Cell(),
				"heading", a.Heading(),
				"waypoints", len(g.world.DebugPoints(a.ID())),
			)
		}
	}
}

func (g *Game) drainReloads() {
	for {
		select {
		case path := <-g.reloads:
			g.reload(path)
		default:
			return
		}
	}
}

func (g *Game) reload(path string) {
	name := filepath.Base(path)
	if filepath.Ext(name) == ".tengo" {
		if _, err := g.world.ReloadScript(name); err != nil {
			g.logger.Error("script reload failed", "script", name, "err", err)
		}
		return
	}

	spec, err := prefabs.LoadAgentSpec(name)
	if err != nil {
		g.logger.Error("spec reload failed", "spec", name, "err", err)
		return
	}
	g.world.Retune(name, spec)
}

func (g *Game) summary() {
	for _, a := range g.world.Agents() {
		c := a.Controller()
		g.logger.Info("patrol summary",
			"agent", a.ID(),
			"name", a.Name(),
			"state", c.State(),
			"laps", c.Laps(),
			"active", c.Active(),
			"cell", a.Cell(),
			"ticks", g.frames,
		)
	}
}
