// Package sim runs patrolling agents on a grid in fixed steps. Agents ride
// kinematic chipmunk bodies, targets may be driven by tengo scripts, and
// path searches go through a nav.Scheduler.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/gridpatrol/grid"
	"github.com/milk9111/gridpatrol/nav"
	"github.com/milk9111/gridpatrol/patrol"
	"github.com/milk9111/gridpatrol/prefabs"
)

const DefaultTickRate = 60

var (
	ErrNoGrid    = errors.New("sim: nil grid")
	ErrBlocked   = errors.New("sim: cell is not walkable")
	ErrNoTargets = errors.New("sim: agent has no targets")
)

// epoch anchors the simulated clock so runs are reproducible.
var epoch = time.Unix(0, 0)

type World struct {
	grid    *grid.Grid
	space   *cp.Space
	engine  *nav.Engine
	paths   *nav.Scheduler
	systems *Scheduler
	events  EventQueue
	logger  *slog.Logger

	agents  []*Agent
	targets []*Target

	tick     int
	dt       time.Duration
	async    bool
	budget   int
	maxNodes int
}

type Option func(*World)

func WithLogger(logger *slog.Logger) Option {
	return func(w *World) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithTickRate sets how many steps make one simulated second.
func WithTickRate(tps int) Option {
	return func(w *World) {
		if tps > 0 {
			w.dt = time.Second / time.Duration(tps)
		}
	}
}

// WithAsyncSearch leaves searches to a caller running PathScheduler().Run.
// Results are still delivered on the step goroutine.
func WithAsyncSearch(on bool) Option {
	return func(w *World) {
		w.async = on
	}
}

// WithSearchBudget caps searches per step when searching in-step. Zero
// drains the queue every step.
func WithSearchBudget(n int) Option {
	return func(w *World) {
		if n >= 0 {
			w.budget = n
		}
	}
}

func WithMaxNodes(n int) Option {
	return func(w *World) {
		w.maxNodes = n
	}
}

func NewWorld(g *grid.Grid, opts ...Option) (*World, error) {
	if g == nil {
		return nil, ErrNoGrid
	}

	w := &World{
		grid:   g,
		space:  cp.NewSpace(),
		logger: slog.Default(),
		dt:     time.Second / DefaultTickRate,
	}
	for _, opt := range opts {
		opt(w)
	}

	var engineOpts []nav.EngineOption
	if w.maxNodes > 0 {
		engineOpts = append(engineOpts, nav.WithMaxNodes(w.maxNodes))
	}
	engine, err := nav.NewEngine(g, engineOpts...)
	if err != nil {
		return nil, err
	}
	paths, err := nav.NewScheduler(engine, nav.WithLogger(w.logger))
	if err != nil {
		return nil, err
	}
	w.engine = engine
	w.paths = paths

	w.systems = NewScheduler()
	w.systems.Add(SystemTargets, &TargetSystem{})
	w.systems.Add(SystemPaths, &PathSystem{})
	w.systems.Add(SystemPatrol, &PatrolSystem{})
	w.systems.Add(SystemMovement, &MovementSystem{})
	return w, nil
}

func (w *World) Grid() *grid.Grid              { return w.grid }
func (w *World) PathScheduler() *nav.Scheduler { return w.paths }
func (w *World) Systems() *Scheduler           { return w.systems }
func (w *World) Events() *EventQueue           { return &w.events }
func (w *World) Agents() []*Agent              { return w.agents }
func (w *World) Targets() []*Target            { return w.targets }
func (w *World) Tick() int                     { return w.tick }
func (w *World) StepDuration() time.Duration   { return w.dt }
func (w *World) Logger() *slog.Logger          { return w.logger }
func (w *World) Space() *cp.Space              { return w.space }
func (w *World) Now() time.Time                { return epoch.Add(time.Duration(w.tick) * w.dt) }
func (w *World) Elapsed() time.Duration        { return time.Duration(w.tick) * w.dt }
func (w *World) Async() bool                   { return w.async }
func (w *World) SearchBudget() int             { return w.budget }

// AddTarget places a target at the center of cell. script may be empty.
func (w *World) AddTarget(cell grid.Position, script string) (*Target, error) {
	if !w.grid.InBounds(cell) {
		return nil, fmt.Errorf("%w: %s", grid.ErrOutOfBounds, cell)
	}

	center := w.grid.CenterOf(cell)
	t := &Target{id: len(w.targets), base: center, pos: center}
	if script != "" {
		compiled, err := CompileTargetScript(script)
		if err != nil {
			return nil, err
		}
		t.script = compiled
	}
	w.targets = append(w.targets, t)
	return t, nil
}

// AddAgent places an agent at the center of cell that patrols targets in
// order.
func (w *World) AddAgent(specName string, spec *prefabs.AgentSpec, cell grid.Position, targets []*Target) (*Agent, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: nil agent spec", prefabs.ErrInvalidSpec)
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	if !w.grid.IsWalkable(cell) {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, cell)
	}

	body := w.space.AddBody(cp.NewKinematicBody())
	body.SetPosition(w.grid.CenterOf(cell))

	a := newAgent(len(w.agents), specName, spec, body, cell)
	patrolTargets := make([]patrol.Target, len(targets))
	for i, t := range targets {
		patrolTargets[i] = t
	}
	controller, err := patrol.NewController(
		w.grid, w.paths, a, patrolTargets, spec.PatrolConfig(),
		patrol.WithLogger(w.logger.With("agent", a.id, "name", a.name)),
	)
	if err != nil {
		w.space.RemoveBody(body)
		return nil, err
	}
	a.controller = controller
	w.agents = append(w.agents, a)
	return a, nil
}

// Start begins every agent's patrol at the current simulated time and
// resumes scripted targets.
func (w *World) Start() error {
	w.systems.SetEnabled(SystemTargets, true)
	w.systems.SetEnabled(SystemPatrol, true)
	var errs []error
	for _, a := range w.agents {
		if err := a.controller.StartPatrol(w.Now()); err != nil {
			errs = append(errs, fmt.Errorf("agent %d: %w", a.id, err))
		}
	}
	return errors.Join(errs...)
}

// Stop halts every agent and freezes scripted targets. Queued actions and
// path deliveries still run.
func (w *World) Stop() {
	w.systems.SetEnabled(SystemTargets, false)
	w.systems.SetEnabled(SystemPatrol, false)
	for _, a := range w.agents {
		a.controller.StopPatrol()
		a.decision = patrol.Decision{}
		a.moving = false
		a.body.SetVelocityVector(cp.Vector{})
	}
}

// Step advances the world by one fixed step.
func (w *World) Step() {
	w.tick++
	w.systems.Update(w)
	stepsTotal.Inc()
}

// Run steps the world ticks times, or until ctx ends when ticks <= 0.
func (w *World) Run(ctx context.Context, ticks int) error {
	for i := 0; ticks <= 0 || i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.Step()
	}
	return nil
}

// Retune applies an edited spec to every agent built from specName. Each
// agent's level overrides are laid over spec again, so a reload never
// drops them. An agent whose overrides no longer fit keeps its old tuning.
func (w *World) Retune(specName string, spec *prefabs.AgentSpec) int {
	n := 0
	for _, a := range w.agents {
		if a.specName != specName {
			continue
		}
		tuned := *spec
		tuned.Targets = append([]prefabs.TargetSpec(nil), spec.Targets...)
		if err := prefabs.ApplyOverrides(&tuned, a.props); err != nil {
			w.logger.Warn("agent overrides rejected on reload", "agent", a.id, "spec", specName, "err", err)
			continue
		}
		a.tune(&tuned)
		a.controller.SetConfig(tuned.PatrolConfig())
		n++
	}
	if n > 0 {
		w.logger.Info("agent spec reloaded", "spec", specName, "agents", n)
	}
	return n
}

// ReloadScript recompiles every target script named name.
func (w *World) ReloadScript(name string) (int, error) {
	var compiled *TargetScript
	n := 0
	for _, t := range w.targets {
		if t.script == nil || t.script.Name() != name {
			continue
		}
		if compiled == nil {
			var err error
			compiled, err = CompileTargetScript(name)
			if err != nil {
				return 0, err
			}
		}
		if n == 0 {
			t.script = compiled
		} else {
			// Compiled scripts hold globals, so each target needs its own.
			t.script = &TargetScript{name: name, compiled: compiled.compiled.Clone()}
		}
		t.failed = false
		n++
	}
	if n > 0 {
		w.logger.Info("target script reloaded", "script", name, "targets", n)
	}
	return n, nil
}

// DebugPoints lists the waypoint centers an agent still plans to visit.
func (w *World) DebugPoints(agent int) []cp.Vector {
	if agent < 0 || agent >= len(w.agents) {
		return nil
	}
	return w.agents[agent].controller.DebugPoints()
}
