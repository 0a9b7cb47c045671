// Package patrol drives an agent around an ordered list of targets. A
// Controller keeps one path slot per target, requests paths through a
// nav.Scheduler and turns the agent at cell centers to follow them.
package patrol

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/gridpatrol/common"
	"github.com/milk9111/gridpatrol/grid"
	"github.com/milk9111/gridpatrol/nav"
)

var (
	ErrNoTargets       = errors.New("patrol: no targets")
	ErrNilCollaborator = errors.New("patrol: nil collaborator")
)

type Topology interface {
	CellAt(world cp.Vector) grid.Cell
}

// Requester accepts path requests without blocking. nav.Scheduler
// satisfies it.
type Requester interface {
	Submit(req nav.PathRequest)
}

type Agent interface {
	Position() cp.Vector
	Heading() grid.Direction
	Velocity() cp.Vector
	Steer(t Turn)
}

type Target interface {
	Position() cp.Vector
}

type State uint8

const (
	Idle State = iota
	RequestingInitialPaths
	Patrolling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RequestingInitialPaths:
		return "requesting_initial_paths"
	case Patrolling:
		return "patrolling"
	}
	return fmt.Sprintf("state(%d)", s)
}

type SlotState uint8

const (
	AwaitingPath SlotState = iota
	HasPath
)

func (s SlotState) String() string {
	if s == HasPath {
		return "has_path"
	}
	return "awaiting_path"
}

// Decision is the outcome of one follow step.
type Decision struct {
	// Arrived is set when the agent reached the center of Cell this step.
	Arrived bool
	Cell    grid.Cell
	Turn    Turn
	// TurnAhead is set past the turn boundary of a waypoint where the path
	// bends, ahead of the turn itself.
	TurnAhead bool
	// Halt is set once the active path has been walked to its end.
	Halt bool
	// Slowing is set within the stopping distance of the end.
	Slowing bool
}

type slot struct {
	state      SlotState
	cells      []grid.Cell
	path       *nav.Path
	start      cp.Vector
	startDir   grid.Direction
	requested  bool
	failed     bool
	lastTarget cp.Vector
	sentSeq    uint64
	answerSeq  uint64
}

func (s *slot) inFlight() bool {
	return s.sentSeq > s.answerSeq
}

// Controller is the patrol state machine for one agent. It is not safe for
// concurrent use: Update, Deliver and the Start/Stop calls must come from
// the same goroutine, which is also the one calling nav.Scheduler.Deliver.
type Controller struct {
	cfg       Config
	topology  Topology
	requester Requester
	agent     Agent
	targets   []Target
	logger    *slog.Logger

	state  State
	slots  []slot
	active int
	laps   int
	path   *nav.Path
	timer  *Timer

	seq   uint64
	epoch uint64

	// advancedFrom is the slot left while standing in advancedAt, or -1.
	advancedAt   grid.Position
	advancedFrom int
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewController(topology Topology, requester Requester, agent Agent, targets []Target, cfg Config, opts ...Option) (*Controller, error) {
	if topology == nil || requester == nil || agent == nil {
		return nil, ErrNilCollaborator
	}
	cfg = cfg.withDefaults()
	c := &Controller{
		cfg:          cfg,
		topology:     topology,
		requester:    requester,
		agent:        agent,
		targets:      append([]Target(nil), targets...),
		logger:       slog.Default(),
		timer:        NewTimer(cfg.MinUpdateInterval),
		advancedFrom: -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Controller) State() State { return c.state }
func (c *Controller) Active() int  { return c.active }
func (c *Controller) Laps() int    { return c.laps }
func (c *Controller) Config() Config {
	return c.cfg
}

// Path is the path the agent is currently following.
func (c *Controller) Path() *nav.Path {
	return c.path
}

func (c *Controller) SlotState(i int) (SlotState, bool) {
	if i < 0 || i >= len(c.slots) {
		return AwaitingPath, false
	}
	return c.slots[i].state, true
}

// SetConfig retunes a running controller. Paths already installed keep
// their boundaries until they are replaced.
func (c *Controller) SetConfig(cfg Config) {
	c.cfg = cfg.withDefaults()
	c.timer.SetInterval(c.cfg.MinUpdateInterval)
}

// StartPatrol allocates a slot per target from the agent's current cell and
// heading and arms the repath timer. Requests are issued by later ticks.
func (c *Controller) StartPatrol(now time.Time) error {
	if len(c.targets) == 0 {
		return ErrNoTargets
	}

	start := c.topology.CellAt(c.agent.Position()).Center
	heading := c.agent.Heading()
	c.slots = make([]slot, len(c.targets))
	for i := range c.slots {
		c.slots[i] = slot{start: start, startDir: heading}
	}
	c.active = 0
	c.laps = 0
	c.path = nil
	c.advancedFrom = -1
	c.epoch = c.seq
	c.state = RequestingInitialPaths

	c.timer.SetInterval(c.cfg.MinUpdateInterval)
	c.timer.Arm(now.Add(c.cfg.StartupDelay))

	c.logger.Info("patrol: started", "targets", len(c.targets), "heading", heading)
	return nil
}

// StopPatrol halts ticking and following. Results still in flight are
// dropped when they arrive.
func (c *Controller) StopPatrol() {
	if c.state == Idle {
		return
	}
	c.state = Idle
	c.timer.Disarm()
	c.path = nil
	c.slots = nil
	c.epoch = c.seq
	c.logger.Info("patrol: stopped", "laps", c.laps)
}

// Update runs the repath tick when due and then one follow step.
func (c *Controller) Update(now time.Time) Decision {
	if c.state == Idle {
		return Decision{}
	}
	if c.timer.Fire(now) {
		c.tick()
	}
	return c.follow()
}

func (c *Controller) tick() {
	agentCell := c.topology.CellAt(c.agent.Position())
	c.advance(agentCell)

	for i := range c.slots {
		if !c.ready(i) {
			continue
		}
		start, dir := c.derivedStart(i, agentCell)
		if c.needsRequest(i, start, dir, agentCell) {
			c.request(i, start, dir)
		}
	}
}

// advance moves to the next target once the agent stands in the active
// target's cell.
func (c *Controller) advance(agentCell grid.Cell) {
	targetCell := c.topology.CellAt(c.targets[c.active].Position())
	if agentCell.Pos != targetCell.Pos {
		c.advancedFrom = -1
		return
	}
	// Only a wrap back onto the slot just left, without stepping away, is
	// suppressed. Consecutive targets sharing a cell are passed in turn.
	if c.advancedFrom == c.active && c.advancedAt == agentCell.Pos {
		return
	}
	c.advancedAt = agentCell.Pos
	c.advancedFrom = c.active

	c.active++
	if c.active >= len(c.slots) {
		c.active = 0
		c.laps++
	}
	c.path = c.slots[c.active].freshPath(c.cfg)
	c.logger.Debug("patrol: target reached", "cell", agentCell.Pos, "next", c.active, "laps", c.laps)
}

func (c *Controller) ready(i int) bool {
	if i == 0 {
		return true
	}
	return c.slots[i-1].state == HasPath
}

// derivedStart is where slot i's path begins: the live agent for the active
// slot, otherwise the end of the path before it.
func (c *Controller) derivedStart(i int, agentCell grid.Cell) (cp.Vector, grid.Direction) {
	s := &c.slots[i]
	if i == c.active && s.requested {
		return agentCell.Center, c.agent.Heading()
	}

	prev := i - 1
	if i == 0 {
		if len(c.slots) < 2 || (c.laps == 0 && c.active == 0) {
			return s.start, s.startDir
		}
		prev = len(c.slots) - 1
	}
	p := &c.slots[prev]
	if p.state != HasPath {
		return s.start, s.startDir
	}
	if end, dir, ok := p.path.End(); ok {
		return end.Center, dir
	}
	return p.start, p.startDir
}

func (c *Controller) needsRequest(i int, start cp.Vector, dir grid.Direction, agentCell grid.Cell) bool {
	s := &c.slots[i]
	if !s.requested {
		return true
	}
	if s.failed && !s.inFlight() {
		return true
	}
	limit := c.cfg.DriftThreshold
	if c.targets[i].Position().DistanceSq(s.lastTarget) > limit*limit {
		return true
	}
	if i == c.active {
		return c.offPath(agentCell) && !s.inFlight()
	}
	return c.topology.CellAt(start).Pos != c.topology.CellAt(s.start).Pos || dir != s.startDir
}

// offPath reports whether the agent can no longer step onto the active
// path's next waypoint.
func (c *Controller) offPath(agentCell grid.Cell) bool {
	front, ok := c.path.Front()
	if !ok {
		return false
	}
	return common.Manhattan(agentCell.Pos.Col, agentCell.Pos.Row, front.Cell.Pos.Col, front.Cell.Pos.Row) > 1
}

func (c *Controller) request(i int, start cp.Vector, dir grid.Direction) {
	s := &c.slots[i]
	target := c.targets[i].Position()

	c.seq++
	s.start = start
	s.startDir = dir
	s.requested = true
	s.lastTarget = target
	s.sentSeq = c.seq

	c.requester.Submit(nav.PathRequest{
		Slot:      i,
		Seq:       c.seq,
		Direction: dir,
		Start:     start,
		Target:    target,
		Callback:  c.Deliver,
	})
	c.logger.Debug("patrol: path requested", "slot", i, "seq", c.seq, "dir", dir)
}

// Deliver is the nav.Callback for this controller's requests. Results that
// arrive while idle, from an earlier patrol or no newer than the slot's
// newest answer are dropped.
func (c *Controller) Deliver(res nav.PathResult) {
	if c.state == Idle || res.Slot < 0 || res.Slot >= len(c.slots) || res.Seq <= c.epoch {
		c.logger.Debug("patrol: result dropped", "slot", res.Slot, "seq", res.Seq, "state", c.state)
		return
	}
	s := &c.slots[res.Slot]
	if res.Seq <= s.answerSeq {
		c.logger.Debug("patrol: stale result dropped", "slot", res.Slot, "seq", res.Seq, "newest", s.answerSeq)
		return
	}
	s.answerSeq = res.Seq
	c.OnPathFound(res.Cells, res.Success, res.Slot)
}

// OnPathFound installs cells for slot. A failed search leaves the slot as
// it was. When slot is the one being followed the agent switches paths at
// once.
func (c *Controller) OnPathFound(cells []grid.Cell, success bool, slotIndex int) {
	if slotIndex < 0 || slotIndex >= len(c.slots) {
		return
	}
	s := &c.slots[slotIndex]
	if !success {
		s.failed = true
		c.logger.Warn("patrol: no path", "slot", slotIndex)
		return
	}

	s.failed = false
	s.cells = cells
	s.state = HasPath
	s.path = s.freshPath(c.cfg)
	if slotIndex == c.active {
		c.path = s.freshPath(c.cfg)
	}
	c.logger.Debug("patrol: path installed", "slot", slotIndex, "cells", len(cells))

	if c.state == RequestingInitialPaths && c.allSlotsHavePaths() {
		c.state = Patrolling
		c.logger.Info("patrol: all paths ready", "slots", len(c.slots))
	}
}

func (c *Controller) allSlotsHavePaths() bool {
	for i := range c.slots {
		if c.slots[i].state != HasPath {
			return false
		}
	}
	return true
}

func (s *slot) freshPath(cfg Config) *nav.Path {
	if s.state != HasPath {
		return nil
	}
	return nav.NewPath(s.cells, s.start, cfg.TurnDistance, cfg.StoppingDistance)
}

// follow consumes waypoints once the agent reaches a cell center and turns
// it toward the next one.
func (c *Controller) follow() Decision {
	if c.path == nil {
		return Decision{}
	}
	if c.path.Total() == 0 || c.path.Finished() {
		return Decision{Halt: true, Slowing: true}
	}

	pos := c.agent.Position()
	cell := c.topology.CellAt(pos)
	toCenter := cell.Center.Sub(pos)
	arrived := toCenter.Length() < c.cfg.ArrivalEpsilon || c.agent.Velocity().Dot(toCenter) <= 0
	slowing := c.path.Slowing() || c.path.StopBoundaryCrossed(pos)
	if !arrived {
		return Decision{TurnAhead: c.turnAhead(pos), Slowing: slowing}
	}

	c.path.ConsumeThrough(cell.Pos)
	d := Decision{Arrived: true, Cell: cell, Slowing: slowing}
	front, ok := c.path.Front()
	if !ok {
		d.Halt = true
		return d
	}

	delta := grid.DirectionOf(front.Cell.Pos.Sub(cell.Pos))
	d.Turn = TurnFor(c.agent.Heading(), delta)
	if d.Turn != TurnNone {
		c.agent.Steer(d.Turn)
	}
	return d
}

// turnAhead reports whether pos is past the front waypoint's turn boundary
// and the path leaves that waypoint in a new direction.
func (c *Controller) turnAhead(pos cp.Vector) bool {
	if !c.path.TurnBoundaryCrossed(pos) {
		return false
	}
	points := c.path.Points()
	if len(points) < 2 {
		return false
	}
	out := grid.DirectionOf(points[1].Cell.Pos.Sub(points[0].Cell.Pos))
	return out != c.agent.Heading()
}

// DebugPoints lists the remaining waypoint centers of every slot in patrol
// order, the followed path standing in for the active slot.
func (c *Controller) DebugPoints() []cp.Vector {
	var out []cp.Vector
	for i := range c.slots {
		p := c.slots[i].path
		if i == c.active && c.path != nil {
			p = c.path
		}
		for _, wp := range p.Points() {
			out = append(out, wp.Cell.Center)
		}
	}
	return out
}
