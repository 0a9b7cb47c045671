package sim

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/gridpatrol/grid"
	"github.com/milk9111/gridpatrol/patrol"
	"github.com/milk9111/gridpatrol/prefabs"
)

// Agent is a patrolling body. It moves along its heading on a kinematic
// body and only changes heading at cell centers.
type Agent struct {
	id         int
	name       string
	specName   string
	body       *cp.Body
	heading    grid.Direction
	speed      float64
	slowFactor float64
	moving     bool
	// props are the level overrides laid over the spec on every retune.
	props map[string]any

	actions    ActionQueue
	controller *patrol.Controller
	decision   patrol.Decision

	cell     grid.Position
	next     grid.Position
	previous grid.Position
}

func newAgent(id int, specName string, spec *prefabs.AgentSpec, body *cp.Body, cell grid.Position) *Agent {
	a := &Agent{
		id:       id,
		name:     spec.Name,
		specName: specName,
		body:     body,
		heading:  spec.Heading,
		cell:     cell,
		previous: cell,
	}
	a.tune(spec)
	a.next = cell.Add(a.heading.Offset())
	return a
}

func (a *Agent) tune(spec *prefabs.AgentSpec) {
	a.speed = spec.Speed
	a.slowFactor = spec.SlowFactor
}

func (a *Agent) ID() int                        { return a.id }
func (a *Agent) Name() string                   { return a.name }
func (a *Agent) Controller() *patrol.Controller { return a.controller }
func (a *Agent) Decision() patrol.Decision      { return a.decision }
func (a *Agent) Moving() bool                   { return a.moving }
func (a *Agent) Cell() grid.Position            { return a.cell }
func (a *Agent) NextCell() grid.Position        { return a.next }
func (a *Agent) PreviousCell() grid.Position    { return a.previous }

func (a *Agent) Position() cp.Vector {
	return a.body.Position()
}

func (a *Agent) Velocity() cp.Vector {
	return a.body.Velocity()
}

func (a *Agent) Heading() grid.Direction {
	return a.heading
}

// Steer queues a turn; it is applied by the movement system this step.
func (a *Agent) Steer(t patrol.Turn) {
	a.actions.Push(Movement{Turn: t})
}

func (a *Agent) Fire(w Weapon) {
	a.actions.Push(Combat{Weapon: w})
}

// blockedAhead reports whether the agent has reached the center of cell and
// the cell in front of it cannot be entered.
func (a *Agent) blockedAhead(g *grid.Grid, cell grid.Cell) bool {
	ahead := cell.Pos.Add(a.heading.Offset())
	if g.IsWalkable(ahead) {
		return false
	}
	return a.Position().Sub(cell.Center).Dot(a.heading.Vector()) >= 0
}
