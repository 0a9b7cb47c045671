package patrol

import (
	"fmt"

	"github.com/milk9111/gridpatrol/grid"
)

// Turn is a steering command relative to the agent's heading.
type Turn uint8

const (
	TurnNone Turn = iota
	TurnLeft
	TurnRight
)

func (t Turn) String() string {
	switch t {
	case TurnNone:
		return "none"
	case TurnLeft:
		return "left"
	case TurnRight:
		return "right"
	}
	return fmt.Sprintf("turn(%d)", t)
}

// Apply returns the heading after turning from d.
func (t Turn) Apply(d grid.Direction) grid.Direction {
	switch t {
	case TurnLeft:
		return d.CounterClockwise()
	case TurnRight:
		return d.Clockwise()
	}
	return d
}

type turnKey struct {
	heading grid.Direction
	delta   grid.Direction
}

// turnTable maps the agent's heading and the cardinal step to the next
// waypoint onto a turn. Straight ahead and reversals are absent and resolve
// to TurnNone.
var turnTable = map[turnKey]Turn{
	{grid.Forward, grid.Right}: TurnRight,
	{grid.Forward, grid.Left}:  TurnLeft,
	{grid.Back, grid.Right}:    TurnLeft,
	{grid.Back, grid.Left}:     TurnRight,
	{grid.Right, grid.Forward}: TurnLeft,
	{grid.Right, grid.Back}:    TurnRight,
	{grid.Left, grid.Forward}:  TurnRight,
	{grid.Left, grid.Back}:     TurnLeft,
}

// TurnFor looks up the turn that points heading at delta.
func TurnFor(heading, delta grid.Direction) Turn {
	return turnTable[turnKey{heading, delta}]
}
