package nav

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/gridpatrol/grid"
)

// Boundary is a line through Point perpendicular to Approach. A follower
// moving along Approach crosses it once it reaches the far side.
type Boundary struct {
	Point    cp.Vector
	Approach cp.Vector
}

// Crossed reports whether p lies on or beyond the line. A boundary without
// an approach direction is always crossed.
func (b Boundary) Crossed(p cp.Vector) bool {
	if b.Approach.LengthSq() == 0 {
		return true
	}
	return p.Sub(b.Point).Dot(b.Approach) >= 0
}

// Distance is the unsigned distance from p to the line.
func (b Boundary) Distance(p cp.Vector) float64 {
	if b.Approach.LengthSq() == 0 {
		return p.Distance(b.Point)
	}
	return math.Abs(p.Sub(b.Point).Dot(b.Approach.Normalize()))
}

// Waypoint is one look point: the cell to pass through and the boundary at
// which the follower should start turning toward the next one.
type Waypoint struct {
	Cell grid.Cell
	Turn Boundary
}

// Path is the follower's view of a search result. Waypoints are consumed
// from the front as the agent passes them and never come back; everything
// else is fixed at construction.
type Path struct {
	points        []Waypoint
	total         int
	consumed      int
	start         cp.Vector
	end           grid.Cell
	endDir        grid.Direction
	stop          Boundary
	slowDownIndex int
}

// NewPath builds look points for cells walked from start. Turn boundaries sit
// turnDst before each cell center along the approach direction, capped at the
// segment length; the final cell's turn boundary sits on its center and its
// stop boundary stopDst before it.
func NewPath(cells []grid.Cell, start cp.Vector, turnDst, stopDst float64) *Path {
	p := &Path{
		points: make([]Waypoint, len(cells)),
		total:  len(cells),
		start:  start,
	}
	if len(cells) == 0 {
		return p
	}

	last := len(cells) - 1
	prev := start
	var approach cp.Vector
	for i, c := range cells {
		seg := c.Center.Sub(prev)
		approach = seg.Normalize()
		point := c.Center
		if i != last {
			point = c.Center.Sub(approach.Mult(math.Min(turnDst, seg.Length())))
		}
		p.points[i] = Waypoint{
			Cell: c,
			Turn: Boundary{Point: point, Approach: approach},
		}
		prev = c.Center
	}

	p.end = cells[last]
	p.endDir = grid.DirectionOfVector(approach)
	p.stop = Boundary{
		Point:    p.end.Center.Sub(approach.Mult(stopDst)),
		Approach: approach,
	}

	dst := 0.0
	for i := last; i > 0; i-- {
		dst += cells[i].Center.Distance(cells[i-1].Center)
		if dst > stopDst {
			p.slowDownIndex = i
			break
		}
	}
	return p
}

// Len is the number of waypoints not yet consumed.
func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return len(p.points)
}

// Total is the waypoint count the path was built with.
func (p *Path) Total() int {
	if p == nil {
		return 0
	}
	return p.total
}

func (p *Path) Consumed() int {
	if p == nil {
		return 0
	}
	return p.consumed
}

func (p *Path) Empty() bool {
	return p.Len() == 0
}

func (p *Path) Start() cp.Vector {
	if p == nil {
		return cp.Vector{}
	}
	return p.start
}

func (p *Path) Front() (Waypoint, bool) {
	if p.Len() == 0 {
		return Waypoint{}, false
	}
	return p.points[0], true
}

// Points copies the remaining waypoints.
func (p *Path) Points() []Waypoint {
	if p.Len() == 0 {
		return nil
	}
	return append([]Waypoint(nil), p.points...)
}

// End is the final cell and the heading of the last step into it,
// independent of consumption.
func (p *Path) End() (grid.Cell, grid.Direction, bool) {
	if p == nil || p.total == 0 {
		return grid.Cell{}, grid.None, false
	}
	return p.end, p.endDir, true
}

// ConsumeThrough drops every waypoint up to and including the last one in
// pos. A position not on the remaining path drops nothing.
func (p *Path) ConsumeThrough(pos grid.Position) int {
	if p.Len() == 0 {
		return 0
	}
	last := -1
	for i := range p.points {
		if p.points[i].Cell.Pos == pos {
			last = i
		}
	}
	if last < 0 {
		return 0
	}
	n := last + 1
	p.points = p.points[n:]
	p.consumed += n
	return n
}

// TurnBoundaryCrossed reports whether pos is past the front waypoint's
// turn boundary.
func (p *Path) TurnBoundaryCrossed(pos cp.Vector) bool {
	wp, ok := p.Front()
	return ok && wp.Turn.Crossed(pos)
}

// StopBoundaryCrossed reports whether the follower is on the final leg and
// past the stopping boundary.
func (p *Path) StopBoundaryCrossed(pos cp.Vector) bool {
	if p.Len() != 1 {
		return false
	}
	return p.stop.Crossed(pos)
}

func (p *Path) StopBoundary() Boundary {
	if p == nil {
		return Boundary{}
	}
	return p.stop
}

// Slowing reports whether the follower has reached the stretch within the
// stopping distance of the end.
func (p *Path) Slowing() bool {
	if p == nil || p.total == 0 {
		return false
	}
	return p.consumed >= p.slowDownIndex
}

// Finished reports whether every waypoint has been consumed.
func (p *Path) Finished() bool {
	return p != nil && p.total > 0 && len(p.points) == 0
}
