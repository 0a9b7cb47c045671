package nav

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/gridpatrol/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellsAt(t *testing.T, g *grid.Grid, ps ...grid.Position) []grid.Cell {
	t.Helper()
	out := make([]grid.Cell, 0, len(ps))
	for _, p := range ps {
		c, ok := g.Cell(p)
		require.True(t, ok, "%s", p)
		out = append(out, c)
	}
	return out
}

// L-shaped path: right along row 0, then forward up column 2.
func lPath(t *testing.T) (*grid.Grid, *Path) {
	t.Helper()
	g := openGrid(t, 4, 4)
	cells := cellsAt(t, g,
		grid.Position{Col: 1, Row: 0},
		grid.Position{Col: 2, Row: 0},
		grid.Position{Col: 2, Row: 1},
		grid.Position{Col: 2, Row: 2},
	)
	return g, NewPath(cells, g.CenterOf(grid.Position{}), 0.25, 0.5)
}

func TestNewPathBoundaries(t *testing.T) {
	_, p := lPath(t)
	require.Equal(t, 4, p.Len())
	require.Equal(t, 4, p.Total())

	pts := p.Points()
	assert.Equal(t, cp.Vector{X: 1.25, Y: 0.5}, pts[0].Turn.Point)
	assert.Equal(t, cp.Vector{X: 1, Y: 0}, pts[0].Turn.Approach)
	assert.Equal(t, cp.Vector{X: 2.5, Y: 1.25}, pts[2].Turn.Point)
	assert.Equal(t, cp.Vector{X: 0, Y: 1}, pts[2].Turn.Approach)
	assert.Equal(t, cp.Vector{X: 2.5, Y: 2.5}, pts[3].Turn.Point, "final turn boundary sits on the center")

	stop := p.StopBoundary()
	assert.Equal(t, cp.Vector{X: 2.5, Y: 2}, stop.Point)

	end, dir, ok := p.End()
	require.True(t, ok)
	assert.Equal(t, grid.Position{Col: 2, Row: 2}, end.Pos)
	assert.Equal(t, grid.Forward, dir)
}

func TestBoundaryCrossed(t *testing.T) {
	b := Boundary{Point: cp.Vector{X: 1, Y: 0}, Approach: cp.Vector{X: 1}}
	assert.False(t, b.Crossed(cp.Vector{X: 0.9, Y: 5}))
	assert.True(t, b.Crossed(cp.Vector{X: 1, Y: -3}))
	assert.True(t, b.Crossed(cp.Vector{X: 2}))
	assert.InDelta(t, 0.4, b.Distance(cp.Vector{X: 0.6, Y: 9}), 1e-9)

	assert.True(t, Boundary{}.Crossed(cp.Vector{X: -100}))
}

func TestPathTurnAndStopBoundaries(t *testing.T) {
	_, p := lPath(t)
	assert.False(t, p.TurnBoundaryCrossed(cp.Vector{X: 1, Y: 0.5}))
	assert.True(t, p.TurnBoundaryCrossed(cp.Vector{X: 1.3, Y: 0.5}))

	assert.False(t, p.StopBoundaryCrossed(cp.Vector{X: 2.5, Y: 2.2}), "not on the final leg yet")
	p.ConsumeThrough(grid.Position{Col: 2, Row: 1})
	require.Equal(t, 1, p.Len())
	assert.False(t, p.StopBoundaryCrossed(cp.Vector{X: 2.5, Y: 1.9}))
	assert.True(t, p.StopBoundaryCrossed(cp.Vector{X: 2.5, Y: 2.1}))
}

func TestPathConsumeThroughIsMonotonic(t *testing.T) {
	_, p := lPath(t)

	steps := []struct {
		pos     grid.Position
		dropped int
		left    int
	}{
		{grid.Position{Col: 0, Row: 0}, 0, 4},
		{grid.Position{Col: 1, Row: 0}, 1, 3},
		{grid.Position{Col: 1, Row: 0}, 0, 3},
		{grid.Position{Col: 3, Row: 3}, 0, 3},
		{grid.Position{Col: 2, Row: 1}, 2, 1},
		{grid.Position{Col: 2, Row: 0}, 0, 1},
		{grid.Position{Col: 2, Row: 2}, 1, 0},
	}
	prev := p.Len()
	for _, s := range steps {
		assert.Equal(t, s.dropped, p.ConsumeThrough(s.pos), "at %s", s.pos)
		assert.Equal(t, s.left, p.Len(), "at %s", s.pos)
		assert.LessOrEqual(t, p.Len(), prev)
		prev = p.Len()
	}
	assert.True(t, p.Finished())
	assert.Equal(t, 4, p.Consumed())

	_, _, ok := p.End()
	assert.True(t, ok, "end survives consumption")
}

func TestPathSlowDownIndex(t *testing.T) {
	g := openGrid(t, 6, 1)
	cells := cellsAt(t, g,
		grid.Position{Col: 1}, grid.Position{Col: 2}, grid.Position{Col: 3}, grid.Position{Col: 4}, grid.Position{Col: 5},
	)
	p := NewPath(cells, g.CenterOf(grid.Position{}), 0.2, 1.5)

	assert.False(t, p.Slowing())
	p.ConsumeThrough(grid.Position{Col: 2})
	assert.False(t, p.Slowing())
	p.ConsumeThrough(grid.Position{Col: 3})
	assert.True(t, p.Slowing())
}

func TestEmptyAndNilPaths(t *testing.T) {
	var nilPath *Path
	assert.Zero(t, nilPath.Len())
	assert.True(t, nilPath.Empty())
	assert.Zero(t, nilPath.ConsumeThrough(grid.Position{}))
	assert.False(t, nilPath.Finished())

	p := NewPath(nil, cp.Vector{X: 1, Y: 1}, 1, 1)
	assert.True(t, p.Empty())
	assert.False(t, p.Finished())
	_, _, ok := p.End()
	assert.False(t, ok)
	_, ok = p.Front()
	assert.False(t, ok)
}
