package nav

import (
	"math/rand"
	"testing"

	"github.com/milk9111/gridpatrol/common"
	"github.com/milk9111/gridpatrol/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openGrid(t *testing.T, cols, rows int) *grid.Grid {
	t.Helper()
	g, err := grid.New(cols, rows, 1)
	require.NoError(t, err)
	return g
}

func newEngine(t *testing.T, g *grid.Grid) *Engine {
	t.Helper()
	e, err := NewEngine(g)
	require.NoError(t, err)
	return e
}

func request(g *grid.Grid, from, to grid.Position, dir grid.Direction) PathRequest {
	return PathRequest{
		Direction: dir,
		Start:     g.CenterOf(from),
		Target:    g.CenterOf(to),
	}
}

func cellPositions(cells []grid.Cell) []grid.Position {
	out := make([]grid.Position, 0, len(cells))
	for _, c := range cells {
		out = append(out, c.Pos)
	}
	return out
}

func requireContiguous(t *testing.T, from grid.Position, cells []grid.Cell) {
	t.Helper()
	prev := from
	for _, c := range cells {
		require.Equal(t, 1, common.Manhattan(prev.Col, prev.Row, c.Pos.Col, c.Pos.Row), "jump from %s to %s", prev, c.Pos)
		prev = c.Pos
	}
}

func TestNewEngineRejectsNilGrid(t *testing.T) {
	_, err := NewEngine(nil)
	assert.ErrorIs(t, err, ErrNilGrid)
}

func TestFindPathOptimalOnOpenGrid(t *testing.T) {
	g := openGrid(t, 6, 5)
	e := newEngine(t, g)

	for si := 0; si < g.Size(); si++ {
		for ti := 0; ti < g.Size(); ti++ {
			from, to := g.At(si).Pos, g.At(ti).Pos
			res, err := e.FindPath(request(g, from, to, grid.None))
			require.NoError(t, err)
			require.True(t, res.Success, "%s -> %s", from, to)
			require.Len(t, res.Cells, common.Manhattan(from.Col, from.Row, to.Col, to.Row), "%s -> %s", from, to)
			requireContiguous(t, from, res.Cells)
			if len(res.Cells) > 0 {
				require.Equal(t, to, res.Cells[len(res.Cells)-1].Pos)
			}
		}
	}
}

func TestFindPathNeverStartsBehindHeading(t *testing.T) {
	g := openGrid(t, 5, 5)
	e := newEngine(t, g)

	for si := 0; si < g.Size(); si++ {
		from := g.At(si).Pos
		open := 0
		for _, c := range g.Neighbors(from) {
			if c.Walkable {
				open++
			}
		}
		if open < 3 {
			continue
		}
		for _, heading := range grid.Cardinals {
			behind := from.Add(heading.Opposite().Offset())
			for ti := 0; ti < g.Size(); ti++ {
				to := g.At(ti).Pos
				if to == from {
					continue
				}
				res, err := e.FindPath(request(g, from, to, heading))
				require.NoError(t, err)
				require.True(t, res.Success)
				require.NotEqual(t, behind, res.Cells[0].Pos, "%s heading %s -> %s", from, heading, to)
			}
		}
	}
}

func TestFindPathDetoursWhenTargetIsBehind(t *testing.T) {
	g := openGrid(t, 5, 5)
	e := newEngine(t, g)

	res, err := e.FindPath(request(g, grid.Position{Col: 2, Row: 2}, grid.Position{Col: 2, Row: 1}, grid.Forward))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Len(t, res.Cells, 3)
	assert.NotEqual(t, grid.Position{Col: 2, Row: 1}, res.Cells[0].Pos)
	requireContiguous(t, grid.Position{Col: 2, Row: 2}, res.Cells)
}

func TestFindPathTargetWalledIn(t *testing.T) {
	g := openGrid(t, 5, 5)
	target := grid.Position{Col: 2, Row: 2}
	for _, c := range g.Neighbors(target) {
		require.NoError(t, g.SetWalkable(c.Pos, false))
	}
	e := newEngine(t, g)

	res, err := e.FindPath(request(g, grid.Position{}, target, grid.Forward))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.Cells)
	assert.Positive(t, res.Expanded)
}

func TestFindPathUnwalkableEndpointSkipsSearch(t *testing.T) {
	g := openGrid(t, 4, 4)
	require.NoError(t, g.SetWalkable(grid.Position{Col: 3, Row: 3}, false))
	e := newEngine(t, g)

	res, err := e.FindPath(request(g, grid.Position{}, grid.Position{Col: 3, Row: 3}, grid.None))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Zero(t, res.Expanded)

	res, err = e.FindPath(request(g, grid.Position{Col: 3, Row: 3}, grid.Position{}, grid.None))
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestFindPathStartIsTarget(t *testing.T) {
	g := openGrid(t, 3, 3)
	e := newEngine(t, g)

	res, err := e.FindPath(request(g, grid.Position{Col: 1, Row: 1}, grid.Position{Col: 1, Row: 1}, grid.Right))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Cells)
}

func TestFindPathAvoidsPenalties(t *testing.T) {
	g := openGrid(t, 5, 3)
	for col := 1; col <= 3; col++ {
		require.NoError(t, g.SetPenalty(grid.Position{Col: col, Row: 0}, 5))
	}
	e := newEngine(t, g)

	res, err := e.FindPath(request(g, grid.Position{Col: 0, Row: 0}, grid.Position{Col: 4, Row: 0}, grid.Right))
	require.NoError(t, err)
	require.True(t, res.Success)
	for _, c := range res.Cells {
		assert.Zero(t, c.Penalty, "path crossed penalty cell %s", c.Pos)
	}
	assert.Len(t, res.Cells, 6)
}

func TestFindPathCarriesRequestIdentity(t *testing.T) {
	g := openGrid(t, 3, 3)
	e := newEngine(t, g)

	req := request(g, grid.Position{}, grid.Position{Col: 2, Row: 2}, grid.Forward)
	req.Slot = 4
	req.Seq = 19
	res, err := e.FindPath(req)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Slot)
	assert.Equal(t, uint64(19), res.Seq)
}

// Scratch from a previous search must not leak into the next one.
func TestFindPathReusesScratchSafely(t *testing.T) {
	g := openGrid(t, 8, 8)
	e := newEngine(t, g)

	_, err := e.FindPath(request(g, grid.Position{}, grid.Position{Col: 7, Row: 7}, grid.None))
	require.NoError(t, err)

	for col := 0; col < 7; col++ {
		require.NoError(t, g.SetWalkable(grid.Position{Col: col, Row: 4}, false))
	}
	res, err := e.FindPath(request(g, grid.Position{Col: 0, Row: 7}, grid.Position{Col: 0, Row: 0}, grid.None))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Len(t, res.Cells, 7+7+7)
	requireContiguous(t, grid.Position{Col: 0, Row: 7}, res.Cells)
}

func TestFindPathEndToEndOpenGrid(t *testing.T) {
	g := openGrid(t, 5, 5)
	e := newEngine(t, g)

	res, err := e.FindPath(request(g, grid.Position{Col: 0, Row: 0}, grid.Position{Col: 4, Row: 0}, grid.Forward))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, []grid.Position{{Col: 1, Row: 0}, {Col: 2, Row: 0}, {Col: 3, Row: 0}, {Col: 4, Row: 0}}, cellPositions(res.Cells))
}

func TestFindPathRandomMazesWithDebugChecks(t *testing.T) {
	SetDebugChecks(true)
	defer SetDebugChecks(false)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 25; trial++ {
		g := openGrid(t, 12, 12)
		for i := 0; i < g.Size(); i++ {
			if rng.Float64() < 0.25 {
				require.NoError(t, g.SetWalkable(g.At(i).Pos, false))
			} else if rng.Float64() < 0.2 {
				require.NoError(t, g.SetPenalty(g.At(i).Pos, rng.Intn(4)))
			}
		}
		e := newEngine(t, g)
		from := g.At(rng.Intn(g.Size())).Pos
		to := g.At(rng.Intn(g.Size())).Pos
		dir := grid.Cardinals[rng.Intn(4)]

		res, err := e.FindPath(request(g, from, to, dir))
		require.NoError(t, err)
		if res.Success {
			requireContiguous(t, from, res.Cells)
			for _, c := range res.Cells {
				require.True(t, c.Walkable)
			}
		} else {
			require.Empty(t, res.Cells)
		}
	}
}
