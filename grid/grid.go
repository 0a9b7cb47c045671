// Package grid is the uniform-cell topology agents move on: cell lookup by
// world or grid position, walkability, movement penalties and 4-way
// neighbor enumeration.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/gridpatrol/common"
)

var (
	ErrOutOfBounds     = errors.New("grid: position out of bounds")
	ErrInvalidSize     = errors.New("grid: invalid size")
	ErrNegativePenalty = errors.New("grid: negative movement penalty")
)

// Position is a (column, row) grid coordinate and the identity of a Cell.
type Position struct {
	Col int
	Row int
}

func (p Position) Add(o Position) Position {
	return Position{Col: p.Col + o.Col, Row: p.Row + o.Row}
}

func (p Position) Sub(o Position) Position {
	return Position{Col: p.Col - o.Col, Row: p.Row - o.Row}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Col, p.Row)
}

// Cell is one grid square. Cells hold no search state.
type Cell struct {
	Pos      Position
	Center   cp.Vector
	Walkable bool
	Penalty  int
}

// Grid owns a flat arena of cells addressed by row*cols+col. Cell world
// centers sit at origin + (col+0.5, row+0.5) * cellSize.
//
// Grid is read-only while searches run; SetWalkable and SetPenalty must not
// race with the path scheduler.
type Grid struct {
	cols     int
	rows     int
	cellSize float64
	origin   cp.Vector
	cells    []Cell
}

// New creates a fully walkable grid with zero penalties.
func New(cols, rows int, cellSize float64) (*Grid, error) {
	return NewWithOrigin(cols, rows, cellSize, cp.Vector{})
}

func NewWithOrigin(cols, rows int, cellSize float64, origin cp.Vector) (*Grid, error) {
	if cols <= 0 || rows <= 0 || cellSize <= 0 {
		return nil, fmt.Errorf("%w: %dx%d cell=%.2f", ErrInvalidSize, cols, rows, cellSize)
	}

	g := &Grid{
		cols:     cols,
		rows:     rows,
		cellSize: cellSize,
		origin:   origin,
		cells:    make([]Cell, cols*rows),
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			p := Position{Col: col, Row: row}
			g.cells[row*cols+col] = Cell{
				Pos:      p,
				Center:   g.CenterOf(p),
				Walkable: true,
			}
		}
	}
	return g, nil
}

func (g *Grid) Cols() int         { return g.cols }
func (g *Grid) Rows() int         { return g.rows }
func (g *Grid) CellSize() float64 { return g.cellSize }
func (g *Grid) Origin() cp.Vector { return g.origin }

// Size is the number of cells, the upper bound of any open set.
func (g *Grid) Size() int {
	if g == nil {
		return 0
	}
	return len(g.cells)
}

func (g *Grid) InBounds(p Position) bool {
	return g != nil && p.Col >= 0 && p.Row >= 0 && p.Col < g.cols && p.Row < g.rows
}

// Index returns the arena index of p or -1.
func (g *Grid) Index(p Position) int {
	if !g.InBounds(p) {
		return -1
	}
	return p.Row*g.cols + p.Col
}

// At returns the cell stored at arena index i.
func (g *Grid) At(i int) Cell {
	return g.cells[i]
}

func (g *Grid) Cell(p Position) (Cell, bool) {
	idx := g.Index(p)
	if idx < 0 {
		return Cell{}, false
	}
	return g.cells[idx], true
}

func (g *Grid) CenterOf(p Position) cp.Vector {
	half := g.cellSize * 0.5
	return cp.Vector{
		X: g.origin.X + float64(p.Col)*g.cellSize + half,
		Y: g.origin.Y + float64(p.Row)*g.cellSize + half,
	}
}

// PositionAt converts a world position to grid coordinates, clamped to the
// grid so positions slightly outside the edge still resolve.
func (g *Grid) PositionAt(world cp.Vector) Position {
	col := int(math.Floor((world.X - g.origin.X) / g.cellSize))
	row := int(math.Floor((world.Y - g.origin.Y) / g.cellSize))
	return Position{
		Col: common.ClampInt(col, 0, g.cols-1),
		Row: common.ClampInt(row, 0, g.rows-1),
	}
}

func (g *Grid) CellAt(world cp.Vector) Cell {
	return g.cells[g.Index(g.PositionAt(world))]
}

func (g *Grid) IsWalkable(p Position) bool {
	c, ok := g.Cell(p)
	return ok && c.Walkable
}

func (g *Grid) SetWalkable(p Position, walkable bool) error {
	idx := g.Index(p)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, p)
	}
	g.cells[idx].Walkable = walkable
	return nil
}

func (g *Grid) SetPenalty(p Position, penalty int) error {
	idx := g.Index(p)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, p)
	}
	if penalty < 0 {
		return fmt.Errorf("%w: %s=%d", ErrNegativePenalty, p, penalty)
	}
	g.cells[idx].Penalty = penalty
	return nil
}

// Neighbors returns the in-bounds 4-way neighbors of p in clockwise order
// starting at Forward. Walkability is not filtered.
func (g *Grid) Neighbors(p Position) []Cell {
	return g.AccessibleNeighbors(p, None)
}

// AccessibleNeighbors is Neighbors minus the cell directly behind an agent
// moving in incoming: an agent with momentum cannot reverse into the cell
// it just left. None applies no restriction.
func (g *Grid) AccessibleNeighbors(p Position, incoming Direction) []Cell {
	out := make([]Cell, 0, 4)
	behind := incoming.Opposite()
	for _, d := range Cardinals {
		if incoming.Valid() && d == behind {
			continue
		}
		if c, ok := g.Cell(p.Add(d.Offset())); ok {
			out = append(out, c)
		}
	}
	return out
}
