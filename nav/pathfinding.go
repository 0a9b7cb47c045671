// Package nav finds and schedules paths over a grid.Grid: a decrease-key
// priority queue, a direction-constrained A* engine, the Path waypoint model
// consumed by followers and a request scheduler that decouples when a path
// is asked for from when it is delivered.
package nav

import (
	"errors"
	"fmt"

	"github.com/milk9111/gridpatrol/common"
	"github.com/milk9111/gridpatrol/grid"
	"github.com/zyedidia/generic/mapset"
)

var (
	ErrNilGrid     = errors.New("nav: nil grid")
	ErrBrokenChain = errors.New("nav: broken parent chain")
)

const noParent = -1

// searchNode is per-search scratch for one grid cell. A node whose stamp
// differs from the engine's current search is stale and is reset on touch.
type searchNode struct {
	g      int
	h      int
	parent int
	stamp  uint32
}

func (n *searchNode) f() int {
	return n.g + n.h
}

// Engine runs A* searches over a grid. Scratch state lives in the engine,
// not on cells, so one Engine must not run two searches at once; the
// Scheduler serializes access.
type Engine struct {
	grid     *grid.Grid
	nodes    []searchNode
	stamp    uint32
	open     *PriorityQueue[int]
	maxNodes int
}

type EngineOption func(*Engine)

// WithMaxNodes caps the number of expanded cells per search.
func WithMaxNodes(n int) EngineOption {
	return func(e *Engine) { e.maxNodes = n }
}

func NewEngine(g *grid.Grid, opts ...EngineOption) (*Engine, error) {
	if g == nil {
		return nil, ErrNilGrid
	}
	e := &Engine{
		grid:     g,
		nodes:    make([]searchNode, g.Size()),
		maxNodes: g.Size(),
	}
	e.open = NewPriorityQueue(e.less, g.Size())
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Grid() *grid.Grid {
	return e.grid
}

// less orders by total cost, preferring cells heuristically closer to the
// target on ties.
func (e *Engine) less(a, b int) bool {
	na, nb := &e.nodes[a], &e.nodes[b]
	if fa, fb := na.f(), nb.f(); fa != fb {
		return fa < fb
	}
	return na.h < nb.h
}

func (e *Engine) touch(i int) *searchNode {
	n := &e.nodes[i]
	if n.stamp != e.stamp {
		*n = searchNode{parent: noParent, stamp: e.stamp}
	}
	return n
}

func (e *Engine) beginSearch() {
	e.stamp++
	if e.stamp == 0 {
		for i := range e.nodes {
			e.nodes[i] = searchNode{}
		}
		e.stamp = 1
	}
	e.open.Clear()
}

// FindPath runs one search. An unreachable or unwalkable target is a normal
// failed result; only an engine without a grid returns an error.
func (e *Engine) FindPath(req PathRequest) (PathResult, error) {
	if e == nil || e.grid == nil {
		return failedResult(req), ErrNilGrid
	}

	g := e.grid
	startCell := g.CellAt(req.Start)
	targetCell := g.CellAt(req.Target)
	result := failedResult(req)

	if !startCell.Walkable || !targetCell.Walkable {
		return result, nil
	}

	e.beginSearch()
	startIdx := g.Index(startCell.Pos)
	targetIdx := g.Index(targetCell.Pos)

	start := e.touch(startIdx)
	start.parent = startIdx
	start.h = distance(startCell.Pos, targetCell.Pos)
	e.open.Insert(startIdx)

	closed := mapset.New[int]()
	found := false

	for e.open.Len() > 0 {
		currentIdx, _ := e.open.RemoveMin()
		closed.Put(currentIdx)
		result.Expanded++

		if currentIdx == targetIdx {
			found = true
			break
		}
		if e.maxNodes > 0 && result.Expanded >= e.maxNodes {
			break
		}

		currentCell := g.At(currentIdx)
		current := &e.nodes[currentIdx]

		var neighbors []grid.Cell
		if currentIdx == startIdx {
			neighbors = g.AccessibleNeighbors(currentCell.Pos, req.Direction)
		} else {
			neighbors = g.Neighbors(currentCell.Pos)
		}

		for _, nb := range neighbors {
			nbIdx := g.Index(nb.Pos)
			if !nb.Walkable || closed.Has(nbIdx) {
				continue
			}

			tentative := current.g + distance(currentCell.Pos, nb.Pos) + nb.Penalty
			queued := e.open.Contains(nbIdx)
			node := e.touch(nbIdx)
			if queued && tentative >= node.g {
				continue
			}

			node.g = tentative
			node.h = distance(nb.Pos, targetCell.Pos)
			node.parent = currentIdx

			if !queued {
				e.open.Insert(nbIdx)
			} else if err := e.open.DecreaseKey(nbIdx); err != nil {
				return failedResult(req), Check(err)
			}
			if debugChecks.Load() {
				Check(e.open.Validate())
			}
		}
	}

	if !found {
		return result, nil
	}

	cells, err := e.retrace(startIdx, targetIdx)
	if err != nil {
		return failedResult(req), Check(err)
	}
	result.Cells = cells
	result.Success = true
	return result, nil
}

// retrace follows parents from target back to start and returns the cells
// in travel order, start excluded.
func (e *Engine) retrace(startIdx, targetIdx int) ([]grid.Cell, error) {
	var path []grid.Cell
	for cur := targetIdx; cur != startIdx; {
		if len(path) > len(e.nodes) {
			return nil, fmt.Errorf("%w: cycle after %d cells", ErrBrokenChain, len(path))
		}
		n := &e.nodes[cur]
		if n.stamp != e.stamp || n.parent == noParent {
			return nil, fmt.Errorf("%w: cell %s has no parent", ErrBrokenChain, e.grid.At(cur).Pos)
		}
		path = append(path, e.grid.At(cur))
		cur = n.parent
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// distance is the step cost between cells: Manhattan, diagonals disabled.
func distance(a, b grid.Position) int {
	return common.Manhattan(a.Col, a.Row, b.Col, b.Row)
}
