package nav

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/gridpatrol/grid"
)

// Callback receives a finished search. It runs on the goroutine that calls
// Scheduler.Deliver.
type Callback func(PathResult)

// PathRequest asks for a path for one patrol slot. Seq lets the requester
// discard results that arrive after a newer request for the same slot.
type PathRequest struct {
	Slot      int
	Seq       uint64
	Direction grid.Direction
	Start     cp.Vector
	Target    cp.Vector
	Callback  Callback
}

// PathResult is the outcome of one PathRequest. Cells run from the first
// step after the start cell to the target cell inclusive; they are empty on
// failure and when start and target share a cell.
type PathResult struct {
	Cells    []grid.Cell
	Success  bool
	Slot     int
	Seq      uint64
	Expanded int
	Callback Callback
}

func failedResult(req PathRequest) PathResult {
	return PathResult{
		Slot:     req.Slot,
		Seq:      req.Seq,
		Callback: req.Callback,
	}
}

func (r PathResult) deliver() {
	if r.Callback != nil {
		r.Callback(r)
	}
}
