package sim

import (
	"github.com/milk9111/gridpatrol/grid"
	"github.com/milk9111/gridpatrol/patrol"
)

// Event is a world event payload.
type Event struct {
	Type string
	Data any
}

const (
	EventTurn          = "turn"
	EventTargetReached = "target_reached"
	EventCellEntered   = "cell_entered"
	EventHalted        = "halted"
	EventCombat        = "combat"
)

type TurnEvent struct {
	Agent   int
	Turn    patrol.Turn
	Heading grid.Direction
	Cell    grid.Position
}

// TargetReachedEvent is emitted when an agent's patrol moves past Target.
type TargetReachedEvent struct {
	Agent  int
	Target int
	Laps   int
}

type CellEnteredEvent struct {
	Agent    int
	Cell     grid.Position
	Previous grid.Position
	Next     grid.Position
}

type HaltedEvent struct {
	Agent int
	Cell  grid.Position
}

type CombatEvent struct {
	Agent  int
	Weapon Weapon
}

// EventQueue is a simple FIFO queue.
type EventQueue struct {
	items []Event
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

func (q *EventQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}
