package sim

import (
	"fmt"

	"github.com/milk9111/gridpatrol/patrol"
)

type Weapon uint8

const (
	Weapon0 Weapon = iota
	Weapon1
)

func (w Weapon) String() string {
	return fmt.Sprintf("weapon%d", uint8(w))
}

// Action is something an agent was asked to do this step. The set is
// closed: Movement or Combat.
type Action interface {
	action()
}

type Movement struct {
	Turn patrol.Turn
}

type Combat struct {
	Weapon Weapon
}

func (Movement) action() {}
func (Combat) action()   {}

// ActionQueue collects an agent's actions between steps.
type ActionQueue struct {
	items []Action
}

func (q *ActionQueue) Push(a Action) {
	if a == nil {
		return
	}
	q.items = append(q.items, a)
}

func (q *ActionQueue) Len() int {
	return len(q.items)
}

// Resolve empties the queue. Left and right turns cancel out, so at most one
// movement comes back; combat actions are returned in order.
func (q *ActionQueue) Resolve() (Movement, []Combat) {
	net := 0
	var combats []Combat
	for _, a := range q.items {
		switch a := a.(type) {
		case Movement:
			switch a.Turn {
			case patrol.TurnLeft:
				net--
			case patrol.TurnRight:
				net++
			}
		case Combat:
			combats = append(combats, a)
		}
	}
	q.items = q.items[:0]

	switch {
	case net < 0:
		return Movement{Turn: patrol.TurnLeft}, combats
	case net > 0:
		return Movement{Turn: patrol.TurnRight}, combats
	}
	return Movement{Turn: patrol.TurnNone}, combats
}
