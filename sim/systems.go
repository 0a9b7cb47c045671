package sim

import (
	"context"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/gridpatrol/patrol"
)

// TargetSystem moves scripted targets. A script that errors is disabled
// until it is reloaded and its target stays where it was.
type TargetSystem struct{}

func (s *TargetSystem) Update(w *World) {
	t := w.Elapsed().Seconds()
	for _, target := range w.targets {
		if target.script == nil || target.failed {
			continue
		}
		pos, err := target.script.Eval(context.Background(), t, target.base)
		if err != nil {
			target.failed = true
			w.logger.Error("target script disabled", "target", target.id, "script", target.script.Name(), "err", err)
			continue
		}
		target.pos = pos
	}
}

// PathSystem runs queued searches, unless a worker owns them, and hands
// finished results to their controllers.
type PathSystem struct{}

func (s *PathSystem) Update(w *World) {
	if !w.async {
		w.paths.Process(w.budget)
	}
	w.paths.Deliver()
}

type PatrolSystem struct{}

func (s *PatrolSystem) Update(w *World) {
	now := w.Now()
	for _, a := range w.agents {
		prev := a.controller.Active()
		a.decision = a.controller.Update(now)
		if active := a.controller.Active(); active != prev {
			w.events.Push(Event{
				Type: EventTargetReached,
				Data: TargetReachedEvent{Agent: a.id, Target: prev, Laps: a.controller.Laps()},
			})
			w.logger.Debug("target reached", "agent", a.id, "target", prev, "next", active)
		}
	}
}

// MovementSystem applies queued actions and the patrol decision to each
// agent's body, then steps the physics space.
type MovementSystem struct{}

func (s *MovementSystem) Update(w *World) {
	for _, a := range w.agents {
		s.apply(w, a)
	}
	w.space.Step(w.dt.Seconds())
	for _, a := range w.agents {
		s.track(w, a)
	}
}

func (s *MovementSystem) apply(w *World, a *Agent) {
	move, combats := a.actions.Resolve()
	for _, c := range combats {
		w.events.Push(Event{Type: EventCombat, Data: CombatEvent{Agent: a.id, Weapon: c.Weapon}})
	}

	cell := w.grid.CellAt(a.Position())
	if move.Turn != patrol.TurnNone {
		a.heading = move.Turn.Apply(a.heading)
		a.body.SetPosition(cell.Center)
		a.next = cell.Pos.Add(a.heading.Offset())
		w.events.Push(Event{
			Type: EventTurn,
			Data: TurnEvent{Agent: a.id, Turn: move.Turn, Heading: a.heading, Cell: cell.Pos},
		})
	}

	d := a.decision
	switch {
	case d.Halt:
		if a.moving {
			a.body.SetPosition(cell.Center)
			w.events.Push(Event{Type: EventHalted, Data: HaltedEvent{Agent: a.id, Cell: cell.Pos}})
		}
		a.moving = false
	case d.Arrived:
		a.moving = true
	}

	var v cp.Vector
	if a.moving {
		if a.blockedAhead(w.grid, cell) {
			a.body.SetPosition(cell.Center)
		} else {
			speed := a.speed
			if d.Slowing || d.TurnAhead {
				speed *= a.slowFactor
			}
			v = a.heading.Vector().Mult(speed * w.grid.CellSize())
		}
	}
	a.body.SetVelocityVector(v)
}

func (s *MovementSystem) track(w *World, a *Agent) {
	pos := w.grid.PositionAt(a.Position())
	if pos == a.cell {
		return
	}
	a.previous = a.cell
	a.cell = pos
	a.next = pos.Add(a.heading.Offset())
	w.events.Push(Event{
		Type: EventCellEntered,
		Data: CellEnteredEvent{Agent: a.id, Cell: a.cell, Previous: a.previous, Next: a.next},
	})
}
