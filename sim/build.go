package sim

import (
	"fmt"

	"github.com/milk9111/gridpatrol/levels"
	"github.com/milk9111/gridpatrol/prefabs"
)

// DefaultAgentSpec is used for agents whose level entry names no spec.
const DefaultAgentSpec = "patroller.yaml"

// SpecLoader resolves an agent spec by file name.
type SpecLoader func(name string) (*prefabs.AgentSpec, error)

// Build creates a world from a level. Every agent patrols every target in
// the level's target order. A target's script comes from its "script" prop,
// or else from the first agent spec that names one for its order.
func Build(lvl *levels.Level, load SpecLoader, opts ...Option) (*World, error) {
	if load == nil {
		load = prefabs.LoadAgentSpec
	}

	g, err := lvl.Grid()
	if err != nil {
		return nil, err
	}
	w, err := NewWorld(g, opts...)
	if err != nil {
		return nil, err
	}

	type placed struct {
		entity levels.Entity
		name   string
		spec   *prefabs.AgentSpec
	}
	var agents []placed
	for _, e := range lvl.Agents() {
		name, ok := e.PropString("spec")
		if !ok {
			name = DefaultAgentSpec
		}
		spec, err := load(name)
		if err != nil {
			return nil, fmt.Errorf("sim: agent at %s: %w", e.Position(), err)
		}
		if err := prefabs.ApplyOverrides(spec, e.Props); err != nil {
			return nil, fmt.Errorf("sim: agent at %s: %w", e.Position(), err)
		}
		agents = append(agents, placed{entity: e, name: name, spec: spec})
	}

	var targets []*Target
	for i, e := range lvl.Targets() {
		order, ok := e.PropInt("order")
		if !ok {
			order = i
		}
		script, ok := e.PropString("script")
		for j := 0; !ok && j < len(agents); j++ {
			script, ok = agents[j].spec.Script(order)
		}
		t, err := w.AddTarget(e.Position(), script)
		if err != nil {
			return nil, fmt.Errorf("sim: target %d: %w", order, err)
		}
		targets = append(targets, t)
	}

	for _, a := range agents {
		agent, err := w.AddAgent(a.name, a.spec, a.entity.Position(), targets)
		if err != nil {
			return nil, fmt.Errorf("sim: agent at %s: %w", a.entity.Position(), err)
		}
		agent.props = a.entity.Props
	}
	return w, nil
}
