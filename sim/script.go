package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/gridpatrol/prefabs"
)

// scriptBudget bounds one evaluation of a target script.
const scriptBudget = 50 * time.Millisecond

const targetDispatchScript = `
__out = update(__t, __x, __y)
`

// TargetScript moves a patrol target. The script defines a global
// update(t, x, y) that receives the seconds since start and the target's
// placed position and returns [x, y].
type TargetScript struct {
	name     string
	compiled *tengo.Compiled
}

func CompileTargetScript(name string) (*TargetScript, error) {
	src, err := prefabs.LoadScript(name)
	if err != nil {
		return nil, fmt.Errorf("sim: load script %s: %w", name, err)
	}

	script := tengo.NewScript([]byte(string(src) + "\n" + targetDispatchScript))
	_ = script.Add("__t", 0.0)
	_ = script.Add("__x", 0.0)
	_ = script.Add("__y", 0.0)
	_ = script.Add("__out", nil)
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("sim: compile script %s: %w", name, err)
	}
	return &TargetScript{name: name, compiled: compiled}, nil
}

func (s *TargetScript) Name() string {
	return s.name
}

func (s *TargetScript) Eval(ctx context.Context, t float64, base cp.Vector) (cp.Vector, error) {
	if err := s.compiled.Set("__t", t); err != nil {
		return base, err
	}
	if err := s.compiled.Set("__x", base.X); err != nil {
		return base, err
	}
	if err := s.compiled.Set("__y", base.Y); err != nil {
		return base, err
	}

	ctx, cancel := context.WithTimeout(ctx, scriptBudget)
	defer cancel()
	if err := s.compiled.RunContext(ctx); err != nil {
		return base, fmt.Errorf("sim: run script %s: %w", s.name, err)
	}

	out := s.compiled.Get("__out").Array()
	if len(out) != 2 {
		return base, fmt.Errorf("sim: script %s: update returned %d values, want 2", s.name, len(out))
	}
	x, okX := toFloat(out[0])
	y, okY := toFloat(out[1])
	if !okX || !okY {
		return base, fmt.Errorf("sim: script %s: update returned non-numeric position %v", s.name, out)
	}
	return cp.Vector{X: x, Y: y}, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
