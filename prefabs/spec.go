package prefabs

import (
	"errors"
	"fmt"
	"time"

	"github.com/milk9111/gridpatrol/grid"
	"github.com/milk9111/gridpatrol/patrol"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSpec = errors.New("prefabs: invalid spec")

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// AgentSpec tunes a patrolling agent. Durations use Go syntax ("200ms").
type AgentSpec struct {
	Name             string         `yaml:"name"`
	Speed            float64        `yaml:"speed"`
	Heading          grid.Direction `yaml:"heading"`
	TurnDistance     float64        `yaml:"turn_distance"`
	StoppingDistance float64        `yaml:"stopping_distance"`
	ArrivalEpsilon   float64        `yaml:"arrival_epsilon"`
	MinPathUpdate    time.Duration  `yaml:"min_path_update"`
	StartupDelay     time.Duration  `yaml:"startup_delay"`
	DriftThreshold   float64        `yaml:"drift_threshold"`
	SlowFactor       float64        `yaml:"slow_factor"`
	Targets          []TargetSpec   `yaml:"targets"`
}

// TargetSpec attaches behavior to the level target with the same order.
type TargetSpec struct {
	Order  int    `yaml:"order"`
	Script string `yaml:"script"`
}

const (
	DefaultAgentSpeed = 2.0
	DefaultSlowFactor = 0.5
)

func LoadAgentSpec(filename string) (*AgentSpec, error) {
	spec, err := LoadSpec[AgentSpec](filename)
	if err != nil {
		return nil, err
	}
	spec.applyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("prefabs: %s: %w", filename, err)
	}
	return &spec, nil
}

func (s *AgentSpec) applyDefaults() {
	if s.Speed == 0 {
		s.Speed = DefaultAgentSpeed
	}
	if s.Heading == grid.None {
		s.Heading = grid.Forward
	}
	if s.SlowFactor == 0 {
		s.SlowFactor = DefaultSlowFactor
	}
}

func (s *AgentSpec) Validate() error {
	switch {
	case s.Speed < 0:
		return fmt.Errorf("%w: negative speed %g", ErrInvalidSpec, s.Speed)
	case s.SlowFactor < 0 || s.SlowFactor > 1:
		return fmt.Errorf("%w: slow_factor %g outside [0,1]", ErrInvalidSpec, s.SlowFactor)
	case !s.Heading.Valid():
		return fmt.Errorf("%w: heading %s", ErrInvalidSpec, s.Heading)
	}
	return nil
}

// PatrolConfig maps the spec onto controller tuning; zero fields fall back
// to the controller defaults.
func (s *AgentSpec) PatrolConfig() patrol.Config {
	cfg := patrol.DefaultConfig()
	if s.MinPathUpdate > 0 {
		cfg.MinUpdateInterval = s.MinPathUpdate
	}
	if s.StartupDelay > 0 {
		cfg.StartupDelay = s.StartupDelay
	}
	if s.DriftThreshold > 0 {
		cfg.DriftThreshold = s.DriftThreshold
	}
	if s.TurnDistance > 0 {
		cfg.TurnDistance = s.TurnDistance
	}
	if s.StoppingDistance > 0 {
		cfg.StoppingDistance = s.StoppingDistance
	}
	if s.ArrivalEpsilon > 0 {
		cfg.ArrivalEpsilon = s.ArrivalEpsilon
	}
	return cfg
}

// Script returns the script attached to the target with the given order.
func (s *AgentSpec) Script(order int) (string, bool) {
	for _, t := range s.Targets {
		if t.Order == order && t.Script != "" {
			return t.Script, true
		}
	}
	return "", false
}
