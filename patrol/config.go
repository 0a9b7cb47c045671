package patrol

import "time"

const (
	DefaultMinUpdateInterval = 200 * time.Millisecond
	DefaultStartupDelay      = 300 * time.Millisecond
	DefaultDriftThreshold    = 0.5
	DefaultTurnDistance      = 0.25
	DefaultStoppingDistance  = 1.0
	DefaultArrivalEpsilon    = 0.05
)

// Config tunes a Controller. Distances are in world units.
type Config struct {
	// MinUpdateInterval is the period of the repath tick.
	MinUpdateInterval time.Duration
	// StartupDelay postpones the first tick after StartPatrol.
	StartupDelay time.Duration
	// DriftThreshold is how far a target may move before its slot is
	// requested again.
	DriftThreshold   float64
	TurnDistance     float64
	StoppingDistance float64
	ArrivalEpsilon   float64
}

func DefaultConfig() Config {
	return Config{
		MinUpdateInterval: DefaultMinUpdateInterval,
		StartupDelay:      DefaultStartupDelay,
		DriftThreshold:    DefaultDriftThreshold,
		TurnDistance:      DefaultTurnDistance,
		StoppingDistance:  DefaultStoppingDistance,
		ArrivalEpsilon:    DefaultArrivalEpsilon,
	}
}

// withDefaults fills unset or negative fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinUpdateInterval <= 0 {
		c.MinUpdateInterval = d.MinUpdateInterval
	}
	if c.StartupDelay < 0 {
		c.StartupDelay = 0
	}
	if c.DriftThreshold <= 0 {
		c.DriftThreshold = d.DriftThreshold
	}
	if c.TurnDistance < 0 {
		c.TurnDistance = d.TurnDistance
	}
	if c.StoppingDistance < 0 {
		c.StoppingDistance = d.StoppingDistance
	}
	if c.ArrivalEpsilon <= 0 {
		c.ArrivalEpsilon = d.ArrivalEpsilon
	}
	return c
}
