package sim

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Names of the systems every world runs, in step order.
const (
	SystemTargets  = "targets"
	SystemPaths    = "paths"
	SystemPatrol   = "patrol"
	SystemMovement = "movement"
)

// System advances one concern of the world by a single step.
type System interface {
	Update(w *World)
}

type scheduled struct {
	name    string
	system  System
	enabled bool
	elapsed prometheus.Observer
}

// Scheduler runs named systems in the order they were added. A disabled
// system keeps its place and is skipped until enabled again.
type Scheduler struct {
	systems []*scheduled
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add appends system under name. A nil system is ignored and a name
// already present is replaced in place.
func (s *Scheduler) Add(name string, system System) {
	if system == nil {
		return
	}
	entry := &scheduled{
		name:    name,
		system:  system,
		enabled: true,
		elapsed: systemDuration.WithLabelValues(name),
	}
	for i, e := range s.systems {
		if e.name == name {
			s.systems[i] = entry
			return
		}
	}
	s.systems = append(s.systems, entry)
}

// SetEnabled reports whether a system called name exists.
func (s *Scheduler) SetEnabled(name string, on bool) bool {
	for _, e := range s.systems {
		if e.name == name {
			e.enabled = on
			return true
		}
	}
	return false
}

func (s *Scheduler) Enabled(name string) bool {
	for _, e := range s.systems {
		if e.name == name {
			return e.enabled
		}
	}
	return false
}

func (s *Scheduler) Update(w *World) {
	for _, e := range s.systems {
		if !e.enabled {
			continue
		}
		start := time.Now()
		e.system.Update(w)
		e.elapsed.Observe(time.Since(start).Seconds())
	}
}

// Names lists systems in step order.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.systems))
	for _, e := range s.systems {
		names = append(names, e.name)
	}
	return names
}
