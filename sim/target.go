package sim

import "github.com/jakecoffman/cp"

// Target is a patrol waypoint. Scripted targets move every step relative to
// where they were placed.
type Target struct {
	id     int
	base   cp.Vector
	pos    cp.Vector
	script *TargetScript
	failed bool
}

func (t *Target) ID() int                 { return t.id }
func (t *Target) Position() cp.Vector     { return t.pos }
func (t *Target) Base() cp.Vector         { return t.base }
func (t *Target) Script() *TargetScript   { return t.script }
func (t *Target) SetPosition(p cp.Vector) { t.pos = p }
