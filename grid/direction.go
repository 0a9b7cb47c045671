package grid

import (
	"fmt"
	"strings"

	"github.com/jakecoffman/cp"
)

// Direction is a cardinal heading on the grid. Forward is +Y (row+1).
type Direction uint8

const (
	None Direction = iota
	Forward
	Right
	Back
	Left
)

var directionOffsets = [...]Position{
	None:    {},
	Forward: {Col: 0, Row: 1},
	Right:   {Col: 1, Row: 0},
	Back:    {Col: 0, Row: -1},
	Left:    {Col: -1, Row: 0},
}

var directionNames = [...]string{
	None:    "none",
	Forward: "forward",
	Right:   "right",
	Back:    "back",
	Left:    "left",
}

// Cardinals lists the four movement directions in clockwise order.
var Cardinals = [4]Direction{Forward, Right, Back, Left}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", d)
}

func (d Direction) Valid() bool {
	return d >= Forward && d <= Left
}

// Offset returns the grid step for d.
func (d Direction) Offset() Position {
	if int(d) >= len(directionOffsets) {
		return Position{}
	}
	return directionOffsets[d]
}

// Vector returns the unit world-space vector for d.
func (d Direction) Vector() cp.Vector {
	o := d.Offset()
	return cp.Vector{X: float64(o.Col), Y: float64(o.Row)}
}

func (d Direction) Opposite() Direction {
	if !d.Valid() {
		return None
	}
	return Cardinals[(d.index()+2)%4]
}

// Clockwise is the heading after a right turn.
func (d Direction) Clockwise() Direction {
	if !d.Valid() {
		return None
	}
	return Cardinals[(d.index()+1)%4]
}

// CounterClockwise is the heading after a left turn.
func (d Direction) CounterClockwise() Direction {
	if !d.Valid() {
		return None
	}
	return Cardinals[(d.index()+3)%4]
}

func (d Direction) index() int {
	return int(d - Forward)
}

// DirectionOf maps a grid delta to a cardinal direction. Deltas with both
// components set, or zero deltas, map to None.
func DirectionOf(delta Position) Direction {
	switch {
	case delta.Col == 0 && delta.Row > 0:
		return Forward
	case delta.Col == 0 && delta.Row < 0:
		return Back
	case delta.Row == 0 && delta.Col > 0:
		return Right
	case delta.Row == 0 && delta.Col < 0:
		return Left
	}
	return None
}

// DirectionOfVector snaps a world-space vector to its dominant axis.
func DirectionOfVector(v cp.Vector) Direction {
	const eps = 1e-9
	ax, ay := v.X, v.Y
	if ax < 0 {
		ax = -ax
	}
	if ay < 0 {
		ay = -ay
	}
	if ax < eps && ay < eps {
		return None
	}
	if ax >= ay {
		if v.X > 0 {
			return Right
		}
		return Left
	}
	if v.Y > 0 {
		return Forward
	}
	return Back
}

// ParseDirection accepts the names produced by String plus the compass
// aliases north/east/south/west.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "forward", "north", "up":
		return Forward, nil
	case "right", "east":
		return Right, nil
	case "back", "south", "down":
		return Back, nil
	case "left", "west":
		return Left, nil
	}
	return None, fmt.Errorf("grid: unknown direction %q", s)
}

// UnmarshalText lets directions appear as strings in YAML and JSON.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
