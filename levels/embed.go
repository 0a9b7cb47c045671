package levels

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/milk9111/gridpatrol/grid"
)

//go:embed *.json
var LevelsFS embed.FS

var (
	ErrBadTile  = errors.New("levels: bad tile")
	ErrBadLevel = errors.New("levels: bad level")
)

const (
	EntityAgent  = "agent"
	EntityTarget = "target"
)

// Level is a grid map stored as JSON. Tiles lists rows top to bottom as they
// read in the file, so the last string is grid row 0. '.' is open, '#' is a
// wall and '1'-'9' is open ground with that movement penalty.
type Level struct {
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	CellSize float64  `json:"cell_size,omitempty"`
	Tiles    []string `json:"tiles"`
	Entities []Entity `json:"entities,omitempty"`
}

// Entity is placed in cell coordinates.
type Entity struct {
	Type  string                 `json:"type"`
	X     int                    `json:"x"`
	Y     int                    `json:"y"`
	Props map[string]interface{} `json:"props,omitempty"`
}

func (e Entity) Position() grid.Position {
	return grid.Position{Col: e.X, Row: e.Y}
}

func (e Entity) PropString(key string) (string, bool) {
	v, ok := e.Props[key].(string)
	return v, ok && v != ""
}

// PropInt reads a numeric prop. JSON numbers decode as float64.
func (e Entity) PropInt(key string) (int, bool) {
	switch v := e.Props[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func LoadLevelFromFS(name string) (*Level, error) {
	name = strings.TrimSpace(name)
	if path.Ext(name) != ".json" {
		name += ".json"
	}
	data, err := fs.ReadFile(LevelsFS, name)
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}
	lvl, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", name, err)
	}
	return lvl, nil
}

// Names lists the embedded levels without their extension.
func Names() ([]string, error) {
	files, err := fs.Glob(LevelsFS, "*.json")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, strings.TrimSuffix(f, ".json"))
	}
	return out, nil
}

func Parse(data []byte) (*Level, error) {
	var lvl Level
	if err := json.Unmarshal(data, &lvl); err != nil {
		return nil, fmt.Errorf("unmarshal level: %w", err)
	}
	if lvl.CellSize == 0 {
		lvl.CellSize = 1
	}
	if err := lvl.Validate(); err != nil {
		return nil, err
	}
	return &lvl, nil
}

func (l *Level) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrBadLevel, l.Width, l.Height)
	}
	if l.CellSize <= 0 {
		return fmt.Errorf("%w: cell size %g", ErrBadLevel, l.CellSize)
	}
	if len(l.Tiles) != l.Height {
		return fmt.Errorf("%w: %d tile rows for height %d", ErrBadLevel, len(l.Tiles), l.Height)
	}
	for i, row := range l.Tiles {
		if len(row) != l.Width {
			return fmt.Errorf("%w: tile row %d has width %d, want %d", ErrBadLevel, i, len(row), l.Width)
		}
		for j := 0; j < len(row); j++ {
			if _, _, ok := tile(row[j]); !ok {
				return fmt.Errorf("%w: %q at row %d col %d", ErrBadTile, row[j], l.Height-1-i, j)
			}
		}
	}
	for _, e := range l.Entities {
		if e.X < 0 || e.Y < 0 || e.X >= l.Width || e.Y >= l.Height {
			return fmt.Errorf("%w: %s entity at %d,%d out of bounds", ErrBadLevel, e.Type, e.X, e.Y)
		}
	}
	return nil
}

func tile(b byte) (walkable bool, penalty int, ok bool) {
	switch {
	case b == '.':
		return true, 0, true
	case b == '#':
		return false, 0, true
	case b >= '1' && b <= '9':
		return true, int(b - '0'), true
	}
	return false, 0, false
}

// Grid builds the walkability grid for the level.
func (l *Level) Grid() (*grid.Grid, error) {
	g, err := grid.New(l.Width, l.Height, l.CellSize)
	if err != nil {
		return nil, err
	}
	for i, line := range l.Tiles {
		row := l.Height - 1 - i
		for col := 0; col < len(line); col++ {
			walkable, penalty, ok := tile(line[col])
			if !ok {
				return nil, fmt.Errorf("%w: %q at row %d col %d", ErrBadTile, line[col], row, col)
			}
			pos := grid.Position{Col: col, Row: row}
			if err := g.SetWalkable(pos, walkable); err != nil {
				return nil, err
			}
			if err := g.SetPenalty(pos, penalty); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func (l *Level) Agents() []Entity {
	return l.entitiesOfType(EntityAgent)
}

// Targets returns patrol targets ordered by their "order" prop, falling back
// to file order.
func (l *Level) Targets() []Entity {
	targets := l.entitiesOfType(EntityTarget)
	sort.SliceStable(targets, func(i, j int) bool {
		oi, okI := targets[i].PropInt("order")
		oj, okJ := targets[j].PropInt("order")
		if okI && okJ {
			return oi < oj
		}
		return okI && !okJ
	})
	return targets
}

func (l *Level) entitiesOfType(typ string) []Entity {
	var out []Entity
	for _, e := range l.Entities {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
