// Package game defines the Minesweeper mode table and submission policy.
// The game itself runs entirely on the untrusted client; this package only
// judges what the client claims to have happened.
package game

// Mode names. Any other string is treated as a custom, unconstrained shape.
const (
	ModeBeginner     = "beginner"
	ModeIntermediate = "intermediate"
	ModeExpert       = "expert"
	ModeCustom       = "custom"
)

// Shape is a fixed board configuration.
type Shape struct {
	Rows  int
	Cols  int
	Mines int
}

// presets is the canonical shape per standard mode.
var presets = map[string]Shape{
	ModeBeginner:     {Rows: 9, Cols: 9, Mines: 10},
	ModeIntermediate: {Rows: 16, Cols: 16, Mines: 40},
	ModeExpert:       {Rows: 16, Cols: 30, Mines: 99},
}

// PresetModes lists the standard modes in display order.
func PresetModes() []string {
	return []string{ModeBeginner, ModeIntermediate, ModeExpert}
}

// PresetShape returns the canonical shape for a standard mode.
// ok is false for custom or unknown modes.
func PresetShape(mode string) (Shape, bool) {
	s, ok := presets[mode]
	return s, ok
}
