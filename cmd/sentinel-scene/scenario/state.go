package scenario

// ScenarioState is the single mutable simulation state. It is owned and
// mutated exclusively by the Controller; everything else receives copies.
type ScenarioState struct {
	Phase            Phase
	AudioLevel       float64 // normalized loudness in [0,1]
	ThreatLevel      int     // 0 when quiet, 1..5 once triggered
	Report           string  // empty until a generation completes
	GeneratingReport bool
}

// HasReport reports whether a generated (or fallback) report is present.
func (s ScenarioState) HasReport() bool {
	return s.Report != ""
}

// Mode selects the timing discipline, orthogonal to phase.
type Mode int

const (
	// ModeManual progresses on operator commands, with two automatic
	// sub-transitions and the audio trigger out of Listening.
	ModeManual Mode = iota
	// ModeDemo progresses on per-phase timers exclusively.
	ModeDemo
)

// String returns the mode name used in logs and the UI.
func (m Mode) String() string {
	if m == ModeDemo {
		return "Demo"
	}
	return "Manual"
}
