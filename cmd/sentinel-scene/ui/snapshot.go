// Package ui renders the scene and feeds operator commands back into it.
// Two renderers share one contract: a full-screen bubbletea TUI and a
// plain console log view for headless runs. Both are strictly read-only
// consumers; every mutation goes through a dispatched Command.
package ui

import "time"

// Command is an operator action forwarded to the scene loop.
type Command int

const (
	CommandNext Command = iota
	CommandReset
	CommandToggleDemoMode
	CommandToggleMute
	CommandGenerateReport
	CommandQuit
)

// AgentView is the per-agent display state for one frame.
type AgentView struct {
	Index      int
	X, Y, Z    float64
	Yaw        float64
	Fold       float64
	BeamLength float64
	MarkerFade float64
}

// Snapshot is everything a renderer needs for one frame.
type Snapshot struct {
	PhaseName        string
	PhaseTitle       string
	PhaseDescription string
	TimelineIndex    int // -1 before start
	TimelineLen      int

	Mode             string
	Demo             bool
	Muted            bool
	AudioLevel       float64
	ThreatLevel      int
	Report           string
	GeneratingReport bool
	Cycles           int

	Agents []AgentView
}

// Driver is the scene loop as seen by a renderer. Step advances the
// scene one frame and returns the state to draw; Dispatch queues an
// operator command for the next step. Both are called from the
// renderer's own loop, never concurrently.
type Driver interface {
	Step(now time.Time) Snapshot
	Dispatch(Command)
}
