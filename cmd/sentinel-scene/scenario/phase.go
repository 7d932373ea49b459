// Package scenario implements the scripted scenario state machine: the
// phase timeline, the mutable scene state, and the controller that applies
// manual, timed, and audio-triggered transitions.
package scenario

import "fmt"

// Phase is a named stage of the scripted scenario. The set is closed;
// any other value is a programming error.
type Phase int

const (
	// PhaseIdle is the pre-start value. It is not part of the cycle.
	PhaseIdle Phase = iota
	PhaseListening
	PhaseTriggered
	PhaseEjection
	PhaseCruise
	PhaseSensing
	PhaseLanding
)

// String returns the phase name used in logs and the UI.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseListening:
		return "Listening"
	case PhaseTriggered:
		return "Triggered"
	case PhaseEjection:
		return "Ejection"
	case PhaseCruise:
		return "Cruise"
	case PhaseSensing:
		return "Sensing"
	case PhaseLanding:
		return "Landing"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

func (p Phase) valid() bool {
	return p >= PhaseIdle && p <= PhaseLanding
}

// TimelineEntry describes one stage of the scenario as shown to the operator.
type TimelineEntry struct {
	Phase       Phase
	Title       string
	Description string
}

// Timeline fixes the cyclic order of the six active phases. It is
// immutable; all advancement logic derives from it.
var Timeline = []TimelineEntry{
	{PhaseListening, "Standby", "Hive sealed, acoustic watch active"},
	{PhaseTriggered, "Alert", "Loudness spike detected, spinning up"},
	{PhaseEjection, "Deployment", "Units scatter clear of the hive"},
	{PhaseCruise, "Cruise", "Orbiting the sector in formation"},
	{PhaseSensing, "Sensing", "Sweeping the ground, compiling the report"},
	{PhaseLanding, "Recovery", "Descending, folding, returning to standby"},
}

// SuccessorOf returns the Timeline's cyclic successor of p. Idle resolves
// to the first active phase. Panics on a value outside the closed set:
// the enumeration is fixed by construction, so this is an invariant
// violation, not a runtime condition.
func SuccessorOf(p Phase) Phase {
	if !p.valid() {
		panic(fmt.Sprintf("scenario: invalid phase %d", int(p)))
	}
	if p == PhaseIdle {
		return Timeline[0].Phase
	}
	for i, entry := range Timeline {
		if entry.Phase == p {
			return Timeline[(i+1)%len(Timeline)].Phase
		}
	}
	panic(fmt.Sprintf("scenario: phase %s missing from timeline", p))
}

// EntryFor returns the timeline entry for a phase. Idle has no entry.
func EntryFor(p Phase) (TimelineEntry, bool) {
	for _, entry := range Timeline {
		if entry.Phase == p {
			return entry, true
		}
	}
	return TimelineEntry{}, false
}

// IndexOf returns the position of p in the timeline, or -1 for Idle.
func IndexOf(p Phase) int {
	for i, entry := range Timeline {
		if entry.Phase == p {
			return i
		}
	}
	return -1
}
