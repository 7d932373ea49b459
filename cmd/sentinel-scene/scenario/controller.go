package scenario

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/skyfold/swarmstage/pkg/logger"
	"github.com/skyfold/swarmstage/pkg/report"
)

// TriggerThreshold is the fixed loudness above which Listening escalates
// to Triggered in manual mode. Strictly greater-than.
const TriggerThreshold = 0.6

// incidentType is the fixed descriptor passed to the report generator.
const incidentType = "acoustic-intrusion"

// reportTimeout bounds a single generation attempt. The request carries
// no cancellation tied to phase changes; its result is always written.
const reportTimeout = 20 * time.Second

// Demo mode schedules an automatic advance for every phase.
var demoDelays = map[Phase]time.Duration{
	PhaseListening: 4000 * time.Millisecond,
	PhaseTriggered: 3000 * time.Millisecond,
	PhaseEjection:  3500 * time.Millisecond,
	PhaseCruise:    6000 * time.Millisecond,
	PhaseSensing:   7000 * time.Millisecond,
	PhaseLanding:   5000 * time.Millisecond,
}

const demoDefaultDelay = 3000 * time.Millisecond

// Manual mode automates only the two launch transitions.
var manualDelays = map[Phase]time.Duration{
	PhaseTriggered: 3000 * time.Millisecond,
	PhaseEjection:  3000 * time.Millisecond,
}

// SoundPlayer is the external sound-effect subsystem. PhaseEntered is
// fire-and-forget; Arm is idempotent.
type SoundPlayer interface {
	Arm()
	PhaseEntered(Phase)
	SetMuted(bool)
}

type reportResult struct {
	text string
	err  error
}

// Controller owns the ScenarioState and applies every transition rule.
// It is single-threaded by contract: all methods must be called from the
// one loop that owns it, and Tick must be called once per frame. The only
// concurrency is the in-flight report request, which resolves through a
// buffered channel drained by Tick.
type Controller struct {
	state ScenarioState
	mode  Mode
	muted bool

	// At most one pending timer. Every phase or mode change bumps the
	// generation and recomputes the deadline, so a timer scheduled under
	// a previous phase/mode can never fire.
	timerGen uint64
	timerSet bool
	timerAt  time.Time

	sounds   SoundPlayer
	reporter report.Generator
	results  chan reportResult

	cycles int
	visits map[Phase]int

	log logger.Logger
}

// NewController creates a controller in the pre-start Idle phase.
// A nil reporter falls back to the canned generator; a nil player
// disables sound cues.
func NewController(sounds SoundPlayer, reporter report.Generator) *Controller {
	if reporter == nil {
		reporter = &report.CannedGenerator{Delay: 1500 * time.Millisecond}
	}
	return &Controller{
		state:    ScenarioState{Phase: PhaseIdle},
		mode:     ModeManual,
		sounds:   sounds,
		reporter: reporter,
		results:  make(chan reportResult, 1),
		visits:   make(map[Phase]int),
		log:      logger.WithPrefix("scenario"),
	}
}

// Start enters the initial Listening phase.
func (c *Controller) Start(now time.Time) {
	if c.state.Phase != PhaseIdle {
		return
	}
	c.enterPhase(PhaseListening, now)
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase { return c.state.Phase }

// Mode returns the current timing discipline.
func (c *Controller) Mode() Mode { return c.mode }

// Muted reports whether sound cues are muted.
func (c *Controller) Muted() bool { return c.muted }

// Cycles returns how many times the scenario wrapped back to Listening.
func (c *Controller) Cycles() int { return c.cycles }

// Visits returns how often a phase has been entered this session.
func (c *Controller) Visits(p Phase) int { return c.visits[p] }

// Snapshot returns a copy of the scenario state for read-only consumers.
func (c *Controller) Snapshot() ScenarioState { return c.state }

// Advance moves to the Timeline's cyclic successor of the current phase.
// Wrapping past Landing back to Listening clears the report. Exactly one
// transition per invocation.
func (c *Controller) Advance(now time.Time) {
	next := SuccessorOf(c.state.Phase)
	if next == PhaseListening && c.state.Phase != PhaseIdle {
		c.state.Report = ""
		c.state.ThreatLevel = 0
		c.cycles++
		c.log.Infof("cycle %d complete, returning to standby", c.cycles)
	}
	c.enterPhase(next, now)
}

// Reset forces Listening, clears the report, and returns to manual mode,
// unconditionally. An in-flight report request is not cancelled; its
// result still lands when it completes.
func (c *Controller) Reset(now time.Time) {
	c.mode = ModeManual
	c.state.Report = ""
	c.state.ThreatLevel = 0
	c.log.Info("scene reset")
	c.enterPhase(PhaseListening, now)
}

// ToggleDemoMode flips between Manual and Demo. Entering Demo restarts
// the scenario at Listening, clears the report, and arms the sound
// subsystem. Leaving Demo changes only the timing discipline: phase and
// report stay, but the pending timer is rescheduled under manual rules.
func (c *Controller) ToggleDemoMode(now time.Time) {
	if c.mode == ModeManual {
		c.mode = ModeDemo
		if c.sounds != nil {
			c.sounds.Arm()
		}
		c.state.Report = ""
		c.state.ThreatLevel = 0
		c.log.Info("demo mode engaged")
		c.enterPhase(PhaseListening, now)
		return
	}
	c.mode = ModeManual
	c.log.Info("demo mode disengaged")
	c.rearmTimer(now)
}

// ToggleMute flips the sound-effect mute flag.
func (c *Controller) ToggleMute() {
	c.muted = !c.muted
	if c.sounds != nil {
		c.sounds.SetMuted(c.muted)
	}
}

// OnAudioLevel records the sampled loudness, then applies the audio
// trigger rule: manual mode only, Listening only, strictly above the
// threshold. The triggering level is retained in the state.
func (c *Controller) OnAudioLevel(v float64, now time.Time) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	c.state.AudioLevel = v

	if c.mode != ModeManual || c.state.Phase != PhaseListening {
		return
	}
	if v > TriggerThreshold {
		c.state.ThreatLevel = threatFromLevel(v)
		c.log.Warnf("loudness %.2f exceeded threshold %.2f, threat level %d", v, TriggerThreshold, c.state.ThreatLevel)
		c.enterPhase(PhaseTriggered, now)
	}
}

// GenerateReport issues the asynchronous report request. No-op while a
// request is outstanding. The call never fails: generation errors become
// fallback text when the result is drained.
func (c *Controller) GenerateReport() {
	if c.state.GeneratingReport {
		c.log.Debug("report request already in flight, ignoring")
		return
	}
	c.state.GeneratingReport = true

	incidentContext := fmt.Sprintf("threat level %d/5, trigger loudness %.2f", c.state.ThreatLevel, c.state.AudioLevel)
	c.log.Info(logger.IconReport + " requesting incident report")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		text, err := c.reporter.Generate(ctx, incidentType, incidentContext)
		// Buffered channel and single-flight guarantee this never blocks.
		c.results <- reportResult{text: text, err: err}
	}()
}

// Tick runs the cooperative per-frame work: first drain a completed
// report request, then fire a due timer. At most one phase transition
// happens per tick.
func (c *Controller) Tick(now time.Time) {
	select {
	case res := <-c.results:
		if res.err != nil {
			c.log.Warnf("report generation failed, using fallback: %v", res.err)
			c.state.Report = report.Fallback(incidentType)
		} else {
			c.state.Report = res.text
		}
		c.state.GeneratingReport = false
	default:
	}

	if c.timerSet && !now.Before(c.timerAt) {
		c.timerSet = false
		c.Advance(now)
	}
}

// enterPhase performs the bookkeeping common to every transition: state
// update, timer rescheduling, sound cue, and the demo-mode report rule.
func (c *Controller) enterPhase(next Phase, now time.Time) {
	if !next.valid() || next == PhaseIdle {
		panic(fmt.Sprintf("scenario: transition into invalid phase %d", int(next)))
	}

	c.state.Phase = next
	c.visits[next]++

	// Demo reaches Triggered without an audio spike; give it a mid-scale
	// threat so downstream displays stay meaningful.
	if next == PhaseTriggered && c.state.ThreatLevel == 0 {
		c.state.ThreatLevel = 3
	}

	c.rearmTimer(now)

	if c.sounds != nil {
		c.sounds.PhaseEntered(next)
	}

	if entry, ok := EntryFor(next); ok {
		c.log.Infof("phase %s (%s)", next, entry.Title)
	}

	// Demo visits Sensing hands-free, so the report is requested
	// automatically, once per visit, unless one exists or is in flight.
	if c.mode == ModeDemo && next == PhaseSensing && !c.state.HasReport() && !c.state.GeneratingReport {
		c.GenerateReport()
	}
}

// rearmTimer cancels whatever was pending under the previous phase/mode
// and schedules the delay the current phase and mode call for.
func (c *Controller) rearmTimer(now time.Time) {
	c.timerGen++
	c.timerSet = false

	var delay time.Duration
	switch c.mode {
	case ModeDemo:
		d, ok := demoDelays[c.state.Phase]
		if !ok {
			d = demoDefaultDelay
		}
		delay = d
	case ModeManual:
		d, ok := manualDelays[c.state.Phase]
		if !ok {
			return
		}
		delay = d
	}

	c.timerAt = now.Add(delay)
	c.timerSet = true
	c.log.Debugf("timer %d armed: %s for %s in %s", c.timerGen, c.mode, c.state.Phase, delay)
}

// threatFromLevel maps the triggering loudness onto the 1..5 scale.
func threatFromLevel(v float64) int {
	t := int(math.Ceil(v * 5))
	if t < 1 {
		t = 1
	} else if t > 5 {
		t = 5
	}
	return t
}
