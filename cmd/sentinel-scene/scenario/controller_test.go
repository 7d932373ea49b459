package scenario

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// stubPlayer records sound subsystem calls.
type stubPlayer struct {
	armed   int
	entered []Phase
	muted   bool
}

func (p *stubPlayer) Arm()                 { p.armed++ }
func (p *stubPlayer) PhaseEntered(v Phase) { p.entered = append(p.entered, v) }
func (p *stubPlayer) SetMuted(m bool)      { p.muted = m }

// gateGenerator blocks until released, counting requests.
type gateGenerator struct {
	calls   atomic.Int32
	release chan struct{}
	text    string
	err     error
}

func newGateGenerator(text string, err error) *gateGenerator {
	return &gateGenerator{release: make(chan struct{}), text: text, err: err}
}

func (g *gateGenerator) Generate(ctx context.Context, incidentType, incidentContext string) (string, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return g.text, g.err
}

func newTestController(t *testing.T) (*Controller, *stubPlayer, time.Time) {
	t.Helper()
	player := &stubPlayer{}
	c := NewController(player, newGateGenerator("unused", nil))
	t0 := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	c.Start(t0)
	return c, player, t0
}

// waitCalls waits for the generator goroutine to actually issue n requests.
func waitCalls(t *testing.T, gen *gateGenerator, n int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for gen.calls.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("generator invoked %d times, want %d", gen.calls.Load(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

// drainReport ticks until the outstanding report result has been written.
func drainReport(t *testing.T, c *Controller, now time.Time) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.Snapshot().GeneratingReport {
		if time.Now().After(deadline) {
			t.Fatal("report result never arrived")
		}
		time.Sleep(5 * time.Millisecond)
		c.Tick(now)
	}
}

func TestStartEntersListening(t *testing.T) {
	c, player, _ := newTestController(t)

	if c.Phase() != PhaseListening {
		t.Fatalf("initial phase = %s, want Listening", c.Phase())
	}
	if c.Mode() != ModeManual {
		t.Fatalf("initial mode = %s, want Manual", c.Mode())
	}
	if len(player.entered) != 1 || player.entered[0] != PhaseListening {
		t.Errorf("sound cues = %v, want [Listening]", player.entered)
	}
}

func TestAdvanceFollowsTimeline(t *testing.T) {
	c, _, t0 := newTestController(t)

	want := []Phase{PhaseTriggered, PhaseEjection, PhaseCruise, PhaseSensing, PhaseLanding, PhaseListening}
	for _, phase := range want {
		c.Advance(t0)
		if c.Phase() != phase {
			t.Fatalf("Advance() landed on %s, want %s", c.Phase(), phase)
		}
	}
	if c.Cycles() != 1 {
		t.Errorf("cycles = %d, want 1", c.Cycles())
	}
}

func TestWrapToListeningClearsReport(t *testing.T) {
	c, _, t0 := newTestController(t)

	// Walk to Landing with a report present
	for c.Phase() != PhaseLanding {
		c.Advance(t0)
	}
	gen := newGateGenerator("field report", nil)
	c.reporter = gen
	c.GenerateReport()
	close(gen.release)
	drainReport(t, c, t0)
	if !c.Snapshot().HasReport() {
		t.Fatal("report should be present before the wrap")
	}

	c.Advance(t0)
	if c.Phase() != PhaseListening {
		t.Fatalf("phase after Landing = %s, want Listening", c.Phase())
	}
	if c.Snapshot().HasReport() {
		t.Error("wrap past Landing must clear the report")
	}
}

func TestResetForcesManualListening(t *testing.T) {
	c, _, t0 := newTestController(t)

	c.ToggleDemoMode(t0)
	c.Advance(t0)
	c.Advance(t0)
	c.Reset(t0)

	s := c.Snapshot()
	if c.Phase() != PhaseListening || s.HasReport() || c.Mode() != ModeManual {
		t.Errorf("after reset: phase=%s report=%q mode=%s, want Listening/empty/Manual",
			c.Phase(), s.Report, c.Mode())
	}
	if s.ThreatLevel != 0 {
		t.Errorf("after reset: threat level = %d, want 0", s.ThreatLevel)
	}
}

func TestAudioTriggerManualListening(t *testing.T) {
	tests := []struct {
		name  string
		level float64
		want  Phase
	}{
		{"above threshold", 0.7, PhaseTriggered},
		{"just below threshold", 0.59, PhaseListening},
		{"exactly at threshold", 0.6, PhaseListening},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, t0 := newTestController(t)
			c.OnAudioLevel(tt.level, t0)
			if c.Phase() != tt.want {
				t.Errorf("OnAudioLevel(%v) left phase %s, want %s", tt.level, c.Phase(), tt.want)
			}
			if got := c.Snapshot().AudioLevel; got != tt.level {
				t.Errorf("audio level = %v, want %v (triggering value retained)", got, tt.level)
			}
		})
	}
}

func TestAudioTriggerIgnoredInDemoMode(t *testing.T) {
	c, _, t0 := newTestController(t)
	c.ToggleDemoMode(t0)

	c.OnAudioLevel(0.9, t0)
	if c.Phase() != PhaseListening {
		t.Errorf("demo mode audio spike moved phase to %s, want Listening", c.Phase())
	}
	if got := c.Snapshot().AudioLevel; got != 0.9 {
		t.Errorf("audio level = %v, want 0.9 (still recorded)", got)
	}
}

func TestAudioTriggerIgnoredOutsideListening(t *testing.T) {
	c, _, t0 := newTestController(t)
	c.Advance(t0) // Triggered

	c.OnAudioLevel(0.95, t0)
	if c.Phase() != PhaseTriggered {
		t.Errorf("audio spike outside Listening moved phase to %s", c.Phase())
	}
}

func TestAudioLevelClamped(t *testing.T) {
	c, _, t0 := newTestController(t)
	c.ToggleDemoMode(t0) // suppress the trigger rule

	c.OnAudioLevel(3.5, t0)
	if got := c.Snapshot().AudioLevel; got != 1 {
		t.Errorf("audio level = %v, want clamp to 1", got)
	}
	c.OnAudioLevel(-0.2, t0)
	if got := c.Snapshot().AudioLevel; got != 0 {
		t.Errorf("audio level = %v, want clamp to 0", got)
	}
}

func TestDemoTimerDeterminism(t *testing.T) {
	c, _, t0 := newTestController(t)
	c.ToggleDemoMode(t0)

	// One millisecond short: nothing may fire
	c.Tick(t0.Add(3999 * time.Millisecond))
	if c.Phase() != PhaseListening {
		t.Fatalf("timer fired early, phase = %s", c.Phase())
	}

	// Exactly 4000 ms: exactly one transition
	c.Tick(t0.Add(4000 * time.Millisecond))
	if c.Phase() != PhaseTriggered {
		t.Fatalf("phase after 4000ms = %s, want Triggered", c.Phase())
	}

	// Same instant again: the old timer is gone, the new one is not due
	c.Tick(t0.Add(4000 * time.Millisecond))
	if c.Phase() != PhaseTriggered {
		t.Fatalf("duplicate timer fire, phase = %s", c.Phase())
	}
}

func TestDemoDelayTable(t *testing.T) {
	c, _, t0 := newTestController(t)
	c.ToggleDemoMode(t0)

	schedule := []struct {
		delay time.Duration
		want  Phase
	}{
		{4000 * time.Millisecond, PhaseTriggered},
		{3000 * time.Millisecond, PhaseEjection},
		{3500 * time.Millisecond, PhaseCruise},
		{6000 * time.Millisecond, PhaseSensing},
		{7000 * time.Millisecond, PhaseLanding},
		{5000 * time.Millisecond, PhaseListening},
	}

	now := t0
	for _, step := range schedule {
		// Just before the deadline nothing fires
		c.Tick(now.Add(step.delay - time.Millisecond))
		if c.Phase() == step.want {
			t.Fatalf("timer for %s fired a millisecond early", step.want)
		}
		now = now.Add(step.delay)
		c.Tick(now)
		if c.Phase() != step.want {
			t.Fatalf("phase = %s, want %s", c.Phase(), step.want)
		}
	}
}

func TestManualAutoTransitions(t *testing.T) {
	c, _, t0 := newTestController(t)

	// Listening has no manual timer
	c.Tick(t0.Add(time.Hour))
	if c.Phase() != PhaseListening {
		t.Fatalf("manual Listening advanced by timer to %s", c.Phase())
	}

	c.OnAudioLevel(0.65, t0)
	if c.Phase() != PhaseTriggered {
		t.Fatalf("phase = %s, want Triggered", c.Phase())
	}

	// Triggered -> Ejection after 3000 ms
	c.Tick(t0.Add(2999 * time.Millisecond))
	if c.Phase() != PhaseTriggered {
		t.Fatal("Triggered timer fired early")
	}
	c.Tick(t0.Add(3000 * time.Millisecond))
	if c.Phase() != PhaseEjection {
		t.Fatalf("phase = %s, want Ejection", c.Phase())
	}

	// Ejection -> Cruise after 3000 ms
	c.Tick(t0.Add(6000 * time.Millisecond))
	if c.Phase() != PhaseCruise {
		t.Fatalf("phase = %s, want Cruise", c.Phase())
	}

	// Cruise has no manual timer
	c.Tick(t0.Add(time.Hour))
	if c.Phase() != PhaseCruise {
		t.Fatalf("manual Cruise advanced by timer to %s", c.Phase())
	}
}

func TestModeChangeCancelsPendingTimer(t *testing.T) {
	c, _, t0 := newTestController(t)
	c.ToggleDemoMode(t0) // demo Listening timer armed for t0+4s
	c.ToggleDemoMode(t0.Add(time.Second))

	// Had the demo timer survived the mode change it would fire here
	c.Tick(t0.Add(4000 * time.Millisecond))
	if c.Phase() != PhaseListening {
		t.Errorf("stale demo timer fired after leaving demo, phase = %s", c.Phase())
	}
}

func TestLeaveDemoKeepsPhaseAndReport(t *testing.T) {
	c, _, t0 := newTestController(t)
	c.ToggleDemoMode(t0)
	c.Advance(t0)
	c.Advance(t0) // Ejection

	gen := newGateGenerator("demo report", nil)
	c.reporter = gen
	c.GenerateReport()
	close(gen.release)
	drainReport(t, c, t0)

	c.ToggleDemoMode(t0)
	if c.Mode() != ModeManual {
		t.Fatalf("mode = %s, want Manual", c.Mode())
	}
	if c.Phase() != PhaseEjection {
		t.Errorf("leaving demo moved phase to %s", c.Phase())
	}
	if !c.Snapshot().HasReport() {
		t.Error("leaving demo cleared the report")
	}
}

func TestEnterDemoResetsSceneAndArmsSound(t *testing.T) {
	c, player, t0 := newTestController(t)
	c.Advance(t0)
	c.Advance(t0)

	c.ToggleDemoMode(t0)
	if c.Phase() != PhaseListening {
		t.Errorf("entering demo left phase %s, want Listening", c.Phase())
	}
	if player.armed != 1 {
		t.Errorf("sound subsystem armed %d times, want 1", player.armed)
	}
}

func TestGenerateReportSingleFlight(t *testing.T) {
	c, _, t0 := newTestController(t)
	gen := newGateGenerator("single report", nil)
	c.reporter = gen

	c.GenerateReport()
	c.GenerateReport() // must be a no-op while in flight

	close(gen.release)
	drainReport(t, c, t0)

	if got := gen.calls.Load(); got != 1 {
		t.Errorf("generator invoked %d times, want 1", got)
	}
	if got := c.Snapshot().Report; got != "single report" {
		t.Errorf("report = %q, want %q", got, "single report")
	}
}

func TestGenerateReportFailureBecomesFallback(t *testing.T) {
	c, _, t0 := newTestController(t)
	gen := newGateGenerator("", errors.New("service unreachable"))
	c.reporter = gen

	c.GenerateReport()
	close(gen.release)
	drainReport(t, c, t0)

	s := c.Snapshot()
	if !s.HasReport() {
		t.Fatal("failure must still produce fallback report text")
	}
	if !strings.Contains(s.Report, "INCIDENT REPORT") {
		t.Errorf("fallback text unexpected: %q", s.Report)
	}
}

func TestReportResultWrittenAfterPhaseMovesOn(t *testing.T) {
	c, _, t0 := newTestController(t)
	gen := newGateGenerator("late report", nil)
	c.reporter = gen

	c.Advance(t0) // Triggered
	c.GenerateReport()

	// Phase advances twice while the request is outstanding
	c.Advance(t0)
	c.Advance(t0)

	close(gen.release)
	drainReport(t, c, t0)

	if got := c.Snapshot().Report; got != "late report" {
		t.Errorf("report = %q, want last-write-wins %q", got, "late report")
	}
}

func TestDemoAutoGeneratesReportInSensing(t *testing.T) {
	c, _, t0 := newTestController(t)
	gen := newGateGenerator("auto report", nil)
	c.reporter = gen
	c.ToggleDemoMode(t0)

	for c.Phase() != PhaseSensing {
		c.Advance(t0)
	}
	waitCalls(t, gen, 1)

	close(gen.release)
	drainReport(t, c, t0)

	// Walk a full lap. The wrap past Landing clears the report, so the
	// next Sensing visit requests again.
	for i := 0; i < len(Timeline); i++ {
		c.Advance(t0)
	}
	if c.Phase() != PhaseSensing {
		t.Fatalf("lap ended on %s, want Sensing", c.Phase())
	}
	waitCalls(t, gen, 2)
}

func TestToggleMuteReachesPlayer(t *testing.T) {
	c, player, _ := newTestController(t)
	c.ToggleMute()
	if !c.Muted() || !player.muted {
		t.Error("mute toggle did not reach the sound player")
	}
	c.ToggleMute()
	if c.Muted() || player.muted {
		t.Error("unmute toggle did not reach the sound player")
	}
}

func TestEndToEndManualScenario(t *testing.T) {
	c, _, t0 := newTestController(t)
	gen := newGateGenerator("e2e report", nil)
	c.reporter = gen

	c.OnAudioLevel(0.65, t0)
	if c.Phase() != PhaseTriggered {
		t.Fatalf("after spike: %s", c.Phase())
	}

	c.Tick(t0.Add(3 * time.Second))
	if c.Phase() != PhaseEjection {
		t.Fatalf("after 3s idle: %s", c.Phase())
	}

	c.Tick(t0.Add(6 * time.Second))
	if c.Phase() != PhaseCruise {
		t.Fatalf("after 6s idle: %s", c.Phase())
	}

	c.Advance(t0)
	if c.Phase() != PhaseSensing {
		t.Fatalf("after advance: %s", c.Phase())
	}

	c.GenerateReport()
	close(gen.release)
	drainReport(t, c, t0)
	if !c.Snapshot().HasReport() {
		t.Fatal("no report after generation")
	}

	c.Advance(t0)
	if c.Phase() != PhaseLanding {
		t.Fatalf("after advance: %s", c.Phase())
	}

	c.Advance(t0)
	if c.Phase() != PhaseListening || c.Snapshot().HasReport() {
		t.Fatalf("wrap: phase=%s report=%q", c.Phase(), c.Snapshot().Report)
	}
}
