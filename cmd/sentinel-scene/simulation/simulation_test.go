package simulation

import (
	"testing"
	"time"

	sceneconfig "github.com/skyfold/swarmstage/cmd/sentinel-scene/config"
	"github.com/skyfold/swarmstage/cmd/sentinel-scene/core"
	"github.com/skyfold/swarmstage/cmd/sentinel-scene/scenario"
	"github.com/skyfold/swarmstage/cmd/sentinel-scene/ui"
	"github.com/skyfold/swarmstage/pkg/logger"
	"github.com/skyfold/swarmstage/pkg/report"
	simpkg "github.com/skyfold/swarmstage/pkg/simulation"
)

// newWiredScene builds a scene around stubbed externals: no microphone,
// no output device, instant canned reports.
func newWiredScene(t *testing.T) (*SentinelScene, time.Time) {
	t.Helper()
	t0 := time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)
	s := &SentinelScene{
		config: sceneconfig.GetDefaultConfig(),
		log:    logger.WithPrefix("scene-test"),
	}
	s.controller = scenario.NewController(nil, &report.CannedGenerator{})
	s.engine = core.NewPoseEngine(s.config.Swarm.NumAgents, 42)
	s.started = t0
	s.controller.Start(t0)
	return s, t0
}

func TestConfigureAppliesParameters(t *testing.T) {
	s := NewSentinelScene().(*SentinelScene)
	err := s.Configure(map[string]interface{}{
		"num_agents":      8,
		"update_interval": 25 * time.Millisecond,
		"demo":            true,
		"audio":           false,
		"tui":             false,
		"report_backend":  "canned",
		"seed":            99,
	})
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if s.config.Swarm.NumAgents != 8 {
		t.Errorf("num_agents = %d, want 8", s.config.Swarm.NumAgents)
	}
	if s.config.Scene.UpdateInterval != 25*time.Millisecond {
		t.Errorf("update_interval = %v, want 25ms", s.config.Scene.UpdateInterval)
	}
	if !s.config.Scene.Demo || s.config.Audio.Enabled || s.config.Display.TUI {
		t.Errorf("flag parameters not applied: %+v", s.config)
	}
	if s.config.Swarm.Seed != 99 {
		t.Errorf("seed = %d, want 99", s.config.Swarm.Seed)
	}
}

func TestConfigureRejectsInvalid(t *testing.T) {
	s := NewSentinelScene().(*SentinelScene)
	if err := s.Configure(map[string]interface{}{"num_agents": -1}); err == nil {
		t.Error("Expected error for negative agent count")
	}
}

func TestStepProducesSnapshot(t *testing.T) {
	s, t0 := newWiredScene(t)

	snap := s.Step(t0.Add(50 * time.Millisecond))
	if snap.PhaseName != "Listening" {
		t.Errorf("phase = %s, want Listening", snap.PhaseName)
	}
	if snap.PhaseTitle != "Standby" {
		t.Errorf("phase title = %s, want Standby", snap.PhaseTitle)
	}
	if snap.TimelineIndex != 0 || snap.TimelineLen != 6 {
		t.Errorf("timeline position %d/%d, want 0/6", snap.TimelineIndex, snap.TimelineLen)
	}
	if len(snap.Agents) != s.config.Swarm.NumAgents {
		t.Errorf("snapshot carries %d agents, want %d", len(snap.Agents), s.config.Swarm.NumAgents)
	}
}

func TestDispatchedCommandsApplyOnNextStep(t *testing.T) {
	s, t0 := newWiredScene(t)

	s.Dispatch(ui.CommandNext)
	snap := s.Step(t0.Add(50 * time.Millisecond))
	if snap.PhaseName != "Triggered" {
		t.Errorf("phase after Next = %s, want Triggered", snap.PhaseName)
	}

	s.Dispatch(ui.CommandToggleDemoMode)
	snap = s.Step(t0.Add(100 * time.Millisecond))
	if !snap.Demo || snap.PhaseName != "Listening" {
		t.Errorf("after demo toggle: demo=%v phase=%s, want true/Listening", snap.Demo, snap.PhaseName)
	}

	s.Dispatch(ui.CommandReset)
	snap = s.Step(t0.Add(150 * time.Millisecond))
	if snap.Demo || snap.PhaseName != "Listening" {
		t.Errorf("after reset: demo=%v phase=%s, want false/Listening", snap.Demo, snap.PhaseName)
	}
}

func TestStepWithoutSamplerStaysQuiet(t *testing.T) {
	s, t0 := newWiredScene(t)

	// No sampler acquired: loudness reads as 0 and never triggers.
	for i := 1; i <= 20; i++ {
		snap := s.Step(t0.Add(time.Duration(i) * 50 * time.Millisecond))
		if snap.AudioLevel != 0 {
			t.Fatalf("audio level %v without device, want 0", snap.AudioLevel)
		}
		if snap.PhaseName != "Listening" {
			t.Fatalf("phase drifted to %s without input", snap.PhaseName)
		}
	}
}

func TestSceneRegistered(t *testing.T) {
	sim, err := simpkg.DefaultRegistry.Get("Sentinel Scene")
	if err != nil {
		t.Fatalf("simulation not registered: %v", err)
	}
	if sim.Name() != "Sentinel Scene" {
		t.Errorf("registered name = %s", sim.Name())
	}
}
