package core

import (
	"math"
	"testing"

	"github.com/skyfold/swarmstage/cmd/sentinel-scene/scenario"
)

func posesEqual(a, b AgentPose) bool {
	return a.Position == b.Position && a.Orientation == b.Orientation
}

func TestDeterministicForIdenticalSeeds(t *testing.T) {
	const seed = 20260823
	e1 := NewPoseEngine(12, seed)
	e2 := NewPoseEngine(12, seed)

	// Identical tick sequences through every phase, including the
	// per-tick randomized Ejection scatter.
	script := []scenario.Phase{
		scenario.PhaseListening, scenario.PhaseListening,
		scenario.PhaseTriggered,
		scenario.PhaseEjection, scenario.PhaseEjection, scenario.PhaseEjection,
		scenario.PhaseCruise, scenario.PhaseCruise,
		scenario.PhaseSensing,
		scenario.PhaseLanding, scenario.PhaseLanding,
	}
	elapsed := 0.0
	for _, phase := range script {
		elapsed += 0.05
		e1.Update(elapsed, phase)
		e2.Update(elapsed, phase)
	}

	s1, s2 := e1.Snapshot(), e2.Snapshot()
	for i := range s1 {
		if !posesEqual(s1[i].Pose, s2[i].Pose) {
			t.Errorf("agent %d diverged: %+v vs %+v", i, s1[i].Pose, s2[i].Pose)
		}
		if s1[i].Fold != s2[i].Fold {
			t.Errorf("agent %d fold diverged: %v vs %v", i, s1[i].Fold, s2[i].Fold)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	e1 := NewPoseEngine(4, 1)
	e2 := NewPoseEngine(4, 2)
	for i := 0; i < 40; i++ {
		e1.Update(float64(i)*0.05, scenario.PhaseCruise)
		e2.Update(float64(i)*0.05, scenario.PhaseCruise)
	}
	s1, s2 := e1.Snapshot(), e2.Snapshot()
	same := true
	for i := range s1 {
		if !posesEqual(s1[i].Pose, s2[i].Pose) {
			same = false
		}
	}
	if same {
		t.Error("distinct seeds produced identical trajectories")
	}
}

func TestSmoothingConvergesToHubRing(t *testing.T) {
	e := NewPoseEngine(6, 7)
	// Push agents out via a long cruise, then hold Triggered and let the
	// smoothing pull them back onto the hub ring.
	for i := 0; i < 100; i++ {
		e.Update(float64(i)*0.05, scenario.PhaseCruise)
	}
	for i := 0; i < 400; i++ {
		e.Update(5+float64(i)*0.05, scenario.PhaseTriggered)
	}

	for _, s := range e.Snapshot() {
		r := math.Hypot(s.Pose.Position.X, s.Pose.Position.Z)
		if math.Abs(r-hubRadius) > 0.05 {
			t.Errorf("agent %d radius %.3f, want ~%.1f", s.Index, r, hubRadius)
		}
		if math.Abs(s.Pose.Position.Y-hubHeight) > 0.05 {
			t.Errorf("agent %d altitude %.3f, want ~%.1f", s.Index, s.Pose.Position.Y, hubHeight)
		}
	}
}

func TestFoldAnimatesOnlyDuringLanding(t *testing.T) {
	e := NewPoseEngine(3, 11)
	for i := 0; i < 60; i++ {
		e.Update(float64(i)*0.05, scenario.PhaseCruise)
	}
	for _, s := range e.Snapshot() {
		if s.Fold != 0 {
			t.Fatalf("fold %v outside Landing, want 0", s.Fold)
		}
	}

	for i := 0; i < 200; i++ {
		e.Update(3+float64(i)*0.05, scenario.PhaseLanding)
	}
	for _, s := range e.Snapshot() {
		if s.Fold < 0.95 {
			t.Errorf("fold %v after sustained Landing, want near 1", s.Fold)
		}
	}

	// Any other phase relaxes the fold back toward zero.
	for i := 0; i < 200; i++ {
		e.Update(13+float64(i)*0.05, scenario.PhaseListening)
	}
	for _, s := range e.Snapshot() {
		if s.Fold > 0.05 {
			t.Errorf("fold %v after leaving Landing, want near 0", s.Fold)
		}
	}
}

func TestBeamAndMarkerSignals(t *testing.T) {
	e := NewPoseEngine(3, 13)
	for i := 0; i < 60; i++ {
		e.Update(float64(i)*0.05, scenario.PhaseCruise)
	}

	// Beam is absent outside Sensing and Landing.
	for _, s := range e.Snapshot() {
		if s.BeamLength != 0 || s.MarkerFade != 0 {
			t.Fatalf("beam/marker present during Cruise: %+v", s)
		}
	}

	e.Update(3.05, scenario.PhaseSensing)
	for _, s := range e.Snapshot() {
		if s.BeamLength <= 0 {
			t.Errorf("agent %d beam %v during Sensing, want altitude > 0", s.Index, s.BeamLength)
		}
		if math.Abs(s.BeamLength-s.Pose.Position.Y) > 1e-9 {
			t.Errorf("agent %d beam %v, want altitude %v", s.Index, s.BeamLength, s.Pose.Position.Y)
		}
		if s.MarkerFade != 0 {
			t.Errorf("marker fade %v during Sensing, want 0", s.MarkerFade)
		}
	}

	// High up in Landing the marker is fully visible; near the ground it
	// fades toward zero.
	e.Update(3.10, scenario.PhaseLanding)
	for _, s := range e.Snapshot() {
		if s.MarkerFade != 1 {
			t.Errorf("marker fade %v at altitude %v, want 1", s.MarkerFade, s.Pose.Position.Y)
		}
	}
	for i := 0; i < 400; i++ {
		e.Update(3.15+float64(i)*0.05, scenario.PhaseLanding)
	}
	for _, s := range e.Snapshot() {
		if s.MarkerFade > 0.2 {
			t.Errorf("marker fade %v after descent to %v, want near 0", s.MarkerFade, s.Pose.Position.Y)
		}
	}
}

func TestListeningBreathes(t *testing.T) {
	e := NewPoseEngine(1, 3)
	var min, max float64 = math.Inf(1), math.Inf(-1)
	for i := 0; i < 400; i++ {
		e.Update(float64(i)*0.05, scenario.PhaseListening)
		y := e.Snapshot()[0].Pose.Position.Y
		if y < min {
			min = y
		}
		if y > max {
			max = y
		}
	}
	if max-min < 0.05 {
		t.Errorf("vertical travel %.4f during Listening, want visible breathing", max-min)
	}
}
