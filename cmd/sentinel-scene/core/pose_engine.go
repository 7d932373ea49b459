// Package core implements the swarm pose engine: per-agent target poses
// derived from the current scenario phase and elapsed time, exponentially
// smoothed into the displayed poses.
package core

import (
	"math"
	"math/rand"

	"github.com/skyfold/swarmstage/cmd/sentinel-scene/scenario"
)

const (
	// hubRadius is the parked ring around the central hub.
	hubRadius = 3.0
	// hubHeight is the resting altitude of the ring.
	hubHeight = 1.2
	// orbitRadius is the wider patrol ring for Cruise and Sensing.
	orbitRadius = 6.0
	// orbitHeight is the nominal patrol altitude before bobbing.
	orbitHeight = 4.5
	// groundY is the ground reference the beam is measured against.
	groundY = 0.0

	// Smoothing fractions per tick. Gentle for station keeping and
	// orbiting, abrupt for the scatter of Ejection and the drop of Landing.
	gentleFraction = 0.06
	abruptFraction = 0.18

	// markerFadeAltitude is the altitude below which the ground marker
	// starts fading out during Landing.
	markerFadeAltitude = 1.5

	// seedStride separates per-agent rand streams derived from one base seed.
	seedStride = 7919
)

// Vec3 is a plain 3-component vector. Position axes are x/z horizontal
// with y up; orientation axes are Euler angles in radians.
type Vec3 struct {
	X, Y, Z float64
}

// lerpToward moves each component a fraction of the remaining distance
// toward the target. This is the one smoothing law used everywhere.
func (v Vec3) lerpToward(target Vec3, fraction float64) Vec3 {
	return Vec3{
		X: v.X + (target.X-v.X)*fraction,
		Y: v.Y + (target.Y-v.Y)*fraction,
		Z: v.Z + (target.Z-v.Z)*fraction,
	}
}

// AgentPose is a position and orientation pair, smoothed per axis.
type AgentPose struct {
	Position    Vec3
	Orientation Vec3
}

// agent carries the per-agent immutable parameters and the mutable
// smoothed display state.
type agent struct {
	index int

	// rng is seeded once at creation. Its only per-tick use is the
	// intentionally chaotic Ejection scatter; the stable orbit parameters
	// below are drawn from it exactly once.
	rng *rand.Rand

	orbitSpeed  float64 // rad/s, stable for the session
	orbitPhase  float64 // initial angle offset on the patrol ring
	bobFreq     float64 // vertical bobbing frequency
	bobAmp      float64 // vertical bobbing amplitude
	breathPhase float64 // offset for the Listening breathing motion

	pose AgentPose
	fold float64 // 0 unfolded .. 1 folded, Landing only
}

// AgentState is the read-only per-agent view handed to presentation.
type AgentState struct {
	Index      int
	Pose       AgentPose
	Fold       float64
	BeamLength float64 // vertical distance to ground, Sensing and Landing
	MarkerFade float64 // ground marker visibility, Landing only
}

// PoseEngine animates a fixed-size swarm. It is single-threaded by
// contract, like the controller that feeds it: Update is called once per
// tick with the phase read at the top of that tick.
type PoseEngine struct {
	agents []*agent
	phase  scenario.Phase
}

// NewPoseEngine creates n agents parked on the hub ring. The base seed
// fixes every agent's randomness for the session, so two engines built
// with the same seed and driven with the same tick sequence produce
// identical trajectories.
func NewPoseEngine(n int, baseSeed int64) *PoseEngine {
	e := &PoseEngine{
		agents: make([]*agent, 0, n),
		phase:  scenario.PhaseIdle,
	}
	for i := 0; i < n; i++ {
		rng := rand.New(rand.NewSource(baseSeed + int64(i)*seedStride))
		a := &agent{
			index:       i,
			rng:         rng,
			orbitSpeed:  0.25 + rng.Float64()*0.35,
			orbitPhase:  rng.Float64() * 2 * math.Pi,
			bobFreq:     0.8 + rng.Float64()*0.8,
			bobAmp:      0.15 + rng.Float64()*0.25,
			breathPhase: rng.Float64() * 2 * math.Pi,
		}
		a.pose = AgentPose{
			Position:    ringPosition(i, n, hubRadius, hubHeight),
			Orientation: ringOrientation(i, n),
		}
		e.agents = append(e.agents, a)
	}
	return e
}

// Count returns the fixed swarm size.
func (e *PoseEngine) Count() int { return len(e.agents) }

// Update advances every agent one tick: compute the target pose for the
// given phase and elapsed time, then smooth the displayed pose toward it.
func (e *PoseEngine) Update(elapsed float64, phase scenario.Phase) {
	e.phase = phase
	fraction := gentleFraction
	if phase == scenario.PhaseEjection || phase == scenario.PhaseLanding {
		fraction = abruptFraction
	}

	n := len(e.agents)
	for _, a := range e.agents {
		target := e.targetPose(a, n, elapsed, phase)
		a.pose.Position = a.pose.Position.lerpToward(target.Position, fraction)
		a.pose.Orientation = a.pose.Orientation.lerpToward(target.Orientation, fraction)

		foldTarget := 0.0
		if phase == scenario.PhaseLanding {
			foldTarget = 1.0
		}
		a.fold += (foldTarget - a.fold) * fraction
	}
}

// Snapshot returns the current per-agent display state, including the
// beam and marker signals derived for Sensing and Landing.
func (e *PoseEngine) Snapshot() []AgentState {
	out := make([]AgentState, len(e.agents))
	for i, a := range e.agents {
		s := AgentState{Index: a.index, Pose: a.pose, Fold: a.fold}
		alt := a.pose.Position.Y - groundY
		if alt < 0 {
			alt = 0
		}
		if e.phase == scenario.PhaseSensing || e.phase == scenario.PhaseLanding {
			s.BeamLength = alt
		}
		if e.phase == scenario.PhaseLanding {
			fade := alt / markerFadeAltitude
			if fade > 1 {
				fade = 1
			}
			s.MarkerFade = fade
		}
		out[i] = s
	}
	return out
}

// targetPose computes the instantaneous goal pose for one agent. Pure in
// (index, elapsed, phase, per-agent parameters) except for the Ejection
// scatter, which draws fresh randomness on purpose.
func (e *PoseEngine) targetPose(a *agent, n int, elapsed float64, phase scenario.Phase) AgentPose {
	switch phase {
	case scenario.PhaseIdle, scenario.PhaseTriggered:
		return AgentPose{
			Position:    ringPosition(a.index, n, hubRadius, hubHeight),
			Orientation: ringOrientation(a.index, n),
		}

	case scenario.PhaseListening:
		p := ringPosition(a.index, n, hubRadius, hubHeight)
		p.Y += 0.1 * math.Sin(elapsed*1.5+a.breathPhase)
		return AgentPose{Position: p, Orientation: ringOrientation(a.index, n)}

	case scenario.PhaseEjection:
		// Re-randomized every tick. Combined with the abrupt smoothing
		// fraction this reads as a chaotic launch burst.
		angle := a.rng.Float64() * 2 * math.Pi
		radius := hubRadius + a.rng.Float64()*3.0
		return AgentPose{
			Position: Vec3{
				X: math.Cos(angle) * radius,
				Y: orbitHeight + a.rng.Float64()*2.0,
				Z: math.Sin(angle) * radius,
			},
			Orientation: Vec3{
				X: (a.rng.Float64() - 0.5) * 0.9,
				Y: a.rng.Float64() * 2 * math.Pi,
				Z: (a.rng.Float64() - 0.5) * 0.9,
			},
		}

	case scenario.PhaseCruise, scenario.PhaseSensing:
		angle := a.orbitPhase + elapsed*a.orbitSpeed
		y := orbitHeight + a.bobAmp*math.Sin(elapsed*a.bobFreq+a.breathPhase)
		// Yaw faces the direction of travel; a gentle roll banks into
		// the turn.
		return AgentPose{
			Position: Vec3{
				X: math.Cos(angle) * orbitRadius,
				Y: y,
				Z: math.Sin(angle) * orbitRadius,
			},
			Orientation: Vec3{
				X: 0,
				Y: -angle + math.Pi/2,
				Z: 0.25,
			},
		}

	case scenario.PhaseLanding:
		p := ringPosition(a.index, n, orbitRadius, 0.2)
		return AgentPose{Position: p, Orientation: Vec3{}}
	}

	return a.pose
}

// ringPosition places agent i of n evenly on a horizontal circle.
func ringPosition(i, n int, radius, height float64) Vec3 {
	angle := 2 * math.Pi * float64(i) / float64(n)
	return Vec3{
		X: math.Cos(angle) * radius,
		Y: height,
		Z: math.Sin(angle) * radius,
	}
}

// ringOrientation points agent i radially outward, slightly nose-down
// toward a point beneath the hub.
func ringOrientation(i, n int) Vec3 {
	angle := 2 * math.Pi * float64(i) / float64(n)
	return Vec3{X: 0.15, Y: -angle, Z: 0}
}
