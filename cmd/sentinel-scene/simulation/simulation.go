// Package simulation wires the sentinel scene together: audio capture
// feeding the scenario controller, the pose engine animating the swarm,
// and a renderer consuming per-frame snapshots.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	sceneconfig "github.com/skyfold/swarmstage/cmd/sentinel-scene/config"
	"github.com/skyfold/swarmstage/cmd/sentinel-scene/core"
	"github.com/skyfold/swarmstage/cmd/sentinel-scene/scenario"
	"github.com/skyfold/swarmstage/cmd/sentinel-scene/ui"
	"github.com/skyfold/swarmstage/pkg/audio"
	"github.com/skyfold/swarmstage/pkg/logger"
	"github.com/skyfold/swarmstage/pkg/report"
	"github.com/skyfold/swarmstage/pkg/sfx"
	"github.com/skyfold/swarmstage/pkg/simulation"
)

// SentinelScene implements the interactive sentinel swarm scenario.
type SentinelScene struct {
	config *sceneconfig.SceneConfig

	controller *scenario.Controller
	engine     *core.PoseEngine
	sampler    *audio.Sampler
	player     *sfx.Player

	// pending holds commands dispatched by the renderer since the last
	// Step. Renderer and scene share one goroutine, so no locking.
	pending []ui.Command

	started time.Time
	cancel  context.CancelFunc

	log logger.Logger
}

// NewSentinelScene creates an unconfigured scene.
func NewSentinelScene() simulation.Simulation {
	return &SentinelScene{
		config: sceneconfig.GetDefaultConfig(),
		log:    logger.WithPrefix("scene"),
	}
}

// Name returns the simulation name
func (s *SentinelScene) Name() string {
	return "Sentinel Scene"
}

// Description returns the simulation description
func (s *SentinelScene) Description() string {
	return "Acoustic-triggered sentinel swarm: listen, launch, sweep, report, recover"
}

// Configure sets up the scene from prompt or environment parameters.
func (s *SentinelScene) Configure(params map[string]interface{}) error {
	cfg, err := sceneconfig.LoadConfigOrDefault("")
	if err != nil {
		return err
	}
	s.config = cfg

	switch val := params["num_agents"].(type) {
	case int:
		s.config.Swarm.NumAgents = val
	case float64:
		s.config.Swarm.NumAgents = int(val)
	}

	if val, ok := params["update_interval"].(time.Duration); ok {
		s.config.Scene.UpdateInterval = val
	}

	if val, ok := params["demo"].(bool); ok {
		s.config.Scene.Demo = val
	}

	if val, ok := params["audio"].(bool); ok {
		s.config.Audio.Enabled = val
	}

	if val, ok := params["tui"].(bool); ok {
		s.config.Display.TUI = val
	}

	if val, ok := params["report_backend"].(string); ok && val != "" {
		s.config.Report.Backend = val
	}

	switch val := params["seed"].(type) {
	case int:
		s.config.Swarm.Seed = int64(val)
	case float64:
		s.config.Swarm.Seed = int64(val)
	}

	if val, ok := params["log_level"].(string); ok {
		logger.SetLevel(logger.ParseLevel(val))
	}

	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid scene configuration: %w", err)
	}

	s.log.Infof("Configuration: %d agents, %s frames, %s reports, demo=%v",
		s.config.Swarm.NumAgents, s.config.Scene.UpdateInterval,
		s.config.Report.Backend, s.config.Scene.Demo)
	return nil
}

// Run executes the scene until the context is cancelled or the operator
// quits.
func (s *SentinelScene) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	reporter, err := s.buildReporter(ctx)
	if err != nil {
		return err
	}

	s.player = sfx.NewPlayer()
	s.controller = scenario.NewController(&cuePlayer{player: s.player}, reporter)

	seed := s.config.Swarm.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.engine = core.NewPoseEngine(s.config.Swarm.NumAgents, seed)

	if s.config.Audio.Enabled {
		sampler, err := audio.Acquire()
		if errors.Is(err, audio.ErrDeviceUnavailable) {
			s.log.Warnf("running without audio input: %v", err)
		} else if err != nil {
			return err
		} else {
			s.sampler = sampler
		}
	}
	defer func() {
		if err := s.sampler.Close(); err != nil {
			s.log.Warnf("audio teardown: %v", err)
		}
	}()

	s.started = time.Now()
	s.controller.Start(s.started)
	if s.config.Audio.Muted {
		s.controller.ToggleMute()
	}
	if s.config.Scene.Demo {
		s.controller.ToggleDemoMode(s.started)
	}

	defer s.logSessionStats()

	if s.config.Display.TUI {
		return s.runTUI(ctx)
	}
	return ui.NewConsole(s, s.config.Scene.UpdateInterval).Run(ctx)
}

// Stop gracefully shuts down the scene.
func (s *SentinelScene) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *SentinelScene) runTUI(ctx context.Context) error {
	// Log lines would tear the alternate screen, so they are dropped
	// while the TUI owns the terminal.
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stdout)

	program := ui.NewProgram(s, s.config.Scene.UpdateInterval)
	go func() {
		<-ctx.Done()
		program.Quit()
	}()
	_, err := program.Run()
	return err
}

func (s *SentinelScene) buildReporter(ctx context.Context) (report.Generator, error) {
	switch s.config.Report.Backend {
	case "gemini":
		gen, err := report.NewGeminiGenerator(ctx, report.GeminiConfig{Model: s.config.Report.Model})
		if err != nil {
			s.log.Warnf("gemini unavailable, falling back to canned reports: %v", err)
			return &report.CannedGenerator{Delay: 1500 * time.Millisecond}, nil
		}
		return gen, nil
	default:
		return &report.CannedGenerator{Delay: 1500 * time.Millisecond}, nil
	}
}

// Step advances the scene one frame: commands first, then the sampled
// loudness, then timers and the report drain, then the swarm poses.
func (s *SentinelScene) Step(now time.Time) ui.Snapshot {
	for _, cmd := range s.pending {
		s.apply(cmd, now)
	}
	s.pending = s.pending[:0]

	s.controller.OnAudioLevel(s.sampler.SampleTick(), now)
	s.controller.Tick(now)

	// The phase is read once here; the engine never touches the controller.
	phase := s.controller.Phase()
	s.engine.Update(now.Sub(s.started).Seconds(), phase)

	return s.snapshot(phase)
}

// Dispatch queues an operator command for the next Step.
func (s *SentinelScene) Dispatch(cmd ui.Command) {
	s.pending = append(s.pending, cmd)
}

func (s *SentinelScene) apply(cmd ui.Command, now time.Time) {
	switch cmd {
	case ui.CommandNext:
		s.controller.Advance(now)
	case ui.CommandReset:
		s.controller.Reset(now)
	case ui.CommandToggleDemoMode:
		s.controller.ToggleDemoMode(now)
	case ui.CommandToggleMute:
		s.controller.ToggleMute()
	case ui.CommandGenerateReport:
		s.controller.GenerateReport()
	case ui.CommandQuit:
		if s.cancel != nil {
			s.cancel()
		}
	}
}

func (s *SentinelScene) snapshot(phase scenario.Phase) ui.Snapshot {
	state := s.controller.Snapshot()

	snap := ui.Snapshot{
		PhaseName:        phase.String(),
		TimelineIndex:    scenario.IndexOf(phase),
		TimelineLen:      len(scenario.Timeline),
		Mode:             s.controller.Mode().String(),
		Demo:             s.controller.Mode() == scenario.ModeDemo,
		Muted:            s.controller.Muted(),
		AudioLevel:       state.AudioLevel,
		ThreatLevel:      state.ThreatLevel,
		Report:           state.Report,
		GeneratingReport: state.GeneratingReport,
		Cycles:           s.controller.Cycles(),
	}
	if entry, ok := scenario.EntryFor(phase); ok {
		snap.PhaseTitle = entry.Title
		snap.PhaseDescription = entry.Description
	}

	agents := s.engine.Snapshot()
	snap.Agents = make([]ui.AgentView, len(agents))
	for i, a := range agents {
		snap.Agents[i] = ui.AgentView{
			Index:      a.Index,
			X:          a.Pose.Position.X,
			Y:          a.Pose.Position.Y,
			Z:          a.Pose.Position.Z,
			Yaw:        a.Pose.Orientation.Y,
			Fold:       a.Fold,
			BeamLength: a.BeamLength,
			MarkerFade: a.MarkerFade,
		}
	}
	return snap
}

func (s *SentinelScene) logSessionStats() {
	logger.LogSection("Session summary")
	logger.LogKeyValue("cycles completed", fmt.Sprintf("%d", s.controller.Cycles()))
	for _, entry := range scenario.Timeline {
		logger.LogKeyValue(entry.Phase.String()+" visits",
			fmt.Sprintf("%d", s.controller.Visits(entry.Phase)))
	}
}

// cuePlayer adapts the sfx player to the controller's sound interface.
type cuePlayer struct {
	player *sfx.Player
}

func (c *cuePlayer) Arm() { c.player.Arm() }

func (c *cuePlayer) SetMuted(muted bool) { c.player.SetMuted(muted) }

func (c *cuePlayer) PhaseEntered(phase scenario.Phase) {
	var cue sfx.Cue
	switch phase {
	case scenario.PhaseListening:
		cue = sfx.CueStandby
	case scenario.PhaseTriggered:
		cue = sfx.CueAlert
	case scenario.PhaseEjection:
		cue = sfx.CueLaunch
	case scenario.PhaseCruise:
		cue = sfx.CueCruise
	case scenario.PhaseSensing:
		cue = sfx.CuePing
	case scenario.PhaseLanding:
		cue = sfx.CueTouchdown
	default:
		return
	}
	c.player.Play(cue)
}

func init() {
	err := simulation.DefaultRegistry.Register("Sentinel Scene", NewSentinelScene)
	if err != nil {
		logger.Errorf("Failed to register simulation: %v", err)
	}
}
