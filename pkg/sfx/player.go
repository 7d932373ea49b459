// Package sfx plays short procedural sound cues on phase entry.
// Playback is fire-and-forget; a host without an output device simply
// leaves the player disarmed.
package sfx

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/oto/v2"

	"github.com/skyfold/swarmstage/pkg/logger"
)

const (
	sampleRate   = 44100
	channelCount = 2
	bitDepth     = 0 // 32-bit float (oto.FormatFloat32LE)
)

// Cue identifies the sound effect played when a phase is entered.
type Cue int

const (
	CueStandby Cue = iota
	CueAlert
	CueLaunch
	CueCruise
	CuePing
	CueTouchdown
)

// Player manages the output device and cue playback.
type Player struct {
	mu    sync.Mutex
	ctx   *oto.Context
	ready chan struct{}
	muted atomic.Bool
	armed bool
}

// NewPlayer returns a disarmed player. Arm must be called before any
// cue is audible; cues before that are dropped silently.
func NewPlayer() *Player {
	return &Player{}
}

// Arm initializes the output device. Idempotent; failures disarm the
// player permanently and are logged once.
func (p *Player) Arm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.armed || p.ctx != nil {
		return
	}
	ctx, ready, err := oto.NewContext(sampleRate, channelCount, bitDepth)
	if err != nil {
		logger.WithPrefix("sfx").Warnf("no audio output, sound cues disabled: %v", err)
		p.armed = true // don't retry every toggle
		return
	}
	p.ctx = ctx
	p.ready = ready
	p.armed = true
	logger.WithPrefix("sfx").Debug("output device armed")
}

// SetMuted toggles cue playback without releasing the device.
func (p *Player) SetMuted(muted bool) {
	p.muted.Store(muted)
}

// Muted reports the current mute flag.
func (p *Player) Muted() bool {
	return p.muted.Load()
}

// Play starts cue playback and returns immediately.
func (p *Player) Play(cue Cue) {
	if p.muted.Load() {
		return
	}

	p.mu.Lock()
	ctx, ready := p.ctx, p.ready
	p.mu.Unlock()
	if ctx == nil {
		return
	}
	select {
	case <-ready:
	default:
		return
	}

	samples := generateCue(cue)
	if len(samples) == 0 {
		return
	}

	go func() {
		player := ctx.NewPlayer(&sampleReader{data: samples})
		player.Play()
		for player.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		_ = player.Close()
	}()
}

// generateCue synthesizes interleaved stereo float32 samples for a cue.
func generateCue(cue Cue) []float32 {
	switch cue {
	case CueStandby:
		return tone(330, 220, 0.25, 0.3)
	case CueAlert:
		// Two rising chirps, the klaxon for a loudness trigger
		return append(tone(440, 880, 0.18, 0.5), tone(440, 880, 0.18, 0.5)...)
	case CueLaunch:
		return tone(180, 720, 0.45, 0.6)
	case CueCruise:
		return tone(520, 520, 0.2, 0.35)
	case CuePing:
		return tone(1200, 1180, 0.12, 0.4)
	case CueTouchdown:
		return tone(600, 140, 0.5, 0.45)
	default:
		return nil
	}
}

// tone renders a linear frequency sweep with an exponential decay envelope.
func tone(freqFrom, freqTo, seconds, amplitude float64) []float32 {
	n := int(seconds * sampleRate)
	out := make([]float32, 0, n*channelCount)
	phase := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		freq := freqFrom + (freqTo-freqFrom)*t
		phase += 2 * math.Pi * freq / sampleRate
		env := math.Exp(-3 * t)
		v := float32(amplitude * env * math.Sin(phase))
		out = append(out, v, v)
	}
	return out
}

// sampleReader streams float32 samples as little-endian bytes for oto.
type sampleReader struct {
	data []float32
	pos  int
}

func (r *sampleReader) Read(buf []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := 0
	for r.pos < len(r.data) && n+4 <= len(buf) {
		binary.LittleEndian.PutUint32(buf[n:], math.Float32bits(r.data[r.pos]))
		n += 4
		r.pos++
	}
	return n, nil
}
