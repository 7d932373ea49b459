// Package audio owns the microphone resource and reduces captured input
// energy to a single normalized loudness value per tick.
package audio

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/skyfold/swarmstage/pkg/logger"
)

// ErrDeviceUnavailable signals that no audio input device could be acquired.
// The scene keeps running with the loudness frozen at 0.
var ErrDeviceUnavailable = errors.New("audio input device unavailable")

const (
	sampleRate      = 44100
	framesPerBuffer = 512

	// Raw microphone averages are small; the gain lifts ordinary room
	// noise into the low end of [0,1] and loud events toward 1.
	inputGain = 4.0
)

// Sampler captures microphone input and exposes the latest loudness level.
// The capture callback runs on the portaudio thread and only stores an
// atomic float; SampleTick is what the tick loop reads.
type Sampler struct {
	stream   *portaudio.Stream
	levelBit atomic.Uint64
	active   bool
}

// Acquire requests the default input device. It returns ErrDeviceUnavailable
// (wrapped) when the host has no usable input; callers degrade, not abort.
func Acquire() (*Sampler, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s := &Sampler{}
	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, framesPerBuffer, func(in []float32) {
		s.levelBit.Store(math.Float64bits(normalizeLevel(meanAmplitude(in))))
	})
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.stream = stream
	s.active = true
	logger.WithPrefix("audio").Info("input device acquired")
	return s, nil
}

// SampleTick returns the most recent normalized loudness in [0,1].
// Returns 0 after Close, and on a nil Sampler (degraded mode).
func (s *Sampler) SampleTick() float64 {
	if s == nil || !s.active {
		return 0
	}
	return math.Float64frombits(s.levelBit.Load())
}

// Close releases the input device. No sampling occurs afterwards.
func (s *Sampler) Close() error {
	if s == nil || !s.active {
		return nil
	}
	s.active = false
	s.levelBit.Store(0)

	if err := s.stream.Stop(); err != nil {
		logger.WithPrefix("audio").Warnf("failed to stop input stream: %v", err)
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	return portaudio.Terminate()
}

// meanAmplitude reduces a capture frame to its average absolute amplitude.
func meanAmplitude(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, v := range frame {
		sum += math.Abs(float64(v))
	}
	return sum / float64(len(frame))
}

// normalizeLevel maps a raw average amplitude into [0,1].
func normalizeLevel(raw float64) float64 {
	v := raw * inputGain
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
