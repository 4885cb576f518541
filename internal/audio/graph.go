package audio

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rythmtune/rythmtune-backend/internal/domain/settings"
)

// Device is the output node the graph drives. Implementations wrap whatever
// audio backend is available.
type Device interface {
	SetGain(gain float64) error
	SetChannelCount(channels int) error
}

// SettingsSource provides the current playback preferences.
// Satisfied by *settings.Store.
type SettingsSource interface {
	Get() settings.Settings
}

// Status reports the graph's current output parameters.
type Status struct {
	Active   bool    `json:"active"`
	Degraded bool    `json:"degraded"`
	Gain     float64 `json:"gain"`
	Channels int     `json:"channels"`
}

// Graph wires the media output through a gain stage and a channel fold. It
// is constructed lazily on the first play event of the session and drops to
// a no-op when no device is available, so playback itself never depends on
// it.
type Graph struct {
	settings SettingsSource
	device   Device

	mu       sync.Mutex
	built    bool
	degraded bool
	gain     float64
	channels int
}

// NewGraph creates a graph over the given device. A nil device is allowed
// and yields a degraded graph once built.
func NewGraph(src SettingsSource, device Device) *Graph {
	return &Graph{
		settings: src,
		device:   device,
		gain:     BaselineGain,
		channels: StereoChannels,
	}
}

// OnPlay builds the graph if this is the first play event of the session and
// applies the current settings. Re-entering after the graph is built is a
// cheap no-op apart from re-applying settings.
func (g *Graph) OnPlay() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.built {
		g.built = true
		if g.device == nil {
			g.degraded = true
			log.Warn().Msg("no audio device, crossfade and mono fold disabled")
		} else {
			log.Debug().Msg("audio graph wired")
		}
	}
	g.applyLocked()
}

// OnTimeUpdate re-evaluates the gain ramp for the current playback position.
func (g *Graph) OnTimeUpdate(currentTime, duration float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.built {
		return
	}

	s := g.settings.Get()
	baseline := Baseline(s.Normalize)
	gain := baseline
	if s.Crossfade > 0 && duration > 0 {
		gain = ComputeGain(duration-currentTime, s.Crossfade, baseline)
	}
	g.setGainLocked(gain)
}

// OnTrackChange resets the gain to baseline for the incoming track,
// independent of the outgoing track's ramp, and re-evaluates the channel
// fold.
func (g *Graph) OnTrackChange() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.built {
		return
	}
	g.applyLocked()
}

// OnSettingsChanged re-applies baseline gain and channel fold. Wired to the
// settings store's update path for normalize and mono.
func (g *Graph) OnSettingsChanged() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.built {
		return
	}
	g.applyLocked()
}

// Status returns the current output parameters.
func (g *Graph) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Status{
		Active:   g.built,
		Degraded: g.degraded,
		Gain:     g.gain,
		Channels: g.channels,
	}
}

func (g *Graph) applyLocked() {
	s := g.settings.Get()
	g.setGainLocked(Baseline(s.Normalize))

	channels := StereoChannels
	if s.Mono {
		channels = MonoChannels
	}
	g.setChannelsLocked(channels)
}

func (g *Graph) setGainLocked(gain float64) {
	if gain == g.gain {
		return
	}
	g.gain = gain
	if g.degraded || g.device == nil {
		return
	}
	if err := g.device.SetGain(gain); err != nil {
		log.Warn().Err(err).Float64("gain", gain).Msg("set gain failed")
	}
}

func (g *Graph) setChannelsLocked(channels int) {
	if channels == g.channels {
		return
	}
	g.channels = channels
	if g.degraded || g.device == nil {
		return
	}
	if err := g.device.SetChannelCount(channels); err != nil {
		log.Warn().Err(err).Int("channels", channels).Msg("set channel count failed")
	}
}
