package audio

import "github.com/rs/zerolog/log"

// Sink is the playback element the controller drives. The actual media
// element lives in the client; the sink's job is to keep the output graph in
// step with play and track-change events and to record what was handed over.
type Sink struct {
	graph *Graph
}

// NewSink creates a sink feeding the given graph.
func NewSink(graph *Graph) *Sink {
	return &Sink{graph: graph}
}

// SetSource loads a new stream URL. The graph resets its gain baseline since
// a new track begins independent of the outgoing track's ramp.
func (s *Sink) SetSource(url string) error {
	log.Debug().Str("url", url).Msg("sink source set")
	s.graph.OnTrackChange()
	return nil
}

// Play wires the graph on the session's first play event.
func (s *Sink) Play() error {
	s.graph.OnPlay()
	return nil
}

// Pause is tracked client-side; the graph holds its current parameters.
func (s *Sink) Pause() error { return nil }

// SeekTo is tracked client-side.
func (s *Sink) SeekTo(seconds float64) error { return nil }

// SetVolume is tracked client-side; the graph's gain stage is reserved for
// crossfade and normalization.
func (s *Sink) SetVolume(v float64) error { return nil }
