package player

// Element abstracts the audio sink the controller drives. The production
// implementation lives in internal/audio; tests use a recording fake.
type Element interface {
	// SetSource loads a new stream URL. Playback does not start until Play.
	SetSource(url string) error

	Play() error
	Pause() error

	// SeekTo jumps to an absolute position in seconds.
	SeekTo(seconds float64) error

	// SetVolume applies a gain in [0, 1].
	SetVolume(v float64) error
}
