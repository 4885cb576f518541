// Package player provides the playback and queue controller, the core of the
// RythmTune backend.
package player

import "sync"

// DefaultVolume is the initial output volume (0.0 - 1.0).
const DefaultVolume = 0.8

// State represents the transient playback state of the session.
// It is safe for concurrent access.
type State struct {
	mu sync.RWMutex

	// Playback state
	IsPlaying bool
	IsLoading bool // true while a stream resolution request is in flight

	// Position within the current track, in seconds
	CurrentTime float64
	Duration    float64

	// Playback options
	IsShuffle bool
	IsRepeat  bool

	// Like state of the current track for the current identity
	IsLiked bool

	// Output volume (0.0 - 1.0)
	Volume float64
}

// NewState creates a new playback state with default values.
func NewState() *State {
	return &State{
		Volume: DefaultVolume,
	}
}

// StartResolving marks a new resolution in flight and resets the track
// position. The current track changes before the stream URL is known, so the
// playing flag drops until resolution completes.
func (s *State) StartResolving() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IsLoading = true
	s.IsPlaying = false
	s.CurrentTime = 0
	s.Duration = 0
}

// FinishResolving clears the loading flag. playing is true only on success.
func (s *State) FinishResolving(playing bool, duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IsLoading = false
	s.IsPlaying = playing
	if duration > 0 {
		s.Duration = duration
	}
}

// SetPlaying sets the playing flag.
func (s *State) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IsPlaying = playing
}

// SetShuffle sets the shuffle flag.
func (s *State) SetShuffle(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IsShuffle = on
}

// SetRepeat sets the repeat flag.
func (s *State) SetRepeat(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IsRepeat = on
}

// SetLiked sets the like flag for the current track.
func (s *State) SetLiked(liked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IsLiked = liked
}

// SetVolume sets the volume level (0.0 - 1.0).
func (s *State) SetVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}
	s.Volume = volume
}

// UpdateTime updates the current playback position.
func (s *State) UpdateTime(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentTime = seconds
}

// UpdateDuration updates the track duration from media metadata.
func (s *State) UpdateDuration(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Duration = seconds
}

// RestartTrack resets the position for a repeat restart.
func (s *State) RestartTrack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentTime = 0
	s.IsPlaying = true
}

// Clone returns a copy of the current state.
func (s *State) Clone() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &State{
		IsPlaying:   s.IsPlaying,
		IsLoading:   s.IsLoading,
		CurrentTime: s.CurrentTime,
		Duration:    s.Duration,
		IsShuffle:   s.IsShuffle,
		IsRepeat:    s.IsRepeat,
		IsLiked:     s.IsLiked,
		Volume:      s.Volume,
	}
}

// ToJSON returns the state as a map suitable for JSON serialization.
func (s *State) ToJSON() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"isPlaying":   s.IsPlaying,
		"isLoading":   s.IsLoading,
		"currentTime": s.CurrentTime,
		"duration":    s.Duration,
		"isShuffle":   s.IsShuffle,
		"isRepeat":    s.IsRepeat,
		"isLiked":     s.IsLiked,
		"volume":      s.Volume,
	}
}
