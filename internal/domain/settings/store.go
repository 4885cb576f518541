package settings

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Persister stores the serialized settings blob. Authenticated sessions use
// the profile store, guests a local fallback file.
type Persister interface {
	// Load returns the stored blob, or nil when none exists yet.
	Load() ([]byte, error)
	// Save stores the blob.
	Save(blob []byte) error
}

// Store holds the session's settings. Reads come from multiple components,
// writes go through Update only.
type Store struct {
	mu        sync.RWMutex
	current   Settings
	persister Persister
	onUpdate  func()
}

// NewStore creates a settings store. Any persisted blob is shallow-merged
// over the defaults: explicit keys override, missing keys keep their default.
// A load failure is logged and the defaults stand.
func NewStore(persister Persister) *Store {
	s := &Store{
		current:   Defaults(),
		persister: persister,
	}

	if persister == nil {
		return s
	}

	blob, err := persister.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load persisted settings, using defaults")
		return s
	}
	if len(blob) == 0 {
		return s
	}

	// Unmarshaling into the defaults value gives shallow-merge semantics.
	merged := s.current
	if err := json.Unmarshal(blob, &merged); err != nil {
		log.Warn().Err(err).Msg("Failed to parse persisted settings, using defaults")
		return s
	}
	s.current = merged

	log.Debug().Interface("settings", merged).Msg("Settings loaded")
	return s
}

// OnUpdate registers a callback run after every applied update. Components
// with standing output properties derived from settings, like the audio
// graph's channel fold, hook in here.
func (s *Store) OnUpdate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

// Get returns the current settings snapshot.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update replaces the named field and kicks off persistence in the
// background. Unrecognized keys are ignored. Values are not range-checked;
// that is a client-side contract.
func (s *Store) Update(key string, value any) {
	s.mu.Lock()
	if !s.apply(key, value) {
		s.mu.Unlock()
		log.Warn().Str("key", key).Msg("Ignoring unknown settings key")
		return
	}
	snapshot := s.current
	notify := s.onUpdate
	s.mu.Unlock()

	log.Info().Str("key", key).Interface("value", value).Msg("Setting updated")

	if notify != nil {
		notify()
	}

	if s.persister == nil {
		return
	}

	// Fire and forget: in-memory state stays authoritative for the session
	// even if persistence never completes.
	go func() {
		blob, err := json.Marshal(snapshot)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal settings")
			return
		}
		if err := s.persister.Save(blob); err != nil {
			log.Error().Err(err).Str("key", key).Msg("Failed to persist settings")
		}
	}()
}

// apply sets one field from a loosely-typed value. The caller holds the lock.
func (s *Store) apply(key string, value any) bool {
	switch key {
	case "crossfade":
		if f, ok := toFloat(value); ok {
			s.current.Crossfade = f
			return true
		}
	case "gapless":
		if b, ok := value.(bool); ok {
			s.current.Gapless = b
			return true
		}
	case "automix":
		if b, ok := value.(bool); ok {
			s.current.Automix = b
			return true
		}
	case "explicit":
		if b, ok := value.(bool); ok {
			s.current.Explicit = b
			return true
		}
	case "normalize":
		if b, ok := value.(bool); ok {
			s.current.Normalize = b
			return true
		}
	case "mono":
		if b, ok := value.(bool); ok {
			s.current.Mono = b
			return true
		}
	case "audioQuality":
		if str, ok := value.(string); ok {
			s.current.AudioQuality = str
			return true
		}
	case "downloadQuality":
		if str, ok := value.(string); ok {
			s.current.DownloadQuality = str
			return true
		}
	}
	return false
}

// toFloat accepts the numeric types a JSON-ish caller may hand over.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
