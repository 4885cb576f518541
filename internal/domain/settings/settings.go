// Package settings provides the user playback preferences store.
package settings

// Audio quality tiers offered by the streaming service. The store does not
// enforce them; pickers in the client are expected to stay within this set.
const (
	QualityLow      = "Low"
	QualityNormal   = "Normal"
	QualityHigh     = "High"
	QualityVeryHigh = "Very High"
)

// Settings holds the user's playback preferences.
type Settings struct {
	Crossfade       float64 `json:"crossfade"`
	Gapless         bool    `json:"gapless"`
	Automix         bool    `json:"automix"`
	Explicit        bool    `json:"explicit"`
	Normalize       bool    `json:"normalize"`
	Mono            bool    `json:"mono"`
	AudioQuality    string  `json:"audioQuality"`
	DownloadQuality string  `json:"downloadQuality"`
}

// Defaults returns the settings used before any profile or local blob is
// merged in.
func Defaults() Settings {
	return Settings{
		Crossfade:       12,
		Gapless:         true,
		Automix:         true,
		Explicit:        true,
		Normalize:       false,
		Mono:            false,
		AudioQuality:    QualityHigh,
		DownloadQuality: QualityNormal,
	}
}
