// Package audio realizes the playback effects a plain media element cannot
// express: gain-based crossfade near track end and mono channel folding.
package audio

// Baseline gain values. Normalization is a simplified loudness boost, not
// true RMS/LUFS normalization.
const (
	BaselineGain   = 1.0
	NormalizedGain = 1.2
)

// Channel counts for the output fold.
const (
	StereoChannels = 2
	MonoChannels   = 1
)

// Baseline returns the resting gain for the normalize setting.
func Baseline(normalize bool) float64 {
	if normalize {
		return NormalizedGain
	}
	return BaselineGain
}

// ComputeGain returns the output gain for the remaining seconds of a track.
// Inside the crossfade window the gain ramps linearly from baseline to zero;
// outside it the gain holds at baseline. A window of zero disables the ramp.
func ComputeGain(remaining, crossfadeWindow, baseline float64) float64 {
	if crossfadeWindow <= 0 {
		return baseline
	}
	if remaining >= crossfadeWindow {
		return baseline
	}
	if remaining <= 0 {
		return 0
	}
	return baseline * (remaining / crossfadeWindow)
}
