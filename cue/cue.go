// Package cue plays the short feedback ticks around a recording: one when
// capture starts, one when it stops and a low double beep on errors.
package cue

import "math"

var disabled bool

// Disable turns all cues off, for headless runs and tests.
func Disable() { disabled = true }

const (
	sampleRate = 44100

	// start: high pitch, fast decay
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// end: slightly lower, moderate decay
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// error: low double beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// tick synthesizes one mono decaying sine tick. The platform players
// convert to whatever frame layout their sink wants.
func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	beep := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(beep)*2+len(gap))
	out = append(out, beep...)
	out = append(out, gap...)
	out = append(out, beep...)
	return out
}
