// Package testutil generates audio fixtures for tests.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Sine returns a sine wave at freq with the given amplitude
func Sine(freq, amplitude float64, seconds float64, sampleRate int) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// ClickTrack returns short decaying noise bursts spaced at bpm
func ClickTrack(bpm float64, seconds float64, sampleRate int) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	period := int(60.0 / bpm * float64(sampleRate))
	clickLen := sampleRate / 50 // 20ms

	// fixed LCG so fixtures are identical on every run
	seed := uint32(12345)
	for start := 0; start < n; start += period {
		for j := 0; j < clickLen && start+j < n; j++ {
			seed = seed*1664525 + 1013904223
			noise := float64(seed)/float64(math.MaxUint32)*2 - 1
			env := math.Exp(-float64(j) / float64(clickLen) * 5)
			out[start+j] = 0.9 * env * noise
		}
	}
	return out
}

// ToPCM16 converts float samples in [-1, 1] to 16-bit integer samples
func ToPCM16(samples []float64) []int {
	out := make([]int, len(samples))
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = int(v * 32767)
	}
	return out
}

// Interleave merges per-channel samples into one interleaved slice
func Interleave(channels ...[]int) []int {
	if len(channels) == 0 {
		return nil
	}
	frames := len(channels[0])
	out := make([]int, 0, frames*len(channels))
	for i := 0; i < frames; i++ {
		for _, ch := range channels {
			out = append(out, ch[i])
		}
	}
	return out
}

// WriteWAV writes integer PCM to a wav file in dir and returns its path
func WriteWAV(tb testing.TB, dir, name string, data []int, sampleRate, channels, bitDepth int) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("close encoder %s: %v", path, err)
	}
	return path
}

// WriteMonoWAV writes float samples as a 16-bit mono wav
func WriteMonoWAV(tb testing.TB, dir, name string, samples []float64, sampleRate int) string {
	tb.Helper()
	return WriteWAV(tb, dir, name, ToPCM16(samples), sampleRate, 1, 16)
}

// WriteFile writes raw bytes, for corrupt fixtures
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteScript writes an executable shell script, used to stand in for ffmpeg
func WriteScript(tb testing.TB, dir, name, body string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		tb.Fatalf("write script %s: %v", path, err)
	}
	return path
}
