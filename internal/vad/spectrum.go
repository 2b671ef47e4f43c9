package vad

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	minDecibels = -100.0
	maxDecibels = -30.0
	smoothing   = 0.8
)

// Spectrum turns sample windows into byte-scaled frequency magnitudes with
// the smoothing and decibel range of a browser analyser node.
type Spectrum struct {
	size     int
	fft      *fourier.FFT
	window   []float64
	scratch  []float64
	coeffs   []complex128
	smoothed []float64
	bytes    []float64
}

// NewSpectrum prepares an analyser for windows of size samples.
func NewSpectrum(size int) *Spectrum {
	window := make([]float64, size)
	for i := range window {
		x := float64(i) / float64(size)
		window[i] = 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
	}
	return &Spectrum{
		size:     size,
		fft:      fourier.NewFFT(size),
		window:   window,
		scratch:  make([]float64, size),
		smoothed: make([]float64, size/2),
		bytes:    make([]float64, size/2),
	}
}

// Size is the analysis window length in samples.
func (s *Spectrum) Size() int {
	return s.size
}

// Bins computes size/2 frequency bins from samples, each in 0..255.
func (s *Spectrum) Bins(samples []float64) []float64 {
	for i := range s.scratch {
		v := 0.0
		if i < len(samples) {
			v = samples[i]
		}
		s.scratch[i] = v * s.window[i]
	}
	s.coeffs = s.fft.Coefficients(s.coeffs, s.scratch)

	for i := range s.smoothed {
		magnitude := cmplx.Abs(s.coeffs[i]) / float64(s.size)
		s.smoothed[i] = smoothing*s.smoothed[i] + (1-smoothing)*magnitude

		db := minDecibels
		if s.smoothed[i] > 0 {
			db = 20 * math.Log10(s.smoothed[i])
		}
		scaled := 255 * (db - minDecibels) / (maxDecibels - minDecibels)
		s.bytes[i] = math.Max(0, math.Min(255, math.Floor(scaled)))
	}
	return s.bytes
}

// Level is the mean of Bins(samples).
func (s *Spectrum) Level(samples []float64) float64 {
	bins := s.Bins(samples)
	if len(bins) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range bins {
		sum += b
	}
	return sum / float64(len(bins))
}
