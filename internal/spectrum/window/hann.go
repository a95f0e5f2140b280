package window

import "math"

// hann is the raised-cosine window: 0.5 * (1 - cos(2πi/(N-1))).
func hann(size int) []float64 {
	w := make([]float64, size)
	denom := float64(size - 1)
	for i := range w {
		w[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denom))
	}
	return w
}
