package window

import "math"

// hamming is 0.54 - 0.46*cos(2πi/(N-1)).
func hamming(size int) []float64 {
	w := make([]float64, size)
	denom := float64(size - 1)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/denom)
	}
	return w
}
