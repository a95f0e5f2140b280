package window

import "math"

// blackman is the three-term cosine window: a0 - a1*cos(2πi/(N-1)) +
// a2*cos(4πi/(N-1)).
func blackman(size int) []float64 {
	const a0, a1, a2 = 0.42, 0.5, 0.08
	w := make([]float64, size)
	denom := float64(size - 1)
	for i := range w {
		x := float64(i) / denom
		w[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return w
}
