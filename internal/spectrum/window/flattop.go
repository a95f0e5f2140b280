package window

import "math"

// flatTop is the five-term cosine window favoring amplitude accuracy
// over frequency resolution: a0 - a1*cos(x) + a2*cos(2x) - a3*cos(3x) +
// a4*cos(4x), x = 2πi/(N-1).
func flatTop(size int) []float64 {
	const a0, a1, a2, a3, a4 = 1.0, 1.93, 1.29, 0.388, 0.028
	w := make([]float64, size)
	denom := float64(size - 1)
	for i := range w {
		x := 2 * math.Pi * float64(i) / denom
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x) - a3*math.Cos(3*x) + a4*math.Cos(4*x)
	}
	return w
}
