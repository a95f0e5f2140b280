// Package pcm holds small helpers shared by every node and the mixer
// that touch raw signed 16-bit sample data: saturation and clip
// detection. Kept out of any single node so the mixer's sample-wise sum
// and the volume node's gain multiply clip identically.
package pcm

import "math"

// ClampSample saturates a wider-than-16-bit accumulator to the signed
// 16-bit range.
func ClampSample(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// SumSaturate adds src into dst sample-wise, in place, saturating each
// result to the signed 16-bit range. It sums over the shorter of the two
// slices.
func SumSaturate(dst, src []int16) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] = ClampSample(int32(dst[i]) + int32(src[i]))
	}
}

// IsClipping reports whether v sits at either extreme of the signed
// 16-bit range.
func IsClipping(v int16) bool {
	return v == math.MaxInt16 || v == math.MinInt16
}
