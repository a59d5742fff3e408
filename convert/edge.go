package convert

import "math"

var gaussian3 = [3][3]float64{
	{1.0 / 16, 2.0 / 16, 1.0 / 16},
	{2.0 / 16, 4.0 / 16, 2.0 / 16},
	{1.0 / 16, 2.0 / 16, 1.0 / 16},
}

var (
	sobelX = [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY = [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// DetectEdges classifies every cell of a cols x rows luminance grid as edge
// or not. The grid is blurred, run through Sobel, and the gradient
// magnitude is normalised by the frame's own maximum before being compared
// against threshold.
func DetectEdges(lum []float64, cols, rows int, threshold float64) []bool {
	mag := Magnitudes(lum, cols, rows)
	edges := make([]bool, len(mag))
	for i, m := range mag {
		edges[i] = m >= threshold
	}
	return edges
}

// Magnitudes returns the normalised gradient magnitude of every cell, in [0,1].
func Magnitudes(lum []float64, cols, rows int) []float64 {
	blurred := convolve(lum, cols, rows, gaussian3)
	gx := convolve(blurred, cols, rows, sobelX)
	gy := convolve(blurred, cols, rows, sobelY)

	mag := make([]float64, len(lum))
	peak := 0.0
	for i := range mag {
		mag[i] = math.Sqrt(gx[i]*gx[i] + gy[i]*gy[i])
		if mag[i] > peak {
			peak = mag[i]
		}
	}
	if peak == 0 {
		return mag
	}
	for i := range mag {
		mag[i] /= peak
	}
	return mag
}

// EdgeCount returns how many cells DetectEdges would mark.
func EdgeCount(lum []float64, cols, rows int, threshold float64) int {
	n := 0
	for _, e := range DetectEdges(lum, cols, rows, threshold) {
		if e {
			n++
		}
	}
	return n
}

// convolve applies a 3x3 kernel, clamping reads at the borders.
func convolve(src []float64, cols, rows int, k [3][3]float64) []float64 {
	dst := make([]float64, len(src))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var acc float64
			for ky := -1; ky <= 1; ky++ {
				sy := clamp(y+ky, rows)
				for kx := -1; kx <= 1; kx++ {
					sx := clamp(x+kx, cols)
					acc += k[ky+1][kx+1] * src[sy*cols+sx]
				}
			}
			dst[y*cols+x] = acc
		}
	}
	return dst
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
