package match

import (
	"bytes"
	"image"
	"math/bits"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// dHashMaxDistance is the hamming cutoff under which two perceptual hashes
// are treated as the same image.
const dHashMaxDistance = 8

// dHash computes a 64-bit difference hash: the image is reduced to a 9x8
// brightness grid and each bit records whether a pixel is brighter than its
// right neighbor. Robust to rescaling and recompression.
func dHash(data []byte) (uint64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}

	const w, h = 9, 8
	grid := sampleGrid(img, w, h)

	var hash uint64
	for y := 0; y < h; y++ {
		for x := 0; x < w-1; x++ {
			hash <<= 1
			if grid[y][x] > grid[y][x+1] {
				hash |= 1
			}
		}
	}
	return hash, nil
}

// sampleGrid averages the source image into a w x h luma grid.
func sampleGrid(img image.Image, w, h int) [][]float64 {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	grid := make([][]float64, h)
	for y := range grid {
		grid[y] = make([]float64, w)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0 := bounds.Min.X + x*srcW/w
			x1 := bounds.Min.X + (x+1)*srcW/w
			y0 := bounds.Min.Y + y*srcH/h
			y1 := bounds.Min.Y + (y+1)*srcH/h
			if x1 <= x0 {
				x1 = x0 + 1
			}
			if y1 <= y0 {
				y1 = y0 + 1
			}

			var sum float64
			var n int
			for sy := y0; sy < y1; sy++ {
				for sx := x0; sx < x1; sx++ {
					r, g, b, _ := img.At(sx, sy).RGBA()
					sum += 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
					n++
				}
			}
			grid[y][x] = sum / float64(n)
		}
	}
	return grid
}

func hammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
