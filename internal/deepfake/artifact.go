package deepfake

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
)

// ArtifactAnalyzer is the no-dependency fallback. It looks for statistical
// artifacts common in generated or heavily edited images: unnaturally
// uniform compression blocks, low edge density from over-smoothing, and a
// narrow color saturation spread.
type ArtifactAnalyzer struct {
	maxAnalyzeSize int
}

// NewArtifactAnalyzer creates the artifact-statistics analyzer.
func NewArtifactAnalyzer() *ArtifactAnalyzer {
	return &ArtifactAnalyzer{maxAnalyzeSize: 512}
}

// Name implements Analyzer.
func (a *ArtifactAnalyzer) Name() string { return MethodArtifact }

// Analyze implements Analyzer.
func (a *ArtifactAnalyzer) Analyze(ctx context.Context, imageData []byte) (*Assessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resized, err := resizeImage(imageData, a.maxAnalyzeSize)
	if err != nil {
		return nil, fmt.Errorf("artifact analysis failed: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		return nil, fmt.Errorf("artifact analysis failed: %w", err)
	}

	gray := toGrayscale(img)
	blockVar := blockMeanVariance(gray, 8)
	edges := edgeDensity(gray)
	satSpread := saturationSpread(img)

	indicators := []string{}
	confidence := 0.05

	if blockVar < 1.0 {
		indicators = append(indicators, "uniform compression blocks")
		confidence += 0.25
	}
	if edges < 0.02 {
		indicators = append(indicators, "low edge density")
		confidence += 0.25
	}
	if satSpread < 0.03 {
		indicators = append(indicators, "narrow color saturation spread")
		confidence += 0.20
	}
	if confidence > 1 {
		confidence = 1
	}

	return &Assessment{
		IsDeepfake: confidence >= deepfakeThreshold,
		Confidence: confidence,
		Method:     MethodArtifact,
		Indicators: indicators,
	}, nil
}

// blockMeanVariance divides the luma plane into size x size blocks and
// returns the variance of the block means. Natural photos vary between
// blocks; resynthesized regions flatten out.
func blockMeanVariance(gray [][]float64, size int) float64 {
	width := len(gray)
	if width == 0 {
		return 0
	}
	height := len(gray[0])

	var means []float64
	for bx := 0; bx+size <= width; bx += size {
		for by := 0; by+size <= height; by += size {
			var sum float64
			for x := bx; x < bx+size; x++ {
				for y := by; y < by+size; y++ {
					sum += gray[x][y]
				}
			}
			means = append(means, sum/float64(size*size))
		}
	}
	if len(means) < 2 {
		return 0
	}

	var sum float64
	for _, m := range means {
		sum += m
	}
	mean := sum / float64(len(means))

	var variance float64
	for _, m := range means {
		d := m - mean
		variance += d * d
	}
	return variance / float64(len(means))
}

// edgeDensity returns the fraction of pixels whose gradient magnitude
// exceeds a fixed threshold.
func edgeDensity(gray [][]float64) float64 {
	width := len(gray)
	if width < 2 {
		return 0
	}
	height := len(gray[0])
	if height < 2 {
		return 0
	}

	const threshold = 24.0
	var edges, total int
	for x := 0; x < width-1; x++ {
		for y := 0; y < height-1; y++ {
			dx := gray[x+1][y] - gray[x][y]
			dy := gray[x][y+1] - gray[x][y]
			if math.Sqrt(dx*dx+dy*dy) > threshold {
				edges++
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(edges) / float64(total)
}

// saturationSpread returns the standard deviation of per-pixel saturation.
func saturationSpread(img image.Image) float64 {
	bounds := img.Bounds()
	var sats []float64
	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			r, g, b, _ := img.At(x, y).RGBA()
			sats = append(sats, saturation(float64(r>>8), float64(g>>8), float64(b>>8)))
		}
	}
	if len(sats) < 2 {
		return 0
	}

	var sum float64
	for _, s := range sats {
		sum += s
	}
	mean := sum / float64(len(sats))

	var variance float64
	for _, s := range sats {
		d := s - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(sats)))
}

// saturation computes HSV saturation in [0, 1] from 8-bit RGB components.
func saturation(r, g, b float64) float64 {
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	if maxC == 0 {
		return 0
	}
	return (maxC - minC) / maxC
}
