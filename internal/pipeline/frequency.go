package pipeline

import (
	"bytes"
	"image"
	"math"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Frequency analysis tuning. Generators fail to replicate camera sensor
// noise, so an unusually high share of energy in fine detail is suspicious,
// as are periodic artifacts on the 8-pixel compression grid.
const (
	freqSampleSize  = 256
	hfScale         = 150
	gridScale       = 10
	hfWeight        = 0.6
	gridWeight      = 0.4
	neutralFreq     = 50.0
	freqEpsilon     = 1e-8
	compressionGrid = 8
)

// FrequencyScore measures high-frequency anomalies in the image, 0-100.
// Higher means more suspicious. Undecodable input scores neutral: a format
// we cannot inspect is not evidence either way.
func FrequencyScore(data []byte) float64 {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return neutralFreq
	}

	gray := resampleGray(img, freqSampleSize)
	n := len(gray)
	if n < freqSampleSize*freqSampleSize {
		return neutralFreq
	}

	// Overall contrast, the low-frequency reference.
	var mean float64
	for _, v := range gray {
		mean += v
	}
	mean /= float64(n)

	var lowEnergy float64
	for _, v := range gray {
		lowEnergy += math.Abs(v - mean)
	}
	lowEnergy = lowEnergy/float64(n) + freqEpsilon

	// Adjacent-sample differences, the high-frequency energy.
	var hfEnergy, hfCount float64
	var gridEnergy, gridCount float64
	for y := 0; y < freqSampleSize; y++ {
		for x := 0; x < freqSampleSize-1; x++ {
			d := math.Abs(gray[y*freqSampleSize+x+1] - gray[y*freqSampleSize+x])
			hfEnergy += d
			hfCount++
			if (x+1)%compressionGrid == 0 {
				gridEnergy += d
				gridCount++
			}
		}
	}
	for x := 0; x < freqSampleSize; x++ {
		for y := 0; y < freqSampleSize-1; y++ {
			d := math.Abs(gray[(y+1)*freqSampleSize+x] - gray[y*freqSampleSize+x])
			hfEnergy += d
			hfCount++
			if (y+1)%compressionGrid == 0 {
				gridEnergy += d
				gridCount++
			}
		}
	}
	hfEnergy /= hfCount

	hfScore := math.Min(hfEnergy/lowEnergy*hfScale, 100)

	// Periodic energy concentrated on the grid boundaries.
	gridRatio := (gridEnergy / gridCount) / (hfEnergy + freqEpsilon)
	gridScore := math.Min(gridRatio*gridScale, 100)

	combined := hfScore*hfWeight + gridScore*gridWeight
	return math.Round(combined*100) / 100
}

// resampleGray converts img to a size×size grayscale grid of 0-255 values.
func resampleGray(img image.Image, size int) []float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	out := make([]float64, size*size)
	for y := 0; y < size; y++ {
		srcY := bounds.Min.Y + y*h/size
		for x := 0; x < size; x++ {
			srcX := bounds.Min.X + x*w/size
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			// ITU-R 601 luma, scaled from 16-bit channels.
			out[y*size+x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257
		}
	}
	return out
}
