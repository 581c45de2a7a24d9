package pipeline

import (
	"hash/fnv"
	"math"
)

// Ensemble weights: the CNN stand-in carries more signal than the frequency
// heuristic.
const (
	mlWeight   = 0.6
	freqWeight = 0.4
)

// MLScore is a deterministic stand-in for the CNN ensemble: a content-hash
// derived score in [0,100). The real detector is an external model; the
// stand-in keeps the pipeline end-to-end runnable and repeatable for the
// same input.
func MLScore(data []byte) float64 {
	h := fnv.New64a()
	_, _ = h.Write(data)
	return math.Round(float64(h.Sum64()%10000)) / 100
}

// EnsembleScore combines the sub-signals into the score the verdict
// thresholds operate on.
func EnsembleScore(ml, freq float64) float64 {
	return ml*mlWeight + freq*freqWeight
}
