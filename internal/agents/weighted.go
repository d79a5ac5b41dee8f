package agents

import "math/rand"

// pickWeighted returns an index into weights chosen with probability
// proportional to the weight. Non-positive weights never win unless every
// weight is non-positive, in which case the choice is uniform.
func pickWeighted(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return rng.Intn(len(weights))
	}

	target := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		if target < acc {
			return i
		}
	}
	// Floating point accumulation can land exactly on total.
	return len(weights) - 1
}
