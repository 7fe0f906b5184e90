package network

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

func newSource(seed int64) *rand.Rand {
	//nolint:gosec // Using math/rand for weight initialization (not security-critical)
	return rand.New(rand.NewSource(seed))
}

// Xavier (Glorot) initialization for a weight matrix.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// The returned matrix has fanOut rows and fanIn+1 columns; the bias column
// is initialized to zero.
func Xavier(fanIn, fanOut int, rng *rand.Rand) *mat.Dense {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	w := mat.NewDense(fanOut, fanIn+1, nil)
	for i := 0; i < fanOut; i++ {
		for j := 1; j <= fanIn; j++ {
			w.Set(i, j, (rng.Float64()*2.0-1.0)*bound)
		}
	}
	return w
}

// ZeroWeights returns zero matrices shaped like weights.
func ZeroWeights(weights []*mat.Dense) []*mat.Dense {
	zeros := make([]*mat.Dense, len(weights))
	for i, w := range weights {
		r, c := w.Dims()
		zeros[i] = mat.NewDense(r, c, nil)
	}
	return zeros
}

// CloneWeights returns a deep copy of weights.
func CloneWeights(weights []*mat.Dense) []*mat.Dense {
	clones := make([]*mat.Dense, len(weights))
	for i, w := range weights {
		clones[i] = mat.DenseCopyOf(w)
	}
	return clones
}

// AddBias returns a new vector with a constant 1 prepended to v.
func AddBias(v mat.Vector) *mat.VecDense {
	n := v.Len()
	biased := mat.NewVecDense(n+1, nil)
	biased.SetVec(0, 1)
	for i := 0; i < n; i++ {
		biased.SetVec(i+1, v.AtVec(i))
	}
	return biased
}
