package algorithm

import (
	"fmt"
	"math"

	"github.com/born-ml/backprop/internal/network"
	"github.com/born-ml/backprop/internal/parallel"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Cost returns the objective whose gradient BackPropagation computes:
//
//	J = -(1/m) Σ Σ_k [y_k log h_k + (1-y_k) log(1-h_k)]
//	    + Σ_i λ/2 ‖W_i without bias column‖²
//	    + (1/m) Σ_i Σ D_i ⊙ W_i
//
// where h is the network output, m the number of examples and D the seed
// delta matrices (the last term is absent when no seed is set).
//
// Validation and errors are the same as for BackPropagation.Run.
func Cost(net Network, examples []Example, opts Options) (float64, error) {
	weights, err := validate(net, examples, opts)
	if err != nil {
		return 0, err
	}
	if _, err := seedDelta(weights, opts.Delta); err != nil {
		return 0, err
	}
	return cost(net.Propagate, weights, examples, opts)
}

type propagateFunc func(input *mat.VecDense) ([]network.Activation, error)

func cost(propagate propagateFunc, weights []*mat.Dense, examples []Example, opts Options) (float64, error) {
	losses := make([]float64, len(examples))
	errs := make([]error, len(examples))

	parallel.For(len(examples), func(i int) {
		acts, err := propagate(examples[i].Input)
		if err != nil {
			errs[i] = err
			return
		}
		if len(acts) != len(weights)+1 {
			errs[i] = fmt.Errorf("%w: propagation returned %d layers, want %d",
				ErrInvalidArgument, len(acts), len(weights)+1)
			return
		}
		out := acts[len(acts)-1].Values
		if vecLen(out) != examples[i].Output.Len() {
			errs[i] = fmt.Errorf("%w: network output has %d values, example has %d",
				ErrInvalidArgument, vecLen(out), examples[i].Output.Len())
			return
		}
		losses[i] = crossEntropy(out, examples[i].Output)
	}, opts.Parallel)

	for _, err := range errs {
		if err != nil {
			return 0, err
		}
	}

	m := float64(len(examples))
	total := floats.Sum(losses) / m

	for i, w := range weights {
		total += RegularizationCost(w, opts.Regularization)
		if opts.Delta != nil {
			var seeded mat.Dense
			seeded.MulElem(opts.Delta[i], w)
			total += mat.Sum(&seeded) / m
		}
	}
	return total, nil
}

// crossEntropy sums the logistic cross-entropy over all output units.
func crossEntropy(h, y mat.Vector) float64 {
	var sum float64
	for k := 0; k < h.Len(); k++ {
		hk, yk := h.AtVec(k), y.AtVec(k)
		sum -= yk*math.Log(hk) + (1-yk)*math.Log(1-hk)
	}
	return sum
}
