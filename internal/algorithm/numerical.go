package algorithm

import (
	"fmt"
	"math"

	"github.com/born-ml/backprop/internal/network"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// NumericalGradient approximates the derivatives of Cost with central
// finite differences over every weight.
//
// It needs two cost evaluations per weight and is meant for checking
// BackPropagation on small networks, not for training.
//
// Example:
//
//	check := algorithm.NewNumericalGradient(net, examples, algorithm.Options{Epsilon: 1e-5})
//	numeric, err := check.Run()
type NumericalGradient struct {
	network  Network
	examples []Example
	options  Options
}

// NewNumericalGradient creates a finite-difference gradient run over
// examples.
func NewNumericalGradient(net Network, examples []Example, opts Options) *NumericalGradient {
	return &NumericalGradient{
		network:  net,
		examples: examples,
		options:  opts.withDefaults(),
	}
}

// Run computes the approximate derivatives, one matrix per weight matrix.
func (n *NumericalGradient) Run() ([]*mat.Dense, error) {
	weights, err := validate(n.network, n.examples, n.options)
	if err != nil {
		return nil, err
	}
	if eps := n.options.Epsilon; !(eps > 0) || math.IsInf(eps, 1) {
		return nil, fmt.Errorf("%w: epsilon must be finite and positive, got %g", ErrInvalidArgument, eps)
	}
	if _, err := seedDelta(weights, n.options.Delta); err != nil {
		return nil, err
	}

	// Evaluate once through the network itself so that its errors surface
	// unchanged; perturbed evaluations below bypass it.
	origin, err := cost(n.network.Propagate, weights, n.examples, n.options)
	if err != nil {
		return nil, err
	}

	act := n.network.Activation()
	var evalErr error
	f := func(x []float64) float64 {
		perturbed := unflatten(x, weights)
		c, err := cost(func(input *mat.VecDense) ([]network.Activation, error) {
			return network.Propagate(perturbed, act, input)
		}, perturbed, n.examples, n.options)
		if err != nil && evalErr == nil {
			evalErr = err
		}
		return c
	}

	grad := fd.Gradient(nil, f, flatten(weights), &fd.Settings{
		OriginKnown: true,
		OriginValue: origin,
		Formula:     fd.Central,
		Step:        n.options.Epsilon,
	})
	if evalErr != nil {
		return nil, evalErr
	}

	return network.CloneWeights(unflatten(grad, weights)), nil
}

// flatten copies weights into one row-major parameter vector.
func flatten(weights []*mat.Dense) []float64 {
	size := 0
	for _, w := range weights {
		r, c := w.Dims()
		size += r * c
	}

	x := make([]float64, 0, size)
	for _, w := range weights {
		r, c := w.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				x = append(x, w.At(i, j))
			}
		}
	}
	return x
}

// unflatten returns matrices shaped like weights that view x.
func unflatten(x []float64, weights []*mat.Dense) []*mat.Dense {
	out := make([]*mat.Dense, len(weights))
	off := 0
	for i, w := range weights {
		r, c := w.Dims()
		out[i] = mat.NewDense(r, c, x[off:off+r*c])
		off += r * c
	}
	return out
}
