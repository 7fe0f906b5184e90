// Package algorithm implements gradient computations over a feed-forward
// network.
//
// This package provides:
//   - Algorithm interface: one gradient computation bound to a network,
//     an example set and options
//   - BackPropagation: analytic gradients via error back-propagation
//   - NumericalGradient: central finite-difference gradients of Cost
//   - New: factory selecting a variant by Kind
//
// Example usage:
//
//	alg, err := algorithm.New(algorithm.KindBackPropagation, net, examples,
//	    algorithm.Options{Regularization: 0.01})
//	if err != nil {
//	    return err
//	}
//	derivatives, err := alg.Run()
package algorithm

import (
	"errors"
	"fmt"
	"math"

	"github.com/born-ml/backprop/internal/activation"
	"github.com/born-ml/backprop/internal/network"
	"github.com/born-ml/backprop/internal/parallel"
	"gonum.org/v1/gonum/mat"
)

// Common errors.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)

// Network is the view of a network that the algorithms consume.
//
// Weights must not be mutated while a run is in progress. Propagate must be
// safe for concurrent use when Options.Parallel is enabled.
type Network interface {
	Weights() []*mat.Dense
	Activation() activation.Func
	Propagate(input *mat.VecDense) ([]network.Activation, error)
}

// Example is a labeled training example.
type Example struct {
	Input  *mat.VecDense
	Output *mat.VecDense
}

// Options configures a gradient computation.
type Options struct {
	// Delta seeds the per-layer delta accumulators. Nil means zero matrices.
	// When set it must hold one matrix per weight matrix with the same shape.
	Delta []*mat.Dense

	// Regularization is the L2 multiplier (lambda) applied to non-bias
	// weights. Must be finite and non-negative (default: 0).
	Regularization float64

	// Parallel controls how examples are spread over workers
	// (default: sequential).
	Parallel parallel.Config

	// Epsilon is the finite-difference step used by NumericalGradient.
	// Must be finite and positive (default: 1e-4).
	Epsilon float64
}

// DefaultEpsilon is the finite-difference step used when Options.Epsilon is zero.
const DefaultEpsilon = 1e-4

func (o Options) withDefaults() Options {
	if o.Epsilon == 0 {
		o.Epsilon = DefaultEpsilon
	}
	return o
}

// Algorithm computes one derivative matrix per weight matrix of a network.
//
// Constructors bind the network, examples and options; Run performs the
// computation. Run does not modify any of its inputs and may be called again
// with the same result.
type Algorithm interface {
	Run() ([]*mat.Dense, error)
}

// Kind identifies an Algorithm variant.
type Kind int

// Algorithm variants.
const (
	KindBackPropagation Kind = iota
	KindNumericalGradient
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindBackPropagation:
		return "backpropagation"
	case KindNumericalGradient:
		return "numerical-gradient"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// New constructs the algorithm variant identified by kind.
func New(kind Kind, net Network, examples []Example, opts Options) (Algorithm, error) {
	switch kind {
	case KindBackPropagation:
		return NewBackPropagation(net, examples, opts), nil
	case KindNumericalGradient:
		return NewNumericalGradient(net, examples, opts), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, kind)
	}
}

// validate checks everything a run needs before touching any example and
// returns the network's weights.
func validate(net Network, examples []Example, opts Options) ([]*mat.Dense, error) {
	if net == nil {
		return nil, fmt.Errorf("%w: nil network", ErrInvalidArgument)
	}
	weights := net.Weights()
	if _, err := network.Sizes(weights); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if !net.Activation().Valid() {
		return nil, fmt.Errorf("%w: network has no activation function", ErrInvalidArgument)
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("%w: no examples", ErrInvalidArgument)
	}
	if !(opts.Regularization >= 0) || math.IsInf(opts.Regularization, 1) {
		return nil, fmt.Errorf("%w: regularization must be finite and non-negative, got %g",
			ErrInvalidArgument, opts.Regularization)
	}

	_, inCols := weights[0].Dims()
	outRows, _ := weights[len(weights)-1].Dims()
	for i, ex := range examples {
		if ex.Input == nil || ex.Input.IsEmpty() || ex.Input.Len() != inCols-1 {
			return nil, fmt.Errorf("%w: example %d: input has %d values, want %d",
				ErrInvalidArgument, i, vecLen(ex.Input), inCols-1)
		}
		if ex.Output == nil || ex.Output.IsEmpty() || ex.Output.Len() != outRows {
			return nil, fmt.Errorf("%w: example %d: output has %d values, want %d",
				ErrInvalidArgument, i, vecLen(ex.Output), outRows)
		}
	}

	return weights, nil
}

// seedDelta returns the initial delta accumulators: a deep copy of seed, or
// zero matrices when seed is nil.
func seedDelta(weights, seed []*mat.Dense) ([]*mat.Dense, error) {
	if seed == nil {
		return network.ZeroWeights(weights), nil
	}
	if len(seed) != len(weights) {
		return nil, fmt.Errorf("%w: %d seed delta matrices for %d weight matrices",
			ErrInvalidArgument, len(seed), len(weights))
	}
	for i, d := range seed {
		if err := sameShape(d, weights[i]); err != nil {
			return nil, fmt.Errorf("%w: seed delta %d: %w", ErrInvalidArgument, i, err)
		}
	}
	return network.CloneWeights(seed), nil
}

func sameShape(a, b *mat.Dense) error {
	if a == nil || a.IsEmpty() {
		return errors.New("empty matrix")
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return fmt.Errorf("shape %dx%d, want %dx%d", ar, ac, br, bc)
	}
	return nil
}

func vecLen(v *mat.VecDense) int {
	if v == nil || v.IsEmpty() {
		return 0
	}
	return v.Len()
}
