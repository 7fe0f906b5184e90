// Package network implements a fully-connected feed-forward network: its
// topology, weight matrices and forward propagation.
//
// Weight matrix j maps the bias-augmented activations of layer j to the raw
// inputs of layer j+1. It has one row per unit of layer j+1 and one column
// per unit of layer j plus a leading bias column:
//
//	W[j] : sizes[j+1] × (sizes[j] + 1), column 0 = bias
package network

import (
	"errors"
	"fmt"

	"github.com/born-ml/backprop/internal/activation"
	"gonum.org/v1/gonum/mat"
)

// Common errors.
var (
	ErrTopology  = errors.New("network: invalid topology")
	ErrInputSize = errors.New("network: input size mismatch")
)

// Activation is the forward-pass record of one layer.
//
// Raw holds the weighted sums before the activation function is applied and
// Values the activated outputs. Values never contains the bias unit; use
// AddBias to prepend it. For the input layer Raw and Values are both the
// input vector.
type Activation struct {
	Raw    *mat.VecDense
	Values *mat.VecDense
}

// Config holds configuration for New.
type Config struct {
	Activation activation.Func // Activation function (default: sigmoid)
	Seed       int64           // Seed for weight initialization
}

// Network is a stack of fully-connected layers sharing one activation
// function.
//
// A Network is never mutated after construction, so it may be propagated
// from several goroutines at once.
type Network struct {
	sizes   []int
	weights []*mat.Dense
	act     activation.Func
}

// New creates a network with the given layer sizes and Xavier-initialized
// weights.
//
// sizes[0] is the input layer and sizes[len(sizes)-1] the output layer.
//
// Example:
//
//	net, err := network.New([]int{2, 3, 1}, network.Config{Seed: 42})
func New(sizes []int, cfg Config) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 layers, got %d", ErrTopology, len(sizes))
	}
	for i, n := range sizes {
		if n <= 0 {
			return nil, fmt.Errorf("%w: layer %d has %d units", ErrTopology, i, n)
		}
	}
	if !cfg.Activation.Valid() {
		cfg.Activation = activation.NewSigmoid()
	}

	rng := newSource(cfg.Seed)
	weights := make([]*mat.Dense, len(sizes)-1)
	for j := range weights {
		weights[j] = Xavier(sizes[j], sizes[j+1], rng)
	}

	return &Network{
		sizes:   append([]int(nil), sizes...),
		weights: weights,
		act:     cfg.Activation,
	}, nil
}

// FromWeights creates a network from existing weight matrices.
//
// The matrices are copied. Adjacent matrices must chain: the column count
// of weights[j+1] must be the row count of weights[j] plus one.
func FromWeights(weights []*mat.Dense, act activation.Func) (*Network, error) {
	sizes, err := Sizes(weights)
	if err != nil {
		return nil, err
	}
	if !act.Valid() {
		act = activation.NewSigmoid()
	}

	return &Network{
		sizes:   sizes,
		weights: CloneWeights(weights),
		act:     act,
	}, nil
}

// Sizes derives layer sizes from a chain of weight matrices.
func Sizes(weights []*mat.Dense) ([]int, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: need at least 1 weight matrix", ErrTopology)
	}

	sizes := make([]int, 0, len(weights)+1)
	for j, w := range weights {
		if w == nil || w.IsEmpty() {
			return nil, fmt.Errorf("%w: weight matrix %d is empty", ErrTopology, j)
		}
		r, c := w.Dims()
		if c < 2 {
			return nil, fmt.Errorf("%w: weight matrix %d has %d columns, need bias plus at least 1 input", ErrTopology, j, c)
		}
		if j == 0 {
			sizes = append(sizes, c-1)
		} else if prev := sizes[len(sizes)-1]; c != prev+1 {
			return nil, fmt.Errorf("%w: weight matrix %d has %d columns, want %d", ErrTopology, j, c, prev+1)
		}
		sizes = append(sizes, r)
	}
	return sizes, nil
}

// Sizes returns the number of units in each layer.
func (n *Network) Sizes() []int {
	return append([]int(nil), n.sizes...)
}

// Weights returns the weight matrices in layer order.
//
// The returned matrices are the network's own and must be treated as
// read-only.
func (n *Network) Weights() []*mat.Dense {
	return n.weights
}

// Activation returns the network's activation function.
func (n *Network) Activation() activation.Func {
	return n.act
}

// Propagate runs input forward through the network and returns one
// Activation per layer, input layer first.
func (n *Network) Propagate(input *mat.VecDense) ([]Activation, error) {
	return Propagate(n.weights, n.act, input)
}

// Propagate runs input forward through an arbitrary chain of weight
// matrices. The weights are only read.
func Propagate(weights []*mat.Dense, act activation.Func, input *mat.VecDense) ([]Activation, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: need at least 1 weight matrix", ErrTopology)
	}
	if !act.Valid() {
		return nil, fmt.Errorf("%w: activation function not set", ErrTopology)
	}
	if input == nil || input.IsEmpty() {
		return nil, fmt.Errorf("%w: empty input", ErrInputSize)
	}

	acts := make([]Activation, 0, len(weights)+1)
	in := mat.VecDenseCopyOf(input)
	acts = append(acts, Activation{Raw: in, Values: in})

	for j, w := range weights {
		if w == nil || w.IsEmpty() {
			return nil, fmt.Errorf("%w: weight matrix %d is empty", ErrTopology, j)
		}
		prev := acts[j].Values
		r, c := w.Dims()
		if c != prev.Len()+1 {
			if j == 0 {
				return nil, fmt.Errorf("%w: got %d values, want %d", ErrInputSize, prev.Len(), c-1)
			}
			return nil, fmt.Errorf("%w: weight matrix %d has %d columns, want %d", ErrTopology, j, c, prev.Len()+1)
		}

		raw := mat.NewVecDense(r, nil)
		raw.MulVec(w, AddBias(prev))

		values := mat.NewVecDense(r, nil)
		for i := 0; i < r; i++ {
			values.SetVec(i, act.Apply(raw.AtVec(i)))
		}
		acts = append(acts, Activation{Raw: raw, Values: values})
	}

	return acts, nil
}
