// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package algorithm

import (
	"github.com/born-ml/backprop/internal/algorithm"
	"github.com/born-ml/backprop/internal/parallel"
	"gonum.org/v1/gonum/mat"
)

// Algorithm computes one derivative matrix per weight matrix.
type Algorithm = algorithm.Algorithm

// Network is the view of a network the algorithms consume.
type Network = algorithm.Network

// Example is a labeled training example.
type Example = algorithm.Example

// Options configures a gradient computation.
type Options = algorithm.Options

// ParallelConfig controls how examples are spread over worker goroutines.
type ParallelConfig = parallel.Config

// DefaultParallelConfig returns one worker per CPU.
func DefaultParallelConfig() ParallelConfig {
	return parallel.DefaultConfig()
}

// Kind identifies an Algorithm variant.
type Kind = algorithm.Kind

// Algorithm variants.
const (
	KindBackPropagation   = algorithm.KindBackPropagation
	KindNumericalGradient = algorithm.KindNumericalGradient
)

// Common errors.
var (
	ErrInvalidArgument  = algorithm.ErrInvalidArgument
	ErrUnknownAlgorithm = algorithm.ErrUnknownAlgorithm
)

// BackPropagation computes derivatives with back-propagation.
type BackPropagation = algorithm.BackPropagation

// NewBackPropagation creates a back-propagation run.
//
// Example:
//
//	bp := algorithm.NewBackPropagation(net, examples, algorithm.Options{
//	    Regularization: 0.01,
//	    Parallel:       algorithm.DefaultParallelConfig(),
//	})
//	derivatives, err := bp.Run()
func NewBackPropagation(net Network, examples []Example, opts Options) *BackPropagation {
	return algorithm.NewBackPropagation(net, examples, opts)
}

// NumericalGradient approximates derivatives with central finite differences.
type NumericalGradient = algorithm.NumericalGradient

// NewNumericalGradient creates a finite-difference gradient run.
func NewNumericalGradient(net Network, examples []Example, opts Options) *NumericalGradient {
	return algorithm.NewNumericalGradient(net, examples, opts)
}

// New constructs the algorithm variant identified by kind.
func New(kind Kind, net Network, examples []Example, opts Options) (Algorithm, error) {
	return algorithm.New(kind, net, examples, opts)
}

// Cost returns the regularized cross-entropy whose gradient
// BackPropagation computes.
func Cost(net Network, examples []Example, opts Options) (float64, error) {
	return algorithm.Cost(net, examples, opts)
}

// Regularization returns lambda times w with the bias column zeroed.
func Regularization(w *mat.Dense, lambda float64) *mat.Dense {
	return algorithm.Regularization(w, lambda)
}
