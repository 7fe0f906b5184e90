// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package algorithm computes weight derivatives of a feed-forward network.
//
// # Overview
//
// This package contains:
//   - BackPropagation: analytic derivatives via error back-propagation
//   - NumericalGradient: finite-difference derivatives, for gradient checking
//   - Cost: the cross-entropy objective both of them differentiate
//   - Algorithm interface and New factory selecting a variant by Kind
//
// The derivatives have the shapes of the network's weight matrices and are
// meant to be scaled by a learning rate and subtracted from the weights by
// the caller.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/backprop/algorithm"
//	    "github.com/born-ml/backprop/network"
//	)
//
//	func main() {
//	    net, _ := network.New([]int{2, 3, 1}, network.Config{Seed: 42})
//
//	    bp := algorithm.NewBackPropagation(net, examples, algorithm.Options{
//	        Regularization: 0.01,
//	    })
//	    derivatives, err := bp.Run()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    for i, w := range net.Weights() {
//	        derivatives[i].Scale(learningRate, derivatives[i])
//	        w.Sub(w, derivatives[i])
//	    }
//	}
//
// # Errors
//
// Invalid input (no examples, fewer than two layers, mismatched sizes or
// seed matrices, negative regularization) is reported with an error wrapping
// ErrInvalidArgument. Errors returned by the network while propagating are
// passed through unchanged.
package algorithm
