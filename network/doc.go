// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package network provides the fully-connected feed-forward networks whose
// gradients the algorithm package computes.
//
// # Overview
//
// A network is an ordered list of layer sizes and one weight matrix per pair
// of adjacent layers. Weight matrix j has one row per unit of layer j+1 and
// one column per unit of layer j, preceded by a bias column:
//
//	W[j] : sizes[j+1] × (sizes[j] + 1)
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/backprop/network"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    net, err := network.New([]int{2, 3, 1}, network.Config{Seed: 42})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    acts, err := net.Propagate(mat.NewVecDense(2, []float64{1, 0}))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    output := acts[len(acts)-1].Values
//	}
package network
