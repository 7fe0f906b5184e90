// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package network

import (
	"github.com/born-ml/backprop/internal/activation"
	"github.com/born-ml/backprop/internal/network"
	"gonum.org/v1/gonum/mat"
)

// Network is a stack of fully-connected layers.
type Network = network.Network

// Activation is the forward-pass record of one layer.
type Activation = network.Activation

// Config holds configuration for New.
type Config = network.Config

// Func is an element-wise activation function with its derivative.
type Func = activation.Func

// Common errors.
var (
	ErrTopology  = network.ErrTopology
	ErrInputSize = network.ErrInputSize
)

// New creates a network with Xavier-initialized weights.
//
// Example:
//
//	net, err := network.New([]int{784, 30, 10}, network.Config{Seed: 1})
func New(sizes []int, cfg Config) (*Network, error) {
	return network.New(sizes, cfg)
}

// FromWeights creates a network from existing weight matrices.
func FromWeights(weights []*mat.Dense, act Func) (*Network, error) {
	return network.FromWeights(weights, act)
}

// NewSigmoid returns the logistic sigmoid activation.
func NewSigmoid() Func {
	return activation.NewSigmoid()
}

// ZeroWeights returns zero matrices shaped like weights.
func ZeroWeights(weights []*mat.Dense) []*mat.Dense {
	return network.ZeroWeights(weights)
}

// CloneWeights returns a deep copy of weights.
func CloneWeights(weights []*mat.Dense) []*mat.Dense {
	return network.CloneWeights(weights)
}
