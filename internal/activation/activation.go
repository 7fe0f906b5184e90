// Package activation provides the element-wise activation functions used by
// fully-connected layers, together with their derivatives.
package activation

import "math"

// Func is an element-wise activation function and its derivative.
//
// Derivative takes the raw pre-activation value, not the activated output:
// back-propagation evaluates it on the weighted sums recorded during the
// forward pass.
type Func struct {
	Name       string
	Apply      func(x float64) float64
	Derivative func(x float64) float64
}

// Valid reports whether both the function and its derivative are set.
func (f Func) Valid() bool {
	return f.Apply != nil && f.Derivative != nil
}

// NewSigmoid returns the logistic sigmoid activation.
//
// Applies the element-wise function: σ(x) = 1 / (1 + exp(-x))
//
// Example:
//
//	act := activation.NewSigmoid()
//	y := act.Apply(0.5)       // 0.6224...
//	dy := act.Derivative(0.5) // 0.2350...
func NewSigmoid() Func {
	return Func{
		Name:       "sigmoid",
		Apply:      Sigmoid,
		Derivative: SigmoidDerivative,
	}
}

// Sigmoid computes 1 / (1 + exp(-x)).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// SigmoidDerivative computes σ'(x) = σ(x) * (1 - σ(x)).
func SigmoidDerivative(x float64) float64 {
	s := Sigmoid(x)
	return s * (1.0 - s)
}
