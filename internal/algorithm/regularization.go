package algorithm

import "gonum.org/v1/gonum/mat"

// Regularization returns the L2 regularization gradient for w: every entry
// multiplied by lambda, except the bias column which is zero.
//
// w is not modified.
func Regularization(w *mat.Dense, lambda float64) *mat.Dense {
	r, c := w.Dims()
	term := mat.NewDense(r, c, nil)
	term.Apply(func(_, j int, v float64) float64 {
		return regularize(v, j, lambda)
	}, w)
	return term
}

// RegularizationCost returns lambda/2 times the sum of squared non-bias
// entries of w. Its gradient with respect to w is Regularization(w, lambda).
func RegularizationCost(w *mat.Dense, lambda float64) float64 {
	if lambda == 0 {
		return 0
	}

	r, c := w.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		for j := 1; j < c; j++ {
			v := w.At(i, j)
			sum += v * v
		}
	}
	return lambda / 2 * sum
}

func regularize(v float64, column int, lambda float64) float64 {
	if column == 0 {
		return 0
	}
	return v * lambda
}
