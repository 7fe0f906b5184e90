package algorithm

import (
	"fmt"

	"github.com/born-ml/backprop/internal/network"
	"github.com/born-ml/backprop/internal/parallel"
	"gonum.org/v1/gonum/mat"
)

// BackPropagation computes weight derivatives with the back-propagation
// algorithm.
//
// For every example the output error (activation minus expected output) is
// propagated backwards through the bias-stripped weights and scaled by the
// activation derivative of each hidden layer:
//
//	δ[L-1] = a[L-1] - y
//	δ[j]   = (W[j] without bias column)ᵀ · δ[j+1] ⊙ f'(z[j])
//
// and the outer product δ[j+1] · [1; a[j]]ᵀ is accumulated for weight matrix
// j. After all examples the accumulators are averaged and, when a
// regularization multiplier is set, λ·W (bias column excluded) is added.
//
// Example:
//
//	bp := algorithm.NewBackPropagation(net, examples, algorithm.Options{})
//	derivatives, err := bp.Run()
type BackPropagation struct {
	network  Network
	examples []Example
	options  Options
}

// NewBackPropagation creates a back-propagation run over examples.
//
// Validation is deferred to Run.
func NewBackPropagation(net Network, examples []Example, opts Options) *BackPropagation {
	return &BackPropagation{
		network:  net,
		examples: examples,
		options:  opts.withDefaults(),
	}
}

// Run computes the derivatives, one matrix per weight matrix and in layer
// order.
//
// Returns an error wrapping ErrInvalidArgument for an empty example set,
// fewer than two layers, negative or non-finite regularization, mismatched seed deltas or
// example sizes. Errors from the network's Propagate are returned unchanged.
func (b *BackPropagation) Run() ([]*mat.Dense, error) {
	weights, err := validate(b.network, b.examples, b.options)
	if err != nil {
		return nil, err
	}

	delta, err := seedDelta(weights, b.options.Delta)
	if err != nil {
		return nil, err
	}

	if err := b.accumulateAll(weights, delta); err != nil {
		return nil, err
	}

	return derive(delta, weights, len(b.examples), b.options.Regularization)
}

// accumulateAll folds every example into delta. Each chunk of examples owns
// its accumulator; the first chunk uses delta directly, later chunks are
// summed into it in chunk order.
func (b *BackPropagation) accumulateAll(weights, delta []*mat.Dense) error {
	ranges := parallel.Split(len(b.examples), b.options.Parallel)

	accs := make([][]*mat.Dense, len(ranges))
	errs := make([]error, len(ranges))
	accs[0] = delta
	for i := 1; i < len(ranges); i++ {
		accs[i] = network.ZeroWeights(weights)
	}

	parallel.Run(ranges, func(chunk int, r parallel.Range) {
		for _, ex := range b.examples[r.Start:r.End] {
			if err := b.accumulate(accs[chunk], weights, ex); err != nil {
				errs[chunk] = err
				return
			}
		}
	})

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	for _, acc := range accs[1:] {
		for j := range delta {
			delta[j].Add(delta[j], acc[j])
		}
	}
	return nil
}

// accumulate adds the gradient contribution of a single example to acc.
func (b *BackPropagation) accumulate(acc, weights []*mat.Dense, ex Example) error {
	acts, err := b.network.Propagate(ex.Input)
	if err != nil {
		return err
	}
	if len(acts) != len(weights)+1 {
		return fmt.Errorf("%w: propagation returned %d layers, want %d",
			ErrInvalidArgument, len(acts), len(weights)+1)
	}

	layerErrs, err := layerErrors(weights, acts, ex.Output, b.network.Activation().Derivative)
	if err != nil {
		return err
	}

	// layerErrs[j] belongs to layer j+1 and pairs with the activations of layer j.
	for j, e := range layerErrs {
		biased := network.AddBias(acts[j].Values)
		r, c := acc[j].Dims()
		if r != e.Len() || c != biased.Len() {
			return fmt.Errorf("%w: layer %d: gradient is %dx%d, weight matrix is %dx%d",
				ErrInvalidArgument, j, e.Len(), biased.Len(), r, c)
		}
		acc[j].RankOne(acc[j], 1, e, biased)
	}
	return nil
}

// layerErrors returns the error signal of every non-input layer in forward
// order: result[j] is the error of layer j+1.
func layerErrors(weights []*mat.Dense, acts []network.Activation, expected *mat.VecDense, derivative func(float64) float64) ([]*mat.VecDense, error) {
	errs := make([]*mat.VecDense, len(weights))

	out := acts[len(acts)-1].Values
	if out.Len() != expected.Len() {
		return nil, fmt.Errorf("%w: network output has %d values, example has %d",
			ErrInvalidArgument, out.Len(), expected.Len())
	}
	last := mat.NewVecDense(out.Len(), nil)
	last.SubVec(out, expected)
	errs[len(errs)-1] = last

	for j := len(acts) - 2; j > 0; j-- {
		e, err := BackpropagateError(weights[j], errs[j], acts[j].Raw, derivative)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", j, err)
		}
		errs[j-1] = e
	}
	return errs, nil
}

// BackpropagateError computes the error of a hidden layer from the error of
// the layer after it:
//
//	(w without column 0)ᵀ · next ⊙ derivative(raw)
//
// w is the weight matrix feeding the next layer, raw the hidden layer's
// pre-activation values. The bias column never contributes.
func BackpropagateError(w *mat.Dense, next, raw *mat.VecDense, derivative func(float64) float64) (*mat.VecDense, error) {
	r, c := w.Dims()
	if next.Len() != r || raw.Len() != c-1 {
		return nil, fmt.Errorf("%w: weight matrix is %dx%d, next error has %d values, raw has %d",
			ErrInvalidArgument, r, c, next.Len(), raw.Len())
	}

	stripped := w.Slice(0, r, 1, c)
	e := mat.NewVecDense(c-1, nil)
	e.MulVec(stripped.T(), next)
	for i := 0; i < c-1; i++ {
		e.SetVec(i, e.AtVec(i)*derivative(raw.AtVec(i)))
	}
	return e, nil
}

// derive turns accumulated deltas into derivatives: each delta is divided by
// the example count and, for a non-zero lambda, the regularization term of
// the matching weight matrix is added.
//
// The regularization term is λ·W, not averaged over examples.
func derive(delta, weights []*mat.Dense, count int, lambda float64) ([]*mat.Dense, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: cannot average over %d examples", ErrInvalidArgument, count)
	}
	if len(delta) != len(weights) {
		return nil, fmt.Errorf("%w: %d delta matrices for %d weight matrices",
			ErrInvalidArgument, len(delta), len(weights))
	}

	derivatives := make([]*mat.Dense, len(delta))
	for i, d := range delta {
		r, c := d.Dims()
		derivative := mat.NewDense(r, c, nil)
		derivative.Scale(1/float64(count), d)

		if lambda != 0 {
			derivative.Add(derivative, Regularization(weights[i], lambda))
		}
		derivatives[i] = derivative
	}
	return derivatives, nil
}
