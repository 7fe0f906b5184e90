package algorithm_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/backprop/internal/activation"
	"github.com/born-ml/backprop/internal/algorithm"
	"github.com/born-ml/backprop/internal/network"
	"github.com/born-ml/backprop/internal/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// inputOnlyNetwork has a single layer and no weights.
type inputOnlyNetwork struct{}

func (inputOnlyNetwork) Weights() []*mat.Dense { return nil }

func (inputOnlyNetwork) Activation() activation.Func { return activation.NewSigmoid() }

func (inputOnlyNetwork) Propagate(in *mat.VecDense) ([]network.Activation, error) {
	return []network.Activation{{Raw: in, Values: in}}, nil
}

// failingNetwork fails every propagation with err.
type failingNetwork struct {
	*network.Network
	err error
}

func (f failingNetwork) Propagate(*mat.VecDense) ([]network.Activation, error) {
	return nil, f.err
}

// shortNetwork returns only the input layer from Propagate.
type shortNetwork struct {
	*network.Network
}

func (shortNetwork) Propagate(in *mat.VecDense) ([]network.Activation, error) {
	return []network.Activation{{Raw: in, Values: in}}, nil
}

// wideNetwork returns one output value too many from Propagate.
type wideNetwork struct {
	*network.Network
}

func (wideNetwork) Propagate(in *mat.VecDense) ([]network.Activation, error) {
	out := vec(0.5, 0.5)
	return []network.Activation{{Raw: in, Values: in}, {Raw: out, Values: out}}, nil
}

func vec(values ...float64) *mat.VecDense {
	return mat.NewVecDense(len(values), values)
}

// singleLayerNet is the 2-input, 1-output network with weights [0.1, 0.2, 0.3].
func singleLayerNet(t *testing.T) *network.Network {
	t.Helper()
	w := mat.NewDense(1, 3, []float64{0.1, 0.2, 0.3})
	net, err := network.FromWeights([]*mat.Dense{w}, activation.NewSigmoid())
	require.NoError(t, err)
	return net
}

func randomNet(t *testing.T, sizes []int, seed int64) *network.Network {
	t.Helper()
	net, err := network.New(sizes, network.Config{Seed: seed})
	require.NoError(t, err)
	return net
}

func randomExamples(rng *rand.Rand, n, in, out int) []algorithm.Example {
	examples := make([]algorithm.Example, n)
	for i := range examples {
		input := make([]float64, in)
		for j := range input {
			input[j] = rng.Float64()*2 - 1
		}
		output := make([]float64, out)
		for j := range output {
			output[j] = float64(rng.Intn(2))
		}
		examples[i] = algorithm.Example{Input: vec(input...), Output: vec(output...)}
	}
	return examples
}

func randomMatrices(rng *rand.Rand, like []*mat.Dense) []*mat.Dense {
	out := network.ZeroWeights(like)
	for _, m := range out {
		m.Apply(func(_, _ int, _ float64) float64 { return rng.Float64() - 0.5 }, m)
	}
	return out
}

func requireMatricesInDelta(t *testing.T, want, got []*mat.Dense, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		wr, wc := want[i].Dims()
		gr, gc := got[i].Dims()
		require.Equal(t, [2]int{wr, wc}, [2]int{gr, gc}, "matrix %d shape", i)
		for r := 0; r < wr; r++ {
			for c := 0; c < wc; c++ {
				require.InDelta(t, want[i].At(r, c), got[i].At(r, c), tol, "matrix %d at (%d,%d)", i, r, c)
			}
		}
	}
}

func run(t *testing.T, net algorithm.Network, examples []algorithm.Example, opts algorithm.Options) []*mat.Dense {
	t.Helper()
	derivatives, err := algorithm.NewBackPropagation(net, examples, opts).Run()
	require.NoError(t, err)
	return derivatives
}

func TestBackPropagation_SingleLayer(t *testing.T) {
	net := singleLayerNet(t)
	examples := []algorithm.Example{{Input: vec(1, 1), Output: vec(0)}}

	derivatives := run(t, net, examples, algorithm.Options{})
	require.Len(t, derivatives, 1)

	r, c := derivatives[0].Dims()
	require.Equal(t, 1, r)
	require.Equal(t, 3, c)

	// Output error: σ(0.1 + 0.2 + 0.3) - 0.
	e := activation.Sigmoid(0.6)
	assert.InDelta(t, e, derivatives[0].At(0, 0), 1e-12, "bias entry is the output error")
	assert.InDelta(t, e*1, derivatives[0].At(0, 1), 1e-12)
	assert.InDelta(t, e*1, derivatives[0].At(0, 2), 1e-12)
}

func TestBackPropagation_SingleLayerRegularized(t *testing.T) {
	net := singleLayerNet(t)
	examples := []algorithm.Example{{Input: vec(1, 1), Output: vec(0)}}

	derivatives := run(t, net, examples, algorithm.Options{
		Regularization: 1,
		Delta:          []*mat.Dense{mat.NewDense(1, 3, nil)},
	})

	e := activation.Sigmoid(0.6)
	assert.InDelta(t, e, derivatives[0].At(0, 0), 1e-12, "bias entry is not regularized")
	assert.InDelta(t, e+0.2, derivatives[0].At(0, 1), 1e-12)
	assert.InDelta(t, e+0.3, derivatives[0].At(0, 2), 1e-12)
}

func TestBackPropagation_HiddenLayerByHand(t *testing.T) {
	w0 := mat.NewDense(2, 2, []float64{
		0.5, -1,
		-0.5, 2,
	})
	w1 := mat.NewDense(1, 3, []float64{0.25, 1, -1})
	net, err := network.FromWeights([]*mat.Dense{w0, w1}, activation.NewSigmoid())
	require.NoError(t, err)

	derivatives := run(t, net, []algorithm.Example{{Input: vec(3), Output: vec(1)}}, algorithm.Options{})

	z0, z1 := 0.5-3.0, -0.5+6.0
	h0, h1 := activation.Sigmoid(z0), activation.Sigmoid(z1)
	out := activation.Sigmoid(0.25 + h0 - h1)
	d2 := out - 1

	// Output layer: δ · [1, h0, h1].
	assert.InDelta(t, d2, derivatives[1].At(0, 0), 1e-12)
	assert.InDelta(t, d2*h0, derivatives[1].At(0, 1), 1e-12)
	assert.InDelta(t, d2*h1, derivatives[1].At(0, 2), 1e-12)

	// Hidden layer: the bias weight 0.25 does not feed back.
	d10 := 1 * d2 * activation.SigmoidDerivative(z0)
	d11 := -1 * d2 * activation.SigmoidDerivative(z1)
	assert.InDelta(t, d10, derivatives[0].At(0, 0), 1e-12)
	assert.InDelta(t, d10*3, derivatives[0].At(0, 1), 1e-12)
	assert.InDelta(t, d11, derivatives[0].At(1, 0), 1e-12)
	assert.InDelta(t, d11*3, derivatives[0].At(1, 1), 1e-12)
}

func TestBackPropagation_DerivativeShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, sizes := range [][]int{{1, 1}, {2, 3, 1}, {4, 5, 3, 2}, {3, 8, 8, 8, 4}} {
		net := randomNet(t, sizes, 3)
		examples := randomExamples(rng, 5, sizes[0], sizes[len(sizes)-1])

		derivatives := run(t, net, examples, algorithm.Options{Regularization: 0.1})
		require.Len(t, derivatives, len(net.Weights()))
		for i, d := range derivatives {
			dr, dc := d.Dims()
			wr, wc := net.Weights()[i].Dims()
			assert.Equal(t, wr, dr, "sizes %v matrix %d rows", sizes, i)
			assert.Equal(t, wc, dc, "sizes %v matrix %d cols", sizes, i)
		}
	}
}

func TestBackPropagation_RegularizationTerm(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	net := randomNet(t, []int{3, 4, 2}, 5)
	examples := randomExamples(rng, 6, 3, 2)

	plain := run(t, net, examples, algorithm.Options{})
	zero := run(t, net, examples, algorithm.Options{Regularization: 0})
	requireMatricesInDelta(t, plain, zero, 0)

	const lambda = 0.5
	regularized := run(t, net, examples, algorithm.Options{Regularization: lambda})
	for i, w := range net.Weights() {
		var diff mat.Dense
		diff.Sub(regularized[i], plain[i])

		r, c := w.Dims()
		for row := 0; row < r; row++ {
			assert.InDelta(t, 0, diff.At(row, 0), 1e-12, "bias column is never penalized")
			for col := 1; col < c; col++ {
				assert.InDelta(t, lambda*w.At(row, col), diff.At(row, col), 1e-12)
			}
		}
	}
}

func TestBackpropagateError_IgnoresBiasColumn(t *testing.T) {
	w := mat.NewDense(2, 3, []float64{
		0.3, 0.1, -0.2,
		-0.4, 0.5, 0.7,
	})
	next := vec(0.2, -0.1)
	raw := vec(0.4, -1.2)

	e, err := algorithm.BackpropagateError(w, next, raw, activation.SigmoidDerivative)
	require.NoError(t, err)
	require.Equal(t, 2, e.Len())

	want0 := (0.1*0.2 + 0.5*-0.1) * activation.SigmoidDerivative(0.4)
	want1 := (-0.2*0.2 + 0.7*-0.1) * activation.SigmoidDerivative(-1.2)
	assert.InDelta(t, want0, e.AtVec(0), 1e-12)
	assert.InDelta(t, want1, e.AtVec(1), 1e-12)

	changed := mat.DenseCopyOf(w)
	changed.Set(0, 0, 100)
	changed.Set(1, 0, -100)
	e2, err := algorithm.BackpropagateError(changed, next, raw, activation.SigmoidDerivative)
	require.NoError(t, err)
	assert.True(t, mat.Equal(e, e2))

	_, err = algorithm.BackpropagateError(w, vec(1), raw, activation.SigmoidDerivative)
	assert.ErrorIs(t, err, algorithm.ErrInvalidArgument)
}

func TestRegularization(t *testing.T) {
	w := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})

	term := algorithm.Regularization(w, 0.1)
	want := mat.NewDense(2, 3, []float64{
		0, 0.2, 0.3,
		0, 0.5, 0.6,
	})
	assert.True(t, mat.EqualApprox(want, term, 1e-12))
	assert.InDelta(t, 1.0, w.At(0, 0), 0, "input must not be modified")

	assert.InDelta(t, 0.1/2*(4+9+25+36), algorithm.RegularizationCost(w, 0.1), 1e-12)
	assert.Zero(t, algorithm.RegularizationCost(w, 0))
}

func TestBackPropagation_Averaging(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	net := randomNet(t, []int{3, 4, 2}, 11)
	examples := randomExamples(rng, 7, 3, 2)

	batch := run(t, net, examples, algorithm.Options{})

	mean := network.ZeroWeights(net.Weights())
	for _, ex := range examples {
		single := run(t, net, []algorithm.Example{ex}, algorithm.Options{})
		for i := range mean {
			mean[i].Add(mean[i], single[i])
		}
	}
	for i := range mean {
		mean[i].Scale(1/float64(len(examples)), mean[i])
	}

	requireMatricesInDelta(t, mean, batch, 1e-12)
}

func TestBackPropagation_SeedDeltaComposition(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	net := randomNet(t, []int{2, 3, 3, 1}, 13)
	examples := randomExamples(rng, 5, 2, 1)
	seed := randomMatrices(rng, net.Weights())
	seedCopy := network.CloneWeights(seed)

	for _, lambda := range []float64{0, 0.3} {
		seeded := run(t, net, examples, algorithm.Options{Delta: seed, Regularization: lambda})
		plain := run(t, net, examples, algorithm.Options{Regularization: lambda})

		for i := range plain {
			plain[i].Add(plain[i], scaled(seed[i], 1/float64(len(examples))))
		}
		requireMatricesInDelta(t, plain, seeded, 1e-12)
	}

	requireMatricesInDelta(t, seedCopy, seed, 0)
}

func scaled(m *mat.Dense, f float64) *mat.Dense {
	var out mat.Dense
	out.Scale(f, m)
	return &out
}

func TestBackPropagation_ExampleOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	net := randomNet(t, []int{3, 5, 2}, 17)
	examples := randomExamples(rng, 9, 3, 2)

	forward := run(t, net, examples, algorithm.Options{})

	reversed := make([]algorithm.Example, len(examples))
	for i, ex := range examples {
		reversed[len(examples)-1-i] = ex
	}
	backward := run(t, net, reversed, algorithm.Options{})

	requireMatricesInDelta(t, forward, backward, 1e-12)
}

func TestBackPropagation_ParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	net := randomNet(t, []int{4, 6, 3}, 19)
	examples := randomExamples(rng, 200, 4, 3)
	seed := randomMatrices(rng, net.Weights())

	sequential := run(t, net, examples, algorithm.Options{Delta: seed, Regularization: 0.2})
	concurrent := run(t, net, examples, algorithm.Options{
		Delta:          seed,
		Regularization: 0.2,
		Parallel:       parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8},
	})

	requireMatricesInDelta(t, sequential, concurrent, 1e-12)
}

func TestBackPropagation_RunIsRepeatable(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	net := randomNet(t, []int{2, 2, 2}, 23)
	examples := randomExamples(rng, 4, 2, 2)
	weights := network.CloneWeights(net.Weights())

	bp := algorithm.NewBackPropagation(net, examples, algorithm.Options{Regularization: 1})
	first, err := bp.Run()
	require.NoError(t, err)
	second, err := bp.Run()
	require.NoError(t, err)

	requireMatricesInDelta(t, first, second, 0)
	requireMatricesInDelta(t, weights, net.Weights(), 0)
}

func TestBackPropagation_InvalidArguments(t *testing.T) {
	net := singleLayerNet(t)
	good := []algorithm.Example{{Input: vec(1, 1), Output: vec(0)}}

	tests := []struct {
		name     string
		net      algorithm.Network
		examples []algorithm.Example
		opts     algorithm.Options
	}{
		{"no examples", net, nil, algorithm.Options{}},
		{"empty examples", net, []algorithm.Example{}, algorithm.Options{}},
		{"single layer", inputOnlyNetwork{}, good, algorithm.Options{}},
		{"nil network", nil, good, algorithm.Options{}},
		{"negative regularization", net, good, algorithm.Options{Regularization: -1}},
		{"NaN regularization", net, good, algorithm.Options{Regularization: math.NaN()}},
		{"infinite regularization", net, good, algorithm.Options{Regularization: math.Inf(1)}},
		{"input too short", net, []algorithm.Example{{Input: vec(1), Output: vec(0)}}, algorithm.Options{}},
		{"nil input", net, []algorithm.Example{{Output: vec(0)}}, algorithm.Options{}},
		{"output too long", net, []algorithm.Example{{Input: vec(1, 1), Output: vec(0, 1)}}, algorithm.Options{}},
		{"seed count", net, good, algorithm.Options{Delta: []*mat.Dense{mat.NewDense(1, 3, nil), mat.NewDense(1, 3, nil)}}},
		{"seed shape", net, good, algorithm.Options{Delta: []*mat.Dense{mat.NewDense(3, 1, nil)}}},
		{"nil seed matrix", net, good, algorithm.Options{Delta: []*mat.Dense{nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			derivatives, err := algorithm.NewBackPropagation(tt.net, tt.examples, tt.opts).Run()
			assert.ErrorIs(t, err, algorithm.ErrInvalidArgument)
			assert.Nil(t, derivatives)
		})
	}
}

func TestBackPropagation_PropagationErrorIsReturnedUnchanged(t *testing.T) {
	errBoom := errors.New("boom")
	net := failingNetwork{Network: singleLayerNet(t), err: errBoom}

	rng := rand.New(rand.NewSource(8))
	examples := randomExamples(rng, 100, 2, 1)

	for _, cfg := range []parallel.Config{{}, {Enabled: true, NumWorkers: 4, MinChunkSize: 10}} {
		derivatives, err := algorithm.NewBackPropagation(net, examples, algorithm.Options{Parallel: cfg}).Run()
		assert.Same(t, errBoom, err)
		assert.Nil(t, derivatives)
	}
}

func TestBackPropagation_MalformedPropagation(t *testing.T) {
	net := singleLayerNet(t)
	examples := []algorithm.Example{{Input: vec(1, 1), Output: vec(0)}}

	for _, bad := range []algorithm.Network{shortNetwork{net}, wideNetwork{net}} {
		derivatives, err := algorithm.NewBackPropagation(bad, examples, algorithm.Options{}).Run()
		assert.ErrorIs(t, err, algorithm.ErrInvalidArgument)
		assert.Nil(t, derivatives)
	}
}

func TestNew_Factory(t *testing.T) {
	net := singleLayerNet(t)
	examples := []algorithm.Example{{Input: vec(1, 1), Output: vec(0)}}

	alg, err := algorithm.New(algorithm.KindBackPropagation, net, examples, algorithm.Options{})
	require.NoError(t, err)
	assert.IsType(t, &algorithm.BackPropagation{}, alg)

	alg, err = algorithm.New(algorithm.KindNumericalGradient, net, examples, algorithm.Options{})
	require.NoError(t, err)
	assert.IsType(t, &algorithm.NumericalGradient{}, alg)

	_, err = algorithm.New(algorithm.Kind(42), net, examples, algorithm.Options{})
	assert.ErrorIs(t, err, algorithm.ErrUnknownAlgorithm)

	assert.Equal(t, "backpropagation", algorithm.KindBackPropagation.String())
	assert.Equal(t, "numerical-gradient", algorithm.KindNumericalGradient.String())
	assert.Equal(t, "Kind(42)", algorithm.Kind(42).String())
}

func BenchmarkBackPropagation(b *testing.B) {
	net, err := network.New([]int{16, 32, 32, 4}, network.Config{Seed: 1})
	if err != nil {
		b.Fatal(err)
	}
	examples := randomExamples(rand.New(rand.NewSource(1)), 1024, 16, 4)

	b.Run("sequential", func(b *testing.B) {
		bp := algorithm.NewBackPropagation(net, examples, algorithm.Options{Regularization: 0.01})
		for i := 0; i < b.N; i++ {
			if _, err := bp.Run(); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("parallel", func(b *testing.B) {
		bp := algorithm.NewBackPropagation(net, examples, algorithm.Options{
			Regularization: 0.01,
			Parallel:       parallel.DefaultConfig(),
		})
		for i := 0; i < b.N; i++ {
			if _, err := bp.Run(); err != nil {
				b.Fatal(err)
			}
		}
	})
}
