// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fista

import (
	"bytes"
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// quadratic is the test objective 𝒇(𝐱) = 𝑙/2·‖𝐱 - 𝐜‖² with 𝜵𝒇(𝐱) = 𝑙·(𝐱 - 𝐜).
type quadratic struct {
	l float64
	c *mat.VecDense
}

func (q quadratic) Eval(x *mat.VecDense) float64 {
	d := mat.NewVecDense(x.Len(), nil)
	d.SubVec(x, q.c)
	return q.l * mat.Dot(d, d) / 2
}

func (q quadratic) Gradient(dst, x *mat.VecDense) float64 {
	dst.SubVec(x, q.c)
	v := q.l * mat.Dot(dst, dst) / 2
	dst.ScaleVec(q.l, dst)
	return v
}

// l1 is the test term 𝒉(𝐱) = λ·‖𝐱‖₁ whose prox is the soft threshold.
type l1 struct{ lam float64 }

func (p l1) Prox(dst, x *mat.VecDense, gamma float64) float64 {
	t := p.lam * gamma
	sum := 0.0
	for i := 0; i < x.Len(); i++ {
		v := x.AtVec(i)
		switch {
		case v > t:
			v -= t
		case v < -t:
			v += t
		default:
			v = 0
		}
		dst.SetVec(i, v)
		sum += math.Abs(v)
	}
	return p.lam * sum
}

type countingSmooth struct {
	quadratic
	grads int
}

func (c *countingSmooth) Gradient(dst, x *mat.VecDense) float64 {
	c.grads++
	return c.quadratic.Gradient(dst, x)
}

func TestQuadraticScenario(t *testing.T) {

	c := mat.NewVecDense(2, []float64{3, 4})
	p := Problem{
		F:    quadratic{l: 1, c: c},
		Lf:   1,
		Stop: Termination{MaxIterations: 200, Tolerance: 1e-8},
	}

	s, err := p.New(nil)
	require.NoError(t, err)

	r := s.Fit(mat.NewVecDense(2, nil))
	require.True(t, r.Converged)
	require.Less(t, r.NumIter, 200)
	require.InDelta(t, 3, r.Y.AtVec(0), 1e-8)
	require.InDelta(t, 4, r.Y.AtVec(1), 1e-8)
}

func TestConservativeLipschitz(t *testing.T) {

	// Overestimating L𝒇 shortens the stepsize, so the minimizer is only
	// approached geometrically instead of being hit in one prox step.
	c := mat.NewVecDense(3, []float64{1, -2, 5})
	p := Problem{
		F:    quadratic{l: 1, c: c},
		Lf:   10,
		Stop: Termination{MaxIterations: 500, Tolerance: 1e-10},
	}

	s, err := p.New(nil)
	require.NoError(t, err)

	r := s.Fit(mat.NewVecDense(3, nil))
	require.True(t, r.Converged)
	require.Greater(t, r.NumIter, 1)
	require.Less(t, r.NumIter, 500)
	for i := 0; i < 3; i++ {
		require.InDelta(t, c.AtVec(i), r.Y.AtVec(i), 1e-5)
	}
}

func TestSoftThresholdComposite(t *testing.T) {

	// minimize ½‖𝐱 - 𝐜‖² + λ‖𝐱‖₁ has the closed-form solution 𝚜𝚘𝚏𝚝(𝐜, λ).
	c := mat.NewVecDense(3, []float64{3, -2, 0.2})
	p := Problem{
		F:    quadratic{l: 1, c: c},
		H:    l1{lam: 0.5},
		Lf:   1,
		Stop: Termination{MaxIterations: 100, Tolerance: 1e-8},
	}

	s, err := p.New(nil)
	require.NoError(t, err)

	r := s.Fit(mat.NewVecDense(3, nil))
	require.True(t, r.Converged)
	require.InDelta(t, 2.5, r.Y.AtVec(0), 1e-8)
	require.InDelta(t, -1.5, r.Y.AtVec(1), 1e-8)
	require.InDelta(t, 0, r.Y.AtVec(2), 1e-8)
}

func TestStronglyConvex(t *testing.T) {

	c := mat.NewVecDense(2, []float64{-1, 2})
	p := Problem{
		F:    quadratic{l: 1, c: c},
		Lf:   10,
		Mu:   1,
		Stop: Termination{MaxIterations: 500, Tolerance: 1e-10},
	}

	s, err := p.New(nil)
	require.NoError(t, err)

	r := s.Fit(mat.NewVecDense(2, nil))
	require.True(t, r.Converged)
	require.InDelta(t, -1, r.Y.AtVec(0), 1e-5)
	require.InDelta(t, 2, r.Y.AtVec(1), 1e-5)
}

func TestZeroIterations(t *testing.T) {

	f := &countingSmooth{quadratic: quadratic{l: 1, c: mat.NewVecDense(2, []float64{3, 4})}}
	p := Problem{
		F:    f,
		Lf:   1,
		Stop: Termination{MaxIterations: -1},
	}

	s, err := p.New(nil)
	require.NoError(t, err)

	y0 := mat.NewVecDense(2, []float64{7, 8})
	r := s.Fit(y0)
	require.Equal(t, 0, r.NumIter)
	require.False(t, r.Converged)
	require.True(t, math.IsNaN(r.Residual))
	require.True(t, mat.Equal(y0, r.Y))
	require.Equal(t, 0, f.grads)
}

func TestIterationCapExhaustion(t *testing.T) {

	c := mat.NewVecDense(2, []float64{3, 4})
	p := Problem{
		F:    quadratic{l: 1, c: c},
		Lf:   50,
		Stop: Termination{MaxIterations: 3, Tolerance: 1e-12},
	}

	s, err := p.New(nil)
	require.NoError(t, err)

	// Hitting the cap is not an error: the last iterate comes back with
	// its residual so the caller can judge it.
	r := s.Fit(mat.NewVecDense(2, nil))
	require.Equal(t, 3, r.NumIter)
	require.False(t, r.Converged)
	require.Greater(t, r.Residual, 1e-12)
}

func TestDefaults(t *testing.T) {

	p := Problem{Lf: 1}
	s, err := p.New(nil)
	require.NoError(t, err)

	require.Equal(t, 1000, s.stop.MaxIterations)
	require.Equal(t, 1e-6, s.stop.Tolerance)
	require.Equal(t, Classic, s.stop.Criterion)
	require.Equal(t, 10, s.freq)
	require.NotNil(t, s.f)
	require.NotNil(t, s.h)
}

func TestValidation(t *testing.T) {

	for _, p := range []Problem{
		{},
		{Lf: -1},
		{Lf: math.NaN()},
		{Lf: math.Inf(1)},
		{Lf: 1, Mu: -0.5},
		{Lf: 1, Stop: Termination{Tolerance: -1}},
	} {
		_, err := p.New(nil)
		require.Error(t, err)
	}
}

func TestOverride(t *testing.T) {

	base := Termination{MaxIterations: 1000, Tolerance: 1e-6}
	over := base.Override(Termination{Tolerance: 1e-9, Criterion: AIPP})

	require.Equal(t, 1000, over.MaxIterations)
	require.Equal(t, 1e-9, over.Tolerance)
	require.Equal(t, AIPP, over.Criterion)
	require.Equal(t, Termination{MaxIterations: 1000, Tolerance: 1e-6}, base)
}

func TestVerboseReport(t *testing.T) {

	var buf bytes.Buffer
	c := mat.NewVecDense(2, []float64{3, 4})
	p := Problem{
		F:       quadratic{l: 1, c: c},
		Lf:      10,
		Stop:    Termination{MaxIterations: 500, Tolerance: 1e-10},
		Verbose: true,
		Freq:    1,
	}

	s, err := p.New(&Logger{Msg: &buf})
	require.NoError(t, err)
	r := s.Fit(mat.NewVecDense(2, nil))
	require.True(t, r.Converged)
	require.Less(t, r.NumIter, 500)

	lines := regexp.MustCompile(`(?m)^ *\d+ \| \d\.\d{3}e[+-]\d+$`).FindAllString(buf.String(), -1)
	require.Len(t, lines, r.NumIter)
	require.Regexp(t, `^    1 \| `, buf.String())
}

func TestAdaptiveFlagNoop(t *testing.T) {

	c := mat.NewVecDense(2, []float64{3, 4})
	run := func(adaptive bool) *Result {
		p := Problem{
			F:        quadratic{l: 1, c: c},
			Lf:       10,
			Adaptive: adaptive,
			Stop:     Termination{MaxIterations: 100, Tolerance: 1e-9},
		}
		s, err := p.New(nil)
		require.NoError(t, err)
		return s.Fit(mat.NewVecDense(2, nil))
	}

	plain, flagged := run(false), run(true)
	require.Equal(t, plain.NumIter, flagged.NumIter)
	require.Equal(t, plain.Residual, flagged.Residual)
	require.True(t, mat.Equal(plain.Y, flagged.Y))
}

func TestFitPanics(t *testing.T) {

	p := Problem{Lf: 1}
	s, err := p.New(nil)
	require.NoError(t, err)

	require.Panics(t, func() { s.Fit(nil) })
	require.Panics(t, func() { s.Fit(mat.NewVecDense(2, []float64{1, math.NaN()})) })
}
