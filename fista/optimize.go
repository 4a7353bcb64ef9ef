// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fista implements a generalized accelerated proximal-gradient
// method for composite convex objectives
//
//	minimize 𝒇(𝐱) + 𝒉(𝐱)
//
// where 𝒇 is smooth (possibly strongly convex) with an L𝒇-Lipschitz
// gradient and 𝒉 is proximable. The acceleration follows the weight
// sequence Aₖ of the FISTA family: every step blends the previous main
// and auxiliary iterates into a prox center 𝐱ᵗ, performs one proximal
// gradient step from it and advances the auxiliary iterate along the
// scaled correction.
//
// # Reference
//
//   - https://github.com/JuliaFirstOrder/ProximalAlgorithms.jl
package fista

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/proxgrad/proxop"
)

// Logger handles status output for the solver.
type Logger struct {
	Msg io.Writer // Writer to output status lines.
}

func (l *Logger) log(format string, a ...any) {
	_, _ = fmt.Fprintf(l.Msg, format, a...)
}

// Criterion selects the termination semantics of the convergence check.
type Criterion string

const (
	// Classic treats 𝐫 = 𝜵𝒇(𝐲) - 𝜵𝒇(𝐱ᵗ) + L𝒇·(𝐱ᵗ - 𝐲) as an approximate
	// first-order stationarity residual for 𝒇(𝐲) + 𝒉(𝐲) and reports its norm.
	Classic Criterion = ""
	// AIPP uses the relative termination rule of the accelerated inexact
	// proximal-point framework:
	//
	//	𝐫 = (𝐲₀ - 𝐱)/A
	//	η = (‖𝐲₀ - 𝐲‖² - ‖𝐱 - 𝐲‖²)/2A
	//	residual = (‖𝐫‖² + 𝚖𝚊𝚡(η,0)) / 𝚖𝚊𝚡(‖𝐲₀ - 𝐲 + 𝐫‖², 1e-16)
	AIPP Criterion = "AIPP"
)

// Termination specifies the stopping criteria for the solver.
type Termination struct {
	// The iteration stop when the number of iteration exceeds limit.
	// Zero selects the default of 1000, a negative limit runs no
	// iteration at all and hands the seed point back unchanged.
	MaxIterations int
	// The iteration stop when the residual drops to the tolerance,
	// up to floating-point rounding at the tolerance scale.
	// Zero selects the default of 1e-6.
	Tolerance float64
	// Criterion selects the residual formula.
	// Any unrecognized value falls back to Classic.
	Criterion Criterion
}

// Override returns a copy of t with every non-zero field of o applied on top.
func (t Termination) Override(o Termination) Termination {
	if o.MaxIterations != 0 {
		t.MaxIterations = o.MaxIterations
	}
	if o.Tolerance != 0 {
		t.Tolerance = o.Tolerance
	}
	if o.Criterion != "" {
		t.Criterion = o.Criterion
	}
	return t
}

// Problem specifies a composite objective 𝒇(𝐱) + 𝒉(𝐱) for the solver.
type Problem struct {
	F  proxop.Smooth     // Smooth term 𝒇 (nil selects the zero function)
	H  proxop.Proximable // Proximable term 𝒉 (nil selects the zero function)
	Lf float64           // Upper bound on the Lipschitz constant of 𝜵𝒇 (required, > 0)
	Mu float64           // Strong-convexity modulus of 𝒇 (≥ 0, 0 means purely convex)
	// Adaptive is reserved for stepsize adaptation.
	// The iteration currently ignores it.
	Adaptive bool
	Stop     Termination // Stop condition
	Verbose  bool        // Whether to print a periodic status line
	Freq     int         // Iterations between status lines (default MaxIterations/100)
}

// iterSpec is the read-only configuration shared by the iteration,
// the convergence check and the driver.
type iterSpec struct {
	f        proxop.Smooth
	h        proxop.Proximable
	lf, mu   float64
	adaptive bool
	stop     Termination
	verbose  bool
	freq     int
	logger   Logger
}

// Solver implemented using the accelerated proximal-gradient method.
type Solver struct {
	iterSpec
}

// Result contains the final result of the optimization process.
type Result struct {
	Y         *mat.VecDense // Final main iterate.
	Residual  float64       // Residual at the final iterate (NaN when no iteration ran).
	NumIter   int           // Number of iterations performed.
	Converged bool          // Whether the criterion was met before the iteration cap.
}

// New creates a new accelerated proximal-gradient solver for given problem.
func (p *Problem) New(logger *Logger) (solver *Solver, err error) {

	if logger == nil {
		logger = new(Logger)
	}
	if logger.Msg == nil {
		logger.Msg = os.Stdout
	}

	stop := p.Stop
	if stop.MaxIterations == 0 {
		stop.MaxIterations = 1000
	}
	if stop.MaxIterations < 0 {
		stop.MaxIterations = 0
	}
	if stop.Tolerance == 0 {
		stop.Tolerance = 1e-6
	}

	freq := p.Freq
	if freq <= 0 {
		freq = max(stop.MaxIterations/100, 1)
	}

	f, h := p.F, p.H
	if f == nil {
		f = proxop.Zero{}
	}
	if h == nil {
		h = proxop.Zero{}
	}

	switch {
	case math.IsNaN(p.Lf) || math.IsInf(p.Lf, 0) || p.Lf <= 0:
		err = errors.New("smoothness constant Lf must be finite and greater than 0")
	case math.IsNaN(p.Mu) || p.Mu < 0:
		err = errors.New("strong convexity modulus must not be less than 0")
	case math.IsNaN(stop.Tolerance) || stop.Tolerance < 0:
		err = errors.New("tolerance must not be less than 0")
	}
	if err != nil {
		return
	}

	solver = &Solver{
		iterSpec{
			f: f, h: h,
			lf: p.Lf, mu: p.Mu,
			adaptive: p.Adaptive,
			stop:     stop,
			verbose:  p.Verbose,
			freq:     freq,
			logger:   *logger,
		},
	}
	return
}

// Fit runs the iteration from the initial point y0 until the convergence
// criterion holds or the iteration cap is exhausted. Hitting the cap is not
// an error: the last iterate is returned and the residual on the Result
// tells the caller how far it is from stationarity.
//
// y0 must lie in the domain of 𝒉. Failures raised by the oracles propagate
// unmodified to the caller.
func (s *Solver) Fit(y0 *mat.VecDense) *Result {

	if y0 == nil || y0.Len() == 0 {
		panic("initial point is required")
	}
	for i := 0; i < y0.Len(); i++ {
		if v := y0.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			panic("initial point must be finite")
		}
	}

	driver := iterDriver{
		spec:  &s.iterSpec,
		state: newIterState(&s.iterSpec, y0),
	}
	return driver.mainLoop()
}
