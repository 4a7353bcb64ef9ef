// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fista

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)

// Denominator clamp of the AIPP rule. Kept bit-for-bit: changing it
// changes which iterate a run selects.
const denFloor = 1e-16

// checkConvergence evaluates the configured termination criterion on the
// current state. The state is never mutated: evaluating twice on the same
// state yields the identical pair.
func (s *iterState) checkConvergence(spec *iterSpec) (residual float64, converged bool) {
	switch spec.stop.Criterion {
	case AIPP:
		residual = s.aippResidual()
	default:
		// Unrecognized selectors keep the classic rule.
		residual = s.classicResidual(spec.lf)
	}
	tol := spec.stop.Tolerance
	converged = residual <= tol || scalar.EqualWithinAbsOrRel(residual, tol, 0, sqrtEps)
	return
}

// classicResidual reports ‖𝜵𝒇(𝐲) - 𝜵𝒇(𝐱ᵗ) + L𝒇·(𝐱ᵗ - 𝐲)‖, reusing the
// gradients cached by the last advance.
func (s *iterState) classicResidual(lf float64) float64 {
	r := mat.NewVecDense(s.y.Len(), nil)
	r.SubVec(s.gradfY, s.gradfXt)
	r.AddScaledVec(r, lf, s.xt)
	r.AddScaledVec(r, -lf, s.y)
	return mat.Norm(r, 2)
}

// aippResidual reports the relative AIPP measure
//
//	(‖𝐫‖² + 𝚖𝚊𝚡(η,0)) / 𝚖𝚊𝚡(‖𝐲₀ - 𝐲 + 𝐫‖², 1e-16)
//
// with 𝐫 = (𝐲₀ - 𝐱)/A and η = (‖𝐲₀ - 𝐲‖² - ‖𝐱 - 𝐲‖²)/2A.
func (s *iterState) aippResidual() float64 {
	n := s.y.Len()

	r := mat.NewVecDense(n, nil)
	r.SubVec(s.y0, s.x)
	r.ScaleVec(1/s.acc, r)

	d := mat.NewVecDense(n, nil)
	d.SubVec(s.y0, s.y) // 𝐲₀ - 𝐲
	e := mat.NewVecDense(n, nil)
	e.SubVec(s.x, s.y) // 𝐱 - 𝐲

	eta := (mat.Dot(d, d) - mat.Dot(e, e)) / (2 * s.acc)
	num := mat.Dot(r, r) + math.Max(eta, 0)

	d.AddVec(d, r) // 𝐲₀ - 𝐲 + 𝐫
	den := math.Max(mat.Dot(d, d), denFloor)
	return num / den
}
