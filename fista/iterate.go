// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fista

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// iterState carries every per-iteration quantity of the accelerated method.
// A single instance is seeded per solve and overwritten in place by each
// step: no history beyond the Prev fields is retained, so the memory
// footprint stays constant over the whole run.
type iterState struct {
	lambda  float64 // Stepsize λ, fixed to 1/L𝒇.
	tau, a  float64 // Helper scalars of the current step.
	accPrev float64 // Accumulated weight Aₖ₋₁ (A₀ = 1).
	acc     float64 // Accumulated weight Aₖ, non-decreasing.

	y0       *mat.VecDense // Seed point, referenced by the AIPP criterion.
	yPrev, y *mat.VecDense // Previous and current main iterate.
	xPrev, x *mat.VecDense // Previous and current auxiliary iterate.
	xt       *mat.VecDense // Extrapolated prox center of the current step.

	gradfXt *mat.VecDense // 𝜵𝒇(𝐱ᵗ), cached for the convergence check.
	gradfY  *mat.VecDense // 𝜵𝒇(𝐲), cached for the convergence check.

	scratch *mat.VecDense // Temporary for vector arithmetic during advance.
}

func newIterState(spec *iterSpec, y0 *mat.VecDense) *iterState {
	n := y0.Len()
	return &iterState{
		lambda:  1 / spec.lf,
		accPrev: 1,
		y0:      mat.VecDenseCopyOf(y0),
		yPrev:   mat.VecDenseCopyOf(y0),
		y:       mat.VecDenseCopyOf(y0),
		xPrev:   mat.VecDenseCopyOf(y0),
		x:       mat.VecDenseCopyOf(y0),
		xt:      mat.NewVecDense(n, nil),
		gradfXt: mat.NewVecDense(n, nil),
		gradfY:  mat.NewVecDense(n, nil),
		scratch: mat.NewVecDense(n, nil),
	}
}

// advance computes the next state in place.
//
// The weight increment aₖ is the positive root of aₖ² = τₖ·(aₖ + Aₖ₋₁)
// with τₖ = λ·(1 + μ·Aₖ₋₁); since τₖ ≥ 0 the discriminant is non-negative
// and aₖ ≥ 0, so Aₖ never decreases.
//
// Two gradient calls and one prox call per step, no other side effects.
func (s *iterState) advance(spec *iterSpec) {

	s.tau = s.lambda * (1 + spec.mu*s.accPrev)
	s.a = (s.tau + math.Sqrt(s.tau*s.tau+4*s.tau*s.accPrev)) / 2
	s.acc = s.accPrev + s.a

	// 𝐱ᵗ = (Aₖ₋₁/Aₖ)·𝐲ₖ₋₁ + (aₖ/Aₖ)·𝐱ₖ₋₁
	s.xt.ScaleVec(s.accPrev/s.acc, s.yPrev)
	s.xt.AddScaledVec(s.xt, s.a/s.acc, s.xPrev)

	spec.f.Gradient(s.gradfXt, s.xt)

	// Effective stepsize accounting for strong convexity.
	lambda2 := s.lambda / (1 + s.lambda*spec.mu)

	// 𝐲ₖ = 𝚙𝚛𝚘𝚡_{λ₂𝒉}(𝐱ᵗ - λ₂·𝜵𝒇(𝐱ᵗ))
	s.scratch.AddScaledVec(s.xt, -lambda2, s.gradfXt)
	spec.h.Prox(s.y, s.scratch, lambda2)

	spec.f.Gradient(s.gradfY, s.y)

	// 𝐱ₖ = 𝐱ₖ₋₁ + aₖ/(1 + Aₖμ) · ((𝐲ₖ - 𝐱ᵗ)/λ + μ·(𝐲ₖ - 𝐱ₖ₋₁))
	s.scratch.SubVec(s.y, s.xt)
	s.scratch.ScaleVec(1/s.lambda, s.scratch)
	s.scratch.AddScaledVec(s.scratch, spec.mu, s.y)
	s.scratch.AddScaledVec(s.scratch, -spec.mu, s.xPrev)
	s.x.AddScaledVec(s.xPrev, s.a/(1+s.acc*spec.mu), s.scratch)

	s.yPrev.CopyVec(s.y)
	s.xPrev.CopyVec(s.x)
	s.accPrev = s.acc
}
