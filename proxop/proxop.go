// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package proxop defines the oracle contracts consumed by the proximal
// gradient solvers: a smooth term queried through its gradient and a
// non-smooth term queried through its proximal mapping.
//
// Concrete objective terms are supplied by the caller. The package only
// ships the Zero stand-in for an absent term and linear-map adapters.
package proxop

import "gonum.org/v1/gonum/mat"

// Smooth is a differentiable convex term 𝒇 : ℝⁿ → ℝ with Lipschitz-continuous gradient.
type Smooth interface {
	// Eval returns 𝒇(𝐱).
	Eval(x *mat.VecDense) float64
	// Gradient stores 𝜵𝒇(𝐱) into dst and returns 𝒇(𝐱).
	// dst must have the same length as x.
	Gradient(dst, x *mat.VecDense) float64
}

// Proximable is a convex term 𝒉 : ℝⁿ → ℝ∪{+∞} with a cheap proximal mapping.
type Proximable interface {
	// Prox stores the minimizer of 𝒉(𝐮) + ‖𝐮-𝐱‖²/2γ into dst
	// and returns the value of 𝒉 at that minimizer.
	Prox(dst, x *mat.VecDense, gamma float64) float64
}

// Zero stands in for an absent objective term:
//   - as a Smooth it is constantly 0 with zero gradient
//   - as a Proximable its proximal mapping is the identity
type Zero struct{}

func (Zero) Eval(*mat.VecDense) float64 { return 0 }

func (Zero) Gradient(dst, x *mat.VecDense) float64 {
	dst.ScaleVec(0, x)
	return 0
}

func (Zero) Prox(dst, x *mat.VecDense, _ float64) float64 {
	dst.CloneFromVec(x)
	return 0
}
