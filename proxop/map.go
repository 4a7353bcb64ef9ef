// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package proxop

import "gonum.org/v1/gonum/mat"

// LinearMap is a bounded linear operator 𝐀 : ℝⁿ → ℝᵐ together with its adjoint.
// Implementations must resize an empty destination vector.
type LinearMap interface {
	// Apply stores 𝐀𝐱 into dst.
	Apply(dst, x *mat.VecDense)
	// Adjoint stores 𝐀ᵀ𝐲 into dst.
	Adjoint(dst, y *mat.VecDense)
}

// Identity is the no-op linear map.
type Identity struct{}

func (Identity) Apply(dst, x *mat.VecDense)   { dst.CloneFromVec(x) }
func (Identity) Adjoint(dst, y *mat.VecDense) { dst.CloneFromVec(y) }

// MatrixMap adapts a gonum matrix into a LinearMap.
type MatrixMap struct {
	M mat.Matrix
}

func (m MatrixMap) Apply(dst, x *mat.VecDense)   { dst.MulVec(m.M, x) }
func (m MatrixMap) Adjoint(dst, y *mat.VecDense) { dst.MulVec(m.M.T(), y) }
