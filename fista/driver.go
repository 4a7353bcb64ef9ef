// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fista

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// iterDriver pulls states from the iteration one at a time, feeding each
// into the convergence check to decide whether to halt and, when verbose
// output is requested, into the periodic reporter.
type iterDriver struct {
	spec  *iterSpec
	state *iterState
}

// mainLoop drains the iteration until the criterion holds or the cap is
// reached. Iteration indices are 1-based; a zero cap returns the seed
// point without touching the oracles.
func (d *iterDriver) mainLoop() *Result {

	spec, s := d.spec, d.state

	iter := 0
	residual, converged := math.NaN(), false
	for iter < spec.stop.MaxIterations {
		iter++
		s.advance(spec)
		residual, converged = s.checkConvergence(spec)
		if spec.verbose && iter%spec.freq == 0 {
			spec.logger.log("%5d | %.3e\n", iter, residual)
		}
		if converged {
			break
		}
	}

	return &Result{
		Y:         mat.VecDenseCopyOf(s.y),
		Residual:  residual,
		NumIter:   iter,
		Converged: converged,
	}
}
