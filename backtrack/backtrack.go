// Package backtrack estimates a locally valid smoothness constant for a
// smooth term by adaptive stepsize search: a candidate stepsize is shrunk
// geometrically until a quadratic majorization bound on the smooth term
// holds at the proximal point it induces.
//
// The routine is independent of any particular solver. Algorithms that
// need a local Lipschitz estimate invoke it with their current iterate and
// the precomputed gradient data at that iterate.
//
// # Reference
//
//   - https://github.com/JuliaFirstOrder/ProximalAlgorithms.jl
package backtrack

import (
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/proxgrad/proxop"
)

var epsilon = math.Nextafter(1, 2) - 1

// ErrStepsizeFloor reports that the search hit the minimum stepsize before
// the majorization bound held. The condition is not fatal: the accepted
// stepsize is still returned and may be sub-optimal, correctness of its
// subsequent use is up to the caller.
var ErrStepsizeFloor = errors.New("stepsize reached the minimum allowed")

// Search configures the backtracking stepsize search.
type Search struct {
	// Trust parameter scaling the quadratic model (default 1).
	Alpha float64
	// Floor under which the stepsize is not shrunk further (default 1e-7).
	MinStepsize float64
	// Destination for the floor diagnostic. Discarded when nil.
	Warn io.Writer
}

// Step is the outcome of a stepsize search.
type Step struct {
	Gamma  float64       // Accepted stepsize.
	Z      *mat.VecDense // Proximal point induced by the accepted stepsize.
	GZ     float64       // 𝒈 value at Z.
	FAZ    float64       // 𝒇 value at 𝐀Z.
	FModel float64       // Quadratic model value bounding 𝒇(𝐀Z) from above.
}

// Stepsize shrinks the trial stepsize γ until the majorization bound
//
//	𝒇(𝐀𝐳) ≤ 𝒇(𝐀𝐱) - ⟨𝐀ᵀ𝜵𝒇(𝐀𝐱), 𝐱-𝐳⟩ + (α/γ)·‖𝐱-𝐳‖²/2
//
// holds at 𝐳 = 𝚙𝚛𝚘𝚡_{γ𝒈}(𝐱 - γ·𝐀ᵀ𝜵𝒇(𝐀𝐱)), halving γ on every violation
// beyond a rounding allowance of 10·𝛆·(1+|𝒇(𝐀𝐳)|). The shrink stops when
// the bound holds or γ drops below the configured floor, in which case the
// returned error wraps ErrStepsizeFloor and the Step is still valid.
//
// The caller supplies the precomputed quantities fAx = 𝒇(𝐀𝐱) and
// atGradfAx = 𝐀ᵀ𝜵𝒇(𝐀𝐱). A nil map stands for the identity. When gradDst
// is not nil the gradient of 𝒇 at the finally accepted 𝐀𝐳 is written into
// it, saving the caller a redundant gradient evaluation on its next step.
func (s *Search) Stepsize(gamma float64, f proxop.Smooth, a proxop.LinearMap, g proxop.Proximable,
	x *mat.VecDense, fAx float64, atGradfAx, gradDst *mat.VecDense) (Step, error) {

	alpha := s.Alpha
	if alpha == 0 {
		alpha = 1
	}
	minGamma := s.MinStepsize
	if minGamma == 0 {
		minGamma = 1e-7
	}
	if a == nil {
		a = proxop.Identity{}
	}

	n := x.Len()
	center := mat.NewVecDense(n, nil) // prox center 𝐱 - γ·𝐀ᵀ𝜵𝒇(𝐀𝐱)
	z := mat.NewVecDense(n, nil)
	res := mat.NewVecDense(n, nil) // 𝐱 - 𝐳
	var az mat.VecDense

	var gz, fAz, fModel float64
	eval := func() {
		center.AddScaledVec(x, -gamma, atGradfAx)
		gz = g.Prox(z, center, gamma)
		res.SubVec(x, z)
		fModel = fAx - mat.Dot(atGradfAx, res) + (alpha/gamma)*mat.Dot(res, res)/2
		a.Apply(&az, z)
		fAz = f.Eval(&az)
	}

	eval()
	for fAz > fModel+10*epsilon*(1+math.Abs(fAz)) && gamma >= minGamma {
		gamma /= 2
		eval()
	}

	var err error
	if gamma < minGamma {
		if s.Warn != nil {
			_, _ = fmt.Fprintf(s.Warn, "backtrack: stepsize became too small (%g)\n", gamma)
		}
		err = errors.WithStack(ErrStepsizeFloor)
	}

	if gradDst != nil {
		f.Gradient(gradDst, &az)
	}

	return Step{Gamma: gamma, Z: z, GZ: gz, FAZ: fAz, FModel: fModel}, err
}

// LowerBoundSmoothness perturbs x by a unit offset in every coordinate,
// evaluates the gradient difference over the map and divides its norm by
// the norm √n of the perturbation, yielding a cheap empirical lower bound
// on the local Lipschitz constant of 𝜵(𝒇∘𝐀). Intended for sanity-checking
// an assumed L𝒇, not for control flow.
func LowerBoundSmoothness(f proxop.Smooth, a proxop.LinearMap, x, gradfAx *mat.VecDense) float64 {
	if a == nil {
		a = proxop.Identity{}
	}

	n := x.Len()
	xeps := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		xeps.SetVec(i, x.AtVec(i)+1)
	}

	var axeps mat.VecDense
	a.Apply(&axeps, xeps)

	grad := mat.NewVecDense(axeps.Len(), nil)
	f.Gradient(grad, &axeps)
	grad.SubVec(grad, gradfAx)

	var diff mat.VecDense
	a.Adjoint(&diff, grad)
	return mat.Norm(&diff, 2) / math.Sqrt(float64(n))
}
