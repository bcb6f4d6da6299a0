package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/eglrp/my-gtsam/core"
)

// Step is the solution of a damped solve: a local-coordinate update per
// variable, to be applied through manifold retraction.
type Step struct {
	sys   *System
	delta *mat.VecDense
}

// Delta returns the tangent-space update for one variable.
func (st *Step) Delta(key core.Key) []float64 {
	o := st.sys.offsets[key]
	d := st.sys.dims[key]
	out := make([]float64, d)
	for i := 0; i < d; i++ {
		out[i] = st.delta.AtVec(o + i)
	}
	return out
}

// Norm returns ‖δ‖₂ over the whole step.
func (st *Step) Norm() float64 {
	return mat.Norm(st.delta, 2)
}

// Solve computes the Levenberg-Marquardt step
// (JᵀJ + λ·diag(JᵀJ))·δ = -Jᵀb. With λ=0 this is the plain Gauss-Newton
// step and fails with ErrUnderconstrained when the information matrix is
// rank deficient; with λ>0 the damping keeps the system well posed near
// singular Jacobians.
func (s *System) Solve(lambda float64) (*Step, error) {
	// Diagonal floor so that damping still regularizes coordinates whose
	// curvature is exactly zero.
	const minDiagonal = 1e-6

	damped := mat.NewSymDense(s.n, nil)
	damped.CopySym(s.hessian)
	if lambda > 0 {
		for i := 0; i < s.n; i++ {
			d := s.hessian.At(i, i)
			damped.SetSym(i, i, d+lambda*math.Max(d, minDiagonal))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(damped); !ok {
		return nil, fmt.Errorf("%w: information matrix is not positive definite (lambda=%g)", ErrUnderconstrained, lambda)
	}

	rhs := mat.NewVecDense(s.n, nil)
	rhs.ScaleVec(-1, s.gradient)
	delta := mat.NewVecDense(s.n, nil)
	if err := chol.SolveVecTo(delta, rhs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnderconstrained, err)
	}
	return &Step{sys: s, delta: delta}, nil
}
