package loadflow

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/voltlab/powerflow/network"
	"github.com/voltlab/powerflow/ybus"
)

// diagTol is the magnitude below which a diagonal admittance entry is
// treated as zero, i.e. a bus with no remaining ties.
const diagTol = 1e-12

// Solve runs Gauss-Seidel sweeps on net against the admittance matrix y
// until the maximum power mismatch drops below the tolerance or the sweep
// budget is exhausted.
//
// Preconditions and validation (in order):
//  1. Options must be well-formed                → ErrOptionViolation.
//  2. net must be non-nil                        → ErrNilNetwork.
//  3. y must be non-nil                          → ErrNilMatrix.
//  4. y.Dim() == bus count, warm start length ok → ErrDimensionMismatch.
//  5. No zero diagonal, matrix connected         → ErrNetworkSplit.
//
// Non-convergence and divergence are values on the returned Solution, not
// errors. The solver reads net and y and writes only its own state, so
// concurrent Solve calls may share both.
//
// Complexity: O(maxIterations · n²) time, O(n) extra memory.
func Solve(net *network.Network, y *ybus.Matrix, opts ...Option) (*Solution, error) {
	// 1) Resolve and validate options.
	cfg := DefaultOptions()
	var opt Option
	for _, opt = range opts {
		opt(&cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}

	// 2) Validate network.
	if net == nil {
		return nil, ErrNilNetwork
	}

	// 3) Validate matrix.
	if y == nil {
		return nil, ErrNilMatrix
	}

	// 4) Validate dimensions.
	n := net.NumBuses()
	if y.Dim() != n {
		return nil, fmt.Errorf("%w: matrix %d×%d vs %d buses", ErrDimensionMismatch, y.Dim(), y.Dim(), n)
	}
	if cfg.initial != nil && len(cfg.initial) != n {
		return nil, fmt.Errorf("%w: warm start length %d vs %d buses", ErrDimensionMismatch, len(cfg.initial), n)
	}

	// 5) Reject a structurally singular matrix before any iteration.
	var (
		i int
		d complex128
	)
	for i = 0; i < n; i++ {
		d, _ = y.At(i, i)
		if cmplx.Abs(d) <= diagTol {
			return nil, fmt.Errorf("%w: bus %q has no ties", ErrNetworkSplit, net.Bus(i).ID)
		}
	}
	if !y.Connected() {
		return nil, fmt.Errorf("%w: admittance matrix is disconnected", ErrNetworkSplit)
	}

	// 6) Iterate.
	s := &sweeper{net: net, y: y, cfg: cfg, n: n}
	s.init()

	return s.run(), nil
}

// sweeper carries the mutable per-solve state. A fresh sweeper is built for
// every Solve call; nothing survives between invocations.
type sweeper struct {
	net *network.Network
	y   *ybus.Matrix
	cfg Options

	n int
	v []complex128 // current voltage estimates, bus input order
}

// init seeds the voltage vector: warm start when provided, otherwise the
// flat start from each bus's set-point (magnitude defaults to 1.0 pu when
// the input left it unset). The slack phasor is pinned to its set-point in
// both cases; it is fixed at input and never mutated afterwards.
func (s *sweeper) init() {
	s.v = make([]complex128, s.n)
	if s.cfg.initial != nil {
		copy(s.v, s.cfg.initial) // cfg.initial is already a private copy
	} else {
		var i int
		for i = 0; i < s.n; i++ {
			s.v[i] = setPoint(s.net.Bus(i))
		}
	}
	s.v[s.net.Slack()] = setPoint(s.net.Bus(s.net.Slack()))
}

// setPoint returns the input phasor of a bus with the magnitude clamped to
// 1.0 pu when unset.
func setPoint(b network.Bus) complex128 {
	mag := b.VoltageMag
	if mag <= 0 {
		mag = 1.0
	}

	return cmplx.Rect(mag, b.VoltageAngle)
}

// run executes sweeps until convergence, divergence, or budget exhaustion
// and assembles the Solution.
func (s *sweeper) run() *Solution {
	sol := &Solution{
		MismatchP: make([]float64, s.n),
		MismatchQ: make([]float64, s.n),
	}

	var (
		it    int
		delta float64
	)
	for it = 1; it <= s.cfg.maxIterations; it++ {
		delta = s.sweep()
		sol.MaxVoltageDelta = delta

		if !s.finite() {
			// The iterate blew up; report divergence, keep the last finite
			// bookkeeping out of the mismatch arrays.
			sol.Diverged = true
			sol.Iterations = it
			sol.MaxMismatch = math.Inf(1)
			sol.Voltages = append([]complex128(nil), s.v...)

			return sol
		}

		sol.MaxMismatch = s.mismatch(sol.MismatchP, sol.MismatchQ)
		if sol.MaxMismatch < s.cfg.tolerance {
			sol.Converged = true
			sol.Iterations = it
			sol.Voltages = append([]complex128(nil), s.v...)

			return sol
		}
	}

	// Budget exhausted: a normal, reportable outcome.
	sol.Iterations = s.cfg.maxIterations
	sol.Voltages = append([]complex128(nil), s.v...)

	return sol
}

// sweep performs one full Gauss-Seidel pass in bus input order and returns
// the largest per-bus voltage change (diagnostic only).
//
// PQ update: V_i ← (conj(S_i)/conj(V_i) − Σ_{j≠i} Y_ij·V_j) / Y_ii, where
// S_i is the scheduled injection ZIP-scaled at the current |V_i|.
// PV update: the same formula with S = P_sched + j·Q_implied, after which
// the magnitude is rescaled to the set-point and only the angle survives.
// Slack: skipped.
func (s *sweeper) sweep() float64 {
	var (
		i          int
		bus        network.Bus
		old, cand  complex128
		sum, diag  complex128
		sched      network.Power
		schedC     complex128
		full       complex128
		mag, delta float64
		maxDelta   float64
	)
	for i = 0; i < s.n; i++ {
		bus = s.net.Bus(i)
		if bus.Type == network.Slack {
			continue
		}

		old = s.v[i]
		sum, _ = s.y.RowDot(i, s.v, i) // Σ_{j≠i} Y_ij·V_j, latest estimates
		diag, _ = s.y.At(i, i)

		switch bus.Type {
		case network.PQ:
			sched = s.scheduled(i, cmplx.Abs(old))
			schedC = complex(sched.P, sched.Q)
			cand = (cmplx.Conj(schedC)/cmplx.Conj(old) - sum) / diag
			s.v[i] = cand

		case network.PV:
			// Implied reactive power at the present estimates:
			// S = V·conj(Y·V) row-wise, Q = Im(S).
			full = sum + diag*old
			schedC = complex(bus.Injection().P, imag(old*cmplx.Conj(full)))
			cand = (cmplx.Conj(schedC)/cmplx.Conj(old) - sum) / diag
			// Hold the magnitude at the set-point, keep the new angle.
			mag = bus.VoltageMag
			if mag <= 0 {
				mag = 1.0
			}
			s.v[i] = cmplx.Rect(mag, cmplx.Phase(cand))
		}

		delta = cmplx.Abs(s.v[i] - old)
		if delta > maxDelta {
			maxDelta = delta
		}
	}

	return maxDelta
}

// scheduled returns the net scheduled injection of bus i at voltage
// magnitude mag. ZIP scaling applies to the load of PQ buses only; PV and
// slack loads enter at constant power.
func (s *sweeper) scheduled(i int, mag float64) network.Power {
	bus := s.net.Bus(i)
	g, l := bus.ScheduledGen(), bus.ScheduledLoad()

	f := 1.0
	if bus.Type == network.PQ {
		f = s.cfg.zipFactor(mag)
	}

	return network.Power{P: g.P - l.P*f, Q: g.Q - l.Q*f}
}

// mismatch computes, for every non-slack bus, the difference between the
// scheduled injection at the current voltage and the injection implied by
// the current phasors (S_calc = V·conj(Y·V) row-wise), writes the per-bus
// values into dp/dq, and returns the maximum absolute mismatch. PV buses
// contribute only their real-power term: their reactive power floats by
// design (reactive-limit enforcement is out of scope).
func (s *sweeper) mismatch(dp, dq []float64) float64 {
	injected, _ := s.y.MulVec(s.v)

	var (
		i     int
		bus   network.Bus
		calc  complex128
		sched network.Power
		worst float64
	)
	for i = 0; i < s.n; i++ {
		bus = s.net.Bus(i)
		if bus.Type == network.Slack {
			dp[i], dq[i] = 0, 0

			continue
		}

		calc = s.v[i] * cmplx.Conj(injected[i])
		sched = s.scheduled(i, cmplx.Abs(s.v[i]))

		dp[i] = sched.P - real(calc)
		if bus.Type == network.PV {
			dq[i] = 0
		} else {
			dq[i] = sched.Q - imag(calc)
		}

		if a := math.Abs(dp[i]); a > worst {
			worst = a
		}
		if a := math.Abs(dq[i]); a > worst {
			worst = a
		}
	}

	return worst
}

// finite reports whether every voltage component is a finite number.
func (s *sweeper) finite() bool {
	var i int
	for i = 0; i < s.n; i++ {
		re, im := real(s.v[i]), imag(s.v[i])
		if math.IsNaN(re) || math.IsInf(re, 0) || math.IsNaN(im) || math.IsInf(im, 0) {
			return false
		}
	}

	return true
}
