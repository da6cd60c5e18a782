package report

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/voltlab/powerflow/loadflow"
	"github.com/voltlab/powerflow/network"
	"github.com/voltlab/powerflow/ybus"
)

// Assemble projects a solved state onto the engineering report.
//
// Stage 1 (Validate): nil checks, dimension agreement, option resolution.
// Stage 2 (Buses): magnitudes, angles, deviation and compliance per bus.
// Stage 3 (Branches): currents, flows, losses and loading per branch.
// Stage 4 (Summary): totals, violation counts, conservation self-check.
//
// A non-converged solution is assembled best-effort and flagged; only a
// converged solution that fails the conservation identity is an error
// (ErrPowerBalance), because that indicates an internal bug.
// Complexity: O(n² + L).
func Assemble(net *network.Network, y *ybus.Matrix, sol *loadflow.Solution, opts ...Option) (*Report, error) {
	// Stage 1: validate.
	cfg := DefaultOptions()
	var opt Option
	for _, opt = range opts {
		opt(&cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}
	if net == nil {
		return nil, ErrNilNetwork
	}
	if y == nil {
		return nil, ErrNilMatrix
	}
	if sol == nil {
		return nil, ErrNilSolution
	}
	n := net.NumBuses()
	if y.Dim() != n || len(sol.Voltages) != n {
		return nil, fmt.Errorf("%w: %d buses, matrix %d, solution %d",
			ErrDimensionMismatch, n, y.Dim(), len(sol.Voltages))
	}

	rep := &Report{
		Converged:   sol.Converged,
		Diverged:    sol.Diverged,
		Iterations:  sol.Iterations,
		MaxMismatch: sol.MaxMismatch,
		Buses:       make([]BusResult, n),
		Branches:    make([]BranchResult, net.NumBranches()),
	}

	if !sol.Converged {
		rep.Violations = append(rep.Violations, fmt.Sprintf(
			"load flow did not converge after %d iterations, largest mismatch %.6g pu; compliance conclusions below are unreliable",
			sol.Iterations, sol.MaxMismatch))
	}

	// Stage 2: per-bus records.
	var i int
	for i = 0; i < n; i++ {
		bus := net.Bus(i)
		mag := cmplx.Abs(sol.Voltages[i])
		dev := (mag - 1.0) * 100.0
		compliant := math.Abs(mag-1.0) <= cfg.band

		rep.Buses[i] = BusResult{
			ID:           bus.ID,
			VoltagePU:    mag,
			VoltageKV:    mag * net.BaseKV(),
			AngleDeg:     cmplx.Phase(sol.Voltages[i]) * 180.0 / math.Pi,
			DeviationPct: dev,
			Compliant:    compliant,
		}
		if !compliant {
			rep.Summary.VoltageViolations++
			rep.Violations = append(rep.Violations, fmt.Sprintf(
				"bus %s: voltage %.4f pu deviates %.2f%% from nominal (band ±%.1f%%)",
				bus.ID, mag, dev, cfg.band*100))
		}
	}

	// Stage 3: per-branch records.
	// Ampere base for a balanced positive-sequence per-unit system.
	iBase := net.BaseMVA() * 1e6 / (net.BaseKV() * 1e3)
	var b int
	for b = 0; b < net.NumBranches(); b++ {
		br := net.Branch(b)
		from, _ := net.BusIndex(br.From)
		to, _ := net.BusIndex(br.To)
		vf, vt := sol.Voltages[from], sol.Voltages[to]

		series := 1 / complex(br.R, br.X)
		shunt := complex(0, br.ShuntB/2.0)

		// Injections into the branch from each end.
		iFrom := (vf-vt)*series + vf*shunt
		iTo := (vt-vf)*series + vt*shunt
		sFrom := vf * cmplx.Conj(iFrom)
		sTo := vt * cmplx.Conj(iTo)

		res := BranchResult{
			ID:        br.ID,
			CurrentPU: cmplx.Abs(iFrom),
			CurrentA:  cmplx.Abs(iFrom) * iBase,
			SendP:     real(sFrom),
			SendQ:     imag(sFrom),
			ReceiveP:  real(sTo),
			ReceiveQ:  imag(sTo),
			LossP:     real(sFrom) + real(sTo),
			LossQ:     imag(sFrom) + imag(sTo),
		}
		if br.Rating > 0 {
			worst := math.Max(cmplx.Abs(sFrom), cmplx.Abs(sTo))
			res.LoadingPct = worst / br.Rating * 100.0
			res.Overloaded = res.LoadingPct > 100.0
		}
		rep.Branches[b] = res

		rep.Summary.LossP += res.LossP
		rep.Summary.LossQ += res.LossQ
		if res.Overloaded {
			rep.Summary.BranchOverloads++
			rep.Violations = append(rep.Violations, fmt.Sprintf(
				"branch %s: loading %.1f%% exceeds rating", br.ID, res.LoadingPct))
		}
	}

	// Stage 4: totals and the conservation self-check.
	injected, err := y.MulVec(sol.Voltages)
	if err != nil {
		return nil, fmt.Errorf("report.Assemble: %w", err)
	}
	for i = 0; i < n; i++ {
		bus := net.Bus(i)
		mag := cmplx.Abs(sol.Voltages[i])

		// Load actually served under the ZIP mix at the solved voltage.
		load := bus.ScheduledLoad()
		f := 1.0
		if bus.Type == network.PQ {
			f = cfg.zipFactor(mag)
		}
		servedP, servedQ := load.P*f, load.Q*f
		rep.Summary.LoadP += servedP
		rep.Summary.LoadQ += servedQ

		// Generation: slack fully recovered from Y·V; PV real power is
		// scheduled while its reactive power floats; PQ generation is
		// scheduled.
		calc := sol.Voltages[i] * cmplx.Conj(injected[i])
		gen := bus.ScheduledGen()
		switch bus.Type {
		case network.Slack:
			rep.Summary.GenerationP += real(calc) + servedP
			rep.Summary.GenerationQ += imag(calc) + servedQ
		case network.PV:
			rep.Summary.GenerationP += gen.P
			rep.Summary.GenerationQ += imag(calc) + servedQ
		case network.PQ:
			rep.Summary.GenerationP += gen.P
			rep.Summary.GenerationQ += gen.Q
		}
	}

	if sol.Converged {
		scale := math.Max(1.0, math.Abs(rep.Summary.GenerationP))
		gap := math.Abs(rep.Summary.GenerationP - rep.Summary.LoadP - rep.Summary.LossP)
		if gap > cfg.balanceTol*scale {
			return nil, fmt.Errorf("%w: |%.6g − %.6g − %.6g| = %.3g pu",
				ErrPowerBalance, rep.Summary.GenerationP, rep.Summary.LoadP, rep.Summary.LossP, gap)
		}
	}

	return rep, nil
}
