package powerflow

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/voltlab/powerflow/contingency"
	"github.com/voltlab/powerflow/loadflow"
	"github.com/voltlab/powerflow/network"
	"github.com/voltlab/powerflow/report"
	"github.com/voltlab/powerflow/ybus"
)

// Calculate runs the full engineering-unit pipeline:
//
//	Stage 1 (Validate):  bases, bus types, load-model mix, options.
//	Stage 2 (Convert):   volts/ohms/kilowatts → per-unit on the system base.
//	Stage 3 (Solve):     admittance stamping + Gauss-Seidel load flow.
//	Stage 4 (Report):    per-bus/per-branch projection and system totals.
//	Stage 5 (Screen):    optional N-1 contingency sweep (WithContingencyAnalysis).
//	Stage 6 (Project):   per-unit results back into engineering units.
//
// Non-convergence is a normal Output (Converged=false with the reason
// leading Recommendations), never an error. Zero-valued convergence
// criteria fall back to the solver defaults; a zero load-model mix means
// pure constant power. ctx bounds the contingency sweep; the base solve
// itself is not interruptible.
func Calculate(ctx context.Context, in Input, opts ...Option) (*Output, error) {
	// Stage 1: validate.
	cfg := DefaultOptions()
	var opt Option
	for _, opt = range opts {
		opt(&cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	vBase := in.SystemData.SystemVoltage // volts
	sBase := in.SystemData.BaseKVA       // kVA
	if !(vBase > 0) || math.IsInf(vBase, 0) {
		return nil, fmt.Errorf("%w: systemVoltage=%g V", ErrInvalidSystemData, vBase)
	}
	if !(sBase > 0) || math.IsInf(sBase, 0) {
		return nil, fmt.Errorf("%w: baseKVA=%g kVA", ErrInvalidSystemData, sBase)
	}

	mix, err := resolveMix(in.LoadModels)
	if err != nil {
		return nil, err
	}

	maxIter := in.Criteria.MaxIterations
	if maxIter == 0 {
		maxIter = loadflow.DefaultMaxIterations
	}
	tol := in.Criteria.Tolerance
	if tol == 0 {
		tol = loadflow.DefaultTolerance
	}

	// Stage 2: convert to per-unit. zBase in ohms on the phase-to-phase
	// voltage and three-phase power base.
	zBase := vBase * vBase / (sBase * 1000.0)

	buses := make([]network.Bus, len(in.Buses))
	var i int
	for i = 0; i < len(in.Buses); i++ {
		b, err := convertBus(in.Buses[i], vBase, sBase)
		if err != nil {
			return nil, err
		}
		buses[i] = b
	}

	branches := make([]network.Branch, len(in.Branches))
	for i = 0; i < len(in.Branches); i++ {
		src := in.Branches[i]
		branches[i] = network.Branch{
			ID:     src.BranchID,
			From:   src.FromBus,
			To:     src.ToBus,
			R:      src.Resistance / zBase,
			X:      src.Reactance / zBase,
			ShuntB: src.Susceptance * zBase,
			Rating: src.RatingMVA * 1000.0 / sBase,
		}
	}

	net, err := network.Build(buses, branches, vBase/1000.0, sBase/1000.0)
	if err != nil {
		return nil, err
	}

	// Stage 3: stamp and solve.
	y, err := ybus.Build(net)
	if err != nil {
		return nil, err
	}
	sol, err := loadflow.Solve(net, y,
		loadflow.WithMaxIterations(maxIter),
		loadflow.WithTolerance(tol),
		loadflow.WithLoadModel(mix.ConstantPower, mix.ConstantCurrent, mix.ConstantImpedance),
	)
	if err != nil {
		return nil, err
	}

	// Stage 4: assemble the per-unit report.
	rep, err := report.Assemble(net, y, sol,
		report.WithComplianceBand(cfg.band),
		report.WithLoadModel(mix.ConstantPower, mix.ConstantCurrent, mix.ConstantImpedance),
	)
	if err != nil {
		return nil, err
	}

	// Stage 5: N-1 screen. A non-converged base case yields no trustworthy
	// warm start, so the sweep is skipped and the non-convergence note in
	// Recommendations explains the gap.
	var assessment *contingency.Assessment
	if cfg.contingency && sol.Converged {
		assessment, err = contingency.Analyze(net, y, sol,
			contingency.WithContext(ctx),
			contingency.WithWorkers(cfg.workers),
			contingency.WithMaxIterations(maxIter),
			contingency.WithTolerance(tol),
			contingency.WithLoadModel(mix.ConstantPower, mix.ConstantCurrent, mix.ConstantImpedance),
			contingency.WithComplianceBand(cfg.band),
		)
		if err != nil {
			return nil, err
		}
	}

	// Stage 6: project back into engineering units.
	return project(rep, assessment, vBase, sBase, cfg), nil
}

// resolveMix validates the ZIP composition. The zero value means the
// caller omitted the section and gets pure constant power.
func resolveMix(m LoadModelMix) (LoadModelMix, error) {
	if m.ConstantPower == 0 && m.ConstantCurrent == 0 && m.ConstantImpedance == 0 {
		return LoadModelMix{ConstantPower: 100}, nil
	}
	sum := m.ConstantPower + m.ConstantCurrent + m.ConstantImpedance
	switch {
	case m.ConstantPower < 0 || m.ConstantCurrent < 0 || m.ConstantImpedance < 0:
		return LoadModelMix{}, fmt.Errorf("%w: negative fraction", ErrLoadModelMix)
	case math.Abs(sum-100) > 1e-9:
		return LoadModelMix{}, fmt.Errorf("%w: fractions sum to %g", ErrLoadModelMix, sum)
	}

	return m, nil
}

// convertBus translates one engineering-unit bus to the per-unit model.
func convertBus(src InputBus, vBase, sBase float64) (network.Bus, error) {
	var kind network.BusType
	switch strings.ToLower(strings.TrimSpace(src.BusType)) {
	case "slack":
		kind = network.Slack
	case "pv":
		kind = network.PV
	case "pq":
		kind = network.PQ
	default:
		return network.Bus{}, fmt.Errorf("%w: bus %q has type %q",
			ErrUnknownBusType, src.BusID, src.BusType)
	}

	b := network.Bus{
		ID:           src.BusID,
		Type:         kind,
		VoltageMag:   src.Voltage / vBase,
		VoltageAngle: src.Angle * math.Pi / 180.0,
	}
	if src.PowerGeneration != nil {
		b.Generation = &network.Power{
			P: src.PowerGeneration.P / sBase,
			Q: src.PowerGeneration.Q / sBase,
		}
	}
	if src.PowerLoad != nil {
		b.Load = &network.Power{
			P: src.PowerLoad.P / sBase,
			Q: src.PowerLoad.Q / sBase,
		}
	}

	return b, nil
}

// project maps the per-unit report (and optional N-1 assessment) onto the
// engineering-unit Output.
func project(rep *report.Report, as *contingency.Assessment, vBase, sBase float64, cfg Options) *Output {
	out := &Output{
		Converged:     rep.Converged,
		Iterations:    rep.Iterations,
		BusResults:    make([]BusResult, len(rep.Buses)),
		BranchResults: make([]BranchResult, len(rep.Branches)),
		SystemSummary: SystemSummary{
			TotalGeneration:        rep.Summary.GenerationP * sBase,
			TotalLoad:              rep.Summary.LoadP * sBase,
			TotalLosses:            rep.Summary.LossP * sBase,
			VoltageLimitViolations: rep.Summary.VoltageViolations,
		},
	}

	var i int
	for i = 0; i < len(rep.Buses); i++ {
		src := rep.Buses[i]
		out.BusResults[i] = BusResult{
			BusID: src.ID,
			Voltage: VoltagePhasor{
				Magnitude: src.VoltagePU * vBase,
				Angle:     src.AngleDeg,
			},
			VoltageDropFromNominal: (1.0 - src.VoltagePU) * 100.0,
			Compliance:             src.Compliant,
		}
	}
	for i = 0; i < len(rep.Branches); i++ {
		src := rep.Branches[i]
		out.BranchResults[i] = BranchResult{
			BranchID: src.ID,
			Current:  src.CurrentA,
			Loading:  src.LoadingPct,
		}
	}

	// Recommendations: base-case violations verbatim, then the N-1 story.
	out.Recommendations = append(out.Recommendations, rep.Violations...)
	if rep.Converged && len(rep.Violations) == 0 {
		out.Recommendations = append(out.Recommendations, fmt.Sprintf(
			"all bus voltages within ±%.0f%% of nominal and no branch overloads; no corrective action required",
			cfg.band*100))
	}

	if as != nil {
		out.ContingencyAnalysis = &ContingencyAnalysis{
			CriticalOutages: append([]string(nil), as.CriticalOutages...),
		}
		out.Recommendations = append(out.Recommendations, outageAdvice(as)...)
	}

	return out
}

// outageAdvice turns the ranked critical outages into one line each, in
// ranking order. A clean sweep gets a single all-secure line.
func outageAdvice(as *contingency.Assessment) []string {
	if len(as.CriticalOutages) == 0 {
		return []string{"N-1 secure: every single-branch outage converges without violations"}
	}

	byID := make(map[string]contingency.Case, len(as.Cases))
	var c contingency.Case
	for _, c = range as.Cases {
		byID[c.BranchID] = c
	}

	advice := make([]string, 0, len(as.CriticalOutages))
	var id string
	for _, id = range as.CriticalOutages {
		c = byID[id]
		switch c.Outcome {
		case contingency.Split:
			advice = append(advice, fmt.Sprintf(
				"outage of branch %s splits the network; add a parallel path to remove this single point of failure", id))
		case contingency.Diverged:
			advice = append(advice, fmt.Sprintf(
				"outage of branch %s leaves no solvable operating point (no convergence after %d iterations); reinforce this corridor", id, c.Iterations))
		case contingency.Violating:
			advice = append(advice, fmt.Sprintf(
				"outage of branch %s causes %d limit violation(s); first: %s", id, len(c.Violations), c.Violations[0]))
		}
	}

	return advice
}
