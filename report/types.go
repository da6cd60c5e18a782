// Package report: result records, sentinel errors and assembly options.
package report

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors returned by Assemble.
var (
	// ErrNilNetwork is returned when the network pointer is nil.
	ErrNilNetwork = errors.New("report: network is nil")

	// ErrNilMatrix is returned when the admittance matrix pointer is nil.
	ErrNilMatrix = errors.New("report: admittance matrix is nil")

	// ErrNilSolution is returned when the solution pointer is nil.
	ErrNilSolution = errors.New("report: solution is nil")

	// ErrDimensionMismatch is returned when network, matrix and solution
	// disagree on the bus count.
	ErrDimensionMismatch = errors.New("report: dimension mismatch")

	// ErrOptionViolation is returned when an invalid option was supplied.
	ErrOptionViolation = errors.New("report: invalid option supplied")

	// ErrPowerBalance is returned when a CONVERGED solution fails the
	// generation − load − losses identity. Input data cannot cause this;
	// it flags an internal inconsistency between solver and assembler.
	ErrPowerBalance = errors.New("report: power balance self-check failed")
)

// Documented defaults.
const (
	// DefaultComplianceBand is the ± fraction around nominal voltage within
	// which a bus is compliant (0.10 = ±10%).
	DefaultComplianceBand = 0.10

	// DefaultBalanceTolerance bounds |ΣPgen − ΣPload − ΣPloss| relative to
	// max(1, ΣPgen) in the conservation self-check. Generous against the
	// default solver tolerance of 1e-6 pu per bus.
	DefaultBalanceTolerance = 1e-4
)

// BusResult is the per-bus projection of the solved state.
type BusResult struct {
	ID           string
	VoltagePU    float64 // solved magnitude, pu
	VoltageKV    float64 // solved magnitude on the kV base
	AngleDeg     float64 // solved angle, degrees
	DeviationPct float64 // 100·(VoltagePU − 1)
	Compliant    bool    // |DeviationPct| within the band
}

// BranchResult is the per-branch projection: from-side current, both-end
// complex flows and the resulting loss. Flows are injections INTO the
// branch, so LossP = SendP + ReceiveP is non-negative for a passive line.
type BranchResult struct {
	ID        string
	CurrentPU float64 // |I| at the from side, pu
	CurrentA  float64 // same on the ampere base

	SendP, SendQ       float64 // from-side injection into the branch, pu
	ReceiveP, ReceiveQ float64 // to-side injection into the branch, pu
	LossP, LossQ       float64 // SendP+ReceiveP, SendQ+ReceiveQ, pu

	LoadingPct float64 // 100·max(|S_send|,|S_recv|)/Rating; 0 when unrated
	Overloaded bool    // LoadingPct > 100 on a rated branch
}

// Summary aggregates the system totals, in per-unit on the network base.
type Summary struct {
	GenerationP, GenerationQ float64 // slack/PV injections recovered from Y·V
	LoadP, LoadQ             float64 // ZIP-scaled load actually served
	LossP, LossQ             float64 // sum of per-branch losses

	VoltageViolations int // buses outside the compliance band
	BranchOverloads   int // rated branches above 100% loading
}

// Report is the full assembly. Buses and Branches are in network input
// order; Violations is deterministic: the non-convergence note (if any),
// then bus violations in bus order, then overloads in branch order.
type Report struct {
	Converged   bool
	Diverged    bool
	Iterations  int
	MaxMismatch float64

	Buses      []BusResult
	Branches   []BranchResult
	Summary    Summary
	Violations []string
}

// Options for Assemble; resolved against the documented defaults.
type Options struct {
	band       float64
	balanceTol float64
	cp, ci, cz float64 // load-model mix, must match the solve
	err        error
}

// Option configures Assemble via functional arguments.
type Option func(*Options)

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		band:       DefaultComplianceBand,
		balanceTol: DefaultBalanceTolerance,
		cp:         100,
		ci:         0,
		cz:         0,
	}
}

// WithComplianceBand sets the ± voltage band as a fraction of nominal.
// Must be a positive finite value.
func WithComplianceBand(frac float64) Option {
	return func(o *Options) {
		if frac <= 0 || math.IsNaN(frac) || math.IsInf(frac, 0) {
			o.fail(fmt.Errorf("%w: compliance band %g", ErrOptionViolation, frac))

			return
		}
		o.band = frac
	}
}

// WithBalanceTolerance sets the conservation self-check tolerance.
func WithBalanceTolerance(tol float64) Option {
	return func(o *Options) {
		if tol <= 0 || math.IsNaN(tol) || math.IsInf(tol, 0) {
			o.fail(fmt.Errorf("%w: balance tolerance %g", ErrOptionViolation, tol))

			return
		}
		o.balanceTol = tol
	}
}

// WithLoadModel mirrors the solver's ZIP mix so served load is evaluated
// the same way it was solved. Fractions must be non-negative and sum to
// 100.
func WithLoadModel(constantPower, constantCurrent, constantImpedance float64) Option {
	return func(o *Options) {
		sum := constantPower + constantCurrent + constantImpedance
		switch {
		case constantPower < 0 || constantCurrent < 0 || constantImpedance < 0:
			o.fail(fmt.Errorf("%w: negative load-model fraction", ErrOptionViolation))
		case math.Abs(sum-100) > 1e-9:
			o.fail(fmt.Errorf("%w: load-model mix sums to %g, want 100", ErrOptionViolation, sum))
		default:
			o.cp, o.ci, o.cz = constantPower, constantCurrent, constantImpedance
		}
	}
}

// fail records the first option error.
func (o *Options) fail(err error) {
	if o.err == nil {
		o.err = err
	}
}

// zipFactor mirrors the solver's load multiplier at magnitude mag.
func (o *Options) zipFactor(mag float64) float64 {
	return (o.cp + o.ci*mag + o.cz*mag*mag) / 100.0
}
