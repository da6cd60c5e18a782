// Package contingency: outcome classification, sentinel errors and options.
package contingency

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Sentinel errors returned by Analyze.
var (
	// ErrNilNetwork is returned when the network pointer is nil.
	ErrNilNetwork = errors.New("contingency: network is nil")

	// ErrNilMatrix is returned when the base admittance matrix is nil.
	ErrNilMatrix = errors.New("contingency: base admittance matrix is nil")

	// ErrNilSolution is returned when the base solution is nil.
	ErrNilSolution = errors.New("contingency: base solution is nil")

	// ErrBaseNotConverged is returned when the pre-contingency solution
	// did not converge: warm-starting N-1 cases from a bad operating
	// point would classify garbage.
	ErrBaseNotConverged = errors.New("contingency: base case did not converge")

	// ErrDimensionMismatch is returned when network, matrix and base
	// solution disagree on the bus count.
	ErrDimensionMismatch = errors.New("contingency: dimension mismatch")

	// ErrOptionViolation is returned when an invalid option was supplied.
	ErrOptionViolation = errors.New("contingency: invalid option supplied")

	// ErrCanceled wraps the context error when the sweep is interrupted.
	ErrCanceled = errors.New("contingency: sweep canceled")
)

// Outcome classifies one N-1 case.
type Outcome int

const (
	// Secure: the post-outage flow converged with no violations.
	Secure Outcome = iota

	// Violating: converged, but at least one bus left the voltage band or
	// a rated branch is overloaded.
	Violating

	// Diverged: the solver could not resolve the post-outage state within
	// its budget (or the iterate blew up).
	Diverged

	// Split: removing the branch disconnected the network; no iteration
	// was attempted.
	Split
)

// String returns the report label of the outcome.
func (o Outcome) String() string {
	switch o {
	case Secure:
		return "converged-compliant"
	case Violating:
		return "converged-violating"
	case Diverged:
		return "diverged"
	case Split:
		return "network-split"
	default:
		return "unknown"
	}
}

// severity maps outcomes onto the ranking order of CriticalOutages:
// lower sorts first. Secure cases never enter the list.
func (o Outcome) severity() int {
	switch o {
	case Split:
		return 0
	case Diverged:
		return 1
	case Violating:
		return 2
	default:
		return 3
	}
}

// Case is the evaluated result of removing one branch.
type Case struct {
	BranchID    string
	Outcome     Outcome
	Iterations  int      // 0 for Split
	MaxMismatch float64  // final solver mismatch; 0 for Split
	Violations  []string // populated for Violating cases
}

// Assessment is the full N-1 screen. Cases is in branch input order;
// CriticalOutages lists the non-secure branch ids by severity.
type Assessment struct {
	Cases           []Case
	CriticalOutages []string
}

// Documented defaults.
const (
	// DefaultWorkers runs the sweep sequentially.
	DefaultWorkers = 1
)

// Options holds the resolved sweep configuration.
type Options struct {
	ctx     context.Context
	workers int

	// solver pass-through
	maxIterations int
	tolerance     float64
	cp, ci, cz    float64

	// compliance pass-through
	band float64

	err error
}

// Option configures Analyze via functional arguments.
type Option func(*Options)

// DefaultOptions mirrors the loadflow and report defaults with a
// sequential sweep and background context.
func DefaultOptions() Options {
	return Options{
		ctx:           context.Background(),
		workers:       DefaultWorkers,
		maxIterations: 100,
		tolerance:     1e-6,
		cp:            100,
		ci:            0,
		cz:            0,
		band:          0.10,
	}
}

// WithContext sets the cancellation context, checked once per case.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithWorkers bounds the parallel case evaluations. Must be ≥ 1.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n < 1 {
			o.fail(fmt.Errorf("%w: workers=%d", ErrOptionViolation, n))

			return
		}
		o.workers = n
	}
}

// WithMaxIterations sets the per-case solver sweep budget. Must be > 0.
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		if n <= 0 {
			o.fail(fmt.Errorf("%w: maxIterations=%d", ErrOptionViolation, n))

			return
		}
		o.maxIterations = n
	}
}

// WithTolerance sets the per-case solver mismatch tolerance.
func WithTolerance(tol float64) Option {
	return func(o *Options) {
		if tol <= 0 || math.IsNaN(tol) || math.IsInf(tol, 0) {
			o.fail(fmt.Errorf("%w: tolerance=%g", ErrOptionViolation, tol))

			return
		}
		o.tolerance = tol
	}
}

// WithLoadModel sets the ZIP mix used by the per-case solves and report
// assembly. Fractions must be non-negative and sum to 100.
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

// WithComplianceBand sets the ± voltage band used to classify Violating.
func WithComplianceBand(frac float64) Option {
	return func(o *Options) {
		if frac <= 0 || math.IsNaN(frac) || math.IsInf(frac, 0) {
			o.fail(fmt.Errorf("%w: compliance band %g", ErrOptionViolation, frac))

			return
		}
		o.band = frac
	}
}

// fail records the first option error.
func (o *Options) fail(err error) {
	if o.err == nil {
		o.err = err
	}
}
