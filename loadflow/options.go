package loadflow

import (
	"fmt"
	"math"
)

// Documented defaults: the single source of truth for zero-config behavior.
const (
	// DefaultMaxIterations bounds the number of Gauss-Seidel sweeps.
	DefaultMaxIterations = 100

	// DefaultTolerance is the per-unit power-mismatch threshold.
	DefaultTolerance = 1e-6

	// Default load-model mix: pure constant-power (classic load flow).
	DefaultConstantPower     = 100.0
	DefaultConstantCurrent   = 0.0
	DefaultConstantImpedance = 0.0

	// mixSumTol is the tolerance on the "fractions sum to 100" invariant.
	mixSumTol = 1e-9
)

// Options holds the resolved solver configuration. Fields are unexported;
// public entry points accept ...Option and resolve via DefaultOptions.
type Options struct {
	maxIterations int
	tolerance     float64

	// ZIP mix, in percent. Invariant: cp+ci+cz == 100 within mixSumTol.
	cp, ci, cz float64

	// initial is the warm-start voltage vector (copied on set); nil means
	// flat start from the bus set-points.
	initial []complex128

	// err records the first invalid option; surfaced as ErrOptionViolation
	// when Solve runs, so option constructors never panic mid-pipeline.
	err error
}

// Option configures Solve via functional arguments.
type Option func(*Options)

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		maxIterations: DefaultMaxIterations,
		tolerance:     DefaultTolerance,
		cp:            DefaultConstantPower,
		ci:            DefaultConstantCurrent,
		cz:            DefaultConstantImpedance,
	}
}

// WithMaxIterations sets the sweep budget. Must be > 0.
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		if n <= 0 {
			o.fail(fmt.Errorf("%w: maxIterations=%d", ErrOptionViolation, n))

			return
		}
		o.maxIterations = n
	}
}

// WithTolerance sets the per-unit power-mismatch threshold. Must be a
// positive finite value.
func WithTolerance(tol float64) Option {
	return func(o *Options) {
		if tol <= 0 || math.IsNaN(tol) || math.IsInf(tol, 0) {
			o.fail(fmt.Errorf("%w: tolerance=%g", ErrOptionViolation, tol))

			return
		}
		o.tolerance = tol
	}
}

// WithLoadModel sets the ZIP mix in percent: constant-power,
// constant-current and constant-impedance fractions. Each must be
// non-negative and the three must sum to 100.
func WithLoadModel(constantPower, constantCurrent, constantImpedance float64) Option {
	return func(o *Options) {
		sum := constantPower + constantCurrent + constantImpedance
		switch {
		case constantPower < 0 || constantCurrent < 0 || constantImpedance < 0:
			o.fail(fmt.Errorf("%w: negative load-model fraction", ErrOptionViolation))
		case math.Abs(sum-100) > mixSumTol:
			o.fail(fmt.Errorf("%w: load-model mix sums to %g, want 100", ErrOptionViolation, sum))
		default:
			o.cp, o.ci, o.cz = constantPower, constantCurrent, constantImpedance
		}
	}
}

// WithInitialVoltages warm-starts the sweep from v instead of the flat
// bus set-points. The vector is copied; its length is validated against
// the network inside Solve.
func WithInitialVoltages(v []complex128) Option {
	return func(o *Options) {
		if len(v) == 0 {
			o.fail(fmt.Errorf("%w: empty warm-start vector", ErrOptionViolation))

			return
		}
		o.initial = make([]complex128, len(v))
		copy(o.initial, v)
	}
}

// fail records the first option error; later ones keep the earliest cause.
func (o *Options) fail(err error) {
	if o.err == nil {
		o.err = err
	}
}

// zipFactor returns the voltage-dependent load multiplier for magnitude
// mag (pu against a 1.0 pu nominal): (cp + ci·mag + cz·mag²)/100.
func (o *Options) zipFactor(mag float64) float64 {
	return (o.cp + o.ci*mag + o.cz*mag*mag) / 100.0
}
