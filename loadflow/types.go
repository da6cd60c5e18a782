// Package loadflow: sentinel errors and the Solution value produced by a
// single solve call. A Solution is created fresh per invocation and never
// shared or reused across calls.
package loadflow

import "errors"

// Sentinel errors for structural failures detected before iteration.
var (
	// ErrNilNetwork is returned when the network pointer is nil.
	ErrNilNetwork = errors.New("loadflow: network is nil")

	// ErrNilMatrix is returned when the admittance matrix pointer is nil.
	ErrNilMatrix = errors.New("loadflow: admittance matrix is nil")

	// ErrDimensionMismatch is returned when the matrix dimension does not
	// equal the bus count, or a warm-start vector has the wrong length.
	ErrDimensionMismatch = errors.New("loadflow: dimension mismatch")

	// ErrNetworkSplit is returned when the admittance matrix is
	// disconnected or carries a zero diagonal entry: the network has split
	// into islands and no iteration is attempted.
	ErrNetworkSplit = errors.New("loadflow: network split into islands")

	// ErrOptionViolation is returned when an invalid option value was
	// supplied (non-positive iteration budget or tolerance, load-model mix
	// not summing to 100, malformed warm start).
	ErrOptionViolation = errors.New("loadflow: invalid option supplied")
)

// Solution is the result of one solve call.
//
// Voltages is indexed by bus position in network input order. MismatchP
// and MismatchQ hold the per-bus power mismatches of the final sweep (zero
// at the slack position by construction). All slices are owned by the
// Solution; nothing aliases caller-provided storage.
type Solution struct {
	Voltages  []complex128 // final phasors, pu
	MismatchP []float64    // scheduled − calculated real power, pu
	MismatchQ []float64    // scheduled − calculated reactive power, pu

	Iterations int  // sweeps executed
	Converged  bool // max mismatch < tolerance within the budget
	Diverged   bool // a NaN/Inf iterate appeared; Converged is false

	// MaxMismatch is the largest |ΔP|,|ΔQ| over non-slack buses after the
	// final sweep. It is the authoritative convergence figure and the
	// number a caller should quote when explaining an unreliable result.
	MaxMismatch float64

	// MaxVoltageDelta is the largest per-bus |V_new − V_old| of the final
	// sweep. Diagnostic only; it never participates in the convergence
	// decision.
	MaxVoltageDelta float64
}

// VoltageCopy returns an independent copy of the voltage vector, for warm
// starting follow-up solves without sharing mutable state.
// Complexity: O(n).
func (s *Solution) VoltageCopy() []complex128 {
	out := make([]complex128, len(s.Voltages))
	copy(out, s.Voltages)

	return out
}
