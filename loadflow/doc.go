// Package loadflow implements the Gauss-Seidel load-flow solver: it finds
// the bus voltage phasors under which every non-slack bus satisfies its
// scheduled power injection to within a configurable mismatch tolerance.
//
// Method:
//
//   - Each sweep walks the buses in network input order (deterministic,
//     never map order). PQ buses are recomputed from their scheduled
//     injection, their own admittance row, and the latest neighbor
//     estimates. PV buses update their angle from the implied reactive
//     power while the magnitude is pinned to the set-point. The slack bus
//     is never touched.
//   - Convergence is judged after each full sweep by the maximum absolute
//     real/reactive power mismatch across all non-slack buses. This
//     power-mismatch criterion is authoritative; the per-sweep voltage
//     delta is recorded purely as a diagnostic and never terminates the
//     loop, because the two criteria are not numerically equivalent.
//   - ZIP load modelling: the constant-power fraction of a PQ bus load
//     enters at full schedule, the constant-current fraction scales with
//     |V|, and the constant-impedance fraction with |V|²; the three are
//     weighted by the configured mix and re-evaluated every sweep from the
//     current voltage estimate.
//
// Outcomes:
//
//   - Running out of iterations is a normal, reportable result: the
//     Solution carries Converged=false, Iterations==MaxIterations and the
//     final MaxMismatch, never an error.
//   - A NaN/Inf iterate marks the Solution Diverged (still not an error);
//     contingency analysis ranks divergence with connectivity loss.
//   - Errors are reserved for structural problems detected before any
//     iteration: nil inputs, dimension mismatch, invalid options, and a
//     disconnected or zero-diagonal admittance matrix (ErrNetworkSplit).
//
// Complexity: O(maxIterations · n²) time for n buses on the dense Y-bus;
// O(n) extra memory. Solve keeps no state between calls: each invocation
// allocates a fresh Solution, so concurrent solves on shared read-only
// inputs are safe.
package loadflow
