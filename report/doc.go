// Package report derives engineering results from a solved (or exhausted)
// load-flow state: per-bus voltage compliance, per-branch currents, flows
// and losses, and the system power balance.
//
// Overview:
//
//   - Assemble never re-runs the solver; it is a pure projection of
//     (network, Y-bus, solution) onto result records, in bus/branch input
//     order, so identical inputs give bit-identical reports.
//   - Branch currents come from the voltage difference across the branch
//     times its series admittance, plus the local half of the line
//     charging; sending and receiving complex flows give the per-branch
//     loss as their sum.
//   - System totals recover the slack (and floating PV reactive)
//     injections from Y·V. For a converged solution the identity
//     generation − load − losses ≈ 0 is verified as an internal
//     self-check; a violation returns ErrPowerBalance because it can only
//     mean an assembly bug, not bad input data.
//   - A non-converged solution is still assembled as a best-effort
//     snapshot, flagged Converged=false; compliance conclusions drawn from
//     it are unreliable and the Violations list says so first.
//
// Complexity: O(n² + L) for n buses and L branches (one Y·V product plus a
// linear pass over buses and branches).
package report
