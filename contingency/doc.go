// Package contingency screens a solved network against all single-branch
// (N-1) outages and ranks the critical ones.
//
// Procedure, per in-service branch b in input order:
//
//  1. Reverse b's stamps on a clone of the base admittance matrix
//     (ybus.WithoutBranch) — no rebuild, no revalidation.
//  2. Probe connectivity. A split network is classified immediately; no
//     iteration is spent on it.
//  3. Warm-start the Gauss-Seidel solver from the pre-contingency
//     voltages and re-solve.
//  4. Classify: Secure (converged, no violations), Violating (converged,
//     compliance or loading violations), Diverged (iteration failed), or
//     Split (connectivity lost).
//
// CriticalOutages orders the non-secure cases by severity class — Split
// first, then Diverged, then Violating — with ties broken by input branch
// order, so the ranking is deterministic. Loss of connectivity outranks a
// mere limit violation because no redispatch can fix a dead island.
//
// Concurrency: each case is independent. WithWorkers(n) dispatches cases
// to an errgroup-bounded pool; every worker gets its own voltage copy and
// writes only its own result slot, so the assessment is identical to the
// sequential one. Cancellation is checked once per case, not only at the
// call boundary.
//
// Cost: O(L · solve) for L branches; the warm start and the single-branch
// unstamp keep the per-case overhead at O(n²) instead of a full rebuild.
package contingency
