// Package powerflow is a pure load-flow and N-1 contingency engine for
// balanced, positive-sequence electrical networks.
//
// The package exposes exactly one entry point:
//
//	out, err := powerflow.Calculate(ctx, in)
//
// Calculate accepts the network in engineering units (volts, ohms,
// kilowatts), converts it to per-unit, runs a Gauss-Seidel load flow, and
// projects the solved state back into bus voltages, branch currents,
// system totals and plain-language recommendations. With
// WithContingencyAnalysis it additionally screens every single-branch
// outage and ranks the critical ones.
//
// Calculate is a pure function of its input: no I/O, no retained state,
// and identical input (including bus/branch ordering) yields a
// bit-identical Output on every invocation. Non-convergence is a normal
// result carried on the Output, never an error; errors are reserved for
// malformed input (validation sentinels in the network, loadflow and
// powerflow packages) and for cancellation of a long contingency sweep.
//
// The heavy lifting lives in the subpackages, usable directly when a
// caller wants per-unit quantities or finer control:
//
//	network/     validated immutable bus/branch model
//	ybus/        complex admittance matrix: stamping, unstamping, probing
//	loadflow/    Gauss-Seidel solver with ZIP load modelling
//	report/      per-bus/per-branch results and the power balance
//	contingency/ N-1 screening with warm starts and a worker pool
//
// Presentation, persistence and transport belong to the calling
// application; this module has no file format, CLI, or wire protocol of
// its own.
package powerflow
