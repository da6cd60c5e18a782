// Package network defines the immutable bus/branch model consumed by the
// load-flow engine: typed buses (Slack, PV, PQ), series branches with
// optional shunt susceptance and thermal rating, and the per-unit bases
// used to translate results back into engineering units.
//
// Overview:
//
//   - Build validates raw bus and branch slices and returns a *Network that
//     never changes afterwards. A failed Build returns a specific sentinel
//     error and no partial value.
//   - Bus order and branch order are the input order. Every consumer
//     (admittance stamping, Gauss-Seidel sweeps, contingency ranking)
//     iterates in that order, so identical input produces bit-identical
//     numerical results.
//   - All electrical quantities inside a Network are per-unit on the bases
//     supplied to Build. The facade package converts volts/ohms/kilowatts
//     before calling Build; nothing in this package does unit arithmetic.
//
// Validation rules (in the order they are applied):
//
//  1. at least two buses                    → ErrInsufficientBuses
//  2. bus ids unique and non-empty          → ErrDuplicateBus / ErrEmptyID
//  3. exactly one Slack bus                 → ErrSlackBusCount
//  4. branch endpoints resolve to buses     → ErrUnknownBus
//  5. branch endpoints distinct             → ErrSelfLoop
//  6. branch impedance magnitude > 0        → ErrInvalidImpedance
//
// Complexity: Build is O(B + L) for B buses and L branches; all accessors
// are O(1) except the slice copies, which are O(n) in the copied length.
package network
