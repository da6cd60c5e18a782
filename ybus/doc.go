// Package ybus builds and manipulates the complex bus admittance matrix
// (Y-bus) of a validated network.
//
// Overview:
//
//   - Build stamps every branch of a network.Network into a dense n×n
//     complex matrix: series admittance y = 1/(R + jX) is added to both end
//     diagonals and subtracted from the off-diagonal pair; half of the line
//     charging susceptance jB/2 lands on each end diagonal.
//   - WithoutBranch reverses exactly one branch's stamps on a clone of the
//     matrix, without revalidating or re-walking the rest of the network.
//     N-1 contingency screening calls it once per branch, so a sweep over L
//     branches costs O(L·n²) for the matrix work instead of O(L²·n²).
//   - Connected probes reachability over the off-diagonal nonzero structure
//     (breadth-first from bus 0). A false answer means the matrix is
//     structurally singular: the network has split into islands and no
//     load-flow iteration should be attempted on it.
//
// Storage is row-major []complex128, following the dense float64 kernel
// this package generalizes. At/Set/AddAt are bounds-checked and O(1);
// Build is O(L + n) after the O(n²) allocation; Connected is O(n²).
//
// Error catalogue:
//
//   - ErrNilNetwork        nil *network.Network passed to Build.
//   - ErrInvalidDimension  requested matrix dimension < 1.
//   - ErrIndexOutOfBounds  row or column index outside [0, n).
//   - ErrUnknownBranch     WithoutBranch asked to remove an id the network
//     does not contain.
package ybus
