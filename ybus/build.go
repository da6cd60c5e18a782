package ybus

import (
	"errors"
	"fmt"
	"math/cmplx"

	"github.com/voltlab/powerflow/network"
)

// ErrNilNetwork indicates a nil *network.Network passed to Build.
var ErrNilNetwork = errors.New("ybus: network is nil")

// ErrUnknownBranch indicates WithoutBranch was asked to remove a branch id
// the network does not contain.
var ErrUnknownBranch = errors.New("ybus: unknown branch id")

// ErrUnknownBus indicates a branch endpoint the network's bus index cannot
// resolve. network.Build guarantees resolved endpoints, so this only fires
// when a branch is stamped against a network it does not belong to.
var ErrUnknownBus = errors.New("ybus: unknown bus id")

// connTol is the off-diagonal magnitude below which an entry is treated as
// structurally zero by the connectivity probe. Unstamping subtracts the
// exact value that was added, so residues only appear with parallel
// branches; the tolerance absorbs their last-bit rounding.
const connTol = 1e-12

// Build stamps every branch of net into a fresh n×n admittance matrix.
//
// Stage 1 (Validate): reject a nil network; dimension comes from the model,
// already validated by network.Build.
// Stage 2 (Stamp): for each branch in input order, add the series
// admittance y = 1/(R + jX) to both end diagonals, subtract it from the
// off-diagonal pair, and add jB/2 to each end diagonal.
// Stage 3 (Finalize): return the matrix; no copy of the network is kept.
//
// Complexity: O(n² + L) time, O(n²) memory.
func Build(net *network.Network) (*Matrix, error) {
	// Stage 1: validate.
	if net == nil {
		return nil, ErrNilNetwork
	}

	m, err := NewMatrix(net.NumBuses())
	if err != nil {
		return nil, fmt.Errorf("ybus.Build: %w", err)
	}

	// Stage 2: stamp branches in input order.
	var i int
	for i = 0; i < net.NumBranches(); i++ {
		if err = stamp(m, net, net.Branch(i), +1); err != nil {
			return nil, fmt.Errorf("ybus.Build: %w", err)
		}
	}

	// Stage 3: done.
	return m, nil
}

// WithoutBranch returns a NEW matrix equal to m with exactly one branch's
// stamps reversed. The receiver is never mutated, so contingency workers
// can share one base matrix. No network revalidation happens here.
// Complexity: O(n²) for the clone, O(1) for the unstamp.
func (m *Matrix) WithoutBranch(net *network.Network, branchID string) (*Matrix, error) {
	if net == nil {
		return nil, ErrNilNetwork
	}
	idx, ok := net.BranchIndex(branchID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBranch, branchID)
	}

	out := m.Clone()
	if err := stamp(out, net, net.Branch(idx), -1); err != nil {
		return nil, fmt.Errorf("ybus.WithoutBranch: %w", err)
	}

	return out, nil
}

// stamp applies (sign=+1) or reverses (sign=-1) one branch's contribution.
// The same code path in both directions guarantees that remove == exact
// inverse of add for a single branch.
func stamp(m *Matrix, net *network.Network, br network.Branch, sign float64) error {
	from, ok := net.BusIndex(br.From)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBus, br.From)
	}
	to, ok := net.BusIndex(br.To)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBus, br.To)
	}

	s := complex(sign, 0)
	series := s / complex(br.R, br.X)      // ±1/(R+jX)
	shunt := s * complex(0, br.ShuntB/2.0) // ±jB/2 per end

	// Series element: both diagonals up, off-diagonal pair down.
	_ = m.AddAt(from, from, series)
	_ = m.AddAt(to, to, series)
	_ = m.AddAt(from, to, -series)
	_ = m.AddAt(to, from, -series)

	// Line charging: split evenly across the two ends.
	if br.ShuntB != 0 {
		_ = m.AddAt(from, from, shunt)
		_ = m.AddAt(to, to, shunt)
	}

	return nil
}

// Connected reports whether every bus is reachable from bus 0 over the
// off-diagonal nonzero structure. A disconnected matrix is structurally
// singular for load flow: at least one island carries no reference bus.
//
// Breadth-first scan with a plain slice queue; deterministic because
// neighbors are visited in ascending column order.
// Complexity: O(n²) time, O(n) memory.
func (m *Matrix) Connected() bool {
	if m.n == 1 {
		return true
	}

	visited := make([]bool, m.n)
	queue := make([]int, 0, m.n)
	visited[0] = true
	queue = append(queue, 0)

	var cur, col int
	seen := 1
	for len(queue) > 0 {
		cur, queue = queue[0], queue[1:]
		for col = 0; col < m.n; col++ {
			if col == cur || visited[col] {
				continue
			}
			if cmplx.Abs(m.at(cur, col)) <= connTol {
				continue
			}
			visited[col] = true
			seen++
			queue = append(queue, col)
		}
	}

	return seen == m.n
}
