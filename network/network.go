package network

import (
	"fmt"
	"math"
)

// Network is the validated, immutable bus/branch graph plus the per-unit
// bases. All fields are unexported; accessors return copies so no caller
// can alias internal state. Safe for concurrent readers.
type Network struct {
	buses    []Bus
	branches []Branch

	busIndex    map[string]int // bus id → position in buses
	branchIndex map[string]int // branch id → position in branches

	slack int // index of the single Slack bus

	baseKV  float64 // voltage base, kV
	baseMVA float64 // power base, MVA
}

// Build validates the raw model and returns an immutable Network.
//
// Stage 1 (Validate bases): baseKV and baseMVA must be > 0.
// Stage 2 (Validate buses): count, unique non-empty ids, exactly one Slack.
// Stage 3 (Validate branches): unique ids, known distinct endpoints,
// impedance magnitude > 0.
// Stage 4 (Finalize): deep-copy both slices so later caller mutation cannot
// reach the Network.
//
// On failure the specific sentinel is returned (wrapped with the offending
// id) and the Network pointer is nil — never a partially built value.
// Complexity: O(B + L) time and space.
func Build(buses []Bus, branches []Branch, baseKV, baseMVA float64) (*Network, error) {
	// Stage 1: per-unit bases.
	if baseKV <= 0 || baseMVA <= 0 || math.IsNaN(baseKV) || math.IsNaN(baseMVA) {
		return nil, fmt.Errorf("%w: baseKV=%g baseMVA=%g", ErrInvalidBase, baseKV, baseMVA)
	}

	// Stage 2: bus set.
	if len(buses) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientBuses, len(buses))
	}
	busIndex := make(map[string]int, len(buses))
	slack := -1
	slackCount := 0
	var bus Bus
	var i int
	for i, bus = range buses {
		if bus.ID == "" {
			return nil, fmt.Errorf("%w: bus at position %d", ErrEmptyID, i)
		}
		if _, dup := busIndex[bus.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateBus, bus.ID)
		}
		if !bus.Type.valid() {
			return nil, fmt.Errorf("%w: bus %q", ErrInvalidBusType, bus.ID)
		}
		busIndex[bus.ID] = i
		if bus.Type == Slack {
			slack = i
			slackCount++
		}
	}
	if slackCount != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrSlackBusCount, slackCount)
	}

	// Stage 3: branch set.
	branchIndex := make(map[string]int, len(branches))
	var br Branch
	for i, br = range branches {
		if br.ID == "" {
			return nil, fmt.Errorf("%w: branch at position %d", ErrEmptyID, i)
		}
		if _, dup := branchIndex[br.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateBranch, br.ID)
		}
		if _, ok := busIndex[br.From]; !ok {
			return nil, fmt.Errorf("%w: branch %q from %q", ErrUnknownBus, br.ID, br.From)
		}
		if _, ok := busIndex[br.To]; !ok {
			return nil, fmt.Errorf("%w: branch %q to %q", ErrUnknownBus, br.ID, br.To)
		}
		if br.From == br.To {
			return nil, fmt.Errorf("%w: branch %q at bus %q", ErrSelfLoop, br.ID, br.From)
		}
		if math.Hypot(br.R, br.X) == 0 {
			return nil, fmt.Errorf("%w: branch %q", ErrInvalidImpedance, br.ID)
		}
		branchIndex[br.ID] = i
	}

	// Stage 4: defensive deep copy; Power pointers are re-boxed so the
	// caller cannot reach through them either.
	busCopy := make([]Bus, len(buses))
	copy(busCopy, buses)
	for i = range busCopy {
		if busCopy[i].Generation != nil {
			g := *busCopy[i].Generation
			busCopy[i].Generation = &g
		}
		if busCopy[i].Load != nil {
			l := *busCopy[i].Load
			busCopy[i].Load = &l
		}
	}
	brCopy := make([]Branch, len(branches))
	copy(brCopy, branches)

	return &Network{
		buses:       busCopy,
		branches:    brCopy,
		busIndex:    busIndex,
		branchIndex: branchIndex,
		slack:       slack,
		baseKV:      baseKV,
		baseMVA:     baseMVA,
	}, nil
}

// WithoutBranch returns a new Network equal to n minus one branch. Buses,
// bases and bus ordering are untouched, so bus indices, admittance-matrix
// dimensions and voltage vectors built against n remain valid for the
// reduced network. Removing a branch cannot break any Build rule, so no
// revalidation happens. The receiver is never mutated.
// Complexity: O(L) time and space.
func (n *Network) WithoutBranch(id string) (*Network, error) {
	pos, ok := n.branchIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBranch, id)
	}

	kept := make([]Branch, 0, len(n.branches)-1)
	keptIndex := make(map[string]int, len(n.branches)-1)
	var i int
	for i = 0; i < len(n.branches); i++ {
		if i == pos {
			continue
		}
		keptIndex[n.branches[i].ID] = len(kept)
		kept = append(kept, n.branches[i])
	}

	out := *n
	out.branches = kept
	out.branchIndex = keptIndex

	return &out, nil
}

// NumBuses returns the bus count. Complexity: O(1).
func (n *Network) NumBuses() int { return len(n.buses) }

// NumBranches returns the branch count. Complexity: O(1).
func (n *Network) NumBranches() int { return len(n.branches) }

// Bus returns the bus at position i in input order.
// Panics on out-of-range i, as slice indexing would.
func (n *Network) Bus(i int) Bus { return n.buses[i] }

// Branch returns the branch at position i in input order.
func (n *Network) Branch(i int) Branch { return n.branches[i] }

// BusIndex resolves a bus id to its position in input order.
func (n *Network) BusIndex(id string) (int, bool) {
	i, ok := n.busIndex[id]

	return i, ok
}

// BranchIndex resolves a branch id to its position in input order.
func (n *Network) BranchIndex(id string) (int, bool) {
	i, ok := n.branchIndex[id]

	return i, ok
}

// Slack returns the index of the single Slack bus. Complexity: O(1).
func (n *Network) Slack() int { return n.slack }

// Buses returns a copy of the bus slice in input order.
// Complexity: O(B).
func (n *Network) Buses() []Bus {
	out := make([]Bus, len(n.buses))
	copy(out, n.buses)

	return out
}

// Branches returns a copy of the branch slice in input order.
// Complexity: O(L).
func (n *Network) Branches() []Branch {
	out := make([]Branch, len(n.branches))
	copy(out, n.branches)

	return out
}

// BaseKV returns the voltage base in kV. Complexity: O(1).
func (n *Network) BaseKV() float64 { return n.baseKV }

// BaseMVA returns the power base in MVA. Complexity: O(1).
func (n *Network) BaseMVA() float64 { return n.baseMVA }
