// Package network: domain types and sentinel errors for the bus/branch model.
// Errors live next to the types they guard so call sites can errors.Is on a
// single, documented catalogue.
package network

import "errors"

// Sentinel errors returned by Build. Each maps to exactly one validation
// rule; Build wraps them with the offending id for context, so match with
// errors.Is rather than equality.
var (
	// ErrInsufficientBuses is returned when fewer than two buses are supplied.
	ErrInsufficientBuses = errors.New("network: at least two buses are required")

	// ErrEmptyID is returned when a bus or branch carries an empty id.
	ErrEmptyID = errors.New("network: empty id")

	// ErrDuplicateBus is returned when two buses share the same id.
	ErrDuplicateBus = errors.New("network: duplicate bus id")

	// ErrDuplicateBranch is returned when two branches share the same id.
	ErrDuplicateBranch = errors.New("network: duplicate branch id")

	// ErrSlackBusCount is returned when the bus set does not contain exactly
	// one Slack bus.
	ErrSlackBusCount = errors.New("network: exactly one slack bus is required")

	// ErrUnknownBus is returned when a branch endpoint references a bus id
	// that does not exist in the bus set.
	ErrUnknownBus = errors.New("network: branch references unknown bus id")

	// ErrUnknownBranch is returned when WithoutBranch is asked to remove a
	// branch id the network does not contain.
	ErrUnknownBranch = errors.New("network: unknown branch id")

	// ErrSelfLoop is returned when a branch connects a bus to itself.
	ErrSelfLoop = errors.New("network: branch endpoints must be distinct")

	// ErrInvalidImpedance is returned when a branch series impedance has
	// zero magnitude (R == 0 and X == 0).
	ErrInvalidImpedance = errors.New("network: branch impedance magnitude must be > 0")

	// ErrInvalidBase is returned when a per-unit base is zero or negative.
	ErrInvalidBase = errors.New("network: per-unit bases must be > 0")

	// ErrInvalidBusType is returned when a Bus carries an out-of-range type tag.
	ErrInvalidBusType = errors.New("network: invalid bus type")
)

// BusType tags the solver update rule applied to a bus. It is an explicit
// tagged union: the Gauss-Seidel sweep dispatches on exactly these three
// variants and nothing else.
type BusType int

const (
	// Slack is the reference bus: fixed magnitude and angle, absorbs the
	// system power imbalance. Exactly one per network.
	Slack BusType = iota

	// PV holds real power and voltage magnitude fixed; the solver updates
	// the angle and the implied reactive power.
	PV

	// PQ holds real and reactive injection fixed; the solver updates both
	// magnitude and angle.
	PQ
)

// String returns the conventional short name of the bus type.
func (t BusType) String() string {
	switch t {
	case Slack:
		return "slack"
	case PV:
		return "pv"
	case PQ:
		return "pq"
	default:
		return "unknown"
	}
}

// valid reports whether t is one of the three declared variants.
func (t BusType) valid() bool {
	return t == Slack || t == PV || t == PQ
}

// Power is a complex power pair in per-unit on the system MVA base.
// Positive values mean injection for generation and consumption for load.
type Power struct {
	P float64 // real power, pu
	Q float64 // reactive power, pu
}

// Bus describes one node of the network. VoltageMag/VoltageAngle carry the
// input set-point (Slack, PV) or the initial estimate (PQ); the solver never
// writes back into a Bus, it keeps its own voltage vector.
type Bus struct {
	ID           string  // unique, non-empty
	Type         BusType // Slack, PV or PQ
	VoltageMag   float64 // per-unit magnitude; <= 0 means "start flat at 1.0"
	VoltageAngle float64 // radians; Slack conventionally 0

	Generation *Power // optional scheduled generation (required for PV)
	Load       *Power // optional scheduled load
}

// Branch describes one series element between two distinct buses.
// ShuntB is the total line charging susceptance; the admittance builder
// splits it evenly between the two end buses. Rating is the thermal limit
// in per-unit MVA on the system base; 0 means unrated.
type Branch struct {
	ID   string
	From string // bus id
	To   string // bus id

	R      float64 // series resistance, pu
	X      float64 // series reactance, pu
	ShuntB float64 // total shunt susceptance, pu (optional)
	Rating float64 // thermal rating, pu MVA (optional, 0 = unrated)
}

// gen returns the scheduled generation or zero when absent.
func (b *Bus) gen() Power {
	if b.Generation == nil {
		return Power{}
	}

	return *b.Generation
}

// load returns the scheduled load or zero when absent.
func (b *Bus) load() Power {
	if b.Load == nil {
		return Power{}
	}

	return *b.Load
}

// Injection returns the scheduled net injection gen − load at nominal
// voltage, before any load-model scaling. Complexity: O(1).
func (b *Bus) Injection() Power {
	g, l := b.gen(), b.load()

	return Power{P: g.P - l.P, Q: g.Q - l.Q}
}

// ScheduledLoad returns the constant-power portion of the bus load before
// voltage scaling (zero when no load is attached). Complexity: O(1).
func (b *Bus) ScheduledLoad() Power { return b.load() }

// ScheduledGen returns the scheduled generation (zero when none is
// attached). Complexity: O(1).
func (b *Bus) ScheduledGen() Power { return b.gen() }
