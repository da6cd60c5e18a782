// Package powerflow: the external contract. Input/Output mirror the data
// the presentation layer exchanges with the engine; every field carries a
// JSON tag so callers can marshal the pair directly.
package powerflow

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors raised by Calculate before any computation starts.
// Structural network errors (insufficient buses, slack count, unknown bus,
// invalid impedance) surface as the network package sentinels; solver
// option errors as loadflow.ErrOptionViolation.
var (
	// ErrInvalidSystemData is returned when systemVoltage or baseKVA is
	// not a positive finite number.
	ErrInvalidSystemData = errors.New("powerflow: systemVoltage and baseKVA must be > 0")

	// ErrUnknownBusType is returned when a bus carries a type tag other
	// than "slack", "pv" or "pq".
	ErrUnknownBusType = errors.New("powerflow: unknown bus type")

	// ErrLoadModelMix is returned when the ZIP fractions are negative or
	// do not sum to 100.
	ErrLoadModelMix = errors.New("powerflow: load model fractions must be non-negative and sum to 100")

	// ErrOptionViolation is returned when an invalid facade option was
	// supplied.
	ErrOptionViolation = errors.New("powerflow: invalid option supplied")
)

// SystemData carries the bases and descriptive system parameters.
// Frequency and SystemType are passed through untouched: the balanced
// positive-sequence solution does not depend on them.
type SystemData struct {
	SystemVoltage float64 `json:"systemVoltage"` // volts, nominal
	Frequency     float64 `json:"frequency"`     // Hz, informational
	SystemType    string  `json:"systemType"`    // informational
	BaseKVA       float64 `json:"baseKVA"`       // power base, kVA
}

// PowerPair is a real/reactive pair in kW/kVAR.
type PowerPair struct {
	P float64 `json:"p"` // kW
	Q float64 `json:"q"` // kVAR
}

// InputBus is one node in engineering units.
type InputBus struct {
	BusID           string     `json:"busId"`
	Voltage         float64    `json:"voltage"` // volts; set-point or initial estimate
	Angle           float64    `json:"angle"`   // degrees
	BusType         string     `json:"busType"` // "slack" | "pv" | "pq"
	PowerGeneration *PowerPair `json:"powerGeneration,omitempty"`
	PowerLoad       *PowerPair `json:"powerLoad,omitempty"`
}

// InputBranch is one series element in engineering units.
type InputBranch struct {
	BranchID    string  `json:"branchId"`
	FromBus     string  `json:"fromBus"`
	ToBus       string  `json:"toBus"`
	Resistance  float64 `json:"resistance"`            // ohms
	Reactance   float64 `json:"reactance"`             // ohms
	Susceptance float64 `json:"susceptance,omitempty"` // siemens, total charging
	RatingMVA   float64 `json:"ratingMVA,omitempty"`   // MVA; 0 = unrated
}

// LoadModelMix is the ZIP composition in percent; the three fractions
// must sum to 100.
type LoadModelMix struct {
	ConstantPower     float64 `json:"constantPower"`
	ConstantCurrent   float64 `json:"constantCurrent"`
	ConstantImpedance float64 `json:"constantImpedance"`
}

// ConvergenceCriteria bounds the iterative solve.
type ConvergenceCriteria struct {
	MaxIterations int     `json:"maxIterations"` // > 0
	Tolerance     float64 `json:"tolerance"`     // pu power mismatch, > 0
}

// Input is the full calculation request.
type Input struct {
	SystemData SystemData          `json:"systemData"`
	Buses      []InputBus          `json:"buses"`
	Branches   []InputBranch       `json:"branches"`
	LoadModels LoadModelMix        `json:"loadModels"`
	Criteria   ConvergenceCriteria `json:"convergenceCriteria"`
}

// VoltagePhasor is a solved bus voltage in engineering units.
type VoltagePhasor struct {
	Magnitude float64 `json:"magnitude"` // volts
	Angle     float64 `json:"angle"`     // degrees
}

// BusResult is the per-bus slice of the Output.
type BusResult struct {
	BusID                  string        `json:"busId"`
	Voltage                VoltagePhasor `json:"voltage"`
	VoltageDropFromNominal float64       `json:"voltageDropFromNominal"` // percent; positive = sag
	Compliance             bool          `json:"compliance"`
}

// BranchResult is the per-branch slice of the Output.
type BranchResult struct {
	BranchID string  `json:"branchId"`
	Current  float64 `json:"current"` // amperes
	Loading  float64 `json:"loading"` // percent of rating; 0 when unrated
}

// SystemSummary aggregates the system totals in kW.
type SystemSummary struct {
	TotalGeneration        float64 `json:"totalGeneration"`
	TotalLoad              float64 `json:"totalLoad"`
	TotalLosses            float64 `json:"totalLosses"`
	VoltageLimitViolations int     `json:"voltageLimitViolations"`
}

// ContingencyAnalysis carries the ranked N-1 screen.
type ContingencyAnalysis struct {
	CriticalOutages []string `json:"criticalOutages"`
}

// Output is the full calculation result. Converged=false is a normal
// outcome; Recommendations then leads with the reason the snapshot is
// unreliable.
type Output struct {
	Converged           bool                 `json:"converged"`
	Iterations          int                  `json:"iterations"`
	BusResults          []BusResult          `json:"busResults"`
	BranchResults       []BranchResult       `json:"branchResults"`
	SystemSummary       SystemSummary        `json:"systemSummary"`
	ContingencyAnalysis *ContingencyAnalysis `json:"contingencyAnalysis,omitempty"`
	Recommendations     []string             `json:"recommendations"`
}

// Documented defaults for the facade options.
const (
	// DefaultComplianceBand is the ± voltage band, as a fraction.
	DefaultComplianceBand = 0.10

	// DefaultWorkers evaluates contingency cases sequentially.
	DefaultWorkers = 1
)

// Options holds the resolved facade configuration.
type Options struct {
	contingency bool
	workers     int
	band        float64
	err         error
}

// Option configures Calculate via functional arguments.
type Option func(*Options)

// DefaultOptions returns the documented defaults: no contingency sweep,
// sequential workers, ±10% band.
func DefaultOptions() Options {
	return Options{
		workers: DefaultWorkers,
		band:    DefaultComplianceBand,
	}
}

// WithContingencyAnalysis enables the N-1 screen; its result lands in
// Output.ContingencyAnalysis.
func WithContingencyAnalysis() Option {
	return func(o *Options) { o.contingency = true }
}

// WithWorkers bounds the parallel contingency evaluations. Must be ≥ 1.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n < 1 {
			o.fail(fmt.Errorf("%w: workers=%d", ErrOptionViolation, n))

			return
		}
		o.workers = n
	}
}

// WithComplianceBand sets the ± voltage band as a fraction of nominal.
func WithComplianceBand(frac float64) Option {
	return func(o *Options) {
		if frac <= 0 || math.IsNaN(frac) || math.IsInf(frac, 0) {
			o.fail(fmt.Errorf("%w: compliance band %g", ErrOptionViolation, frac))

			return
		}
		o.band = frac
	}
}

// fail records the first option error.
func (o *Options) fail(err error) {
	if o.err == nil {
		o.err = err
	}
}
