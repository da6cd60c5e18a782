// Package loadflow_test exercises the Gauss-Seidel solver: convergence on
// small feeders, PV magnitude pinning, ZIP load scaling, warm starts,
// split detection, determinism, and the option catalogue.
package loadflow_test

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/voltlab/powerflow/loadflow"
	"github.com/voltlab/powerflow/network"
	"github.com/voltlab/powerflow/ybus"
)

// mustBuild assembles a network and its admittance matrix or fails the test.
func mustBuild(t *testing.T, buses []network.Bus, branches []network.Branch) (*network.Network, *ybus.Matrix) {
	t.Helper()
	net, err := network.Build(buses, branches, 0.4, 0.1)
	require.NoError(t, err)
	y, err := ybus.Build(net)
	require.NoError(t, err)

	return net, y
}

// twoBusFeeder: slack feeding one PQ load over a single branch.
// Per-unit twin of the 400 V / 80 kW / 0.1+j0.15 Ω reference case.
func twoBusFeeder(t *testing.T) (*network.Network, *ybus.Matrix) {
	t.Helper()
	buses := []network.Bus{
		{ID: "B1", Type: network.Slack, VoltageMag: 1.0},
		{ID: "B2", Type: network.PQ, VoltageMag: 1.0, Load: &network.Power{P: 0.8, Q: 0.4}},
	}
	branches := []network.Branch{
		{ID: "L1", From: "B1", To: "B2", R: 0.0625, X: 0.09375},
	}

	return mustBuild(t, buses, branches)
}

// SolverSuite groups the happy-path scenarios.
type SolverSuite struct {
	suite.Suite
}

func TestSolverSuite(t *testing.T) { suite.Run(t, new(SolverSuite)) }

// TestTwoBusConverges checks the radial reference case: the load bus must
// settle below the source voltage and the mismatch must be inside tolerance.
func (s *SolverSuite) TestTwoBusConverges() {
	net, y := twoBusFeeder(s.T())

	sol, err := loadflow.Solve(net, y)
	require.NoError(s.T(), err)
	require.True(s.T(), sol.Converged)
	require.False(s.T(), sol.Diverged)
	require.LessOrEqual(s.T(), sol.Iterations, loadflow.DefaultMaxIterations)
	require.Less(s.T(), sol.MaxMismatch, loadflow.DefaultTolerance)

	// Power flows toward the load, so the load bus sags below 1.0 pu.
	mag := cmplxAbs(sol.Voltages[1])
	require.Less(s.T(), mag, 1.0)
	require.Greater(s.T(), mag, 0.8, "sane drop for this loading")

	// Slack phasor is fixed at input and never mutated.
	require.Equal(s.T(), complex(1, 0), sol.Voltages[0])
}

// TestPVBusHoldsMagnitude verifies the PV update rule: angle moves,
// magnitude stays pinned at the set-point, reactive power floats.
func (s *SolverSuite) TestPVBusHoldsMagnitude() {
	buses := []network.Bus{
		{ID: "B1", Type: network.Slack, VoltageMag: 1.0},
		{ID: "B2", Type: network.PV, VoltageMag: 1.02, Generation: &network.Power{P: 0.3}},
		{ID: "B3", Type: network.PQ, VoltageMag: 1.0, Load: &network.Power{P: 0.6, Q: 0.25}},
	}
	branches := []network.Branch{
		{ID: "L12", From: "B1", To: "B2", R: 0.02, X: 0.08},
		{ID: "L23", From: "B2", To: "B3", R: 0.03, X: 0.09},
		{ID: "L13", From: "B1", To: "B3", R: 0.025, X: 0.1},
	}
	net, y := mustBuild(s.T(), buses, branches)

	sol, err := loadflow.Solve(net, y, loadflow.WithMaxIterations(2000))
	require.NoError(s.T(), err)
	require.True(s.T(), sol.Converged)
	require.InDelta(s.T(), 1.02, cmplxAbs(sol.Voltages[1]), 1e-9)

	// The PV bus exports real power, so its angle leads the slack.
	require.NotZero(s.T(), sol.Voltages[1])
}

// TestZeroInjectionPassThrough: a bus with no load or generation still
// participates as a pass-through node on a radial feeder.
func (s *SolverSuite) TestZeroInjectionPassThrough() {
	buses := []network.Bus{
		{ID: "B1", Type: network.Slack, VoltageMag: 1.0},
		{ID: "B2", Type: network.PQ, VoltageMag: 1.0}, // pass-through
		{ID: "B3", Type: network.PQ, VoltageMag: 1.0, Load: &network.Power{P: 0.5, Q: 0.2}},
	}
	branches := []network.Branch{
		{ID: "L12", From: "B1", To: "B2", R: 0.02, X: 0.06},
		{ID: "L23", From: "B2", To: "B3", R: 0.04, X: 0.12},
	}
	net, y := mustBuild(s.T(), buses, branches)

	sol, err := loadflow.Solve(net, y)
	require.NoError(s.T(), err)
	require.True(s.T(), sol.Converged)

	// Voltage sags monotonically along the radial feeder.
	v1 := cmplxAbs(sol.Voltages[0])
	v2 := cmplxAbs(sol.Voltages[1])
	v3 := cmplxAbs(sol.Voltages[2])
	require.Greater(s.T(), v1, v2)
	require.Greater(s.T(), v2, v3)
}

// TestConstantImpedanceRelievesVoltage: with the same schedule, a pure
// constant-impedance load draws less power at depressed voltage than a
// constant-power load, so the bus settles higher.
func (s *SolverSuite) TestConstantImpedanceRelievesVoltage() {
	netP, yP := twoBusFeeder(s.T())
	solP, err := loadflow.Solve(netP, yP,
		loadflow.WithLoadModel(100, 0, 0))
	require.NoError(s.T(), err)
	require.True(s.T(), solP.Converged)

	netZ, yZ := twoBusFeeder(s.T())
	solZ, err := loadflow.Solve(netZ, yZ,
		loadflow.WithLoadModel(0, 0, 100))
	require.NoError(s.T(), err)
	require.True(s.T(), solZ.Converged)

	require.Greater(s.T(), cmplxAbs(solZ.Voltages[1]), cmplxAbs(solP.Voltages[1]))
}

// TestWarmStartFromOwnSolution: re-solving from a converged state must
// satisfy the tolerance on the first sweep.
func (s *SolverSuite) TestWarmStartFromOwnSolution() {
	net, y := twoBusFeeder(s.T())

	base, err := loadflow.Solve(net, y)
	require.NoError(s.T(), err)
	require.True(s.T(), base.Converged)

	warm, err := loadflow.Solve(net, y, loadflow.WithInitialVoltages(base.VoltageCopy()))
	require.NoError(s.T(), err)
	require.True(s.T(), warm.Converged)
	require.Equal(s.T(), 1, warm.Iterations)
}

// TestDeterminism: identical input yields bit-identical voltages.
func (s *SolverSuite) TestDeterminism() {
	net, y := twoBusFeeder(s.T())

	a, err := loadflow.Solve(net, y)
	require.NoError(s.T(), err)
	b, err := loadflow.Solve(net, y)
	require.NoError(s.T(), err)

	require.Equal(s.T(), a.Voltages, b.Voltages)
	require.Equal(s.T(), a.Iterations, b.Iterations)
	require.Equal(s.T(), a.MaxMismatch, b.MaxMismatch)
}

// ------------------------------------------------------------------------
// Structural failures and reportable non-convergence.
// ------------------------------------------------------------------------

func TestSolve_TightToleranceExhaustsBudget(t *testing.T) {
	// An unreachable tolerance must terminate with Converged=false and
	// Iterations equal to the budget, never loop indefinitely.
	net, y := twoBusFeeder(t)

	sol, err := loadflow.Solve(net, y,
		loadflow.WithTolerance(1e-12),
		loadflow.WithMaxIterations(3))
	require.NoError(t, err)
	require.False(t, sol.Converged)
	require.Equal(t, 3, sol.Iterations)
	require.Greater(t, sol.MaxMismatch, 0.0)
}

func TestSolve_IsolatedBusIsNetworkSplit(t *testing.T) {
	// B3 has no branch at all: zero diagonal, rejected before iteration.
	buses := []network.Bus{
		{ID: "B1", Type: network.Slack, VoltageMag: 1.0},
		{ID: "B2", Type: network.PQ, VoltageMag: 1.0},
		{ID: "B3", Type: network.PQ, VoltageMag: 1.0},
	}
	branches := []network.Branch{
		{ID: "L12", From: "B1", To: "B2", R: 0.02, X: 0.06},
	}
	net, y := mustBuild(t, buses, branches)

	_, err := loadflow.Solve(net, y)
	require.ErrorIs(t, err, loadflow.ErrNetworkSplit)
}

func TestSolve_TwoIslandsIsNetworkSplit(t *testing.T) {
	// Both islands have nonzero diagonals; only the connectivity probe
	// can see the split.
	buses := []network.Bus{
		{ID: "B1", Type: network.Slack, VoltageMag: 1.0},
		{ID: "B2", Type: network.PQ, VoltageMag: 1.0},
		{ID: "B3", Type: network.PQ, VoltageMag: 1.0},
		{ID: "B4", Type: network.PQ, VoltageMag: 1.0},
	}
	branches := []network.Branch{
		{ID: "L12", From: "B1", To: "B2", R: 0.02, X: 0.06},
		{ID: "L34", From: "B3", To: "B4", R: 0.02, X: 0.06},
	}
	net, y := mustBuild(t, buses, branches)

	_, err := loadflow.Solve(net, y)
	require.ErrorIs(t, err, loadflow.ErrNetworkSplit)
}

func TestSolve_DivergenceIsReportedNotThrown(t *testing.T) {
	// A zero warm-start phasor forces a division blow-up on the first
	// sweep; the solver must flag Diverged instead of erroring.
	net, y := twoBusFeeder(t)

	sol, err := loadflow.Solve(net, y,
		loadflow.WithInitialVoltages([]complex128{complex(1, 0), 0}))
	require.NoError(t, err)
	require.True(t, sol.Diverged)
	require.False(t, sol.Converged)
	require.GreaterOrEqual(t, sol.Iterations, 1)
}

func TestSolve_NilArguments(t *testing.T) {
	net, y := twoBusFeeder(t)

	_, err := loadflow.Solve(nil, y)
	require.ErrorIs(t, err, loadflow.ErrNilNetwork)

	_, err = loadflow.Solve(net, nil)
	require.ErrorIs(t, err, loadflow.ErrNilMatrix)
}

func TestSolve_DimensionMismatch(t *testing.T) {
	net, _ := twoBusFeeder(t)
	wrong, err := ybus.NewMatrix(5)
	require.NoError(t, err)

	_, err = loadflow.Solve(net, wrong)
	require.ErrorIs(t, err, loadflow.ErrDimensionMismatch)

	_, y := twoBusFeeder(t)
	_, err = loadflow.Solve(net, y, loadflow.WithInitialVoltages([]complex128{1}))
	require.ErrorIs(t, err, loadflow.ErrDimensionMismatch)
}

func TestSolve_OptionViolations(t *testing.T) {
	net, y := twoBusFeeder(t)

	cases := []loadflow.Option{
		loadflow.WithMaxIterations(0),
		loadflow.WithTolerance(-1),
		loadflow.WithLoadModel(50, 0, 0),        // sums to 50
		loadflow.WithLoadModel(-10, 60, 50),     // negative fraction
		loadflow.WithInitialVoltages(nil),       // empty warm start
		loadflow.WithInitialVoltages([]complex128{}),
	}
	for i, opt := range cases {
		_, err := loadflow.Solve(net, y, opt)
		require.ErrorIs(t, err, loadflow.ErrOptionViolation, "case %d", i)
	}
}

// cmplxAbs keeps the assertion blocks short.
func cmplxAbs(c complex128) float64 { return cmplx.Abs(c) }
