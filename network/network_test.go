// Package network_test validates Build's rule catalogue and the
// immutability guarantees of the resulting Network.
package network_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voltlab/powerflow/network"
)

// twoBus returns the minimal valid model: one slack, one PQ load, one branch.
func twoBus() ([]network.Bus, []network.Branch) {
	buses := []network.Bus{
		{ID: "B1", Type: network.Slack, VoltageMag: 1.0},
		{ID: "B2", Type: network.PQ, VoltageMag: 1.0, Load: &network.Power{P: 0.8, Q: 0.4}},
	}
	branches := []network.Branch{
		{ID: "L1", From: "B1", To: "B2", R: 0.0625, X: 0.09375},
	}

	return buses, branches
}

func TestBuild_Valid(t *testing.T) {
	buses, branches := twoBus()
	net, err := network.Build(buses, branches, 0.4, 0.1)
	require.NoError(t, err)
	require.Equal(t, 2, net.NumBuses())
	require.Equal(t, 1, net.NumBranches())
	require.Equal(t, 0, net.Slack())
	require.Equal(t, 0.4, net.BaseKV())
	require.Equal(t, 0.1, net.BaseMVA())

	i, ok := net.BusIndex("B2")
	require.True(t, ok)
	require.Equal(t, 1, i)

	_, ok = net.BranchIndex("missing")
	require.False(t, ok)
}

func TestBuild_InsufficientBuses(t *testing.T) {
	// A single-bus network carries nothing to solve.
	buses := []network.Bus{{ID: "B1", Type: network.Slack, VoltageMag: 1.0}}
	_, err := network.Build(buses, nil, 0.4, 0.1)
	require.ErrorIs(t, err, network.ErrInsufficientBuses)
}

func TestBuild_SlackBusCount(t *testing.T) {
	// Two PV buses and no slack: no reference for the angle datum.
	buses := []network.Bus{
		{ID: "B1", Type: network.PV, VoltageMag: 1.0, Generation: &network.Power{P: 0.5}},
		{ID: "B2", Type: network.PV, VoltageMag: 1.0, Generation: &network.Power{P: 0.5}},
	}
	_, err := network.Build(buses, nil, 0.4, 0.1)
	require.ErrorIs(t, err, network.ErrSlackBusCount)

	// Two slack buses fail the same rule.
	buses[0].Type = network.Slack
	buses[1].Type = network.Slack
	_, err = network.Build(buses, nil, 0.4, 0.1)
	require.ErrorIs(t, err, network.ErrSlackBusCount)
}

func TestBuild_DuplicateBus(t *testing.T) {
	buses, branches := twoBus()
	buses[1].ID = "B1"
	_, err := network.Build(buses, branches, 0.4, 0.1)
	require.ErrorIs(t, err, network.ErrDuplicateBus)
}

func TestBuild_UnknownBus(t *testing.T) {
	buses, branches := twoBus()
	branches[0].To = "B9"
	_, err := network.Build(buses, branches, 0.4, 0.1)
	require.ErrorIs(t, err, network.ErrUnknownBus)
}

func TestBuild_SelfLoop(t *testing.T) {
	buses, branches := twoBus()
	branches[0].To = "B1"
	_, err := network.Build(buses, branches, 0.4, 0.1)
	require.ErrorIs(t, err, network.ErrSelfLoop)
}

func TestBuild_InvalidImpedance(t *testing.T) {
	buses, branches := twoBus()
	branches[0].R = 0
	branches[0].X = 0
	_, err := network.Build(buses, branches, 0.4, 0.1)
	require.ErrorIs(t, err, network.ErrInvalidImpedance)
}

func TestBuild_InvalidBase(t *testing.T) {
	buses, branches := twoBus()
	_, err := network.Build(buses, branches, 0, 0.1)
	require.ErrorIs(t, err, network.ErrInvalidBase)
	_, err = network.Build(buses, branches, 0.4, -1)
	require.ErrorIs(t, err, network.ErrInvalidBase)
}

func TestBuild_DuplicateBranch(t *testing.T) {
	buses, branches := twoBus()
	branches = append(branches, branches[0])
	_, err := network.Build(buses, branches, 0.4, 0.1)
	require.ErrorIs(t, err, network.ErrDuplicateBranch)
}

func TestNetwork_Immutability(t *testing.T) {
	buses, branches := twoBus()
	net, err := network.Build(buses, branches, 0.4, 0.1)
	require.NoError(t, err)

	// Mutating the caller's input after Build must not leak inside.
	buses[1].Load.P = 99
	branches[0].R = 99
	require.Equal(t, 0.8, net.Bus(1).Load.P)
	require.Equal(t, 0.0625, net.Branch(0).R)

	// Mutating copies handed out by accessors must not leak either.
	got := net.Buses()
	got[0].ID = "hacked"
	require.Equal(t, "B1", net.Bus(0).ID)

	gotBr := net.Branches()
	gotBr[0].X = 0
	require.Equal(t, 0.09375, net.Branch(0).X)
}

func TestNetwork_WithoutBranch(t *testing.T) {
	buses := []network.Bus{
		{ID: "B1", Type: network.Slack, VoltageMag: 1.0},
		{ID: "B2", Type: network.PQ, VoltageMag: 1.0},
		{ID: "B3", Type: network.PQ, VoltageMag: 1.0},
	}
	branches := []network.Branch{
		{ID: "L1", From: "B1", To: "B2", R: 0.02, X: 0.06},
		{ID: "L2", From: "B2", To: "B3", R: 0.02, X: 0.06},
		{ID: "L3", From: "B1", To: "B3", R: 0.02, X: 0.06},
	}
	net, err := network.Build(buses, branches, 0.4, 0.1)
	require.NoError(t, err)

	reduced, err := net.WithoutBranch("L2")
	require.NoError(t, err)

	// Buses, bases and bus order survive; only the branch is gone.
	require.Equal(t, 3, reduced.NumBuses())
	require.Equal(t, net.Buses(), reduced.Buses())
	require.Equal(t, net.BaseKV(), reduced.BaseKV())
	require.Equal(t, 2, reduced.NumBranches())
	require.Equal(t, "L1", reduced.Branch(0).ID)
	require.Equal(t, "L3", reduced.Branch(1).ID)

	_, ok := reduced.BranchIndex("L2")
	require.False(t, ok)
	i, ok := reduced.BranchIndex("L3")
	require.True(t, ok)
	require.Equal(t, 1, i)

	// The receiver is untouched.
	require.Equal(t, 3, net.NumBranches())
	_, ok = net.BranchIndex("L2")
	require.True(t, ok)

	_, err = net.WithoutBranch("L99")
	require.ErrorIs(t, err, network.ErrUnknownBranch)
}

func TestBus_Injection(t *testing.T) {
	b := network.Bus{
		ID:         "G1",
		Type:       network.PV,
		Generation: &network.Power{P: 0.5, Q: 0.1},
		Load:       &network.Power{P: 0.2, Q: 0.05},
	}
	inj := b.Injection()
	require.InDelta(t, 0.3, inj.P, 1e-15)
	require.InDelta(t, 0.05, inj.Q, 1e-15)

	// Absent pointers behave as zero power.
	empty := network.Bus{ID: "X", Type: network.PQ}
	require.Equal(t, network.Power{}, empty.Injection())
}

func TestBusType_String(t *testing.T) {
	require.Equal(t, "slack", network.Slack.String())
	require.Equal(t, "pv", network.PV.String())
	require.Equal(t, "pq", network.PQ.String())
	require.Equal(t, "unknown", network.BusType(42).String())
}
