package contingency

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/voltlab/powerflow/loadflow"
	"github.com/voltlab/powerflow/network"
	"github.com/voltlab/powerflow/report"
	"github.com/voltlab/powerflow/ybus"
)

// Analyze evaluates every single-branch outage of net against the solved
// base case and returns the classified assessment.
//
// Preconditions (in order):
//  1. Options must be well-formed            → ErrOptionViolation.
//  2. net, baseY, baseSol non-nil            → ErrNil*.
//  3. Dimensions must agree                  → ErrDimensionMismatch.
//  4. The base case must have converged      → ErrBaseNotConverged.
//
// Every case works on its own clone of the admittance matrix and its own
// copy of the base voltages; the inputs are never written. With
// WithWorkers(n>1) cases run concurrently but land in their input-order
// slots, so the assessment is bit-identical to a sequential run.
//
// Complexity: O(L · (n² + solve)) for L branches.
func Analyze(net *network.Network, baseY *ybus.Matrix, baseSol *loadflow.Solution, opts ...Option) (*Assessment, error) {
	// 1) Resolve and validate options.
	cfg := DefaultOptions()
	var opt Option
	for _, opt = range opts {
		opt(&cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}

	// 2) Validate inputs.
	if net == nil {
		return nil, ErrNilNetwork
	}
	if baseY == nil {
		return nil, ErrNilMatrix
	}
	if baseSol == nil {
		return nil, ErrNilSolution
	}

	// 3) Validate dimensions.
	n := net.NumBuses()
	if baseY.Dim() != n || len(baseSol.Voltages) != n {
		return nil, fmt.Errorf("%w: %d buses, matrix %d, base solution %d",
			ErrDimensionMismatch, n, baseY.Dim(), len(baseSol.Voltages))
	}

	// 4) Refuse to warm-start from a bad operating point.
	if !baseSol.Converged {
		return nil, fmt.Errorf("%w: %d iterations, mismatch %.6g pu",
			ErrBaseNotConverged, baseSol.Iterations, baseSol.MaxMismatch)
	}

	a := &analyzer{net: net, baseY: baseY, baseSol: baseSol, cfg: cfg}

	cases := make([]Case, net.NumBranches())
	g, ctx := errgroup.WithContext(cfg.ctx)
	g.SetLimit(cfg.workers)
	var i int
	for i = 0; i < net.NumBranches(); i++ {
		idx := i
		g.Go(func() error {
			// Cancellation is observed once per case, not only at the
			// call boundary.
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
			default:
			}

			c, err := a.evalCase(idx)
			if err != nil {
				return err
			}
			cases[idx] = c

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Assessment{
		Cases:           cases,
		CriticalOutages: rank(cases),
	}, nil
}

// analyzer bundles the read-only inputs shared by all case evaluations.
type analyzer struct {
	net     *network.Network
	baseY   *ybus.Matrix
	baseSol *loadflow.Solution
	cfg     Options
}

// evalCase removes one branch and classifies the outcome. All mutable
// state (matrix clone, warm-start vector) is local to the call.
func (a *analyzer) evalCase(idx int) (Case, error) {
	br := a.net.Branch(idx)
	c := Case{BranchID: br.ID}

	// Reuse the base stamps: one unstamp instead of a full rebuild.
	reduced, err := a.baseY.WithoutBranch(a.net, br.ID)
	if err != nil {
		return c, fmt.Errorf("contingency: case %q: %w", br.ID, err)
	}

	// Connectivity first: a split island needs no iteration.
	if !reduced.Connected() {
		c.Outcome = Split

		return c, nil
	}

	// Solve and assemble against the reduced topology: the removed branch
	// must contribute neither flow nor loss to its own case, or the
	// conservation self-check sees a phantom loss.
	outage, err := a.net.WithoutBranch(br.ID)
	if err != nil {
		return c, fmt.Errorf("contingency: case %q: %w", br.ID, err)
	}

	// Warm-start from the pre-contingency voltages.
	sol, err := loadflow.Solve(outage, reduced,
		loadflow.WithInitialVoltages(a.baseSol.VoltageCopy()),
		loadflow.WithMaxIterations(a.cfg.maxIterations),
		loadflow.WithTolerance(a.cfg.tolerance),
		loadflow.WithLoadModel(a.cfg.cp, a.cfg.ci, a.cfg.cz),
	)
	if err != nil {
		// A zero diagonal can slip past the structural probe when the
		// residual tie is below tolerance; classify, don't propagate.
		if errors.Is(err, loadflow.ErrNetworkSplit) {
			c.Outcome = Split

			return c, nil
		}

		return c, fmt.Errorf("contingency: case %q: %w", br.ID, err)
	}

	c.Iterations = sol.Iterations
	c.MaxMismatch = sol.MaxMismatch
	if !sol.Converged {
		c.Outcome = Diverged

		return c, nil
	}

	rep, err := report.Assemble(outage, reduced, sol,
		report.WithComplianceBand(a.cfg.band),
		report.WithLoadModel(a.cfg.cp, a.cfg.ci, a.cfg.cz),
	)
	if err != nil {
		return c, fmt.Errorf("contingency: case %q: %w", br.ID, err)
	}

	if len(rep.Violations) > 0 {
		c.Outcome = Violating
		c.Violations = rep.Violations
	} else {
		c.Outcome = Secure
	}

	return c, nil
}

// rank orders the non-secure cases by severity class (Split, Diverged,
// Violating), ties broken by input branch order via the stable sort.
func rank(cases []Case) []string {
	picked := make([]int, 0, len(cases))
	var i int
	for i = 0; i < len(cases); i++ {
		if cases[i].Outcome != Secure {
			picked = append(picked, i)
		}
	}

	sort.SliceStable(picked, func(a, b int) bool {
		return cases[picked[a]].Outcome.severity() < cases[picked[b]].Outcome.severity()
	})

	out := make([]string, len(picked))
	for i = 0; i < len(picked); i++ {
		out[i] = cases[picked[i]].BranchID
	}

	return out
}
