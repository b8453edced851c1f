// Command smtplan is the planner CLI: it parses a PDDL domain and
// problem, grounds them, and searches for the smallest number of
// happenings at which an SMT solver finds the bounded encoding
// satisfiable.
//
// Exit status is 0 when the run completes, whether or not a plan was
// found; 1 on any parse, grounding, or I/O failure, and 1 when usage
// is printed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gitrdm/gosmtplan/pkg/pddl"
	"github.com/gitrdm/gosmtplan/pkg/planner"
	"github.com/gitrdm/gosmtplan/pkg/solver"
)

func main() {
	cmd, helpShown := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if *helpShown {
		os.Exit(1)
	}
}

type cliOptions struct {
	planner.Options
	SolverName string
	Verbose    bool
}

// newRootCmd builds the CLI. The returned flag reports whether usage
// was printed, so main can exit nonzero on a help-only invocation.
func newRootCmd() (*cobra.Command, *bool) {
	opts := cliOptions{Options: planner.DefaultOptions()}
	cmd := &cobra.Command{
		Use:   "smtplan DOMAIN PROBLEM",
		Short: "Bounded temporal planner over SMT",
		Long: `smtplan grounds a PDDL domain/problem pair, optionally prunes it
against a relaxed planning graph, and encodes it at successive
happening counts until the chosen solver reports satisfiability.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DomainPath = args[0]
			opts.ProblemPath = args[1]
			return run(cmd.Context(), opts)
		},
	}

	noSolve := addFlags(cmd.Flags(), &opts)

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		opts.Solve = !*noSolve
	}

	helpShown := new(bool)
	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		*helpShown = true
		fmt.Fprint(c.ErrOrStderr(), c.UsageString())
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd.SetContext(ctx)
	cobra.OnFinalize(stop)

	return cmd, helpShown
}

func addFlags(f *pflag.FlagSet, opts *cliOptions) *bool {
	f.IntVarP(&opts.LowerBound, "lower", "l", opts.LowerBound, "first happening count to try")
	f.IntVarP(&opts.UpperBound, "upper", "u", opts.UpperBound, "last happening count to try (negative = unbounded)")
	f.IntVarP(&opts.StepSize, "step", "s", opts.StepSize, "happening count increment between iterations")
	f.BoolVarP(&opts.Prune, "prune", "p", false, "restrict the encoding to relaxed-reachable elements")
	f.BoolVarP(&opts.RPGLowerBound, "rpg-lower", "r", false, "raise the lower bound to the relaxed graph's goal layer")
	f.StringVarP(&opts.OutputPath, "output", "o", "", "write each iteration's encoding to this file")
	f.BoolVarP(&opts.ExplanatoryNames, "explain", "e", false, "use human-readable variable names in the encoding")
	noSolve := f.BoolP("no-solve", "n", false, "emit the encoding at the lower bound without solving")
	f.IntVar(&opts.Workers, "workers", opts.Workers, "solve this many happening counts concurrently")
	f.StringVar(&opts.SolverName, "solver", "z3", "decision procedure: z3 or gini")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	return noSolve
}

func run(ctx context.Context, opts cliOptions) error {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if err := opts.Options.Validate(); err != nil {
		return err
	}

	watch := planner.NewStopwatch()

	dom, prob, err := parseInputs(opts.Options)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"domain":  dom.Name,
		"problem": prob.Name,
		"elapsed": watch.Lap(),
	}).Info("parsed")

	model, err := planner.Ground(dom, prob)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"atoms":   len(model.Atoms),
		"fluents": len(model.Fluents),
		"actions": len(model.Actions),
		"elapsed": watch.Lap(),
	}).Info("grounded")

	var reach *planner.Reachability
	if opts.Prune || opts.RPGLowerBound {
		reach = planner.BuildRPG(model)
		log.WithFields(logrus.Fields{
			"layers":     reach.Layers,
			"goal_layer": reach.GoalLayer,
			"elapsed":    watch.Lap(),
		}).Info("relaxed planning graph built")
	}

	if !opts.Solve {
		ctrl := planner.NewController(model, reach, nil, opts.Options, log, watch)
		return ctrl.Emit(reach, os.Stdout)
	}

	solv, err := selectSolver(opts.SolverName)
	if err != nil {
		return err
	}
	ctrl := planner.NewController(model, reach, solv, opts.Options, log, watch)

	res, err := ctrl.Run(ctx, reach)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"iterations": res.Iterations,
		"elapsed":    watch.Total(),
	}).Info("search finished")
	fmt.Println(resultLine(res, opts.UpperBound))
	return nil
}

// resultLine is the terminal summary. Not-found runs report the
// configured upper bound, since that is the extent of what the search
// has ruled out.
func resultLine(res planner.Result, upper int) string {
	if res.Found {
		return fmt.Sprintf("Plan found at %d happenings", res.Happenings)
	}
	if upper < 0 {
		return "No plan found"
	}
	return fmt.Sprintf("No plan found in %d happenings", upper)
}

func parseInputs(opts planner.Options) (*pddl.Domain, *pddl.Problem, error) {
	domSrc, err := os.ReadFile(opts.DomainPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read domain")
	}
	probSrc, err := os.ReadFile(opts.ProblemPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read problem")
	}
	dom, err := pddl.ParseDomain(string(domSrc))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "domain %s", opts.DomainPath)
	}
	prob, err := pddl.ParseProblem(string(probSrc))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "problem %s", opts.ProblemPath)
	}
	if prob.DomainName != "" && prob.DomainName != dom.Name {
		return nil, nil, errors.Errorf("problem targets domain %q, got %q", prob.DomainName, dom.Name)
	}
	return dom, prob, nil
}

func selectSolver(name string) (solver.Interface, error) {
	switch name {
	case "z3":
		return &solver.Z3{}, nil
	case "gini":
		return &solver.Gini{}, nil
	}
	return nil, errors.Errorf("unknown solver %q (want z3 or gini)", name)
}
