package planner

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gitrdm/gosmtplan/internal/parallel"
	"github.com/gitrdm/gosmtplan/pkg/smt"
	"github.com/gitrdm/gosmtplan/pkg/solver"
)

// Result is the outcome of a bounded search. Found false means no plan
// exists within the explored happening counts, which is conclusive
// only up to the configured upper bound.
type Result struct {
	Found bool
	// Happenings is the count at which a plan was found, or the last
	// count explored.
	Happenings int
	// Iterations counts the solver consultations performed.
	Iterations int
}

// Controller runs the iterative-deepening search: encode at the
// current happening count, consult the solver, and grow the count
// until satisfiable or the upper bound is exceeded. The model and
// reachability are read-only throughout, so the speculative mode can
// run several counts concurrently against the same Controller.
type Controller struct {
	model  *Model
	enc    *Encoder
	solver solver.Interface
	opts   Options
	log    *logrus.Logger
	watch  *Stopwatch
}

// NewController assembles a search controller. The solver may be nil
// only for emit-only runs; a nil watch starts a fresh one.
func NewController(m *Model, r *Reachability, s solver.Interface, opts Options, log *logrus.Logger, watch *Stopwatch) *Controller {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	if watch == nil {
		watch = NewStopwatch()
	}
	return &Controller{
		model:  m,
		enc:    NewEncoder(m, r, opts),
		solver: s,
		opts:   opts,
		log:    log,
		watch:  watch,
	}
}

// lowerBound resolves the first happening count to try, honoring the
// relaxed-graph override when requested.
//
// The override can also prove the whole search futile: a goal the
// relaxed graph cannot reach is unreachable outright.
func (c *Controller) lowerBound(r *Reachability) (int, bool) {
	lower := c.opts.LowerBound
	if c.opts.RPGLowerBound && r != nil {
		if r.GoalLayer < 0 {
			return 0, false
		}
		if r.GoalLayer > lower {
			lower = r.GoalLayer
		}
	}
	if lower < 1 {
		lower = 1
	}
	return lower, true
}

// Emit encodes once at the resolved lower bound and writes the
// formula to the configured output path, or to w when no path is set.
// The solver is never consulted.
func (c *Controller) Emit(r *Reachability, w io.Writer) error {
	lower, feasible := c.lowerBound(r)
	if !feasible {
		return errors.New("goal is unreachable in the relaxed planning graph")
	}
	start := time.Now()
	doc, err := c.enc.Encode(lower)
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{
		"happenings":   lower,
		"declarations": doc.NumDeclarations(),
		"assertions":   doc.NumAssertions(),
		"elapsed":      time.Since(start),
	}).Info("encoded")
	if c.opts.OutputPath != "" {
		return c.writeFile(doc)
	}
	return doc.Render(w)
}

// Run performs the search. A nil error with Found false means the
// bounded exploration completed without a plan; solver failures on
// individual iterations are logged and skipped rather than aborting
// the run, since a later count may still succeed. Encoding-output
// failures are not tolerated that way: they are deterministic, so the
// run aborts with the *EncodingError.
func (c *Controller) Run(ctx context.Context, r *Reachability) (Result, error) {
	if err := c.opts.Validate(); err != nil {
		return Result{}, err
	}
	if c.solver == nil {
		return Result{}, errors.New("search requires a solver")
	}
	lower, feasible := c.lowerBound(r)
	if !feasible {
		c.log.Info("goal unreachable in relaxed planning graph; skipping search")
		return Result{}, nil
	}
	if c.model.Goal.Impossible {
		c.log.Info("goal grounded to constant false; skipping search")
		return Result{}, nil
	}
	if c.opts.Workers > 1 {
		return c.runSpeculative(ctx, lower)
	}
	return c.runSequential(ctx, lower)
}

func (c *Controller) runSequential(ctx context.Context, lower int) (Result, error) {
	res := Result{Happenings: lower}
	for n := lower; c.opts.UpperBound < 0 || n <= c.opts.UpperBound; n += c.opts.StepSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		verdict, err := c.checkAt(ctx, n)
		res.Iterations++
		res.Happenings = n
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			var encErr *EncodingError
			if errors.As(err, &encErr) {
				return res, err
			}
			c.log.WithError(err).WithField("happenings", n).Warn("solver failed; trying next bound")
			continue
		}
		switch verdict {
		case solver.Sat:
			res.Found = true
			return res, nil
		case solver.Unsat:
			c.log.WithField("happenings", n).Debug("unsatisfiable")
		default:
			c.log.WithField("happenings", n).Warn("solver verdict unknown; trying next bound")
		}
	}
	return res, nil
}

// runSpeculative explores happening counts in batches of Workers,
// solving each batch concurrently. Within a batch the smallest
// satisfiable count wins; an unknown verdict below a satisfiable one
// is reported, since minimality is then not guaranteed.
func (c *Controller) runSpeculative(ctx context.Context, lower int) (Result, error) {
	pool := parallel.NewWorkerPool(c.opts.Workers)
	defer pool.Shutdown()

	type trial struct {
		n       int
		verdict solver.Verdict
		err     error
	}

	res := Result{Happenings: lower}
	next := lower
	for c.opts.UpperBound < 0 || next <= c.opts.UpperBound {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		batch := make([]trial, 0, c.opts.Workers)
		for len(batch) < c.opts.Workers && (c.opts.UpperBound < 0 || next <= c.opts.UpperBound) {
			batch = append(batch, trial{n: next})
			next += c.opts.StepSize
		}

		var wg sync.WaitGroup
		for i := range batch {
			i := i
			wg.Add(1)
			err := pool.Submit(ctx, func() {
				defer wg.Done()
				batch[i].verdict, batch[i].err = c.checkAt(ctx, batch[i].n)
			})
			if err != nil {
				wg.Done()
				batch[i].err = err
			}
		}
		wg.Wait()

		inconclusive := false
		for _, t := range batch {
			res.Iterations++
			res.Happenings = t.n
			if t.err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				var encErr *EncodingError
				if errors.As(t.err, &encErr) {
					return res, t.err
				}
				c.log.WithError(t.err).WithField("happenings", t.n).Warn("solver failed; trying next bound")
				inconclusive = true
				continue
			}
			switch t.verdict {
			case solver.Sat:
				if inconclusive {
					c.log.WithField("happenings", t.n).Warn("plan found above an inconclusive bound; count may not be minimal")
				}
				res.Found = true
				res.Happenings = t.n
				return res, nil
			case solver.Unsat:
				c.log.WithField("happenings", t.n).Debug("unsatisfiable")
			default:
				c.log.WithField("happenings", t.n).Warn("solver verdict unknown; trying next bound")
				inconclusive = true
			}
		}
	}
	return res, nil
}

// checkAt encodes the formula at n happenings and asks the solver,
// reporting the elapsed time of both phases.
func (c *Controller) checkAt(ctx context.Context, n int) (solver.Verdict, error) {
	encStart := time.Now()
	doc, err := c.enc.Encode(n)
	if err != nil {
		return solver.Unknown, &EncodingError{Err: err}
	}
	c.log.WithFields(logrus.Fields{
		"happenings":   n,
		"declarations": doc.NumDeclarations(),
		"assertions":   doc.NumAssertions(),
		"elapsed":      time.Since(encStart),
	}).Info("encoded")
	if c.opts.OutputPath != "" {
		if err := c.writeFile(doc); err != nil {
			return solver.Unknown, err
		}
	}
	solveStart := time.Now()
	verdict, err := c.solver.Check(ctx, doc)
	if err == nil {
		c.log.WithFields(logrus.Fields{
			"happenings": n,
			"verdict":    verdict,
			"elapsed":    time.Since(solveStart),
			"total":      c.watch.Total(),
		}).Info("solved")
	}
	return verdict, err
}

// writeFile overwrites the output path with the document, so the file
// always holds the most recent iteration's encoding.
func (c *Controller) writeFile(doc *smt.Document) error {
	f, err := os.Create(c.opts.OutputPath)
	if err != nil {
		return &EncodingError{Err: err}
	}
	if err := doc.Render(f); err != nil {
		f.Close()
		return &EncodingError{Err: err}
	}
	if err := f.Close(); err != nil {
		return &EncodingError{Err: err}
	}
	return nil
}
