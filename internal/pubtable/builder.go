package pubtable

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
	"github.com/napolitain/theory-sim/internal/solver/engine"
	"github.com/napolitain/theory-sim/internal/solver/theories"
)

// Progress reports the state of a table build
type Progress struct {
	Start       uint32 // index being evaluated
	EndsDone    int
	EndsTotal   int
	StartsDone  int
	StartsTotal int
	Best        *Entry // set once Start is finished
}

// Builder fills a publication table for one theory, working backwards from the
// end of the theory so that every candidate end already has its remaining time.
type Builder struct {
	Theory  theories.Theory
	Config  models.TableConfig
	Workers int // candidate ends simulated concurrently

	// Options are passed to every simulation, e.g. the tick schedule
	Options []engine.Option
	// Progress may be called from several goroutines at once
	Progress func(Progress)
	Logger   *log.Logger
}

// BuildStats summarises a finished build
type BuildStats struct {
	Entries  int
	Forks    int64
	Duration time.Duration
}

func (b *Builder) logger() *log.Logger {
	if b.Logger == nil {
		return log.New(io.Discard)
	}
	return b.Logger
}

func (b *Builder) report(p Progress) {
	if b.Progress != nil {
		b.Progress(p)
	}
}

// Build evaluates every start index in [From, To) on the grid, highest first,
// and stores the best next publication of each in table. It stops between start
// indexes when ctx is cancelled.
func (b *Builder) Build(ctx context.Context, table Table) (BuildStats, error) {
	cfg := b.Config
	if cfg.Grid <= 0 || cfg.From >= cfg.To {
		return BuildStats{}, fmt.Errorf("invalid table range %v..%v on grid %v", cfg.From, cfg.To, cfg.Grid)
	}

	from := Key(cfg.From, cfg.Grid)
	to := Key(cfg.To, cfg.Grid)
	ctEnd := Key(cfg.CTEnd, cfg.Grid)
	logger := b.logger().With("theory", b.Theory.Name)
	startedAt := time.Now()

	stats := BuildStats{}
	total := int(to - from)
	for start := to; start > from; {
		start--
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		entry, forks, err := b.evaluate(ctx, table, start, ctEnd)
		if err != nil {
			return stats, err
		}
		table[start] = entry
		stats.Entries++
		stats.Forks += forks

		logger.Info("best next publication",
			"start", logmath.Format(float64(start)/cfg.Grid),
			"next", logmath.Format(float64(entry.Next)/cfg.Grid),
			"remaining", logmath.FormatDuration(entry.T))
		b.report(Progress{
			Start:       start,
			StartsDone:  stats.Entries,
			StartsTotal: total,
			Best:        &entry,
		})
	}

	stats.Duration = time.Since(startedAt)
	return stats, nil
}

// evaluate finds the best next publication from start. A base run without
// coasting is advanced to just below each candidate end; a coasting fork of it
// then finishes the publication. Candidates are compared in end order and the
// first strictly faster one wins.
func (b *Builder) evaluate(ctx context.Context, table Table, start, ctEnd uint32) (Entry, int64, error) {
	cfg := b.Config
	var span uint32
	if ctEnd > start {
		span = ctEnd - start
	}
	a, bmax := min(cfg.A, span), min(cfg.B, span)

	params := models.Params{
		Tau:      float64(start) * cfg.TauFactor / cfg.Grid,
		Students: cfg.Students,
	}
	opts := append(append([]engine.Option{}, b.Options...), engine.WithoutCoasting(), engine.WithoutLog())
	base, err := engine.New(b.Theory.New(), params, float64(start+a)/cfg.Grid-cfg.Offset, opts...)
	if err != nil {
		return Entry{}, 0, err
	}

	n := int(bmax-a) + 1
	times := make([]float64, n)
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.Workers, 1))
	for i := 0; i < n; i++ {
		i := i
		if gctx.Err() != nil {
			break
		}
		end := start + a + uint32(i)
		base.Goal = float64(end)/cfg.Grid - cfg.Offset
		base.Simulate()

		f := base.Fork()
		f.Coasting = true
		f.Goal = float64(end) / cfg.Grid

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			times[i] = f.Simulate().Time
			b.report(Progress{Start: start, EndsDone: int(done.Add(1)), EndsTotal: n})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Entry{}, 0, err
	}
	// a cancel between launches leaves later ends unsimulated
	if err := ctx.Err(); err != nil {
		return Entry{}, 0, err
	}

	best := Entry{T: math.MaxFloat64}
	for i, t := range times {
		end := start + a + uint32(i)
		if total := t + table.remaining(end); total < best.T {
			best = Entry{Next: end, T: total}
		}
	}
	return best, base.Stats().Forks(), nil
}
