package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/napolitain/theory-sim/internal/loader"
	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
	"github.com/napolitain/theory-sim/internal/pubtable"
	"github.com/napolitain/theory-sim/internal/solver/engine"
	"github.com/napolitain/theory-sim/internal/solver/theories"
)

type simulateFlags struct {
	tau       string
	rho       string
	goal      string
	students  uint32
	seedFile  string
	workers   int
	noCoast   bool
	fromTable bool
	noLog     bool
}

func newSimulateCmd() *cobra.Command {
	var f simulateFlags
	cmd := &cobra.Command{
		Use:   "simulate <theory>",
		Short: "Find the fastest purchase route to a publication goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), args[0], f)
		},
	}

	cmd.Flags().StringVar(&f.tau, "tau", "1", "Theory tau (e.g. 1e600)")
	cmd.Flags().StringVar(&f.rho, "rho", "1", "Starting rho")
	cmd.Flags().StringVar(&f.goal, "goal", "", "Publication goal rho (required unless --from-table)")
	cmd.Flags().Uint32Var(&f.students, "students", 0, "Student count (theories that use it)")
	cmd.Flags().StringVar(&f.seedFile, "seed", "", "Seed file with levels and accumulators (.json, .yaml, .txt)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Concurrent forks (default from config)")
	cmd.Flags().BoolVar(&f.noCoast, "no-coast", false, "Never fork on coasting decisions")
	cmd.Flags().BoolVar(&f.fromTable, "from-table", false, "Take tau and goal from the stored publication table at --rho")
	cmd.Flags().BoolVar(&f.noLog, "no-log", false, "Do not keep the purchase log")
	return cmd
}

func runSimulate(ctx context.Context, name string, f simulateFlags) error {
	titleColor := color.New(color.FgCyan, color.Bold)
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgYellow)

	th, err := theories.Lookup(name)
	if err != nil {
		return err
	}

	params := models.Params{Students: f.students}
	if params.Rho, err = parseLog("rho", f.rho); err != nil {
		return err
	}

	var goal float64
	if f.fromTable {
		tc, ok := th.Table(cfg)
		if !ok {
			return fmt.Errorf("theory %s has no table config", th.Name)
		}
		table, err := loadTable(ctx, th.Name)
		if err != nil {
			return err
		}
		if params.Tau, goal, err = pubtable.NextGoal(table, tc, params.Rho); err != nil {
			return err
		}
		if params.Students == 0 {
			params.Students = tc.Students
		}
	} else {
		if f.goal == "" {
			return fmt.Errorf("--goal is required without --from-table")
		}
		if params.Tau, err = parseLog("tau", f.tau); err != nil {
			return err
		}
		if goal, err = parseLog("goal", f.goal); err != nil {
			return err
		}
	}

	workers := f.workers
	if workers == 0 {
		workers = cfg.Engine.Workers
	}
	opts := []engine.Option{
		engine.WithSchedule(engine.ScheduleFrom(cfg.Schedule)),
		engine.WithLogger(logger.With("theory", th.Name)),
		engine.WithWorkers(workers),
		engine.WithForkLogDepth(cfg.Engine.ForkLogDepth),
	}
	if f.noCoast {
		opts = append(opts, engine.WithoutCoasting())
	}
	if f.noLog {
		opts = append(opts, engine.WithoutLog())
	}
	if f.seedFile != "" {
		seed, err := loader.LoadSeed(f.seedFile)
		if err != nil {
			return err
		}
		opts = append(opts, engine.WithSeed(seed))
	}

	printBanner(th.Description)
	if !quiet {
		infoColor.Println("Parameters:")
		fmt.Printf("   Theory:   %s\n", th.Name)
		fmt.Printf("   Tau:      %s\n", logmath.Format(params.Tau))
		fmt.Printf("   Rho:      %s\n", logmath.Format(params.Rho))
		fmt.Printf("   Goal:     %s\n", logmath.Format(goal))
		if params.Students > 0 {
			fmt.Printf("   Students: %d\n", params.Students)
		}
		fmt.Printf("   Workers:  %d\n\n", workers)
	}

	sim, err := engine.New(th.New(), params, goal, opts...)
	if err != nil {
		return err
	}

	started := time.Now()
	logger.Debug("simulation started", "theory", th.Name, "goal", logmath.Format(goal))
	res := sim.Simulate()
	elapsed := time.Since(started)
	if !res.Found() {
		return fmt.Errorf("no run reached %s", logmath.Format(goal))
	}

	if !quiet && res.Purchases != nil {
		titleColor.Println("Purchase log:")
		if err := printPurchases(res.Purchases); err != nil {
			return err
		}
		printFinalLevels(sim.Upgrades, res.Purchases)
	}

	stats := sim.Stats()
	successColor.Printf("\n✓ Reached %s in %s\n", logmath.Format(goal), logmath.FormatDuration(res.Time))
	fmt.Printf("   Branches explored: %s (max depth %d)\n",
		humanize.Comma(stats.Forks()+1), stats.MaxDepth())
	fmt.Printf("   Wall time: %s\n", elapsed.Round(time.Millisecond))
	return nil
}
