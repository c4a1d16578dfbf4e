package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
	"github.com/napolitain/theory-sim/internal/pubtable"
	"github.com/napolitain/theory-sim/internal/solver/engine"
	"github.com/napolitain/theory-sim/internal/solver/theories"
)

func newTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Build and read publication tables",
	}
	cmd.AddCommand(
		newTableBuildCmd(),
		newTableChainCmd(),
		newTableRangeCmd(),
		newTableDiffCmd(),
		newTableCompressCmd(),
	)
	return cmd
}

// tableTheory resolves a theory that has table defaults
func tableTheory(name string) (theories.Theory, models.TableConfig, error) {
	th, err := theories.Lookup(name)
	if err != nil {
		return theories.Theory{}, models.TableConfig{}, err
	}
	tc, ok := th.Table(cfg)
	if !ok {
		return theories.Theory{}, models.TableConfig{}, fmt.Errorf("theory %s has no table config", th.Name)
	}
	return th, tc, nil
}

func loadTable(ctx context.Context, theory string) (pubtable.Table, error) {
	store, err := pubtable.OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load(ctx, theory)
}

func newTableBuildCmd() *cobra.Command {
	var (
		from, to float64
		workers  int
		tui      bool
	)
	cmd := &cobra.Command{
		Use:   "build <theory>",
		Short: "Fill the publication table of a theory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			th, tc, err := tableTheory(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("from") {
				tc.From = from
			}
			if cmd.Flags().Changed("to") {
				tc.To = to
			}
			if workers == 0 {
				workers = cfg.Engine.Workers
			}

			store, err := pubtable.OpenStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer store.Close()

			table, err := store.Load(ctx, th.Name)
			if err != nil {
				return err
			}

			b := &pubtable.Builder{
				Theory:  th,
				Config:  tc,
				Workers: workers,
				Options: []engine.Option{engine.WithSchedule(engine.ScheduleFrom(cfg.Schedule))},
			}

			printBanner("Publication table: " + th.Name)
			var stats pubtable.BuildStats
			var buildErr error
			if tui {
				stats, buildErr = runBuildTUI(ctx, b, table)
			} else {
				b.Logger = logger
				logger.Info("building table", "theory", th.Name,
					"from", tc.From, "to", tc.To, "grid", tc.Grid, "workers", workers)
				stats, buildErr = b.Build(ctx, table)
			}

			// keep whatever finished, even when the build was interrupted
			if stats.Entries > 0 {
				ctx := context.WithoutCancel(ctx)
				if err := store.Save(ctx, th.Name, table); err != nil {
					return errors.Join(buildErr, err)
				}
				run := pubtable.NewBuildRun(th.Name, pubtable.Key(tc.From, tc.Grid), pubtable.Key(tc.To, tc.Grid), stats)
				if err := store.RecordBuild(ctx, run); err != nil {
					return errors.Join(buildErr, err)
				}
			}
			if buildErr != nil {
				return buildErr
			}

			color.New(color.FgGreen, color.Bold).Printf("\n✓ Built %s entries for %s\n",
				humanize.Comma(int64(stats.Entries)), th.Name)
			fmt.Printf("   Forks: %s\n", humanize.Comma(stats.Forks))
			fmt.Printf("   Took:  %s\n", stats.Duration.Round(time.Millisecond))
			fmt.Printf("   Table now holds %s entries\n", humanize.Comma(int64(len(table))))
			return nil
		},
	}

	cmd.Flags().Float64Var(&from, "from", 0, "Lowest start rho in log10 (default from config)")
	cmd.Flags().Float64Var(&to, "to", 0, "Highest start rho in log10, exclusive (default from config)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Candidate ends simulated concurrently (default from config)")
	cmd.Flags().BoolVar(&tui, "tui", false, "Show an interactive progress view")
	return cmd
}

func newTableChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain <theory> <rho>",
		Short: "Follow the table from rho to the end of the theory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			th, tc, err := tableTheory(args[0])
			if err != nil {
				return err
			}
			rho, err := logmath.Parse(args[1])
			if err != nil {
				return err
			}
			table, err := loadTable(cmd.Context(), th.Name)
			if err != nil {
				return err
			}

			steps, err := pubtable.Chain(table, rho, tc.Grid)
			if len(steps) > 0 {
				if err := printChain(steps, tc.Grid); err != nil {
					return err
				}
				fmt.Printf("\n%d publications, %s total\n", len(steps), logmath.FormatDuration(steps[0].Remaining))
			}
			if errors.Is(err, pubtable.ErrNoEntry) && len(steps) > 0 {
				color.Yellow("Warning: chain stops early: %v", err)
				return nil
			}
			return err
		},
	}
}

func newTableRangeCmd() *cobra.Command {
	var end string
	cmd := &cobra.Command{
		Use:   "range <theory>",
		Short: "Show the shortest and longest publication in the table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			th, tc, err := tableTheory(args[0])
			if err != nil {
				return err
			}
			endIdx := pubtable.Key(tc.CTEnd, tc.Grid)
			if end != "" {
				v, err := parseLog("end", end)
				if err != nil {
					return err
				}
				endIdx = pubtable.Key(v, tc.Grid)
			}
			table, err := loadTable(cmd.Context(), th.Name)
			if err != nil {
				return err
			}

			low, high, err := pubtable.Range(table, endIdx)
			if err != nil {
				return err
			}
			fmt.Printf("%s: publications span %d to %d grid steps (%.3f to %.3f orders of rho)\n",
				th.Name, low, high, float64(low)/tc.Grid, float64(high)/tc.Grid)
			return nil
		},
	}
	cmd.Flags().StringVar(&end, "end", "", "End rho to leave out (default ct_end)")
	return cmd
}

func newTableDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <theory> <start-rho> <end-rho>",
		Short: "List next index and publication length for a rho range",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			th, tc, err := tableTheory(args[0])
			if err != nil {
				return err
			}
			start, err := parseLog("start", args[1])
			if err != nil {
				return err
			}
			end, err := parseLog("end", args[2])
			if err != nil {
				return err
			}
			table, err := loadTable(cmd.Context(), th.Name)
			if err != nil {
				return err
			}
			return printDiff(pubtable.Diff(table, pubtable.Key(start, tc.Grid), pubtable.Key(end, tc.Grid)), tc.Grid)
		},
	}
}

func newTableCompressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compress <theory> <output.json>",
		Short: "Write the table with next indexes only",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			th, _, err := tableTheory(args[0])
			if err != nil {
				return err
			}
			table, err := loadTable(cmd.Context(), th.Name)
			if err != nil {
				return err
			}
			if err := pubtable.WriteCompressed(args[1], table); err != nil {
				return err
			}
			color.Green("✓ Wrote %s entries to %s", humanize.Comma(int64(len(table))), args[1])
			return nil
		},
	}
}

func newTheoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "theories",
		Short: "List the available theories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(theories.Names()))
			for _, name := range theories.Names() {
				th, _ := theories.Lookup(name)
				grid := "-"
				if tc, ok := th.Table(cfg); ok {
					grid = strconv.FormatFloat(tc.Grid, 'f', -1, 64)
				}
				ups := th.New().Upgrades()
				rows = append(rows, []string{th.Name, th.Description, strconv.Itoa(len(ups)), grid})
			}
			return printTheories(rows)
		},
	}
}
