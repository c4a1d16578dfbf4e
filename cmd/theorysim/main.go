package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/napolitain/theory-sim/internal/models"
)

var (
	configFile string
	logLevel   string
	storeFlag  string
	quiet      bool

	cfg    *models.Config
	logger *log.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "theorysim",
		Short: "Theory upgrade-purchase simulator",
		Long: `Simulates upgrade purchases for a theory in log space, searching over
buy/skip decisions for the fastest route to a publication goal, and builds
publication lookup tables from those simulations.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Table store dialect (json, sqlite, postgres)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Minimal output")

	rootCmd.AddCommand(newSimulateCmd(), newTableCmd(), newTheoriesCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// setup loads .env, the config and the logger before any subcommand runs
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	var err error
	cfg, err = models.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if storeFlag != "" {
		cfg.Store.Dialect = storeFlag
	}

	logger, err = newLogger(logLevel)
	return err
}

func newLogger(level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l := log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})

	styles := log.DefaultStyles()
	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Bold(true).
		Foreground(lipgloss.Color("86"))
	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Bold(true).
		Foreground(lipgloss.Color("204"))
	styles.Keys["theory"] = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	l.SetStyles(styles)
	return l, nil
}
