package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/napolitain/theory-sim/internal/logmath"
	"github.com/napolitain/theory-sim/internal/models"
	"github.com/napolitain/theory-sim/internal/pubtable"
)

var bannerStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("86")).
	Foreground(lipgloss.Color("86")).
	Bold(true).
	Padding(0, 2)

func printBanner(subtitle string) {
	if quiet {
		return
	}
	fmt.Println()
	fmt.Println(bannerStyle.Render("Theory Simulator\n" + subtitle))
	fmt.Println()
}

// parseLog reads a flag given in game notation ("1.5e300") or as a plain number
func parseLog(name, s string) (float64, error) {
	v, err := logmath.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return v, nil
}

// renderTable writes header and rows as one table to w
func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewTable(w, tablewriter.WithHeader(header))
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("formatting table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	return nil
}

func printPurchases(events []models.PurchaseEvent) error {
	rows := make([][]string, 0, len(events))
	for i, e := range events {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			e.Upgrade,
			fmt.Sprintf("%d", e.Level),
			logmath.FormatDuration(e.Time),
		})
	}
	return renderTable(os.Stdout, []string{"#", "Upgrade", "Level", "Time"}, rows)
}

func printFinalLevels(upgrades []*models.Upgrade, events []models.PurchaseEvent) {
	infoColor := color.New(color.FgYellow)
	infoColor.Println("\nLast recorded purchase per upgrade:")

	var parts []string
	for _, u := range upgrades {
		if lvl, ok := models.LastPurchase(events, u.Name); ok {
			parts = append(parts, fmt.Sprintf("%s %d", u.Name, lvl))
		} else {
			parts = append(parts, u.Name+" -")
		}
	}
	fmt.Printf("   %s\n", strings.Join(parts, ", "))
}

func printChain(steps []pubtable.Step, grid float64) error {
	rows := make([][]string, 0, len(steps))
	for i, st := range steps {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			logmath.Format(float64(st.From) / grid),
			logmath.Format(float64(st.To) / grid),
			logmath.FormatDuration(st.Current),
			logmath.FormatDuration(st.Remaining),
			fmt.Sprintf("x%.2f", st.Gain),
		})
	}
	return renderTable(os.Stdout, []string{"#", "From", "To", "Publication", "Remaining", "Multiplier"}, rows)
}

func printDiff(lines []pubtable.DiffLine, grid float64) error {
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		next, diff := "missing", ""
		if l.Found {
			next = logmath.Format(float64(l.Next) / grid)
			diff = fmt.Sprintf("%d", l.Diff)
		}
		rows = append(rows, []string{
			humanize.Comma(int64(l.Index)),
			logmath.Format(float64(l.Index) / grid),
			next,
			diff,
		})
	}
	return renderTable(os.Stdout, []string{"Index", "Rho", "Next", "Diff"}, rows)
}

func printTheories(rows [][]string) error {
	return renderTable(os.Stdout, []string{"Theory", "Description", "Upgrades", "Table grid"}, rows)
}
