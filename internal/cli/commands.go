package cli

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fxjournal/internal/csvio"
	"fxjournal/internal/format"
	"fxjournal/internal/models"
	"fxjournal/internal/seed"
	"fxjournal/internal/services"
)

func newUserCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage journal users",
	}

	var password, name string
	add := &cobra.Command{
		Use:   "add <email>",
		Short: "Create a journal user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.services()
			if err != nil {
				return err
			}
			user, err := svc.Users.CreateUser(args[0], password, name)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&password, "password", "p", "", "account password, at least 8 characters")
	add.Flags().StringVar(&name, "name", "", "display name")
	_ = add.MarkFlagRequired("password")

	cmd.AddCommand(add)
	return cmd
}

func newSeedCmd(app *App) *cobra.Command {
	var count int
	var seedValue int64
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add randomly generated demo trades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}
			svc, userID, err := app.owner()
			if err != nil {
				return err
			}
			if seedValue == 0 {
				seedValue = app.now().UnixNano()
			}
			attrs := seed.Generate(rand.New(rand.NewSource(seedValue)), app.now(), count)
			trades, err := svc.Trades.BulkAddTrades(userID, attrs)
			if err != nil {
				return fmt.Errorf("seed trades: %w", err)
			}
			svc.Audit.Log(userID, models.AuditActionSeed, models.AuditResourceTrade, "", "", map[string]any{"count": len(trades)})
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d demo trades\n", len(trades))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", seed.DefaultCount, "number of trades to generate")
	cmd.Flags().Int64Var(&seedValue, "seed", 0, "random seed; 0 picks one from the clock")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import trades from a CSV file",
		Long:  "Import trades from a CSV file with the header\n  " + strings.Join(csvio.Header, ",") + "\nThe whole file is stored or nothing is.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, userID, err := app.owner()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			attrs, err := csvio.Decode(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			trades, err := svc.Trades.BulkAddTrades(userID, attrs)
			if err != nil {
				return fmt.Errorf("import trades: %w", err)
			}
			svc.Audit.Log(userID, models.AuditActionImport, models.AuditResourceTrade, "", "", map[string]any{"count": len(trades)})
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d trades from %s\n", len(trades), args[0])
			return nil
		},
	}
}

func newExportCmd(app *App) *cobra.Command {
	var month, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export trades as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, userID, err := app.owner()
			if err != nil {
				return err
			}

			var trades []models.Trade
			if month != "" {
				trades, err = svc.Trades.ListTradesByMonth(userID, month)
			} else {
				trades, err = svc.Trades.ListTrades(userID)
			}
			if err != nil {
				return fmt.Errorf("list trades: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()
				w = f
			}
			if err := csvio.Encode(w, trades); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
			if outPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d trades to %s\n", len(trades), outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "only export one month (YYYY-MM)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file; stdout when empty")
	return cmd
}

func newStatsCmd(app *App) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the statistics of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, userID, err := app.owner()
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), svc.Stats, userID, month)
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month to report (YYYY-MM); the current month when empty")
	return cmd
}

// printStats writes the month summary followed by the per-symbol breakdown. The
// shell reuses it for its stats command.
func printStats(out io.Writer, stats services.StatsServicer, userID, month string) error {
	summary, err := stats.MonthlySummary(userID, month)
	if err != nil {
		return fmt.Errorf("monthly summary: %w", err)
	}
	symbols, err := stats.SymbolBreakdown(userID, summary.MonthKey)
	if err != nil {
		return fmt.Errorf("symbol breakdown: %w", err)
	}

	fmt.Fprintln(out, format.MonthLabel(summary.MonthKey))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Trades\t%d\n", summary.TotalTrades)
	fmt.Fprintf(tw, "Won / lost\t%d / %d\n", summary.WinningTrades, summary.LosingTrades)
	fmt.Fprintf(tw, "Win rate\t%s\n", format.Number(&summary.WinRate, 2)+"%")
	fmt.Fprintf(tw, "Avg change\t%s\n", format.Percent(summary.AvgChangePct))
	fmt.Fprintf(tw, "Volume\t%s\n", format.Volume(summary.TotalVolume))
	fmt.Fprintf(tw, "Net P&L\t%s\n", format.USD(summary.NetPL))
	fmt.Fprintf(tw, "Gross profit / loss\t%s / %s\n", format.Currency(summary.GrossProfit), format.Currency(summary.GrossLoss))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(symbols) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tTRADES\tWON\tLOST\tAVG CHANGE\tVOLUME\tNET P&L")
	for _, s := range symbols {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			s.Symbol, s.TradeCount, s.WinCount, s.LossCount,
			format.Percent(s.AvgChangePct), format.Volume(s.TotalVolume), format.USD(s.NetPL))
	}
	return tw.Flush()
}
