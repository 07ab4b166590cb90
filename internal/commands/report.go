package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinoosan/shopledger/internal/report"
	"github.com/tinoosan/shopledger/internal/rollup"
)

type reportFlags struct {
	start    string
	end      string
	asOf     string
	page     int
	pageSize int
}

func (f reportFlags) period() (rollup.Period, error) {
	var p rollup.Period
	if f.start != "" {
		t, err := time.Parse(time.DateOnly, f.start)
		if err != nil {
			return p, fmt.Errorf("--start: %w", err)
		}
		p.Start = &t
	}
	if f.end != "" {
		t, err := time.Parse(time.DateOnly, f.end)
		if err != nil {
			return p, fmt.Errorf("--end: %w", err)
		}
		p.End = &t
	}
	return p, nil
}

func (f reportFlags) asOfDate() (time.Time, error) {
	if f.asOf == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, f.asOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("--as-of: %w", err)
	}
	return t, nil
}

func newReportCommand() *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a financial report as JSON",
	}
	cmd.PersistentFlags().StringVar(&f.start, "start", "", "period start (YYYY-MM-DD)")
	cmd.PersistentFlags().StringVar(&f.end, "end", "", "period end, inclusive (YYYY-MM-DD)")
	cmd.PersistentFlags().StringVar(&f.asOf, "as-of", "", "as-of date for balance sheet, aging and dashboard (YYYY-MM-DD)")
	cmd.PersistentFlags().IntVar(&f.page, "page", 1, "aging page")
	cmd.PersistentFlags().IntVar(&f.pageSize, "page-size", report.DefaultPageSize, "aging page size")

	period := func(use, short string, build func(context.Context, report.Service, rollup.Period) (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := f.period()
				if err != nil {
					return err
				}
				return runReport(cmd, func(svc report.Service) (any, error) { return build(cmd.Context(), svc, p) })
			},
		}
	}

	cmd.AddCommand(
		period("trial-balance", "Trial balance for a period", func(ctx context.Context, s report.Service, p rollup.Period) (any, error) {
			return s.TrialBalance(ctx, p)
		}),
		period("profit-loss", "Profit and loss for a period", func(ctx context.Context, s report.Service, p rollup.Period) (any, error) {
			return s.ProfitAndLoss(ctx, p)
		}),
		period("profit-loss-periodic", "Month-by-month profit and loss", func(ctx context.Context, s report.Service, p rollup.Period) (any, error) {
			return s.PeriodicProfitAndLoss(ctx, p)
		}),
		period("profit-loss-ytd", "Monthly profit and loss with year-to-date totals", func(ctx context.Context, s report.Service, p rollup.Period) (any, error) {
			return s.YTDProfitAndLoss(ctx, p)
		}),
		period("cash-flow", "Cash flow for a period", func(ctx context.Context, s report.Service, p rollup.Period) (any, error) {
			return s.CashFlow(ctx, p)
		}),
		period("expenses", "Expense documents and expense accounts for a period", func(ctx context.Context, s report.Service, p rollup.Period) (any, error) {
			return s.Expenses(ctx, p)
		}),
		&cobra.Command{
			Use:   "dashboard",
			Short: "Headline totals, balances and the last seven days",
			RunE: func(cmd *cobra.Command, args []string) error {
				asOf, err := f.asOfDate()
				if err != nil {
					return err
				}
				return runReport(cmd, func(svc report.Service) (any, error) { return svc.Dashboard(cmd.Context(), asOf) })
			},
		},
		&cobra.Command{
			Use:   "balance-sheet",
			Short: "Balance sheet as of a date",
			RunE: func(cmd *cobra.Command, args []string) error {
				asOf, err := f.asOfDate()
				if err != nil {
					return err
				}
				return runReport(cmd, func(svc report.Service) (any, error) { return svc.BalanceSheet(cmd.Context(), asOf) })
			},
		},
		&cobra.Command{
			Use:       "aging [debtors|creditors]",
			Short:     "Receivables or payables aging",
			Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
			ValidArgs: []string{"debtors", "creditors"},
			RunE: func(cmd *cobra.Command, args []string) error {
				asOf, err := f.asOfDate()
				if err != nil {
					return err
				}
				q := report.AgingQuery{AsOf: asOf, Page: f.page, PageSize: f.pageSize}
				return runReport(cmd, func(svc report.Service) (any, error) {
					if args[0] == "creditors" {
						return svc.CreditorsAging(cmd.Context(), q)
					}
					return svc.DebtorsAging(cmd.Context(), q)
				})
			},
		},
	)
	return cmd
}

func runReport(cmd *cobra.Command, build func(report.Service) (any, error)) error {
	a, err := bootstrap(cmd.Context(), cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer a.Close()
	out, err := build(report.New(a.store, a.roles, a.logger))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
