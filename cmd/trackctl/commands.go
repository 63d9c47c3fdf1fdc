package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"drivertrack/internal/core"
	"drivertrack/internal/export"
	"drivertrack/internal/services"
	"drivertrack/internal/tracker"
)

var (
	performanceFlags = []string{"hours", "revenue", "tips", "orders"}
	expenseFlags     = []string{"food", "non-food", "transport", "dining-out", "entertainment", "others"}
	monthlyFlags     = []string{"rent", "phone", "svs", "others"}
)

// amount returns the flag value as a patch field, or nil when the flag was
// not given so the stored value is kept. Values go through ParseAmount:
// "12,5" is 12.5 and anything unparsable is 0.
func amount(cmd *cobra.Command, name string) *core.Amount {
	f := cmd.Flags()
	if !f.Changed(name) {
		return nil
	}
	v, err := f.GetString(name)
	if err != nil {
		return nil
	}
	return core.Num(core.ParseAmount(v))
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, n := range names {
		if cmd.Flags().Changed(n) {
			return true
		}
	}
	return false
}

func addAmountFlags(cmd *cobra.Command, names ...string) {
	for _, n := range names {
		cmd.Flags().String(n, "", "set "+strings.ReplaceAll(n, "-", " "))
	}
}

func weeksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "weeks <year> <month>",
		Short: "Show the month's week ranges with totals rolled up from days",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseInts(args, "year", "month")
			if err != nil {
				return err
			}
			year, month := v[0], v[1]
			if err := services.ValidateMonth(year, month); err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			engine := svc.Engine()
			snapshot := engine.GetStore(ctx)
			ranges := engine.Calendar().WeekRanges(year, month)
			views := make([]tracker.WeekView, 0, len(ranges))
			for _, r := range ranges {
				views = append(views, engine.Week(ctx, year, month, r.Index, snapshot))
			}

			return render(cmd.OutOrStdout(), a.output, views, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "WEEK\tRANGE\tHOURS\tREVENUE\tTIPS\tORDERS\tEXPENSES\tREV/H\tORDERS/H\tCOMMENT")
				for _, w := range views {
					p := w.Week.Performance
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						w.Range.Index, w.Range.Label, money(p.HoursWorked), money(p.Revenue), money(p.Tips),
						money(p.OrdersDelivered), money(w.ExpensesTotal), money(w.RevenuePerHour),
						money(w.OrdersPerHour), p.Comment)
				}
			})
		},
	}
}

func dayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "day",
		Short: "Edit day records",
	}

	set := &cobra.Command{
		Use:   "set <year> <month> <day>",
		Short: "Merge the given fields into a day record",
		Example: `  trackctl day set 2025 5 17 --hours 6.5 --revenue 92 --tips 11 --orders 14
  trackctl day set 2025 5 17 --food 12.40`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseInts(args, "year", "month", "day")
			if err != nil {
				return err
			}
			if err := services.ValidateDay(v[0], v[1], v[2]); err != nil {
				return err
			}
			if !anyChanged(cmd, append(performanceFlags, expenseFlags...)...) {
				return fmt.Errorf("nothing to set: pass at least one field flag")
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			patch := core.DayPatch{
				Performance: &core.PerformancePatch{
					HoursWorked:     amount(cmd, "hours"),
					Revenue:         amount(cmd, "revenue"),
					Tips:            amount(cmd, "tips"),
					OrdersDelivered: amount(cmd, "orders"),
				},
				Expenses: expensesPatch(cmd),
			}
			rec, err := svc.SetDay(cmd.Context(), v[0], v[1], v[2], patch)
			if rerr := render(cmd.OutOrStdout(), a.output, rec, func(tw *tabwriter.Writer) {
				recordTable(tw, rec.Performance, rec.Expenses, "")
			}); rerr != nil {
				return rerr
			}
			return err
		},
	}
	addAmountFlags(set, performanceFlags...)
	addAmountFlags(set, expenseFlags...)

	cmd.AddCommand(set)
	return cmd
}

func weekCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Edit legacy week slots",
	}

	comment := &cobra.Command{
		Use:   "comment <year> <month> <week> <text>...",
		Short: "Set the free-text comment of a week",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseInts(args, "year", "month", "week")
			if err != nil {
				return err
			}
			if err := services.ValidateWeek(v[0], v[1], v[2]); err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			text := strings.Join(args[3:], " ")
			rec, err := svc.SetWeek(cmd.Context(), v[0], v[1], v[2], core.WeekPatch{
				Performance: &core.WeekPerformancePatch{Comment: &text},
			})
			if rerr := render(cmd.OutOrStdout(), a.output, rec, func(tw *tabwriter.Writer) {
				recordTable(tw, rec.Performance.Performance, rec.Expenses, rec.Performance.Comment)
			}); rerr != nil {
				return rerr
			}
			return err
		},
	}

	cmd.AddCommand(comment)
	return cmd
}

func expensesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Edit fixed monthly expenses",
	}

	set := &cobra.Command{
		Use:     "set <year> <month>",
		Short:   "Merge the given fields into the month's fixed expenses",
		Example: "  trackctl expenses set 2025 5 --rent 500 --svs 200",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseInts(args, "year", "month")
			if err != nil {
				return err
			}
			if err := services.ValidateMonth(v[0], v[1]); err != nil {
				return err
			}
			if !anyChanged(cmd, monthlyFlags...) {
				return fmt.Errorf("nothing to set: pass at least one of --%s", strings.Join(monthlyFlags, ", --"))
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			got, err := svc.SetMonthlyExpenses(cmd.Context(), v[0], v[1], core.MonthlyExpensesPatch{
				Rent:   amount(cmd, "rent"),
				Phone:  amount(cmd, "phone"),
				SVS:    amount(cmd, "svs"),
				Others: amount(cmd, "others"),
			})
			if rerr := render(cmd.OutOrStdout(), a.output, got, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "RENT\tPHONE\tSVS\tOTHERS\tTOTAL")
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					money(got.Rent), money(got.Phone), money(got.SVS), money(got.Others), money(got.Total()))
			}); rerr != nil {
				return rerr
			}
			return err
		},
	}
	addAmountFlags(set, monthlyFlags...)

	cmd.AddCommand(set)
	return cmd
}

func summaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <year> <month>",
		Short: "Show the financial summary of a month",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseInts(args, "year", "month")
			if err != nil {
				return err
			}
			if err := services.ValidateMonth(v[0], v[1]); err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			s := svc.Engine().ComputeMonthSummary(cmd.Context(), v[0], v[1], nil)
			return render(cmd.OutOrStdout(), a.output, s, func(tw *tabwriter.Writer) {
				for _, row := range []struct {
					name  string
					value float64
				}{
					{"Hours", s.TotalHours},
					{"Orders", s.TotalOrders},
					{"Revenue", s.Revenue},
					{"Tips", s.Tips},
					{"Gross", s.Gross},
					{"Weekly expenses", s.WeeklyExpensesTotal},
					{"Monthly expenses", s.MonthlyExpensesTotal},
					{"Business expense 6%", s.BusinessExpense6},
					{"SVS", s.SVS},
					{"Net before tax", s.NetBeforeTax},
					{"Taxable amount", s.TaxableAmount},
					{"Tax", s.Tax},
					{"Expenses excl. SVS", s.AllExpensesExclSVS},
					{"Savings before tax", s.SavingsBeforeTax},
					{"Savings after tax", s.SavingsAfterTax},
				} {
					fmt.Fprintf(tw, "%s\t%s\n", row.name, money(row.value))
				}
			})
		},
	}
}

func reportCmd(a *app) *cobra.Command {
	var cached bool
	cmd := &cobra.Command{
		Use:   "report <year>",
		Short: "Show the twelve month summaries of a year and their totals",
		Long: `Show the twelve month summaries of a year and their totals.

With --cached the rows come from the summaries the worker last stored
(sqlite back end only) instead of being recomputed from the store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rep tracker.YearReport
			var err error
			if cached {
				rep, err = cachedYearReport(cmd, a, args)
			} else {
				rep, err = yearReport(cmd, a, args)
			}
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.output, rep, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "MONTH\tGROSS\tWEEKLY EXP\tMONTHLY EXP\tNET BEFORE TAX\tTAX\tSAVINGS AFTER TAX")
				for _, row := range rep.Months {
					s := row.Summary
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", row.Label, money(s.Gross),
						money(s.WeeklyExpensesTotal), money(s.MonthlyExpensesTotal), money(s.NetBeforeTax),
						money(s.Tax), money(s.SavingsAfterTax))
				}
				t := rep.Totals
				fmt.Fprintf(tw, "Total\t%s\t%s\t%s\t\t%s\t%s\n", money(t.Gross), money(t.WeeklyExpensesTotal),
					money(t.MonthlyExpensesTotal), money(t.Tax), money(t.SavingsAfterTax))
			})
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "read the summaries stored by the worker")
	return cmd
}

func exportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <year> <file.xlsx>",
		Short: "Write the yearly report to an Excel workbook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := yearReport(cmd, a, args[:1])
			if err != nil {
				return err
			}
			path := args[1]
			if err := export.SaveYearReport(path, rep); err != nil {
				return err
			}
			result := struct {
				Year int    `json:"year"`
				Path string `json:"path"`
			}{rep.Year, path}
			return render(cmd.OutOrStdout(), a.output, result, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Wrote %s (%s)\n", path, export.SheetName(rep.Year))
			})
		},
	}
}

func yearReport(cmd *cobra.Command, a *app, args []string) (tracker.YearReport, error) {
	v, err := parseInts(args, "year")
	if err != nil {
		return tracker.YearReport{}, err
	}
	if err := core.ValidateYear(v[0]); err != nil {
		return tracker.YearReport{}, err
	}
	svc, err := a.service(cmd.Context())
	if err != nil {
		return tracker.YearReport{}, err
	}
	return svc.Engine().YearReport(cmd.Context(), v[0]), nil
}

// ErrNoSnapshots is returned by report --cached on back ends that keep no
// summaries.
var ErrNoSnapshots = errors.New("stored summaries need the sqlite back end")

func cachedYearReport(cmd *cobra.Command, a *app, args []string) (tracker.YearReport, error) {
	v, err := parseInts(args, "year")
	if err != nil {
		return tracker.YearReport{}, err
	}
	if err := core.ValidateYear(v[0]); err != nil {
		return tracker.YearReport{}, err
	}
	svc, err := a.service(cmd.Context())
	if err != nil {
		return tracker.YearReport{}, err
	}
	if a.snapshots == nil {
		return tracker.YearReport{}, ErrNoSnapshots
	}
	sums, err := a.snapshots.Snapshots(cmd.Context(), v[0])
	if err != nil {
		return tracker.YearReport{}, err
	}
	return svc.Engine().ReportFromSummaries(v[0], sums), nil
}

func expensesPatch(cmd *cobra.Command) *core.ExpensesPatch {
	return &core.ExpensesPatch{
		Food:          amount(cmd, "food"),
		NonFood:       amount(cmd, "non-food"),
		Transport:     amount(cmd, "transport"),
		DiningOut:     amount(cmd, "dining-out"),
		Entertainment: amount(cmd, "entertainment"),
		Others:        amount(cmd, "others"),
	}
}

func recordTable(tw *tabwriter.Writer, p core.Performance, e core.Expenses, comment string) {
	fmt.Fprintln(tw, "HOURS\tREVENUE\tTIPS\tORDERS\tFOOD\tNON-FOOD\tTRANSPORT\tDINING OUT\tENTERTAINMENT\tOTHERS\tCOMMENT")
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		money(p.HoursWorked), money(p.Revenue), money(p.Tips), money(p.OrdersDelivered),
		money(e.Food), money(e.NonFood), money(e.Transport), money(e.DiningOut),
		money(e.Entertainment), money(e.Others), comment)
}
