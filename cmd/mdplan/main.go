package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mtllr/md-planning/internal/budget"
	"github.com/mtllr/md-planning/internal/calendar"
	"github.com/mtllr/md-planning/internal/config"
	"github.com/mtllr/md-planning/internal/export"
	"github.com/mtllr/md-planning/internal/loader"
	"github.com/mtllr/md-planning/internal/planner"
	"github.com/mtllr/md-planning/internal/reporter"
	"github.com/mtllr/md-planning/internal/store"
	"github.com/mtllr/md-planning/internal/ui"
	"github.com/mtllr/md-planning/internal/units"
)

var (
	flagLogLevel      string
	flagLogFormat     string
	flagCriticalColor string
	flagMaxParallel   int
)

var (
	cfg    *config.Config
	logger = zerolog.Nop()
)

func main() {
	rootCmd := newRootCmd()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.BoldRed("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mdplan",
		Short: "Schedule projects, find their critical path and cost them day by day",
		Long: `mdplan reads a planning definition (YAML or JSON) of resources and projects,
dates every task from its dependencies, computes the critical path and
parallel waves, and derives a daily budget ledger from resource prices.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (console or json)")
	rootCmd.PersistentFlags().StringVar(&flagCriticalColor, "critical-color", "", "Color of critical tasks that declare none")
	rootCmd.PersistentFlags().IntVar(&flagMaxParallel, "max-parallel", 0, "Projects analyzed concurrently")

	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(budgetCmd())
	rootCmd.AddCommand(costCmd())
	rootCmd.AddCommand(pertCmd())
	rootCmd.AddCommand(unitsCmd())
	rootCmd.AddCommand(historyCmd())
	return rootCmd
}

// setup reads MDPLAN_* settings, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if flags.Changed("log-format") {
		c.LogFormat = flagLogFormat
	}
	if flags.Changed("critical-color") {
		c.CriticalColor = flagCriticalColor
	}
	if flags.Changed("max-parallel") {
		c.MaxParallel = flagMaxParallel
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	l := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
	if !c.JSONLogs() {
		l = l.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	logger = l
	return nil
}

// buildPlan is shared by every command reading a definition.
func buildPlan(ctx context.Context, path string) (*planner.Plan, error) {
	def, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	plan, err := planner.Generate(ctx, def, planner.Config{
		MaxParallel:   cfg.MaxParallel,
		CriticalColor: cfg.CriticalColor,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return plan, nil
}

func buildLedger(ctx context.Context, path string) (*planner.Plan, *budget.Ledger, error) {
	plan, err := buildPlan(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := plan.Ledger()
	if err != nil {
		return nil, nil, err
	}
	return plan, ledger, nil
}

func planCmd() *cobra.Command {
	var (
		flagProject string
		flagJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "plan FILE",
		Short: "Show critical path, waves and the dated schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := buildPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rpt := reporter.New(plan)
			if flagJSON {
				data, err := rpt.JSON(flagProject)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			ui.PrintBanner()
			return rpt.PrintPlan(cmd.OutOrStdout(), flagProject)
		},
	}
	cmd.Flags().StringVar(&flagProject, "project", "", "Only show this project")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	return cmd
}

func budgetCmd() *cobra.Command {
	var flagFormat, flagOutput, flagStore string
	cmd := &cobra.Command{
		Use:   "budget FILE",
		Short: "Compute the daily cost ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, ledger, err := buildLedger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			entries, err := ledger.Entries()
			if err != nil {
				return err
			}

			if err := writeEntries(cmd.OutOrStdout(), entries, flagFormat, flagOutput); err != nil {
				return err
			}

			path := flagStore
			if path == "" {
				path = cfg.StorePath
			}
			if path == "" {
				return nil
			}
			st, err := store.Open(path, logger)
			if err != nil {
				return err
			}
			defer st.Close()
			id, err := st.SaveRun(plan.Source, entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%s %s\n", ui.Green("saved run"), ui.BoldMagenta(id))
			return nil
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "Output format: table, csv or json")
	cmd.Flags().StringVar(&flagOutput, "output", "", "Write to file instead of stdout")
	cmd.Flags().StringVar(&flagStore, "store", "", "Save the run to this SQLite database")
	return cmd
}

// writeEntries renders entries in format to path, or to w when path is empty.
func writeEntries(w io.Writer, entries []budget.Entry, format, path string) error {
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	switch strings.ToLower(format) {
	case "table":
		reporter.PrintLedger(w, entries)
		return nil
	case "csv":
		return export.WriteCSV(w, entries)
	case "json":
		return export.WriteJSON(w, entries)
	default:
		return fmt.Errorf("unknown format %q (table, csv or json)", format)
	}
}

func costCmd() *cobra.Command {
	var flagTask, flagResource, flagDate string
	cmd := &cobra.Command{
		Use:   "cost FILE",
		Short: "Cost of one resource on one task, for a day or the whole task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ledger, err := buildLedger(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if flagDate != "" {
				day, err := calendar.Parse(flagDate)
				if err != nil {
					return err
				}
				amount, err := ledger.Cost(flagTask, flagResource, day)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  %.2f\n", flagTask, flagResource, calendar.Format(day), amount)
				return nil
			}

			using, err := ledger.IsUsing(flagTask, flagResource)
			if err != nil {
				return err
			}
			if !using {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", ui.Dim(fmt.Sprintf("%s does not use %s", flagTask, flagResource)))
				return nil
			}
			entries, err := ledger.Entries()
			if err != nil {
				return err
			}
			var picked []budget.Entry
			for _, e := range entries {
				if e.Task == flagTask && e.Resource == flagResource {
					picked = append(picked, e)
				}
			}
			reporter.PrintLedger(cmd.OutOrStdout(), picked)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagTask, "task", "", "Task name")
	cmd.Flags().StringVar(&flagResource, "resource", "", "Resource name")
	cmd.Flags().StringVar(&flagDate, "date", "", "Day to cost (default: every day of the task)")
	cmd.MarkFlagRequired("task")
	cmd.MarkFlagRequired("resource")
	return cmd
}

func pertCmd() *cobra.Command {
	var flagProject, flagFormat string
	cmd := &cobra.Command{
		Use:   "pert FILE",
		Short: "Export PERT records as JSON or a Graphviz graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := buildPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			chart := plan.Chart()
			projects := chart.Projects()
			if flagProject != "" {
				projects = []string{flagProject}
			}

			switch strings.ToLower(flagFormat) {
			case "json":
				type projectRecords struct {
					Project string `json:"project"`
					Records any    `json:"records"`
				}
				var out []projectRecords
				for _, p := range projects {
					recs, err := chart.Records(p)
					if err != nil {
						return err
					}
					out = append(out, projectRecords{Project: p, Records: recs})
				}
				return outputJSON(cmd.OutOrStdout(), out)
			case "dot":
				for _, p := range projects {
					if err := chart.WriteDOT(cmd.OutOrStdout(), p); err != nil {
						return err
					}
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (json or dot)", flagFormat)
			}
		},
	}
	cmd.Flags().StringVar(&flagProject, "project", "", "Only export this project")
	cmd.Flags().StringVar(&flagFormat, "format", "json", "Output format: json or dot")
	return cmd
}

func unitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "units [FILE]",
		Short: "List known units, including those a definition adds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := units.NewRegistry()
			if len(args) == 1 {
				def, err := loader.Load(args[0])
				if err != nil {
					return err
				}
				if reg, err = planner.Registry(def.Units); err != nil {
					return err
				}
			}
			reporter.PrintUnits(cmd.OutOrStdout(), reg.Units())
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var (
		flagStore, flagRun, flagFormat string
		flagJSON                       bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored budget runs or print one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flagStore
			if path == "" {
				path = cfg.StorePath
			}
			if path == "" {
				return fmt.Errorf("no store: pass --store or set %s_STORE_PATH", config.Prefix)
			}
			st, err := store.Open(path, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if flagRun == "" {
				runs, err := st.Runs()
				if err != nil {
					return err
				}
				if flagJSON {
					return outputJSON(cmd.OutOrStdout(), runs)
				}
				reporter.PrintRuns(cmd.OutOrStdout(), runs)
				return nil
			}
			entries, err := st.Entries(flagRun)
			if err != nil {
				return err
			}
			return writeEntries(cmd.OutOrStdout(), entries, flagFormat, "")
		},
	}
	cmd.Flags().StringVar(&flagStore, "store", "", "SQLite database path")
	cmd.Flags().StringVar(&flagRun, "run", "", "Print the entries of this run")
	cmd.Flags().StringVar(&flagFormat, "format", "table", "Run output format: table, csv or json")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "List runs as JSON")
	return cmd
}

// --- Output helpers ---

func outputJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}
