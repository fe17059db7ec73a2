package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Harshitk-cp/axiom/internal/api"
	"github.com/Harshitk-cp/axiom/internal/buildconfig"
	"github.com/Harshitk-cp/axiom/internal/config"
	"github.com/Harshitk-cp/axiom/internal/logging"
	"github.com/Harshitk-cp/axiom/internal/service"
	"github.com/Harshitk-cp/axiom/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	driver   string
	dsn      string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "axiomctl",
		Short:         "Operate the axiom contradiction engine from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return err
			}
			if opts.driver == "" {
				opts.driver = config.StoreDriver()
			}
			if opts.dsn == "" {
				opts.dsn = config.StoreDSN()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "store driver: memory, sqlite or postgres (default from STORE_DRIVER)")
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "sqlite path or postgres URL (default from env)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newVersionCmd(),
		newIngestCmd(opts),
		newSweepCmd(opts),
		newRetestCmd(opts),
		newScanCmd(opts),
		newSafetyCmd(opts),
		newNarrateCmd(opts),
		newExportGraphCmd(opts),
		newSuggestCmd(opts),
		newResolveCmd(opts),
	)
	return root
}

// withApp opens the configured store, wires the services and runs fn.
func withApp(ctx context.Context, opts *rootOptions, fn func(app *api.App, logger *zap.Logger) error) error {
	logger, err := logging.New(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	stores, err := store.Open(ctx, opts.driver, opts.dsn, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", opts.driver, err)
	}
	defer stores.Close()

	app := api.NewApp(stores, nil, logger)
	app.Pipeline.Warm(ctx)
	return fn(app, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), buildconfig.String())
			return err
		},
	}
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "ingest STATEMENT...",
		Short: "Ingest statements as beliefs and report the conflicts they raise",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *api.App, _ *zap.Logger) error {
				var results []*service.IngestResult
				for _, text := range args {
					res, err := app.Pipeline.Ingest(cmd.Context(), map[string]any{"text": text, "source": source})
					if err != nil {
						return fmt.Errorf("ingest %q: %w", text, err)
					}
					results = append(results, res)
				}
				return printJSON(cmd.OutOrStdout(), results)
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "cli", "source recorded on the beliefs")
	return cmd
}

func newSweepCmd(opts *rootOptions) *cobra.Command {
	var (
		fast    bool
		ageDays int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the boot sweep once: retest aged conflicts, then metrics, probe, safety and nag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *api.App, logger *zap.Logger) error {
				report := service.BootSweep(cmd.Context(), app.Monitor, app.Dashboard, app.Journal, logger, service.BootOptions{
					AgeThreshold: service.RetestThreshold(ageDays, 0),
					FastMode:     fast,
					Safety:       service.DefaultSafetyLimits(),
				})
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().BoolVar(&fast, "fast", false, "skip metrics, dream probe, safety and nag")
	cmd.Flags().IntVar(&ageDays, "age-days", 3, "retest pending conflicts older than this many days")
	return cmd
}

func newRetestCmd(opts *rootOptions) *cobra.Command {
	var ageDays int
	cmd := &cobra.Command{
		Use:   "retest",
		Short: "Retest pending conflicts against the current detector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *api.App, _ *zap.Logger) error {
				ctx := cmd.Context()
				pending := app.Monitor.LoadPending(ctx)
				if ageDays > 0 {
					pending = app.Monitor.ScheduleRetest(ctx, pending, service.RetestThreshold(ageDays, 0))
				}
				retested, outcome := app.Monitor.RetestConflicts(ctx, pending)
				return printJSON(cmd.OutOrStdout(), map[string]any{"contradictions": retested, "outcome": outcome})
			})
		},
	}
	cmd.Flags().IntVar(&ageDays, "age-days", 0, "only retest conflicts older than this many days (0 retests all)")
	return cmd
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var record bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Compare every pair of stored beliefs and report contradictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *api.App, _ *zap.Logger) error {
				return printJSON(cmd.OutOrStdout(), app.Pipeline.Scan(cmd.Context(), record))
			})
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "resolve and log contradictions not already logged")
	return cmd
}

func newSafetyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "safety",
		Short: "Report the unresolved backlog and stale conflicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *api.App, _ *zap.Logger) error {
				return printJSON(cmd.OutOrStdout(), app.Monitor.SafetyCheck(cmd.Context(), service.DefaultSafetyLimits()))
			})
		},
	}
}

func newNarrateCmd(opts *rootOptions) *cobra.Command {
	var (
		key   string
		theme string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "narrate",
		Short: "Print the chronological contradiction chain for a key or theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *api.App, _ *zap.Logger) error {
				chain := app.Monitor.NarrateChain(cmd.Context(), key, theme, limit)
				if chain == "" {
					chain = "no contradictions"
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), chain)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "only conflicts touching this canonical key")
	cmd.Flags().StringVar(&theme, "theme", "", "only conflicts in this theme")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries (0 uses the default)")
	return cmd
}

func newExportGraphCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-graph",
		Short: "Write the contradiction graph as node-link JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = config.GraphExportPath()
			}
			return withApp(cmd.Context(), opts, func(app *api.App, _ *zap.Logger) error {
				g, err := app.Monitor.ExportGraph(cmd.Context(), app.Monitor.LoadAll(cmd.Context()), out)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d nodes and %d links to %s\n", len(g.Nodes), len(g.Links), out)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output path (default from AXIOM_GRAPH_EXPORT_PATH)")
	return cmd
}

func newSuggestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest BELIEF_1 BELIEF_2",
		Short: "Propose a resolution strategy for two statements",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(opts.logLevel)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), service.NewAdvisor(logger).SuggestAny(args[0], args[1]))
		},
	}
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "resolve ID",
		Short: "Record how a contradiction was resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method = strings.TrimSpace(method)
			if method == "" {
				return fmt.Errorf("--method is required")
			}
			return withApp(cmd.Context(), opts, func(app *api.App, _ *zap.Logger) error {
				c, err := app.Monitor.Find(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), app.Monitor.LogOutcome(cmd.Context(), c, method))
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", "", "resolution method, e.g. favor_newer or unresolvable")
	return cmd
}
