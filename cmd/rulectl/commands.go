package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/rulegrid/internal/admin"
	"github.com/JonMunkholm/rulegrid/internal/app"
	"github.com/JonMunkholm/rulegrid/internal/config"
	"github.com/JonMunkholm/rulegrid/internal/core"
	"github.com/JonMunkholm/rulegrid/internal/logging"
	"github.com/JonMunkholm/rulegrid/internal/sheetcsv"
	"github.com/JonMunkholm/rulegrid/internal/storage"
	"github.com/spf13/cobra"
)

// appVersion is set at build time with -ldflags "-X main.appVersion=...".
var appVersion = "dev"

// cliEnv is what a command needs to reach the monitor.
type cliEnv struct {
	cfg        *config.Config
	store      storage.Store
	service    *core.Service
	dispatcher *core.Dispatcher
	close      func()
}

// envOpener builds a cliEnv. Tests swap in one over fixtures.
type envOpener func(ctx context.Context) (*cliEnv, error)

// openEnv loads configuration and wires the store and reporting client.
func openEnv(ctx context.Context) (*cliEnv, error) {
	cfg, err := config.LoadLocal()
	if err != nil {
		return nil, err
	}
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	store, closeStore, err := app.OpenStore(ctx, cfg.Database, true)
	if err != nil {
		return nil, err
	}
	client, err := app.NewReportingClient(cfg.Reporting)
	if err != nil {
		closeStore()
		return nil, err
	}

	svc := core.NewService(store, client)
	return &cliEnv{
		cfg:        cfg,
		store:      store,
		service:    svc,
		dispatcher: core.NewDispatcher(svc, cfg.Migration.AppVersion),
		close:      closeStore,
	}, nil
}

func newRootCmd(open envOpener) *cobra.Command {
	var account string

	rootCmd := &cobra.Command{
		Use:           "rulectl",
		Short:         "Run and configure the anomaly rule monitor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&account, "account", "", "reporting account id to store before running")

	// withEnv opens the environment, applies --account and runs fn.
	withEnv := func(cmd *cobra.Command, fn func(ctx context.Context, env *cliEnv) error) error {
		ctx := core.ContextWithTrigger(cmd.Context(), "cli")
		env, err := open(ctx)
		if err != nil {
			return err
		}
		defer env.close()

		if account != "" {
			if err := env.service.SetSetting(ctx, core.SettingAccountID, account); err != nil {
				return err
			}
		}
		if err := fn(ctx, env); err != nil {
			return fmt.Errorf("%w\n%s", err, core.FormatUserError(err))
		}
		return nil
	}

	rootCmd.AddCommand(
		newRunCmd(withEnv),
		newRulesCmd(),
		newExportCmd(withEnv),
		newImportCmd(withEnv),
		newSetCmd(withEnv),
		newResetCmd(withEnv),
		newVersionCmd(),
	)
	return rootCmd
}

type envRunner func(cmd *cobra.Command, fn func(ctx context.Context, env *cliEnv) error) error

func newRunCmd(withEnv envRunner) *cobra.Command {
	var req core.Request

	cmd := &cobra.Command{
		Use:       "run <initialize|launch|migrate>",
		Short:     "Run a monitor command",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(core.CommandInitialize), string(core.CommandLaunch), string(core.CommandMigrate)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, env *cliEnv) error {
				resp, err := env.dispatcher.Dispatch(ctx, core.Command(args[0]), req)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			})
		},
	}
	cmd.Flags().StringVarP(&req.Granularity, "granularity", "g", "", "granularity for initialize and launch")
	cmd.Flags().StringVar(&req.Version, "version", "", "target version for migrate (default: APP_VERSION)")
	return cmd
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List registered rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RULE\tGRANULARITY\tPARAMS")
			for _, def := range core.All() {
				info := def.Info()
				keys := make([]string, len(info.Params))
				for i, p := range info.Params {
					keys[i] = p.Key
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Name, info.Granularity, strings.Join(keys, ","))
			}
			return tw.Flush()
		},
	}
}

func newExportCmd(withEnv envRunner) *cobra.Command {
	var results bool

	cmd := &cobra.Command{
		Use:   "export <granularity|rule>",
		Short: "Write a settings grid (or a rule's results with --results) as CSV to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, env *cliEnv) error {
				read := env.service.Grid
				if results {
					read = env.service.Results
				}
				g, err := read(ctx, args[0])
				if err != nil {
					return err
				}
				return sheetcsv.WriteGrid(cmd.OutOrStdout(), g)
			})
		},
	}
	cmd.Flags().BoolVar(&results, "results", false, "export the named rule's results sheet")
	return cmd
}

func newImportCmd(withEnv envRunner) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "import <granularity> <file.csv> | import --dir <dir>",
		Short: "Replace settings grids from CSV files",
		Args: func(cmd *cobra.Command, args []string) error {
			if dir != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, env *cliEnv) error {
				if dir != "" {
					imported, err := sheetcsv.ImportDir(ctx, env.service, dir)
					for _, g := range imported {
						fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", core.SettingsSheet(g))
					}
					return err
				}
				if err := sheetcsv.ImportFile(ctx, env.service, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", core.SettingsSheet(args[0]))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "import every <granularity>.csv in this directory")
	return cmd
}

func newSetCmd(withEnv envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Store a named setting such as account_id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, env *cliEnv) error {
				return env.service.SetSetting(ctx, args[0], args[1])
			})
		},
	}
}

func newResetCmd(withEnv envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "reset [rule...]",
		Short: "Empty stored result sheets (all, or the named rules')",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, env *cliEnv) error {
				cleared, err := (&admin.Reset{Store: env.store}).ResetResults(ctx, args...)
				if err != nil {
					return err
				}
				sort.Strings(cleared)
				for _, name := range cleared {
					fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", name)
				}
				return nil
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rulectl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rulectl %s\n", appVersion)
		},
	}
}
