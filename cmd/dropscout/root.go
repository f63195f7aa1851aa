package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/app"
	"github.com/JakeFAU/dropscout/internal/config"
	"github.com/JakeFAU/dropscout/internal/pipeline"
)

// Application is the command surface of *app.App. Tests inject a fake.
type Application interface {
	Run(ctx context.Context) (pipeline.RunResult, error)
	Approve(ctx context.Context) (pipeline.ApproveSummary, error)
	Reconcile(ctx context.Context, limit int) (pipeline.ReconcileSummary, error)
	Serve(ctx context.Context) error
	Migrate(ctx context.Context) error
	Logger() *zap.Logger
	Close(ctx context.Context) error
}

// appFactory builds the application for one command.
type appFactory func(ctx context.Context, cfg config.Config) (Application, error)

func buildApp(ctx context.Context, cfg config.Config) (Application, error) {
	a, err := app.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

type cli struct {
	build   appFactory
	cfgFile string
	dryRun  bool
	cfg     config.Config
}

func newRootCmd(build appFactory) *cobra.Command {
	c := &cli{build: build}
	cmd := &cobra.Command{
		Use:   "dropscout",
		Short: "Finds, verifies and posts crypto airdrop announcements.",
		Long: `dropscout scans X for airdrop and testnet announcements, verifies that each
project's official site links back to the announcing account, and posts the
trustworthy ones as threads. Everything else is rejected or held for review.

Without a subcommand the configured mode (run or approve) is executed.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Mode == config.ModeApprove {
				return c.approve(cmd, args)
			}
			return c.run(cmd, args)
		},
	}
	cmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&c.dryRun, "dry-run", true, "preview threads instead of publishing (overrides dry_run)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Search for candidates and publish, queue or reject each one",
			Args:  cobra.NoArgs,
			RunE:  c.run,
		},
		&cobra.Command{
			Use:   "approve",
			Short: "Publish the top entries of the review queue",
			Args:  cobra.NoArgs,
			RunE:  c.approve,
		},
		c.reconcileCmd(),
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the review queue admin API",
			Args:  cobra.NoArgs,
			RunE:  c.serve,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply the Postgres schema",
			Args:  cobra.NoArgs,
			RunE:  c.migrate,
		},
		newConfigCmd(c),
	)
	return cmd
}

func (c *cli) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = c.dryRun
	}
	c.cfg = cfg
	return nil
}

// withApp builds the application, runs fn and always closes it.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a Application) error) (err error) {
	ctx := cmd.Context()
	a, err := c.build(ctx, c.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer func() {
		// Close runs on a fresh context so metrics still flush after a signal.
		if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil {
			a.Logger().Warn("close failed", zap.Error(cerr))
		}
	}()
	return fn(ctx, a)
}

func (c *cli) run(cmd *cobra.Command, _ []string) error {
	return c.withApp(cmd, func(ctx context.Context, a Application) error {
		res, err := a.Run(ctx)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), res)
	})
}

func (c *cli) approve(cmd *cobra.Command, _ []string) error {
	return c.withApp(cmd, func(ctx context.Context, a Application) error {
		sum, err := a.Approve(ctx)
		if err != nil {
			return fmt.Errorf("approve: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), sum)
	})
}

func (c *cli) reconcileCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Retry publishes that were reserved but never completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a Application) error {
				sum, err := a.Reconcile(ctx, limit)
				if err != nil {
					return fmt.Errorf("reconcile: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), sum)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records to retry (default run.reconcile_limit)")
	return cmd
}

func (c *cli) serve(cmd *cobra.Command, _ []string) error {
	return c.withApp(cmd, func(ctx context.Context, a Application) error {
		if err := a.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
}

func (c *cli) migrate(cmd *cobra.Command, _ []string) error {
	return c.withApp(cmd, func(ctx context.Context, a Application) error {
		if err := a.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		a.Logger().Info("schema applied")
		return nil
	})
}

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
