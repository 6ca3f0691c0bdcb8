package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/playperu/sprintstory/internal/config"
	"github.com/playperu/sprintstory/internal/database"
	"github.com/playperu/sprintstory/internal/migrations"
	"github.com/playperu/sprintstory/internal/script"
)

func newRootCmd(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "sprintd",
		Short:         "Sprint story progression service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), stdout)
		},
	}
	root.SetOut(stdout)

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and the announcement relay",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), stdout)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return migrate(cmd, stdout)
			},
		},
		newCatalogCmd(),
	)
	return root
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the story script",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate [path]",
			Short: "Load and validate a script file (the embedded one by default)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path := ""
				if len(args) == 1 {
					path = args[0]
				}
				c, err := loadCatalog(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok: version %d, %d chapters, %d branches\n",
					c.Version(), len(c.Chapters()), len(c.Branches()))
				return nil
			},
		},
		&cobra.Command{
			Use:   "tasks",
			Short: "List the tasks each chapter unlocks",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				c, err := loadCatalog(cfg.ScriptPath)
				if err != nil {
					return err
				}
				return printTasks(cmd.OutOrStdout(), c)
			},
		},
	)
	return cmd
}

func migrate(cmd *cobra.Command, stdout io.Writer) error {
	ctx := cmd.Context()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(stdout, cfg.LogLevel)

	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	v, err := migrations.Version(ctx, db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	logger.Info("migrations applied", "path", cfg.DBPath, "version", v)
	return nil
}

func loadCatalog(path string) (*script.Catalog, error) {
	if path == "" {
		c, err := script.Default()
		if err != nil {
			return nil, fmt.Errorf("loading embedded script: %w", err)
		}
		return c, nil
	}
	c, err := script.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading script %s: %w", path, err)
	}
	return c, nil
}

func printTasks(w io.Writer, c *script.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHAPTER\tTASK\tTITLE")
	for _, ch := range c.Chapters() {
		for _, t := range ch.Tasks {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", ch.Number, t.ID, t.Title)
		}
	}
	return tw.Flush()
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
