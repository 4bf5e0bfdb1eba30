package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/lab-timetable/internal/application"
	"github.com/example/lab-timetable/internal/bootstrap"
	"github.com/example/lab-timetable/internal/importfile"
	"github.com/example/lab-timetable/internal/persistence/sqlite"
)

var (
	errRowsRejected     = errors.New("some rows were rejected")
	errClearUnconfirmed = errors.New("refusing to clear sessions without --yes")
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := sqlite.Open(sqlite.DefaultConfig(opts.cfg.SQLitePath))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer pool.Close()

			status, err := pool.Migrate(opts.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (applied=%t, dirty=%t)\n", status.Version, status.Applied, status.Dirty)
			return nil
		},
	}
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Upsert sessions from a JSON or CSV file",
		Long: "Upsert sessions from a JSON or CSV file keyed by room, date and period.\n" +
			"Rejected rows are listed and make the command exit non-zero; the other rows are still applied.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			format, err := importfile.FormatFromPath(path)
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			records, err := importfile.Read(f, format)
			if err != nil {
				return err
			}

			return opts.withApp(cmd.Context(), func(app *bootstrap.App) error {
				result, err := app.Timetable.ImportRecords(cmd.Context(), records, dryRun)
				if err != nil {
					return err
				}
				printUpsertResult(cmd, result)
				if len(result.Errors) > 0 {
					return fmt.Errorf("%w: %d of %d", errRowsRejected, len(result.Errors), len(records))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the writes without applying them")
	return cmd
}

func printUpsertResult(cmd *cobra.Command, result application.UpsertResult) {
	out := cmd.OutOrStdout()
	prefix := ""
	if result.DryRun {
		prefix = "dry run: "
	}
	fmt.Fprintf(out, "%sinserted %d, updated %d, rejected %d\n", prefix, result.Inserted, result.Updated, len(result.Errors))
	for _, rowErr := range result.Errors {
		line := fmt.Sprintf("  row %d: %s", rowErr.Index, rowErr.Message)
		if rowErr.Field != "" {
			line += " [" + rowErr.Field + "]"
		}
		fmt.Fprintln(out, line)
	}
}

func newClearCommand(opts *rootOptions) *cobra.Command {
	var (
		roomID  int
		confirm bool
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every session of one room, or of all rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return errClearUnconfirmed
			}
			var target *int
			if cmd.Flags().Changed("room") {
				target = &roomID
			}
			return opts.withApp(cmd.Context(), func(app *bootstrap.App) error {
				deleted, err := app.Timetable.ClearRoom(cmd.Context(), target)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d sessions\n", deleted)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&roomID, "room", 0, "room id to clear; all rooms when omitted")
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm the deletion")
	return cmd
}
