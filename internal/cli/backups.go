package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"menueditor-backend/internal/backup"
	"menueditor-backend/internal/di"
	"menueditor-backend/pkg/api"
	"menueditor-backend/pkg/auth"
)

// NewBackupsCommand creates the backups command group.
func NewBackupsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List and restore menu backups",
	}
	cmd.AddCommand(newBackupsListCommand(rootOpts))
	cmd.AddCommand(newBackupsRestoreCommand(rootOpts))
	return cmd
}

func newBackupsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTools(cmd.Context(), rootOpts, func(ctx context.Context, tools *di.Tools) error {
				records, err := tools.Editor.Backups(ctx)
				if err != nil {
					return err
				}
				if records == nil {
					records = []backup.Record{}
				}
				return output(cmd.OutOrStdout(), rootOpts.Format, api.BackupsResponse{Backups: records}, func(w io.Writer) {
					if len(records) == 0 {
						fmt.Fprintln(w, "no backups")
						return
					}
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "NAME\tTAKEN\tSIZE")
					for _, rec := range records {
						fmt.Fprintf(tw, "%s\t%s\t%d\n", rec.Name, rec.Timestamp.UTC().Format(time.RFC3339), rec.Size)
					}
					tw.Flush()
				})
			})
		},
	}
}

func newBackupsRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name>",
		Short: "Restore a backup; the replaced menu is backed up first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTools(cmd.Context(), rootOpts, func(ctx context.Context, tools *di.Tools) error {
				out, err := tools.Editor.Restore(ctx, args[0])
				if out == nil {
					return err
				}
				resp := api.NewSaveResponse(out)
				if werr := output(cmd.OutOrStdout(), rootOpts.Format, resp, func(w io.Writer) {
					fmt.Fprintf(w, "%s (%s)\n", resp.Message, resp.State)
					if resp.Backup != nil {
						fmt.Fprintf(w, "previous menu saved as %s\n", resp.Backup.Name)
					}
					if resp.BackupError != "" {
						fmt.Fprintf(w, "warning: %s\n", resp.BackupError)
					}
				}); werr != nil {
					return werr
				}
				return err
			})
		},
	}
}

// withTools loads configuration, wires the tools and runs fn as Operator.
func withTools(ctx context.Context, opts *RootOptions, fn func(ctx context.Context, tools *di.Tools) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := opts.loadConfig(opts)
	if err != nil {
		return err
	}
	tools, cleanup, err := opts.initTools(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(auth.WithPrincipal(ctx, Operator), tools)
}
