// Package cli implements menuctl, the operator command line for the menu
// editor.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"menueditor-backend/internal/config"
	"menueditor-backend/internal/di"
	"menueditor-backend/pkg/auth"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigDir string
	Env       string
	Format    string // "json" | "text"

	// loadConfig and initTools are replaced in tests.
	loadConfig func(opts *RootOptions) (*config.Config, error)
	initTools  func(ctx context.Context, cfg *config.Config) (*di.Tools, func(), error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Operator is the principal menuctl acts as. Whoever can run the CLI can
// already edit the files it touches.
var Operator = &auth.Principal{UserID: "menuctl", Name: "menuctl", Permissions: []string{auth.Wildcard}}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{loadConfig: loadConfig, initTools: di.InitializeTools})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menuctl",
		Short: "Operate the menu editor",
		Long:  "Validate menu files, list and restore menu backups, and mint development tokens.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", envOr("CONFIG_DIR", "config"), "directory holding base.yaml and the environment files")
	cmd.PersistentFlags().StringVar(&opts.Env, "env", envOr("ENVIRONMENT", string(config.Development)), "environment (development|staging|production)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewBackupsCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	return config.NewLoader(opts.ConfigDir, config.ParseEnvironment(opts.Env)).Load()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// output writes v as indented JSON, or calls text for the text format.
func output(w io.Writer, format string, v interface{}, text func(io.Writer)) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
