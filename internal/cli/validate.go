package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"menueditor-backend/internal/menu"
)

// ValidationResult reports a validated menu file.
type ValidationResult struct {
	File  string   `json:"file"`
	Valid bool     `json:"valid"`
	Menus []string `json:"menus,omitempty"`
	Items int      `json:"items"`
	Depth int      `json:"depth"`
	Error string   `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a menu file can be saved without loss",
		Long: `Decode a menu file and check that it survives a save unchanged.

Files ending in .json are read as the editor's JSON payload, anything else as
the YAML configuration document.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd.OutOrStdout(), args[0], maxDepth)
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", menu.DefaultMaxDepth, "deepest item nesting accepted")

	return cmd
}

func runValidate(opts *RootOptions, w io.Writer, file string, maxDepth int) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	result := ValidationResult{File: file}
	codec := menu.NewCodec(maxDepth)

	var doc *menu.Document
	if strings.EqualFold(filepath.Ext(file), ".json") {
		doc, err = menu.DecodeJSON(data, menu.Limits{MaxDepth: maxDepth})
	} else {
		doc, err = codec.Decode(data)
	}
	if err == nil {
		_, err = menu.NewValidator(codec).Validate(doc)
	}

	if err != nil {
		result.Error = err.Error()
	} else {
		result.Valid = true
		result.Menus = doc.Names()
		result.Items = doc.ItemCount()
		result.Depth = doc.Depth()
	}

	if werr := output(w, opts.Format, result, func(w io.Writer) {
		if result.Valid {
			fmt.Fprintf(w, "%s: ok (%d menus, %d items, depth %d)\n", file, len(result.Menus), result.Items, result.Depth)
		} else {
			fmt.Fprintf(w, "%s: invalid: %s\n", file, result.Error)
		}
	}); werr != nil {
		return werr
	}
	if !result.Valid {
		return fmt.Errorf("%s is not a valid menu", file)
	}
	return nil
}
