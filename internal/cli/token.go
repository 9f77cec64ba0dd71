package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"menueditor-backend/internal/service/editor"
	"menueditor-backend/pkg/auth"
)

// TokenResult is a minted token.
type TokenResult struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type tokenOptions struct {
	userID      string
	name        string
	permissions []string
	ttl         time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a token signed with the configured JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(rootOpts, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.userID, "user", "operator", "user ID (sub claim)")
	cmd.Flags().StringVar(&opts.name, "name", "", "display name")
	cmd.Flags().StringSliceVar(&opts.permissions, "permission", []string{editor.Permission}, "granted permissions")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 0, "token lifetime (default security.jwt_expiry)")

	return cmd
}

func runToken(rootOpts *RootOptions, opts *tokenOptions, w io.Writer) error {
	cfg, err := rootOpts.loadConfig(rootOpts)
	if err != nil {
		return err
	}
	if cfg.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is not configured")
	}
	ttl := opts.ttl
	if ttl <= 0 {
		ttl = cfg.Security.JWTExpiry
	}

	gen, err := auth.NewJWTGenerator(auth.JWTGeneratorConfig{
		SecretKey:  cfg.Security.JWTSecret,
		Issuer:     cfg.Security.JWTIssuer,
		ExpiryTime: ttl,
	})
	if err != nil {
		return err
	}
	token, err := gen.GenerateToken(opts.userID, opts.name, opts.permissions)
	if err != nil {
		return err
	}

	result := TokenResult{Token: token, UserID: opts.userID, ExpiresAt: time.Now().Add(ttl).UTC().Truncate(time.Second)}
	return output(w, rootOpts.Format, result, func(w io.Writer) {
		fmt.Fprintln(w, token)
	})
}
