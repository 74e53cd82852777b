package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/hypeshelf/internal/auth"
	"github.com/sakif/hypeshelf/internal/model"
)

func newHashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret <secret>",
		Short: "Print the bcrypt hash of a seed secret for seed.secret_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.NewSecretHasher().Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

type devTokenOptions struct {
	subject string
	name    string
	image   string
	ttl     time.Duration
}

// newDevTokenCmd mints tokens signed with auth.token_secret so the API can be
// exercised with curl when no identity provider is running.
func newDevTokenCmd(opts *rootOptions) *cobra.Command {
	tokenOpts := &devTokenOptions{}

	cmd := &cobra.Command{
		Use:   "dev-token",
		Short: "Mint a session token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			tokens, err := auth.NewTokenVerifier(cfg.Auth.TokenSecret, cfg.Auth.Issuer)
			if err != nil {
				return err
			}

			token, err := tokens.Sign(model.Identity{
				Subject:     tokenOpts.subject,
				DisplayName: tokenOpts.name,
				ImageURL:    tokenOpts.image,
			}, tokenOpts.ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&tokenOpts.subject, "subject", "", "external subject (required)")
	cmd.Flags().StringVar(&tokenOpts.name, "name", "", "display name claim")
	cmd.Flags().StringVar(&tokenOpts.image, "image", "", "avatar URL claim")
	cmd.Flags().DurationVar(&tokenOpts.ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
