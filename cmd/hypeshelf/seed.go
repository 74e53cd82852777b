package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/hypeshelf/internal/server"
	"github.com/sakif/hypeshelf/internal/service"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo users and recommendations (no-op when already seeded)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Logging, cmd.ErrOrStderr())

			db, err := server.OpenDatabase(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			// No feed cache here: a running server's cache expires on its own TTL.
			result, err := service.NewSeedService(db, nil, logger).Seed(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d users and %d recommendations\n",
				result.UsersInserted, result.RecommendationsInserted)
			return nil
		},
	}
}
