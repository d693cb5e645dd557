package main

import (
	"time"

	"github.com/spf13/cobra"
)

func warmCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Render every page once to check the API",
		Long: `Build the list snapshot and every detail page against the configured
API and report what failed. Nothing is written; use publish to keep the
pages.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.wait()

			start := time.Now()
			if err := a.selector.Warm(cmd.Context()); err != nil {
				return err
			}
			ids, err := a.selector.KnownIDs(cmd.Context())
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Warmed %d pages in %s", len(ids)+1, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
