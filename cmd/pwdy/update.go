package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/benaskins/pwdy/internal/store"
	"github.com/benaskins/pwdy/internal/watch"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Regenerate the credential tab-completion file",
	Long: `Regenerate the bash completion script (~/.pwdy/pwdy-completion.bash by
default) so that "pwdy get <TAB>" completes stored identities. Source it
from your shell profile. With --watch, keep running and regenerate the
script whenever the store changes.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().Bool("watch", false, "regenerate whenever the store changes")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	watching, _ := cmd.Flags().GetBool("watch")
	if watching {
		sess.actor = "watch"
	}

	return sess.withStore(ctx, func(st *store.Store) error {
		if err := sess.refreshCompletion(ctx, st); err != nil {
			return err
		}
		printSuccess("Completion updated: %s", sess.cfg.CompletionPath)
		if !watching {
			return nil
		}

		w := watch.New(st.Path(), watch.WithLogger(sess.logger.With("component", "watch")))
		printInfo("Watching %s for changes (Ctrl-C to stop)", st.Path())
		return w.Run(ctx, func(ctx context.Context) error {
			if err := sess.refreshCompletion(ctx, st); err != nil {
				return err
			}
			printSuccess("Completion updated")
			return nil
		})
	})
}
