package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benaskins/pwdy/internal/store"
)

var lsCmd = &cobra.Command{
	Use:     "ls",
	Short:   "List stored credentials",
	Long:    "Print the identity (service:username) of every stored credential, sorted.",
	Aliases: []string{"list"},
	Args:    cobra.NoArgs,
	RunE:    runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return sess.withStore(ctx, func(st *store.Store) error {
		ids, err := st.Identities(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	})
}
