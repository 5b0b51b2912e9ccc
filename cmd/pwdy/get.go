package main

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/benaskins/pwdy/internal/store"
)

// copyToClipboard is swapped out in tests.
var copyToClipboard = func(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility found")
	}
	return clipboard.WriteAll(text)
}

var getCmd = &cobra.Command{
	Use:   "get <service:username>",
	Short: "Retrieve a credential",
	Long: `Print a credential's username and other info, and copy its password to
the clipboard. The password is only printed with --show.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().Bool("show", false, "print the password instead of copying it")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	show, _ := cmd.Flags().GetBool("show")
	id := args[0]
	out := cmd.OutOrStdout()

	return sess.withStore(ctx, func(st *store.Store) error {
		c, ok, err := st.Get(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no credential stored for %q (see `pwdy ls`)", id)
		}

		fmt.Fprintf(out, "Retrieved credential for %s.\n", id)
		fmt.Fprintf(out, "  Username: %s\n", c.Username)
		if c.OtherInfo != "" {
			fmt.Fprintf(out, "  Other info: %q\n", c.OtherInfo)
		}

		if show {
			fmt.Fprintf(out, "  Password: %s\n", c.Password)
			return nil
		}
		if err := copyToClipboard(c.Password); err != nil {
			return fmt.Errorf("copying password: %w (use --show to print it)", err)
		}
		fmt.Fprintln(out, "  Password copied to clipboard.")
		return nil
	})
}
