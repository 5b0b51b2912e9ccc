package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benaskins/pwdy/internal/credential"
	"github.com/benaskins/pwdy/internal/store"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new credential",
	Long: `Add a new credential. Fields not given as flags are prompted for; the
password is asked for twice. A credential whose service and username are
already stored is refused.`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().String("service-name", "", "the name of the service")
	addCmd.Flags().String("username", "", "the username")
	addCmd.Flags().String("password", "", "the password (not recommended)")
	addCmd.Flags().String("other-info", "", "other information to keep with the credential")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	service, _ := flags.GetString("service-name")
	username, _ := flags.GetString("username")
	password, _ := flags.GetString("password")
	other, _ := flags.GetString("other-info")
	if password != "" {
		printWarning("--password is visible in process listings and shell history")
	}
	partial := credential.New(service, username, password, credential.WithOtherInfo(other))

	return sess.withStore(ctx, func(st *store.Store) error {
		c, err := credential.Build(ctx, partial, sess.prompter)
		if err != nil {
			return err
		}

		inserted, err := st.Insert(ctx, c)
		if err != nil {
			return err
		}
		if !inserted {
			return fmt.Errorf("failed to add credential: %s is already stored", c.Identity())
		}
		printSuccess("Added %s", c.Identity())

		if err := sess.refreshCompletion(ctx, st); err != nil {
			printWarning("Completion not updated: %v", err)
		}
		return nil
	})
}
