package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty credential store",
	Long:  "Create an encrypted, empty credential store at the configured path. An existing store is left untouched.",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolP("yes", "y", false, "don't ask for confirmation")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	yes, _ := cmd.Flags().GetBool("yes")

	exists, err := sess.store("").Exists()
	if err != nil {
		return err
	}
	if exists {
		printInfo("Credential store already exists at %s", sess.cfg.StorePath)
		return nil
	}

	if !yes {
		ok, err := sess.prompter.Confirm(ctx, fmt.Sprintf("Create a credential store at %q?", sess.cfg.StorePath))
		if err != nil {
			return err
		}
		if !ok {
			return errNoStore
		}
	}

	st, _, err := sess.createStore(ctx)
	if err != nil {
		return err
	}
	if err := sess.refreshCompletion(ctx, st); err != nil {
		printWarning("Completion not updated: %v", err)
	}
	return nil
}
