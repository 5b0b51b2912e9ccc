package main

import (
	"github.com/spf13/cobra"
)

var passphraseCmd = &cobra.Command{
	Use:   "passphrase",
	Short: "Manage the remembered store passphrase",
}

var passphraseForgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Remove the remembered passphrase from the keychain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		paths := []string{sess.cfg.StorePath}
		if all {
			listed, err := sess.keychain.List()
			if err != nil {
				return err
			}
			paths = listed
		}

		for _, p := range paths {
			if err := sess.keychain.Delete(p); err != nil {
				return err
			}
		}
		printSuccess("Forgot %d remembered passphrase(s)", len(paths))
		return nil
	},
}

func init() {
	passphraseForgetCmd.Flags().Bool("all", false, "forget passphrases for every store")
	passphraseCmd.AddCommand(passphraseForgetCmd)
	rootCmd.AddCommand(passphraseCmd)
}
