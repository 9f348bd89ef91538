package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all testers, devices and builds",
	Long: `Delete every tester, device and build from the server.

This cannot be undone and requires --yes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return errors.New("refusing to purge without --yes")
		}

		client, err := newAdminClient()
		if err != nil {
			return err
		}
		if err := client.Purge(); err != nil {
			return err
		}

		cmd.Println("All data purged.")
		return nil
	},
}

func init() {
	purgeCmd.Flags().Bool("yes", false, "Confirm the purge")
	rootCmd.AddCommand(purgeCmd)
}
