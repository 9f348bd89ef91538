package cmd

import (
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register [email]",
	Short: "Register a tester email",
	Long: `Register a tester email address and print the enrollment link.

Registering an address that already exists returns the existing tester.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClientFromConfig()

		resp, err := client.Register(args[0])
		if err != nil {
			return err
		}

		if done, err := render(cmd, resp); done || err != nil {
			return err
		}

		cmd.Printf("Tester ID:  %s\n", resp.TesterID)
		cmd.Printf("Next URL:   %s\n", resp.NextURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
}
