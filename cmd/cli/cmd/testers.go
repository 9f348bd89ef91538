package cmd

import (
	"fmt"

	"adhocdist/pkg/api"

	"github.com/spf13/cobra"
)

var testersCmd = &cobra.Command{
	Use:   "testers",
	Short: "Inspect registered testers",
}

var testersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List testers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAdminClient()
		if err != nil {
			return err
		}

		testers, err := client.ListTesters()
		if err != nil {
			return err
		}

		if done, err := render(cmd, testers); done || err != nil {
			return err
		}
		printTesters(cmd, testers)
		return nil
	},
}

var testersGetCmd = &cobra.Command{
	Use:   "get [tester_id]",
	Short: "Show a tester and its builds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAdminClient()
		if err != nil {
			return err
		}

		detail, err := client.GetTester(args[0])
		if err != nil {
			return err
		}

		if done, err := render(cmd, detail); done || err != nil {
			return err
		}

		cmd.Printf("ID:       %s\n", detail.ID)
		cmd.Printf("Email:    %s\n", detail.Email)
		cmd.Printf("UDID:     %s\n", orDash(detail.UDID))
		cmd.Printf("Status:   %s\n", detail.Status)
		cmd.Printf("Created:  %s\n", formatTime(detail.CreatedAt))
		cmd.Printf("Updated:  %s\n", formatTime(detail.UpdatedAt))
		cmd.Println()
		if len(detail.Builds) == 0 {
			cmd.Println("No builds.")
			return nil
		}
		printBuilds(cmd, detail.Builds)
		return nil
	},
}

func printTesters(cmd *cobra.Command, testers []api.Tester) {
	if len(testers) == 0 {
		cmd.Println("No testers.")
		return
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tEMAIL\tSTATUS\tUDID\tUPDATED")
	for _, t := range testers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Email, t.Status, orDash(t.UDID), formatTime(t.UpdatedAt))
	}
	w.Flush()
}

func init() {
	testersCmd.AddCommand(testersListCmd, testersGetCmd)
	rootCmd.AddCommand(testersCmd)
}
