package cmd

import (
	"fmt"
	"strings"

	"adhocdist/pkg/api"

	"github.com/spf13/cobra"
)

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "Inspect builds",
}

var buildsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List builds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAdminClient()
		if err != nil {
			return err
		}

		builds, err := client.ListBuilds()
		if err != nil {
			return err
		}

		if done, err := render(cmd, builds); done || err != nil {
			return err
		}
		if len(builds) == 0 {
			cmd.Println("No builds.")
			return nil
		}
		printBuilds(cmd, builds)
		return nil
	},
}

var buildsGetCmd = &cobra.Command{
	Use:   "get [build_id]",
	Short: "Show a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAdminClient()
		if err != nil {
			return err
		}

		build, err := client.GetBuild(args[0])
		if err != nil {
			return err
		}

		if done, err := render(cmd, build); done || err != nil {
			return err
		}

		cmd.Printf("ID:         %s\n", build.ID)
		cmd.Printf("Tester:     %s\n", build.TesterID)
		cmd.Printf("Status:     %s\n", build.Status)
		cmd.Printf("Devices:    %s\n", strings.Join(build.DevicesIncluded, ", "))
		cmd.Printf("Download:   %s\n", orDash(build.DownloadURL))
		cmd.Printf("Created:    %s\n", formatTime(build.CreatedAt))
		cmd.Printf("Completed:  %s\n", formatTimePtr(build.CompletedAt))
		return nil
	},
}

func printBuilds(cmd *cobra.Command, builds []api.Build) {
	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tTESTER\tSTATUS\tDEVICES\tCREATED\tCOMPLETED")
	for _, b := range builds {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			b.ID, b.TesterID, b.Status, len(b.DevicesIncluded), formatTime(b.CreatedAt), formatTimePtr(b.CompletedAt))
	}
	w.Flush()
}

func init() {
	buildsCmd.AddCommand(buildsListCmd, buildsGetCmd)
	rootCmd.AddCommand(buildsCmd)
}
