package cmd

import (
	"errors"

	"adhocdist/pkg/api"

	"github.com/spf13/cobra"
)

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Report a finished build",
	Long: `Mark a build as completed and send the tester the install link.

This is what the build pipeline calls after uploading the package. A failed
notification is reported but does not fail the command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		buildID, _ := cmd.Flags().GetString("build")
		downloadURL, _ := cmd.Flags().GetString("url")
		testerID, _ := cmd.Flags().GetString("tester")

		if buildID == "" || downloadURL == "" {
			return errors.New("--build and --url are required")
		}

		client := newClientFromConfig()
		resp, err := client.CompleteBuild(api.BuildCompletedRequest{
			BuildID:     buildID,
			DownloadURL: downloadURL,
			TesterID:    testerID,
		})
		if err != nil {
			return err
		}

		if done, err := render(cmd, resp); done || err != nil {
			return err
		}

		cmd.Printf("Build %s marked %s\n", resp.Build.ID, resp.Build.Status)
		switch {
		case resp.Notified:
			cmd.Println("Install link sent to the tester.")
		case resp.NotificationError != "":
			cmd.Printf("Notification failed: %s\n", resp.NotificationError)
		default:
			cmd.Println("No tester notified.")
		}
		return nil
	},
}

func init() {
	// "url" is also a persistent flag for the server address; the local flag
	// shadows it for this command, so the server URL comes from config or env.
	completeCmd.Flags().String("build", "", "Build ID (required)")
	completeCmd.Flags().String("url", "", "Download URL of the built package (required)")
	completeCmd.Flags().String("tester", "", "Tester ID to notify")
	rootCmd.AddCommand(completeCmd)
}
