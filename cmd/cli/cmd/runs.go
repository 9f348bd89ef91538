package cmd

import (
	"errors"
	"time"

	"adhocdist/internal/pipeline"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect build workflow runs",
}

var runsGetCmd = &cobra.Command{
	Use:   "get [run_id]",
	Short: "Show the status of a workflow run",
	Long: `Show the status of a build workflow run on GitHub Actions.

Reads the repository and token from ADHOC_GITHUB_OWNER, ADHOC_GITHUB_REPO and
ADHOC_GITHUB_TOKEN, falling back to GITHUB_OWNER, GITHUB_REPO and GITHUB_TOKEN.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := viper.GetString("github_owner")
		repo := viper.GetString("github_repo")
		if owner == "" || repo == "" {
			return errors.New("github owner and repo are required: set GITHUB_OWNER and GITHUB_REPO")
		}

		d := pipeline.NewDispatcher(pipeline.Config{
			Owner:   owner,
			Repo:    repo,
			Token:   viper.GetString("github_token"),
			APIBase: viper.GetString("github_api_base"),
		})

		run, err := d.RunStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if done, err := render(cmd, run); done || err != nil {
			return err
		}

		cmd.Printf("Run ID:      %d\n", run.ID)
		cmd.Printf("Workflow:    %s\n", run.Name)
		cmd.Printf("Branch:      %s\n", orDash(run.HeadBranch))
		cmd.Printf("Status:      %s\n", run.Status)
		cmd.Printf("Conclusion:  %s\n", orDash(run.Conclusion))
		cmd.Printf("Started:     %s\n", formatTime(run.CreatedAt))
		if !run.UpdatedAt.IsZero() && !run.CreatedAt.IsZero() {
			cmd.Printf("Duration:    %s\n", run.UpdatedAt.Sub(run.CreatedAt).Round(time.Second))
		}
		cmd.Printf("URL:         %s\n", orDash(run.HTMLURL))
		return nil
	},
}

func init() {
	runsCmd.AddCommand(runsGetCmd)
	rootCmd.AddCommand(runsCmd)
}
