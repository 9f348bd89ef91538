package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "adhocctl",
	Short: "adhocctl is a command line tool for the adhocdist distribution service",
	Long: `adhocctl is the command-line interface for adhocdist, the ad-hoc iOS build
distribution service.

Testers register an email, install an enrollment profile that reports their
device identifier, and receive an install link once the pipeline has built a
package that includes their device. adhocctl gives operators and the build
pipeline access to that flow.

Common workflows:

  Inspect testers and builds:
    adhocctl testers list
    adhocctl builds get <build-id>

  Compare local devices with the developer account:
    adhocctl devices list --vendor

  Report a finished build from CI:
    adhocctl complete --build <build-id> --url https://cdn.example.com/app.ipa --tester <tester-id>

  Inspect the workflow run that produced a build:
    adhocctl runs get <run-id>

Configuration:
  Flags can also be set in $HOME/.adhocctl.yaml or through environment variables:
    ADHOC_URL              Server URL (default: http://localhost:3000)
    ADHOC_USER             Admin user name (default: admin)
    ADHOC_PASSWORD         Admin password (prompted when empty on a terminal)
    ADHOC_CALLBACK_SECRET  Bearer secret for the build-completed callback
    ADHOC_OUTPUT           Output format: table, json or yaml`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".adhocctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".adhocctl")
		viper.SetConfigType("yaml")
	}

	bindEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindEnv reads variables that match "ADHOC_VARNAME". The pipeline settings
// also fall back to the names the server uses.
func bindEnv() {
	viper.SetEnvPrefix("ADHOC")
	viper.AutomaticEnv()

	viper.BindEnv("github_owner", "ADHOC_GITHUB_OWNER", "GITHUB_OWNER")
	viper.BindEnv("github_repo", "ADHOC_GITHUB_REPO", "GITHUB_REPO")
	viper.BindEnv("github_token", "ADHOC_GITHUB_TOKEN", "GITHUB_TOKEN")
	viper.BindEnv("github_api_base", "ADHOC_GITHUB_API_BASE", "GITHUB_API_BASE")
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.adhocctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:3000", "adhocdist server URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("user", "u", "admin", "Admin user name")
	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))

	rootCmd.PersistentFlags().StringP("password", "p", "", "Admin password")
	viper.BindPFlag("password", rootCmd.PersistentFlags().Lookup("password"))

	rootCmd.PersistentFlags().String("callback-secret", "", "Bearer secret for the build-completed callback")
	viper.BindPFlag("callback_secret", rootCmd.PersistentFlags().Lookup("callback-secret"))

	rootCmd.PersistentFlags().StringP("output", "o", formatTable, "Output format: table, json or yaml")
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
}
