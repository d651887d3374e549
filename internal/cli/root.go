package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var envFile string

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	defaultEnv := os.Getenv("ENV_FILE")
	if defaultEnv == "" {
		defaultEnv = "configs/.env"
	}

	cmd := &cobra.Command{
		Use:           "quizbot",
		Short:         "Timed multiple-choice quiz bot",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnv, "dotenv file loaded outside production")
	cmd.AddCommand(newServeCmd(&envFile))
	cmd.AddCommand(newBanksCmd(&envFile))
	return cmd
}
