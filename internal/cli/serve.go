package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/quizbot/internal/app"
	"github.com/gokatarajesh/quizbot/internal/config"
)

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the quiz bot and its HTTP endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			loadEnv(*envFile)

			loadCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			cfg, err := config.Load(loadCtx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			appCtx := context.Background()
			instance, err := app.New(appCtx, cfg, app.Options{})
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			return instance.Run(appCtx)
		},
	}
}

func loadEnv(path string) {
	if os.Getenv("APP_ENV") == "production" || path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}
}
