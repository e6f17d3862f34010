package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"content-rag/internal/config"
	"content-rag/internal/helper"
)

const configFilePath = "./configs/config.yaml"

var (
	cfgPath string
	cfg     *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "content-rag",
		Short:         "Ingest study material and answer questions over it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional
			_ = godotenv.Load()

			var err error
			cfg, err = config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			helper.SetupLogger(cfg.Log.Level, cfg.Log.Pretty)
			log.Debug().Str("path", cfgPath).Msg("Loaded config")
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", configFilePath, "path to the YAML config file")

	root.AddCommand(serveCmd(), ingestCmd(), askCmd(), listCmd(), migrateCmd(), configCmd())
	return root
}
