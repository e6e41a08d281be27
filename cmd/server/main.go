package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	loadLocalEnv()

	rootCmd := &cobra.Command{
		Use:           "portfolio-be",
		Short:         "Portfolio admin backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), adminCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found; relying on existing environment")
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
