package main

import (
	"os"

	"github.com/maxaizer/job-alerts/internal/config"
	"github.com/spf13/cobra"
)

const app = "job-alerts"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-alerts delivers new job postings to the mailboxes of matching candidates",
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"a config file (default is $CONFIG_PATH or ./configs/config.yaml)")

	rootCmd.AddCommand(serveCmd, publishCmd, migrateCmd)
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Get(), nil
	}
	return config.Load(cfgFile)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
