package main

import (
	"github.com/maxaizer/job-alerts/internal/repositories"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
		if err != nil {
			return err
		}
		defer dbContext.Close()

		if err = dbContext.Migrate(); err != nil {
			return err
		}
		log.Info("database schema is up to date")
		return nil
	},
}
