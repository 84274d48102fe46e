package main

import (
	"context"
	"fmt"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-alerts/internal/broker"
	"github.com/maxaizer/job-alerts/internal/entities"
	"github.com/spf13/cobra"
)

var job entities.Job

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a single job posting to the notification queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		conn := broker.NewConnection(cfg.Broker, EventBus.New())
		defer conn.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Broker.ConnectTimeout+cfg.Broker.ProcessingTimeout)
		defer cancel()

		outcome, err := broker.NewPublisher(conn, cfg.Broker.Subject).PublishJob(ctx, job)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), outcome)
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&job.ID, "id", "", "job id (generated when empty)")
	publishCmd.Flags().StringVar(&job.CompanyName, "company", "", "company name")
	publishCmd.Flags().StringVar(&job.Role, "role", "", "job role")
	publishCmd.Flags().StringVar(&job.Description, "description", "", "job description")
	_ = publishCmd.MarkFlagRequired("company")
	_ = publishCmd.MarkFlagRequired("role")
}
