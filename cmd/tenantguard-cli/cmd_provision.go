package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
)

func newProvisionCmd() *cobra.Command {
	var (
		trigger  string
		metadata string
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Schedule a provisioning job for the tenant",
		Run: func(cmd *cobra.Command, args []string) {
			var md map[string]any
			if metadata != "" {
				if err := json.Unmarshal([]byte(metadata), &md); err != nil {
					fatal("parse metadata", err)
				}
			}

			job, err := apiClient.Provisioning.Schedule(context.Background(), trigger, md)
			if err != nil {
				fatal("provision", err)
			}
			output(job, job.ID)
		},
	}

	cmd.Flags().StringVar(&trigger, "trigger", "MANUAL_OVERRIDE", "Trigger: SUBSCRIPTION_ACTIVATED|MANUAL_OVERRIDE|SYSTEM_RECOVERY")
	cmd.Flags().StringVar(&metadata, "metadata", "", "Job metadata as a JSON object")

	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the tenant's runtime configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := apiClient.Provisioning.RuntimeConfig(context.Background())
			if err != nil {
				fatal("status", err)
			}
			output(cfg, cfg.SchemaName)
		},
	}
}
