package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tenantguardhq/tenantguard/client"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Provisioning job commands",
	}
	cmd.AddCommand(jobsListCmd())
	cmd.AddCommand(jobsGetCmd())
	cmd.AddCommand(jobsEventsCmd())
	return cmd
}

func jobsListCmd() *cobra.Command {
	var (
		status string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tenant's provisioning jobs",
		Run: func(cmd *cobra.Command, args []string) {
			jobs, hasMore, err := apiClient.Provisioning.List(context.Background(), &client.ListJobsOptions{
				Status: status,
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				fatal("list jobs", err)
			}

			if flagFmt == "table" {
				rows := make([][]string, 0, len(jobs))
				for _, j := range jobs {
					rows = append(rows, []string{
						j.ID, j.Status, j.Trigger, j.TargetSchema,
						j.CreatedAt.Format(time.RFC3339),
					})
				}
				formatTable([]string{"ID", "STATUS", "TRIGGER", "SCHEMA", "CREATED"}, rows)
				return
			}

			output(map[string]any{"jobs": jobs, "has_more": hasMore}, "")
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status: PENDING|EXECUTING|COMPLETED|FAILED")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum jobs to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")

	return cmd
}

func jobsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show one provisioning job",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			job, err := apiClient.Provisioning.Get(context.Background(), args[0])
			if err != nil {
				fatal("get job", err)
			}
			output(job, job.Status)
		},
	}
}

func jobsEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <job-id>",
		Short: "Show a job's event trail",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			events, err := apiClient.Provisioning.Events(context.Background(), args[0])
			if err != nil {
				fatal("job events", err)
			}

			if flagFmt == "table" {
				rows := make([][]string, 0, len(events))
				for _, e := range events {
					rows = append(rows, []string{
						e.Action, e.Status, e.CreatedAt.Format(time.RFC3339),
					})
				}
				formatTable([]string{"ACTION", "STATUS", "AT"}, rows)
				return
			}

			output(map[string]any{"events": events}, "")
		},
	}
}
