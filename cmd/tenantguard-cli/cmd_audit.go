package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tenantguardhq/tenantguard/client"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit log commands",
	}
	cmd.AddCommand(auditQueryCmd())
	cmd.AddCommand(auditPurgeCmd())
	return cmd
}

func auditQueryCmd() *cobra.Command {
	var (
		resourceType string
		resourceID   string
		action       string
		since        string
		limit        int
		offset       int
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the tenant's audit log",
		Run: func(cmd *cobra.Command, args []string) {
			opts := &client.AuditQueryOptions{
				ResourceType: resourceType,
				ResourceID:   resourceID,
				Action:       action,
				Limit:        limit,
				Offset:       offset,
			}
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					fatal("parse since", err)
				}
				opts.Since = &t
			}

			entries, hasMore, err := apiClient.Audit.Query(context.Background(), opts)
			if err != nil {
				fatal("audit query", err)
			}

			if flagFmt == "table" {
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.Action, e.ResourceType, e.ResourceID, e.ActorID,
						e.CreatedAt.Format(time.RFC3339),
					})
				}
				formatTable([]string{"ACTION", "RESOURCE", "ID", "ACTOR", "AT"}, rows)
				return
			}

			output(map[string]any{"entries": entries, "has_more": hasMore}, "")
		},
	}

	cmd.Flags().StringVar(&resourceType, "resource-type", "", "Filter by resource type")
	cmd.Flags().StringVar(&resourceID, "resource-id", "", "Filter by resource ID")
	cmd.Flags().StringVar(&action, "action", "", "Filter by action (e.g. cross-tenant-blocked)")
	cmd.Flags().StringVar(&since, "since", "", "Only entries after this RFC3339 timestamp")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")

	return cmd
}

func auditPurgeCmd() *cobra.Command {
	var retentionDays int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete audit entries older than the retention window",
		Run: func(cmd *cobra.Command, args []string) {
			deleted, err := apiClient.Audit.Purge(context.Background(), retentionDays)
			if err != nil {
				fatal("audit purge", err)
			}
			if flagFmt == "quiet" {
				fmt.Println(deleted)
				return
			}
			output(map[string]int{"deleted": deleted}, fmt.Sprintf("%d", deleted))
		},
	}

	cmd.Flags().IntVar(&retentionDays, "retention-days", 90, "Entries older than this many days are deleted")

	return cmd
}
