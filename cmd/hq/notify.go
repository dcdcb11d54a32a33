package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/hitoq/hitoq/internal/messaging"
	"github.com/spf13/cobra"
)

func newNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification commands",
		Long:  "Notifications are the received messages a user's notification level surfaces.",
	}

	cmd.AddCommand(newNotifyListCmd())
	cmd.AddCommand(newNotifyCountCmd())
	cmd.AddCommand(newNotifyReadAllCmd())
	return cmd
}

func newNotifyListCmd() *cobra.Command {
	var (
		as    string
		skip  int
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := serviceFromConfig(cmd)
			if err != nil {
				return err
			}
			msgs, err := svc.Notifications(context.Background(), as, messaging.Page{Skip: skip, Limit: limit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintf(out, "No notifications for %s\n", as)
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFROM\tTYPE\tSTATUS\tCONTENT")
			for _, m := range msgs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.ID, senderName(m), m.Type, m.Status, oneLine(m.Content, 40))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "user ID (required)")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of notifications to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (0 uses the configured default)")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newNotifyCountCmd() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count a user's unread notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := serviceFromConfig(cmd)
			if err != nil {
				return err
			}
			n, err := svc.NotificationCount(context.Background(), as)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d unread notifications for %s\n", n, as)
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "user ID (required)")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newNotifyReadAllCmd() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every unread notification as read",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := serviceFromConfig(cmd)
			if err != nil {
				return err
			}
			n, err := svc.MarkAllNotificationsRead(context.Background(), as)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d notifications read for %s\n", n, as)
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "user ID (required)")
	cmd.MarkFlagRequired("as")
	return cmd
}
