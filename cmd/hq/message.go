package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/hitoq/hitoq/internal/messaging"
	"github.com/hitoq/hitoq/internal/models"
	"github.com/spf13/cobra"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Messaging commands",
	}

	cmd.AddCommand(newMessageSendCmd())
	cmd.AddCommand(newMessageInboxCmd())
	cmd.AddCommand(newMessageThreadCmd())
	cmd.AddCommand(newMessageReadCmd())
	return cmd
}

func newMessageSendCmd() *cobra.Command {
	var (
		as      string
		to      string
		content string
		parent  string
		msgType string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message as a user",
		Long:  "Sends a message from one user to another, optionally as a reply to an existing message.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := serviceFromConfig(cmd)
			if err != nil {
				return err
			}

			req := messaging.SendRequest{ToUserID: to, Type: msgType, Content: content}
			if parent != "" {
				req.ParentMessageID = &parent
			}
			v, err := svc.Send(context.Background(), as, req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sent message %s to %s\n", v.ID, to)
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "sender user ID (required)")
	cmd.Flags().StringVar(&to, "to", "", "recipient user ID (required)")
	cmd.Flags().StringVar(&content, "content", "", "message text (required)")
	cmd.Flags().StringVar(&parent, "parent", "", "message ID this replies to")
	cmd.Flags().StringVar(&msgType, "type", models.MessageTypeComment, "message type (comment, like)")
	cmd.MarkFlagRequired("as")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("content")
	return cmd
}

func newMessageInboxCmd() *cobra.Command {
	var (
		as    string
		skip  int
		limit int
		roots bool
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List a user's received messages",
		Long: `Lists messages addressed to a user, newest first. Messages from users they
block are left out. With --roots, only thread roots are listed, each with
its reply count.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := serviceFromConfig(cmd)
			if err != nil {
				return err
			}

			page := messaging.Page{Skip: skip, Limit: limit}
			var msgs []messaging.MessageView
			if roots {
				msgs, err = svc.Roots(context.Background(), as, page)
			} else {
				msgs, err = svc.Inbox(context.Background(), as, page)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintf(out, "No messages for %s\n", as)
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFROM\tSTATUS\tREPLIES\tCREATED\tCONTENT")
			for _, m := range msgs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					m.ID, senderName(m), m.Status, m.ReplyCount,
					m.CreatedAt.Format("2006-01-02 15:04"), oneLine(m.Content, 40))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "recipient user ID (required)")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of messages to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (0 uses the configured default)")
	cmd.Flags().BoolVar(&roots, "roots", false, "list thread roots with reply counts")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newMessageThreadCmd() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "thread <message-id>",
		Short: "Show the full thread containing a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := serviceFromConfig(cmd)
			if err != nil {
				return err
			}

			t, err := svc.Thread(context.Background(), as, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderThread(out, t, terminalWidth(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "viewing user ID (required)")
	cmd.MarkFlagRequired("as")
	return cmd
}

func newMessageReadCmd() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "read <message-id>",
		Short: "Mark a received message as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := serviceFromConfig(cmd)
			if err != nil {
				return err
			}
			v, err := svc.UpdateStatus(context.Background(), as, args[0], models.StatusRead)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Message %s is %s\n", v.ID, v.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "recipient user ID (required)")
	cmd.MarkFlagRequired("as")
	return cmd
}
