package main

import (
	"fmt"

	"github.com/hitoq/hitoq/internal/db"
	"github.com/hitoq/hitoq/internal/models"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the local user directory",
	}

	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserLevelCmd())
	cmd.AddCommand(newUserBlockCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var (
		displayName string
		iconURL     string
	)

	cmd := &cobra.Command{
		Use:   "add <id> <user-name>",
		Short: "Add or update a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(cmd)
			if err != nil {
				return err
			}
			u := models.User{ID: args[0], UserName: args[1], DisplayName: displayName, IconURL: iconURL}
			if err := db.SeedUsers(gormDB, []models.User{u}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s (%s) saved\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&displayName, "display-name", "", "display name (defaults to the user name)")
	cmd.Flags().StringVar(&iconURL, "icon-url", "", "avatar URL")
	return cmd
}

func newUserLevelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "level <id> <all|important|none>",
		Short: "Set a user's notification level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := args[1]
			switch level {
			case models.NotificationAll, models.NotificationImportant, models.NotificationNone:
			default:
				return fmt.Errorf("invalid level %q (want all, important or none)", level)
			}

			_, gormDB, err := connectFromConfig(cmd)
			if err != nil {
				return err
			}
			result := gormDB.Model(&models.User{}).Where("id = ?", args[0]).Update("notification_level", level)
			if result.Error != nil {
				return fmt.Errorf("set level: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("user %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s notification level: %s\n", args[0], level)
			return nil
		},
	}
}

func newUserBlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block <blocker-id> <blocked-id>",
		Short: "Record that one user blocks another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(cmd)
			if err != nil {
				return err
			}
			b := models.Block{BlockerUserID: args[0], BlockedUserID: args[1]}
			if err := gormDB.Create(&b).Error; err != nil && !db.IsDuplicateKey(err) {
				return fmt.Errorf("block: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now blocks %s\n", args[0], args[1])
			return nil
		},
	}
}
