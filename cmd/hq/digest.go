package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoq/hitoq/internal/config"
	"github.com/hitoq/hitoq/internal/digest"
	"github.com/hitoq/hitoq/internal/digest/discord"
	"github.com/hitoq/hitoq/internal/digest/slack"
	"github.com/spf13/cobra"
)

func newDigestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Activity digest commands",
	}

	cmd.AddCommand(newDigestRunCmd())
	cmd.AddCommand(newDigestNextCmd())
	return cmd
}

func newDigestRunCmd() *cobra.Command {
	var (
		post  bool
		until string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the activity digest once",
		Long: `Builds the digest for the 24 hours before --until (default now) and prints
it. With --post it is sent to every configured Slack and Discord channel instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(cmd)
			if err != nil {
				return err
			}

			end := time.Now().UTC()
			if until != "" {
				end, err = time.Parse(time.RFC3339, until)
				if err != nil {
					return fmt.Errorf("--until: %w", err)
				}
			}
			report, err := digest.BuildReport(gormDB, end.Add(-digest.Period), end)
			if err != nil {
				return err
			}
			msg := digest.Format(report)

			out := cmd.OutOrStdout()
			if !post {
				fmt.Fprintln(out, msg.Text())
				return nil
			}

			posters, err := digestPosters(cfg)
			if err != nil {
				return err
			}
			if len(posters) == 0 {
				return fmt.Errorf("no digest channels configured (set digest.slack or digest.discord)")
			}
			log, err := commandLogger(cmd, cfg)
			if err != nil {
				return err
			}
			if err := digest.Publish(context.Background(), posters, msg, log); err != nil {
				return err
			}
			fmt.Fprintf(out, "Digest posted to %d channels\n", len(posters))
			return nil
		},
	}

	cmd.Flags().BoolVar(&post, "post", false, "post to the configured chat channels")
	cmd.Flags().StringVar(&until, "until", "", "end of the period, RFC 3339 (default now)")
	return cmd
}

func newDigestNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show when the scheduled digest fires next",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			next, err := digest.NextRun(cfg.Digest.Schedule, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Next digest (%s): %s\n", cfg.Digest.Schedule, next.Format(time.RFC3339))
			return nil
		},
	}
}

// digestPosters builds a poster for every enabled digest channel.
func digestPosters(cfg *config.Config) ([]digest.Poster, error) {
	var posters []digest.Poster
	if c := cfg.Digest.Slack; c.Enabled() {
		p, err := slack.New(slack.PosterOpts{BotToken: c.BotToken, ChannelID: c.ChannelID})
		if err != nil {
			return nil, err
		}
		posters = append(posters, p)
	}
	if c := cfg.Digest.Discord; c.Enabled() {
		p, err := discord.New(discord.PosterOpts{BotToken: c.BotToken, ChannelID: c.ChannelID})
		if err != nil {
			return nil, err
		}
		posters = append(posters, p)
	}
	return posters, nil
}
