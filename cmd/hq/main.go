package main

import (
	"fmt"
	"os"

	"github.com/hitoq/hitoq/internal/config"
	"github.com/hitoq/hitoq/internal/db"
	"github.com/hitoq/hitoq/internal/logging"
	"github.com/hitoq/hitoq/internal/messaging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const defaultConfigPath = "hitoq.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "hq",
		Short:        "hitoq: threaded user-to-user messaging",
		Long:         "hitoq stores direct messages, builds reply threads, tracks hearts and serves notifications over HTTP.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "path to hitoq config file")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newMessageCmd())
	cmd.AddCommand(newNotifyCmd())
	cmd.AddCommand(newDigestCmd())
	cmd.AddCommand(newWhoamiCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hq %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// configPath returns the --config value inherited from the root command.
func configPath(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		return defaultConfigPath
	}
	return path
}

// connectFromConfig loads the config file and opens the configured database.
func connectFromConfig(cmd *cobra.Command) (*config.Config, *gorm.DB, error) {
	path := configPath(cmd)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// commandLogger logs to stderr so command output stays clean on stdout.
func commandLogger(cmd *cobra.Command, cfg *config.Config) (zerolog.Logger, error) {
	return logging.NewWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
}

func newService(cfg *config.Config, gormDB *gorm.DB, log zerolog.Logger) *messaging.Service {
	return messaging.NewService(messaging.Options{
		DB:               gormDB,
		Log:              log,
		MaxContentLength: cfg.Messaging.MaxContentLength,
		ImportantTypes:   cfg.Messaging.ImportantTypes,
		DefaultPageSize:  cfg.Messaging.DefaultPageSize,
		MaxPageSize:      cfg.Messaging.MaxPageSize,
	})
}

// serviceFromConfig is connectFromConfig plus a messaging service.
func serviceFromConfig(cmd *cobra.Command) (*messaging.Service, error) {
	cfg, gormDB, err := connectFromConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := commandLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return newService(cfg, gormDB, log), nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
