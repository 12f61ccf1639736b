// Package app wires configuration, storage and the outreach engine behind the
// smart-outreach command line.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"smart-outreach-go/internal/config"
)

// Run executes the command line. SIGINT and SIGTERM cancel the running
// command's context.
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "smart-outreach",
		Short:         "Outreach scheduling and delivery engine",
		Long:          "Schedules cold emails and follow-ups, sends them inside a business-hours window and tracks replies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			logrus.SetOutput(os.Stderr)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newAuthCmd(),
		newVerifyCmd(),
		newStatusCmd(),
		newTemplatesCmd(),
		newPreviewCmd(),
		newAddCompanyCmd(),
		newAddContactCmd(),
		newImportCmd(),
		newExportCmd(),
		newListCmd(),
		newViewCmd(),
		newScheduleCmd(),
		newQueueCmd(),
		newFollowupsCmd(),
		newSendCmd(),
		newRepliedCmd(),
		newNotInterestedCmd(),
		newBlacklistCmd(),
		newCheckRepliesCmd(),
		newInboxCmd(),
		newReadCmd(),
		newProfileCmd(),
	)
	return root
}

// loadConfig reads configuration. strict also requires delivery credentials,
// which only commands that send or verify need.
func loadConfig(strict bool) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if strict {
		err = cfg.Validate()
	} else {
		err = cfg.Sending.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

type envFunc func(ctx context.Context, cmd *cobra.Command, env *Env, args []string) error

func runWithEnv(strict bool, fn envFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(strict)
		if err != nil {
			return err
		}
		env, err := NewEnv(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := env.Close(); err != nil {
				logrus.Errorf("Failed to close database: %v", err)
			}
		}()
		return fn(cmd.Context(), cmd, env, args)
	}
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id: %s", arg)
	}
	return uint(id), nil
}
