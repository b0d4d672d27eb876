package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/app"
	"github.com/kailas-cloud/talentmatch/internal/config"
	logpkg "github.com/kailas-cloud/talentmatch/internal/logger"
)

const cliName = "talentctl"

type rootOptions struct {
	env        string
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          cliName,
		Short:        "talentctl imports candidate profiles and runs searches against the talentmatch store",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "environment whose config/{env}.yaml is loaded")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "explicit config file (overrides --env lookup)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (default from config)")

	cmd.AddCommand(newImportCmd(opts), newSearchCmd(opts), newUsageCmd(opts), newVersionCmd())
	return cmd
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	return config.Load(o.env)
}

// open loads configuration and wires the services. The returned cleanup
// releases the app and flushes the logger.
func (o *rootOptions) open(ctx context.Context) (*app.App, *zap.Logger, func(), error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	level := cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	logEnv := o.env
	if logEnv == "prod" || logEnv == "test" {
		logEnv = "local" // console output for an interactive tool
	}
	logger, err := logpkg.NewLogger(logEnv, level)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create logger: %w", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	return a, logger, func() {
		a.Close()
		_ = logger.Sync()
	}, nil
}
