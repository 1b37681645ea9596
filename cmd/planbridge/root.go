package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/planbridge/planbridge/pkg/configuration"
)

type rootOptions struct {
	envFile  string
	logLevel string
	logPath  string
	jsonLogs bool
}

// loadConfig builds the configuration for one command invocation. Flags win
// over env files because godotenv never overwrites variables that are
// already set.
func (o *rootOptions) loadConfig() (*configuration.Configuration, error) {
	if o.logLevel != "" {
		_ = os.Setenv("LOG_LEVEL", o.logLevel)
	}
	if o.logPath != "" {
		_ = os.Setenv("LOG_PATH", o.logPath)
	}

	envFiles := []string{".env", ".env.local"}
	if o.envFile != "" {
		envFiles = []string{o.envFile}
	}

	conf, err := configuration.Load(envFiles...)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	if o.jsonLogs {
		conf.Logger().SetFormatter(&logrus.JSONFormatter{})
	}
	return conf, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "planbridge",
		Short:         "Migrate hierarchical project plans into the sheet service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "env file to load (default .env, .env.local)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (silent|error|warn|info|debug)")
	cmd.PersistentFlags().StringVar(&opts.logPath, "log-path", "", "also write JSON logs to this file")
	cmd.PersistentFlags().BoolVar(&opts.jsonLogs, "json", false, "log as JSON lines")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newPreviewCmd(opts))
	cmd.AddCommand(newProjectsCmd(opts))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
