package main

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/planbridge/planbridge/pkg/configuration"
	"github.com/planbridge/planbridge/pkg/migrate"
	"github.com/planbridge/planbridge/pkg/planapi"
	"github.com/planbridge/planbridge/pkg/retry"
	"github.com/planbridge/planbridge/pkg/sheetapi"
)

type migrateOptions struct {
	projects    []string
	planFile    string
	workspace   string
	concurrency int
	metricsAddr string
}

func newMigrateCmd(root *rootOptions) *cobra.Command {
	var opts migrateOptions

	cmd := &cobra.Command{
		Use:   "migrate [--project <id>]... [--plan-file <plan.yaml>]",
		Short: "Migrate projects into the sheet service and print per-project results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(opts.projects) == 0 && strings.TrimSpace(opts.planFile) == "" {
				return withCode(exitUsage, errors.New("--project or --plan-file is required"))
			}

			conf, err := root.loadConfig()
			if err != nil {
				return err
			}
			defer conf.Unload()
			if err := conf.Plan.Validate(); err != nil {
				return withCode(exitUsage, err)
			}
			if err := conf.Sheet.Validate(); err != nil {
				return withCode(exitUsage, err)
			}

			specs := make([]migrate.ProjectSpec, 0, len(opts.projects))
			for _, id := range opts.projects {
				specs = append(specs, migrate.ProjectSpec{ID: id})
			}
			fallbackWorkspace := opts.workspace
			if opts.planFile != "" {
				pf, err := readPlanFile(opts.planFile)
				if err != nil {
					return withCode(exitUsage, err)
				}
				specs = append(specs, pf.Projects...)
				if fallbackWorkspace == "" {
					fallbackWorkspace = pf.Workspace
				}
			}

			log := conf.Logger()

			plans, err := planapi.New(planapi.Options{
				BaseURL:         conf.Plan.BaseURL,
				TokenURL:        conf.Plan.TokenURL,
				ClientID:        conf.Plan.ClientID,
				ClientSecret:    conf.Plan.ClientSecret,
				RequestIDHeader: conf.RequestIDHeader,
				PageSize:        conf.PageSize,
				Logger:          log,
			})
			if err != nil {
				return withCode(exitUsage, err)
			}
			sheets, err := sheetapi.New(sheetapi.Options{
				BaseURL:         conf.Sheet.BaseURL,
				Token:           conf.Sheet.Token,
				RequestIDHeader: conf.RequestIDHeader,
				PageSize:        conf.PageSize,
				Logger:          log,
			})
			if err != nil {
				return withCode(exitUsage, err)
			}

			if addr := firstNonEmpty(opts.metricsAddr, conf.MetricsAddr); addr != "" {
				stop := serveMetrics(addr, log)
				defer stop()
			}

			concurrency := opts.concurrency
			if concurrency <= 0 {
				concurrency = conf.Concurrency
			}

			m := migrate.New(plans, sheets, migrate.Options{
				Workspace:   fallbackWorkspace,
				Concurrency: concurrency,
				Retry:       retryOptions(conf, log),
				Logger:      log,
				OnEvent:     progressLogger(log),
			})

			runID := uuid.NewString()
			startedAt := time.Now().UTC()
			results, runErr := m.MigrateProjects(cmd.Context(), specs)
			finishedAt := time.Now().UTC()

			for _, res := range results {
				if err := writeJSONLine(res); err != nil {
					return err
				}
			}
			if err := writeJSONLine(buildReport(runID, startedAt, finishedAt, results)); err != nil {
				return err
			}

			if runErr != nil {
				return withCode(worstExitCode(results), runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&opts.projects, "project", nil, "source project id (repeatable)")
	cmd.Flags().StringVar(&opts.planFile, "plan-file", "", "YAML plan listing projects to migrate")
	cmd.Flags().StringVar(&opts.workspace, "workspace", "", "workspace for projects that name none (default: the project's name)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "projects migrated in parallel (default from MIGRATE_CONCURRENCY)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while migrating")

	return cmd
}

func retryOptions(conf *configuration.Configuration, log logrus.FieldLogger) retry.Options {
	return retry.Options{
		MaxAttempts:  conf.Retry.MaxAttempts,
		InitialDelay: conf.Retry.InitialDelay,
		MaxDelay:     conf.Retry.MaxDelay,
		Logger:       log,
	}
}

func progressLogger(log logrus.FieldLogger) func(migrate.Event) {
	return func(e migrate.Event) {
		fields := logrus.Fields{"project": e.Project}
		if e.Sheet != "" {
			fields["sheet"] = e.Sheet
		}
		if e.Level > 0 {
			fields["level"] = e.Level
		}
		if e.Kind == migrate.EventResourcesLoaded || e.Kind == migrate.EventLevelLoaded || e.Kind == migrate.EventProjectDone {
			fields["rows"] = e.Rows
		}
		log.WithFields(fields).Info(string(e.Kind))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
