package main

import (
	"github.com/spf13/cobra"

	"github.com/planbridge/planbridge/pkg/planapi"
)

func newProjectsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List source projects as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := root.loadConfig()
			if err != nil {
				return err
			}
			defer conf.Unload()
			if err := conf.Plan.Validate(); err != nil {
				return withCode(exitUsage, err)
			}

			client, err := planapi.New(planapi.Options{
				BaseURL:         conf.Plan.BaseURL,
				TokenURL:        conf.Plan.TokenURL,
				ClientID:        conf.Plan.ClientID,
				ClientSecret:    conf.Plan.ClientSecret,
				RequestIDHeader: conf.RequestIDHeader,
				PageSize:        conf.PageSize,
				Logger:          conf.Logger(),
			})
			if err != nil {
				return withCode(exitUsage, err)
			}

			projects, err := client.ListProjects(cmd.Context())
			if err != nil {
				return withCode(exitSourceAPI, err)
			}
			for _, p := range projects {
				if err := writeJSONLine(p); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
