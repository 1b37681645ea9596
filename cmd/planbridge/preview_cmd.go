package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/planbridge/planbridge/pkg/migrate"
	"github.com/planbridge/planbridge/pkg/planapi"
	"github.com/planbridge/planbridge/pkg/retry"
	"github.com/planbridge/planbridge/pkg/sheetapi"
)

type previewOptions struct {
	project string
	out     string
}

func newPreviewCmd(root *rootOptions) *cobra.Command {
	var opts previewOptions

	cmd := &cobra.Command{
		Use:   "preview --project <id> --out <file.xlsx>",
		Short: "Write an offline workbook showing how a project would migrate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.project) == "" {
				return withCode(exitUsage, errors.New("--project is required"))
			}
			if strings.TrimSpace(opts.out) == "" {
				return withCode(exitUsage, errors.New("--out is required"))
			}

			conf, err := root.loadConfig()
			if err != nil {
				return err
			}
			defer conf.Unload()
			if err := conf.Plan.Validate(); err != nil {
				return withCode(exitUsage, err)
			}

			log := conf.Logger()
			client, err := planapi.New(planapi.Options{
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

			ctx := cmd.Context()
			retryOpts := retryOptions(conf, log)

			project, err := retry.Do(ctx, "get project", retryOpts, func(ctx context.Context) (planapi.Project, error) {
				return client.GetProject(ctx, opts.project)
			})
			if err != nil {
				return withCode(exitSourceAPI, err)
			}
			tasks, err := retry.Do(ctx, "list tasks", retryOpts, func(ctx context.Context) ([]planapi.Task, error) {
				return client.ListTasks(ctx, opts.project)
			})
			if err != nil {
				return withCode(exitSourceAPI, err)
			}
			resources, err := retry.Do(ctx, "list resources", retryOpts, func(ctx context.Context) ([]planapi.Resource, error) {
				return client.ListResources(ctx, opts.project)
			})
			if err != nil {
				return withCode(exitSourceAPI, err)
			}
			assignments, err := retry.Do(ctx, "list assignments", retryOpts, func(ctx context.Context) ([]planapi.Assignment, error) {
				return client.ListAssignments(ctx, opts.project)
			})
			if err != nil {
				return withCode(exitSourceAPI, err)
			}

			f, err := buildPreviewWorkbook(tasks, resources, assignments)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			if err := f.SaveAs(opts.out); err != nil {
				return err
			}

			log.WithFields(logrus.Fields{
				"project":   project.Name,
				"tasks":     len(tasks),
				"resources": len(resources),
				"out":       opts.out,
			}).Info("preview workbook written")
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.project, "project", "", "source project id")
	cmd.Flags().StringVar(&opts.out, "out", "", "output workbook path")

	return cmd
}

// visibleTitles drops the hidden bookkeeping columns from a sheet layout.
func visibleTitles(specs []sheetapi.ColumnSpec) []string {
	titles := make([]string, 0, len(specs))
	for _, spec := range specs {
		if spec.Hidden {
			continue
		}
		titles = append(titles, spec.Title)
	}
	return titles
}

// buildPreviewWorkbook renders the snapshot the way the migration would,
// without touching the sheet service: one worksheet per target sheet,
// hierarchy as row outline levels, predecessors in positional form.
func buildPreviewWorkbook(tasks []planapi.Task, resources []planapi.Resource, assignments []planapi.Assignment) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Tasks"); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet("Resources"); err != nil {
		return nil, err
	}

	index := make(migrate.ResourceIndex, len(resources))
	for _, r := range resources {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		index[r.ID] = migrate.ClassifiedResource{Resource: r, Class: migrate.Classify(r)}
	}

	if err := writeTaskSheet(f, tasks, index, assignments); err != nil {
		return nil, err
	}
	if err := writeResourceSheet(f, resources, index); err != nil {
		return nil, err
	}
	return f, nil
}

func writeTaskSheet(f *excelize.File, tasks []planapi.Task, index migrate.ResourceIndex, assignments []planapi.Assignment) error {
	known := make(map[string]bool)
	for _, spec := range migrate.TaskSheetColumns() {
		known[migrate.NormalizeTitle(spec.Title)] = true
	}
	discovered := migrate.DiscoverColumns(tasks, func(title string) bool {
		return known[migrate.NormalizeTitle(title)]
	})

	headers := visibleTitles(migrate.TaskSheetColumns())
	for _, spec := range discovered {
		headers = append(headers, spec.Title)
	}
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow("Tasks", "A1", &header); err != nil {
		return err
	}

	positions := make(map[string]int, len(tasks))
	for i, t := range tasks {
		positions[t.ID] = i + 1
	}
	people, materials, costs := assignmentNames(assignments, index)

	for i, t := range tasks {
		row := []any{
			t.Name,
			previewDuration(t.Duration),
			migrate.FormatDate(t.Start),
			migrate.FormatDate(t.Finish),
			t.PercentComplete,
			migrate.StatusLabel(t.PercentComplete),
			migrate.PriorityLabel(t.Priority),
			previewPredecessors(t, positions),
			t.Milestone,
			migrate.ConstraintLabel(t.ConstraintType),
			migrate.FormatDate(t.ConstraintDate),
			migrate.FormatDate(t.Deadline),
			strings.Join(people[t.ID], ", "),
			strings.Join(materials[t.ID], ", "),
			strings.Join(costs[t.ID], ", "),
			t.Notes,
			migrate.FormatDate(t.CreatedAt),
			migrate.FormatDate(t.ModifiedAt),
		}
		for _, spec := range discovered {
			row = append(row, previewCustomValue(t, spec.Title, spec.Type))
		}

		rowNum := i + 2
		if err := f.SetSheetRow("Tasks", fmt.Sprintf("A%d", rowNum), &row); err != nil {
			return err
		}
		if t.OutlineLevel > 1 {
			level := t.OutlineLevel - 1
			if level > 7 {
				level = 7
			}
			if err := f.SetRowOutlineLevel("Tasks", rowNum, uint8(level)); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeResourceSheet(f *excelize.File, resources []planapi.Resource, index migrate.ResourceIndex) error {
	headers := visibleTitles(migrate.ResourceSheetColumns())
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow("Resources", "A1", &header); err != nil {
		return err
	}

	rowNum := 1
	for _, r := range resources {
		cr, ok := index[r.ID]
		if !ok {
			continue
		}
		rowNum++

		contact, material, costItem, unitLabel := "", "", "", ""
		switch cr.Class {
		case migrate.ClassPerson:
			contact = contactDisplay(r.Name, r.Email)
		case migrate.ClassMaterial:
			material = migrate.OptionValue(r)
			unitLabel = strings.TrimSpace(r.MaterialLabel)
		default:
			costItem = migrate.OptionValue(r)
		}

		maxUnits := ""
		if cr.Class == migrate.ClassPerson && !r.MaxUnits.IsZero() {
			maxUnits = migrate.CapacityPercent(r.MaxUnits)
		}
		row := []any{
			strings.TrimSpace(r.Name),
			cr.Class.String(),
			contact,
			material,
			costItem,
			unitLabel,
			r.Department,
			r.Code,
			maxUnits,
			previewRate(r.StandardRate),
			previewRate(r.OvertimeRate),
			previewCost(r.CostPerUse),
			r.Generic,
		}
		if err := f.SetSheetRow("Resources", fmt.Sprintf("A%d", rowNum), &row); err != nil {
			return err
		}
	}
	return nil
}

// assignmentNames resolves assignments into display names per task, split by
// resource class the same way the loader routes them into columns.
func assignmentNames(assignments []planapi.Assignment, index migrate.ResourceIndex) (people, materials, costs map[string][]string) {
	people = make(map[string][]string)
	materials = make(map[string][]string)
	costs = make(map[string][]string)

	for _, a := range assignments {
		cr, ok := index[a.ResourceID]
		if !ok {
			continue
		}
		switch cr.Class {
		case migrate.ClassPerson:
			people[a.TaskID] = append(people[a.TaskID], contactDisplay(cr.Resource.Name, cr.Resource.Email))
		case migrate.ClassMaterial:
			materials[a.TaskID] = append(materials[a.TaskID], migrate.OptionValue(cr.Resource))
		default:
			costs[a.TaskID] = append(costs[a.TaskID], migrate.OptionValue(cr.Resource))
		}
	}
	return people, materials, costs
}

func contactDisplay(name, email string) string {
	c, ok := migrate.ContactFrom(name, email)
	if !ok {
		return ""
	}
	switch {
	case c.Name != "" && c.Email != "":
		return fmt.Sprintf("%s <%s>", c.Name, c.Email)
	case c.Name != "":
		return c.Name
	default:
		return c.Email
	}
}

func previewPredecessors(t planapi.Task, positions map[string]int) string {
	refs := make([]string, 0, len(t.Predecessors))
	for _, p := range t.Predecessors {
		pos, ok := positions[p.PredecessorID]
		if !ok {
			continue
		}
		refs = append(refs, fmt.Sprintf("%d%s%s", pos, migrate.DependencyLabel(p.Type), migrate.LagSuffix(p.Lag)))
	}
	return strings.Join(refs, ", ")
}

func previewDuration(duration string) string {
	hours, ok := migrate.DurationHours(duration)
	if !ok {
		return ""
	}
	return migrate.FormatDurationDays(hours)
}

func previewRate(rate decimal.Decimal) string {
	if rate.IsZero() {
		return ""
	}
	return migrate.RatePerHour(rate)
}

func previewCost(amount decimal.Decimal) string {
	if amount.IsZero() {
		return ""
	}
	return migrate.CostAmount(amount)
}

func previewCustomValue(t planapi.Task, title string, columnType sheetapi.ColumnType) any {
	for key, value := range t.CustomFields {
		if migrate.NormalizeTitle(key) != migrate.NormalizeTitle(title) {
			continue
		}
		switch columnType {
		case sheetapi.ColumnDate:
			if s, ok := value.(string); ok {
				return migrate.FormatDate(s)
			}
			return ""
		case sheetapi.ColumnCheckbox:
			if b, ok := value.(bool); ok {
				return b
			}
			return ""
		default:
			return value
		}
	}
	return ""
}
