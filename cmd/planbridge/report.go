package main

import (
	"time"

	"github.com/planbridge/planbridge/pkg/migrate"
)

type migrateReportV1 struct {
	SchemaVersion int    `json:"schema_version"`
	RunID         string `json:"run_id"`
	StartedAt     string `json:"started_at"`
	FinishedAt    string `json:"finished_at"`
	Totals        struct {
		Projects       int `json:"projects"`
		Failed         int `json:"failed"`
		RowsCreated    int `json:"rows_created"`
		ColumnsCreated int `json:"columns_created"`
		TasksSkipped   int `json:"tasks_skipped"`
		Problems       int `json:"problems"`
	} `json:"totals"`
}

func buildReport(runID string, startedAt, finishedAt time.Time, results []migrate.Result) migrateReportV1 {
	report := migrateReportV1{
		SchemaVersion: 1,
		RunID:         runID,
		StartedAt:     startedAt.Format(time.RFC3339),
		FinishedAt:    finishedAt.Format(time.RFC3339),
	}
	report.Totals.Projects = len(results)
	for _, res := range results {
		if res.Err != nil {
			report.Totals.Failed++
		}
		report.Totals.RowsCreated += res.RowsCreated
		report.Totals.ColumnsCreated += res.ColumnsCreated
		report.Totals.TasksSkipped += res.TasksSkipped
		report.Totals.Problems += len(res.Problems)
	}
	return report
}
