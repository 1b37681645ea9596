// Package migrate moves one project at a time from the plan service into
// the sheet service: it reconciles the target schema, loads resources, then
// loads the task outline level by level so parent rows always exist before
// their children.
package migrate

import (
	"context"

	"github.com/planbridge/planbridge/pkg/planapi"
	"github.com/planbridge/planbridge/pkg/sheetapi"
)

// PlanService is the slice of the plan service the engine reads from.
type PlanService interface {
	GetProject(ctx context.Context, projectID string) (planapi.Project, error)
	ListTasks(ctx context.Context, projectID string) ([]planapi.Task, error)
	ListResources(ctx context.Context, projectID string) ([]planapi.Resource, error)
	ListAssignments(ctx context.Context, projectID string) ([]planapi.Assignment, error)
}

// SheetService is the slice of the sheet service the engine writes to.
type SheetService interface {
	CreateWorkspace(ctx context.Context, name string) (sheetapi.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]sheetapi.Workspace, error)
	CreateSheet(ctx context.Context, workspaceID int64, spec sheetapi.SheetSpec) (sheetapi.Sheet, error)
	ListSheets(ctx context.Context, workspaceID int64) ([]sheetapi.Sheet, error)
	ListColumns(ctx context.Context, sheetID int64) ([]sheetapi.Column, error)
	AddColumn(ctx context.Context, sheetID int64, spec sheetapi.ColumnSpec) (sheetapi.Column, error)
	UpdateColumn(ctx context.Context, sheetID, columnID int64, update sheetapi.ColumnUpdate) (sheetapi.Column, error)
	AddRows(ctx context.Context, sheetID int64, rows []sheetapi.RowInsert) ([]sheetapi.Row, error)
	ListRows(ctx context.Context, sheetID int64) ([]sheetapi.Row, error)
}

// Problem is a non-fatal defect found during a run: a skipped entity, a
// dropped dependency reference, a column that could not be created.
type Problem struct {
	Entity string `json:"entity"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// Result summarizes one project migration. Counts reflect work actually
// done, including work done before a failure.
type Result struct {
	ProjectID       string    `json:"project_id"`
	Project         string    `json:"project,omitempty"`
	Workspace       string    `json:"workspace,omitempty"`
	TaskSheetID     int64     `json:"task_sheet_id,omitempty"`
	ResourceSheetID int64     `json:"resource_sheet_id,omitempty"`
	RowsCreated     int       `json:"rows_created"`
	ColumnsCreated  int       `json:"columns_created"`
	TasksSkipped    int       `json:"tasks_skipped,omitempty"`
	Problems        []Problem `json:"problems,omitempty"`
	Error           string    `json:"error,omitempty"`

	// Err is the failure that aborted this project, nil on success. The
	// JSON report carries only its string form.
	Err error `json:"-"`
}

type EventKind string

const (
	EventWorkspaceReady  EventKind = "workspace_ready"
	EventSheetReady      EventKind = "sheet_ready"
	EventResourcesLoaded EventKind = "resources_loaded"
	EventLevelLoaded     EventKind = "level_loaded"
	EventProjectDone     EventKind = "project_done"
)

// Event reports migration progress to the optional Options.OnEvent callback.
type Event struct {
	Kind    EventKind
	Project string
	Sheet   string
	Level   int
	Rows    int
}
