package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"github.com/planbridge/planbridge/pkg/retry"
	"github.com/planbridge/planbridge/pkg/sheetapi"
)

// Target columns are matched by normalized title, never created twice. The
// titles below are the fixed layout; discovered custom fields extend it per
// project.
const (
	ColTaskName        = "Task Name"
	ColDuration        = "Duration"
	ColStart           = "Start"
	ColFinish          = "Finish"
	ColPercentComplete = "% Complete"
	ColStatus          = "Status"
	ColPriority        = "Priority"
	ColPredecessors    = "Predecessors"
	ColMilestone       = "Milestone"
	ColConstraintType  = "Constraint Type"
	ColConstraintDate  = "Constraint Date"
	ColDeadline        = "Deadline"
	ColAssignedTo      = "Assigned To"
	ColMaterials       = "Materials"
	ColCostResources   = "Cost Resources"
	ColNotes           = "Notes"
	ColCreated         = "Created"
	ColModified        = "Modified"
	ColSourceTaskID    = "Source Task Id"

	ColResourceName     = "Resource Name"
	ColResourceType     = "Type"
	ColContact          = "Contact"
	ColMaterial         = "Material"
	ColCostItem         = "Cost Item"
	ColUnitLabel        = "Unit Label"
	ColDepartment       = "Department"
	ColResourceCode     = "Code"
	ColMaxUnits         = "Max Units"
	ColStandardRate     = "Standard Rate"
	ColOvertimeRate     = "Overtime Rate"
	ColCostPerUse       = "Cost Per Use"
	ColGeneric          = "Generic"
	ColSourceResourceID = "Source Resource Id"
)

// TaskSheetColumns is the layout of a project's task sheet.
func TaskSheetColumns() []sheetapi.ColumnSpec {
	return []sheetapi.ColumnSpec{
		{Title: ColTaskName, Type: sheetapi.ColumnTextNumber, Primary: true},
		{Title: ColDuration, Type: sheetapi.ColumnTextNumber},
		{Title: ColStart, Type: sheetapi.ColumnDate},
		{Title: ColFinish, Type: sheetapi.ColumnDate},
		{Title: ColPercentComplete, Type: sheetapi.ColumnTextNumber},
		{Title: ColStatus, Type: sheetapi.ColumnPicklist, Options: StatusLabels()},
		{Title: ColPriority, Type: sheetapi.ColumnPicklist, Options: PriorityLabels()},
		{Title: ColPredecessors, Type: sheetapi.ColumnTextNumber},
		{Title: ColMilestone, Type: sheetapi.ColumnCheckbox},
		{Title: ColConstraintType, Type: sheetapi.ColumnPicklist, Options: ConstraintLabels()},
		{Title: ColConstraintDate, Type: sheetapi.ColumnDate},
		{Title: ColDeadline, Type: sheetapi.ColumnDate},
		{Title: ColAssignedTo, Type: sheetapi.ColumnMultiContactList},
		{Title: ColMaterials, Type: sheetapi.ColumnMultiPicklist},
		{Title: ColCostResources, Type: sheetapi.ColumnMultiPicklist},
		{Title: ColNotes, Type: sheetapi.ColumnTextNumber},
		{Title: ColCreated, Type: sheetapi.ColumnDate},
		{Title: ColModified, Type: sheetapi.ColumnDate},
		{Title: ColSourceTaskID, Type: sheetapi.ColumnTextNumber, Hidden: true},
	}
}

// ResourceSheetColumns is the layout of a project's resource sheet.
func ResourceSheetColumns() []sheetapi.ColumnSpec {
	return []sheetapi.ColumnSpec{
		{Title: ColResourceName, Type: sheetapi.ColumnTextNumber, Primary: true},
		{Title: ColResourceType, Type: sheetapi.ColumnPicklist, Options: ClassLabels()},
		{Title: ColContact, Type: sheetapi.ColumnContactList},
		{Title: ColMaterial, Type: sheetapi.ColumnTextNumber},
		{Title: ColCostItem, Type: sheetapi.ColumnTextNumber},
		{Title: ColUnitLabel, Type: sheetapi.ColumnTextNumber},
		{Title: ColDepartment, Type: sheetapi.ColumnTextNumber},
		{Title: ColResourceCode, Type: sheetapi.ColumnTextNumber},
		{Title: ColMaxUnits, Type: sheetapi.ColumnTextNumber},
		{Title: ColStandardRate, Type: sheetapi.ColumnTextNumber},
		{Title: ColOvertimeRate, Type: sheetapi.ColumnTextNumber},
		{Title: ColCostPerUse, Type: sheetapi.ColumnTextNumber},
		{Title: ColGeneric, Type: sheetapi.ColumnCheckbox},
		{Title: ColSourceResourceID, Type: sheetapi.ColumnTextNumber, Hidden: true},
	}
}

// NormalizeTitle folds case and collapses runs of whitespace so titles that
// differ only in case or spacing identify the same column.
func NormalizeTitle(title string) string {
	return cases.Fold().String(strings.Join(strings.Fields(title), " "))
}

// ColumnMap resolves display titles to target columns via NormalizeTitle.
type ColumnMap struct {
	byTitle map[string]sheetapi.Column
}

func newColumnMap(cols []sheetapi.Column) ColumnMap {
	m := ColumnMap{byTitle: make(map[string]sheetapi.Column, len(cols))}
	for _, col := range cols {
		m.add(col)
	}
	return m
}

func (m ColumnMap) add(col sheetapi.Column) {
	m.byTitle[NormalizeTitle(col.Title)] = col
}

func (m ColumnMap) Column(title string) (sheetapi.Column, bool) {
	col, ok := m.byTitle[NormalizeTitle(title)]
	return col, ok
}

func (m ColumnMap) Has(title string) bool {
	_, ok := m.Column(title)
	return ok
}

// ID returns the column ID for a title, or 0 when the column is unknown.
func (m ColumnMap) ID(title string) int64 {
	col, ok := m.Column(title)
	if !ok {
		return 0
	}
	return col.ID
}

func (m ColumnMap) Len() int {
	return len(m.byTitle)
}

// Reconciler converges the target's containers, sheets and columns onto the
// expected layout without ever duplicating what already exists.
type Reconciler struct {
	sheets SheetService
	retry  retry.Options
	log    logrus.FieldLogger
}

func NewReconciler(sheets SheetService, retryOpts retry.Options, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{sheets: sheets, retry: retryOpts, log: log}
}

// EnsureWorkspace finds the workspace by normalized name or creates it.
func (r *Reconciler) EnsureWorkspace(ctx context.Context, name string) (sheetapi.Workspace, error) {
	want := NormalizeTitle(name)

	existing, err := retry.Do(ctx, "list workspaces", r.retry, func(ctx context.Context) ([]sheetapi.Workspace, error) {
		return r.sheets.ListWorkspaces(ctx)
	})
	if err != nil {
		return sheetapi.Workspace{}, errors.Wrap(err, "list workspaces")
	}
	for _, ws := range existing {
		if NormalizeTitle(ws.Name) == want {
			r.log.WithFields(logrus.Fields{"workspace": ws.Name, "workspace_id": ws.ID}).Debug("workspace exists")
			return ws, nil
		}
	}

	ws, err := retry.Do(ctx, "create workspace", r.retry, func(ctx context.Context) (sheetapi.Workspace, error) {
		return r.sheets.CreateWorkspace(ctx, name)
	})
	if err != nil {
		return sheetapi.Workspace{}, errors.Wrap(err, "create workspace")
	}
	r.log.WithFields(logrus.Fields{"workspace": name, "workspace_id": ws.ID}).Info("workspace created")
	return ws, nil
}

// EnsureSheet finds the sheet by normalized name or creates it with the seed
// columns. The returned count is the number of columns created alongside a
// new sheet; an existing sheet reports zero.
func (r *Reconciler) EnsureSheet(ctx context.Context, workspaceID int64, name string, seed []sheetapi.ColumnSpec) (sheetapi.Sheet, int, error) {
	want := NormalizeTitle(name)

	existing, err := retry.Do(ctx, "list sheets", r.retry, func(ctx context.Context) ([]sheetapi.Sheet, error) {
		return r.sheets.ListSheets(ctx, workspaceID)
	})
	if err != nil {
		return sheetapi.Sheet{}, 0, errors.Wrap(err, "list sheets")
	}
	for _, sheet := range existing {
		if NormalizeTitle(sheet.Name) == want {
			r.log.WithFields(logrus.Fields{"sheet": sheet.Name, "sheet_id": sheet.ID}).Debug("sheet exists")
			return sheet, 0, nil
		}
	}

	sheet, err := retry.Do(ctx, "create sheet", r.retry, func(ctx context.Context) (sheetapi.Sheet, error) {
		return r.sheets.CreateSheet(ctx, workspaceID, sheetapi.SheetSpec{Name: name, Columns: seed})
	})
	if err != nil {
		return sheetapi.Sheet{}, 0, errors.Wrap(err, "create sheet")
	}
	for range seed {
		getMetrics().columnsCreated.Inc()
	}
	r.log.WithFields(logrus.Fields{"sheet": name, "sheet_id": sheet.ID, "columns": len(seed)}).Info("sheet created")
	return sheet, len(seed), nil
}

// EnsureColumns diffs the sheet's columns against the desired set and
// creates only the missing ones. One title's failure is recorded and the
// rest still get their chance; an existing column with an incompatible type
// aborts, since writing cells into it would corrupt the sheet.
func (r *Reconciler) EnsureColumns(ctx context.Context, sheetID int64, desired []sheetapi.ColumnSpec) (ColumnMap, int, []Problem, error) {
	existing, err := retry.Do(ctx, "list columns", r.retry, func(ctx context.Context) ([]sheetapi.Column, error) {
		return r.sheets.ListColumns(ctx, sheetID)
	})
	if err != nil {
		return ColumnMap{}, 0, nil, errors.Wrap(err, "list columns")
	}

	cm := newColumnMap(existing)
	var problems []Problem
	created := 0

	for _, spec := range desired {
		if col, ok := cm.Column(spec.Title); ok {
			if col.Type != spec.Type {
				return ColumnMap{}, created, problems, failure(KindSchemaConflict, "ensure columns",
					fmt.Errorf("column %q has type %s, want %s", col.Title, col.Type, spec.Type))
			}
			continue
		}

		col, err := retry.Do(ctx, "add column", r.retry, func(ctx context.Context) (sheetapi.Column, error) {
			return r.sheets.AddColumn(ctx, sheetID, spec)
		})
		if err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{"sheet_id": sheetID, "column": spec.Title}).
				Warn("column creation failed, continuing with remaining columns")
			problems = append(problems, Problem{Entity: "column", ID: spec.Title, Reason: err.Error()})
			continue
		}
		cm.add(col)
		created++
		getMetrics().columnsCreated.Inc()
	}

	return cm, created, problems, nil
}
