package migrate

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/planbridge/planbridge/pkg/planapi"
	"github.com/planbridge/planbridge/pkg/retry"
	"github.com/planbridge/planbridge/pkg/sheetapi"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Migrator runs whole-project migrations from the plan service into the
// sheet service.
type Migrator struct {
	plans  PlanService
	sheets SheetService
	opts   Options
	log    logrus.FieldLogger
}

func New(plans PlanService, sheets SheetService, opts Options) *Migrator {
	opts.setDefaults()
	return &Migrator{plans: plans, sheets: sheets, opts: opts, log: opts.Logger}
}

func (m *Migrator) emit(e Event) {
	if m.opts.OnEvent != nil {
		m.opts.OnEvent(e)
	}
}

type snapshot struct {
	project     planapi.Project
	tasks       []planapi.Task
	resources   []planapi.Resource
	assignments []planapi.Assignment
}

func (m *Migrator) fetch(ctx context.Context, projectID string) (snapshot, error) {
	var snap snapshot
	var err error

	snap.project, err = retry.Do(ctx, "get project", m.opts.Retry, func(ctx context.Context) (planapi.Project, error) {
		return m.plans.GetProject(ctx, projectID)
	})
	if err != nil {
		return snap, errors.Wrap(err, "get project")
	}
	snap.tasks, err = retry.Do(ctx, "list tasks", m.opts.Retry, func(ctx context.Context) ([]planapi.Task, error) {
		return m.plans.ListTasks(ctx, projectID)
	})
	if err != nil {
		return snap, errors.Wrap(err, "list tasks")
	}
	snap.resources, err = retry.Do(ctx, "list resources", m.opts.Retry, func(ctx context.Context) ([]planapi.Resource, error) {
		return m.plans.ListResources(ctx, projectID)
	})
	if err != nil {
		return snap, errors.Wrap(err, "list resources")
	}
	snap.assignments, err = retry.Do(ctx, "list assignments", m.opts.Retry, func(ctx context.Context) ([]planapi.Assignment, error) {
		return m.plans.ListAssignments(ctx, projectID)
	})
	if err != nil {
		return snap, errors.Wrap(err, "list assignments")
	}
	return snap, nil
}

// validTasks filters out tasks the target could not represent. Skipping is
// per entity; one bad task never stops the load.
func (m *Migrator) validTasks(tasks []planapi.Task, log logrus.FieldLogger, res *Result) []planapi.Task {
	valid := make([]planapi.Task, 0, len(tasks))
	for _, t := range tasks {
		if err := validate.Struct(t); err != nil {
			log.WithError(err).WithFields(logrus.Fields{"task": t.ID}).Warn("task failed validation, skipping")
			res.TasksSkipped++
			res.Problems = append(res.Problems, Problem{Entity: "task", ID: t.ID, Reason: err.Error()})
			getMetrics().entitiesSkipped.WithLabelValues("task").Inc()
			continue
		}
		valid = append(valid, t)
	}
	return valid
}

func (m *Migrator) ensureSheet(ctx context.Context, rec *Reconciler, workspaceID int64, project, name string, desired []sheetapi.ColumnSpec, res *Result) (sheetapi.Sheet, ColumnMap, error) {
	sheet, seeded, err := rec.EnsureSheet(ctx, workspaceID, name, desired)
	if err != nil {
		return sheetapi.Sheet{}, ColumnMap{}, err
	}
	res.ColumnsCreated += seeded

	cols, created, problems, err := rec.EnsureColumns(ctx, sheet.ID, desired)
	res.ColumnsCreated += created
	res.Problems = append(res.Problems, problems...)
	if err != nil {
		return sheetapi.Sheet{}, ColumnMap{}, err
	}

	m.emit(Event{Kind: EventSheetReady, Project: project, Sheet: name})
	return sheet, cols, nil
}

// wireCrossRefs points the task sheet's multi-select assignment columns at
// the resource sheet's option columns. Runs every migration, since another
// process may have recreated either side since the last run. A failed
// update is recorded and the load continues; rows can still be written, the
// column just lacks its option source.
func (m *Migrator) wireCrossRefs(ctx context.Context, taskSheetID int64, taskCols ColumnMap, resourceSheetID int64, resourceCols ColumnMap, log logrus.FieldLogger, res *Result) {
	for _, class := range []ResourceClass{ClassMaterial, ClassCost} {
		route := RouteFor(class)

		columnID := taskCols.ID(route.TaskColumn)
		sourceID := resourceCols.ID(route.ResourceColumn)
		if columnID == 0 || sourceID == 0 {
			continue
		}

		update := sheetapi.ColumnUpdate{
			Type: sheetapi.ColumnMultiPicklist,
			OptionsFrom: &sheetapi.CrossSheetReference{
				SheetID:  resourceSheetID,
				ColumnID: sourceID,
			},
		}
		_, err := retry.Do(ctx, "update column", m.opts.Retry, func(ctx context.Context) (sheetapi.Column, error) {
			return m.sheets.UpdateColumn(ctx, taskSheetID, columnID, update)
		})
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{"column": route.TaskColumn}).
				Warn("cross-sheet reference update failed, column keeps stale options")
			res.Problems = append(res.Problems, Problem{Entity: "column", ID: route.TaskColumn, Reason: err.Error()})
		}
	}
}

// assignmentCells joins assignments with the classified resource pool and
// produces, per task, the routed assignment cells: a multi-contact cell for
// people, multi-select cells for materials and cost items.
func (m *Migrator) assignmentCells(assignments []planapi.Assignment, index ResourceIndex, tasks []planapi.Task, taskCols ColumnMap, log logrus.FieldLogger, res *Result) AuxCells {
	taskIDs := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		taskIDs[t.ID] = true
	}

	type taskRefs struct {
		contacts  []sheetapi.Contact
		materials []string
		costs     []string
	}
	refs := make(map[string]*taskRefs)

	skip := func(a planapi.Assignment, reason string) {
		log.WithFields(logrus.Fields{"task": a.TaskID, "resource": a.ResourceID}).Warn(reason)
		res.Problems = append(res.Problems, Problem{
			Entity: "assignment",
			ID:     fmt.Sprintf("%s/%s", a.TaskID, a.ResourceID),
			Reason: reason,
		})
		getMetrics().entitiesSkipped.WithLabelValues("assignment").Inc()
	}

	for _, a := range assignments {
		if !taskIDs[a.TaskID] {
			skip(a, "assignment references an unknown task, skipping")
			continue
		}
		cr, ok := index[a.ResourceID]
		if !ok {
			skip(a, "assignment references an unknown resource, skipping")
			continue
		}

		r, found := refs[a.TaskID]
		if !found {
			r = &taskRefs{}
			refs[a.TaskID] = r
		}
		switch cr.Class {
		case ClassPerson:
			if contact, ok := ContactFrom(cr.Resource.Name, cr.Resource.Email); ok {
				r.contacts = append(r.contacts, contact)
			}
		case ClassMaterial:
			r.materials = append(r.materials, OptionValue(cr.Resource))
		default:
			r.costs = append(r.costs, OptionValue(cr.Resource))
		}
	}

	aux := make(AuxCells, len(refs))
	for taskID, r := range refs {
		var cells []sheetapi.Cell
		if len(r.contacts) > 0 {
			if id := taskCols.ID(ColAssignedTo); id != 0 {
				cells = append(cells, sheetapi.Cell{ColumnID: id, Value: r.contacts})
			}
		}
		if len(r.materials) > 0 {
			if id := taskCols.ID(ColMaterials); id != 0 {
				cells = append(cells, sheetapi.Cell{ColumnID: id, Value: r.materials})
			}
		}
		if len(r.costs) > 0 {
			if id := taskCols.ID(ColCostResources); id != 0 {
				cells = append(cells, sheetapi.Cell{ColumnID: id, Value: r.costs})
			}
		}
		if len(cells) > 0 {
			aux[taskID] = cells
		}
	}
	return aux
}

// MigrateProject runs the full pipeline for one project: snapshot fetch,
// validation, schema reconciliation, resource load, cross-reference wiring,
// custom-field discovery, then the level-ordered task load. The returned
// Result carries whatever was accomplished even when err is non-nil.
func (m *Migrator) MigrateProject(ctx context.Context, projectID, workspaceName string) (Result, error) {
	res := Result{ProjectID: projectID}
	log := m.log.WithField("project_id", projectID)

	fail := func(err error) (Result, error) {
		res.Err = err
		res.Error = err.Error()
		return res, err
	}

	snap, err := m.fetch(ctx, projectID)
	if err != nil {
		return fail(err)
	}
	res.Project = snap.project.Name
	log.WithFields(logrus.Fields{
		"project":     snap.project.Name,
		"tasks":       len(snap.tasks),
		"resources":   len(snap.resources),
		"assignments": len(snap.assignments),
	}).Info("snapshot fetched")

	tasks := m.validTasks(snap.tasks, log, &res)

	if workspaceName == "" {
		workspaceName = m.opts.Workspace
	}
	if workspaceName == "" {
		workspaceName = snap.project.Name
	}

	rec := NewReconciler(m.sheets, m.opts.Retry, log)

	ws, err := rec.EnsureWorkspace(ctx, workspaceName)
	if err != nil {
		return fail(err)
	}
	res.Workspace = ws.Name
	m.emit(Event{Kind: EventWorkspaceReady, Project: snap.project.Name})

	resourceSheet, resourceCols, err := m.ensureSheet(ctx, rec, ws.ID, snap.project.Name, snap.project.Name+" Resources", ResourceSheetColumns(), &res)
	if err != nil {
		return fail(err)
	}
	res.ResourceSheetID = resourceSheet.ID

	resourceLoader := NewResourceLoader(m.sheets, m.opts.Retry, log)
	resourceStats, index, err := resourceLoader.Load(ctx, resourceSheet.ID, snap.resources, resourceCols)
	res.RowsCreated += resourceStats.RowsCreated
	res.Problems = append(res.Problems, resourceStats.Problems...)
	if err != nil {
		return fail(err)
	}
	m.emit(Event{Kind: EventResourcesLoaded, Project: snap.project.Name, Sheet: resourceSheet.Name, Rows: resourceStats.RowsCreated})

	known := make(map[string]bool)
	for _, spec := range TaskSheetColumns() {
		known[NormalizeTitle(spec.Title)] = true
	}
	discovered := DiscoverColumns(tasks, func(title string) bool {
		return known[NormalizeTitle(title)]
	})
	desired := append(TaskSheetColumns(), discovered...)

	taskSheet, taskCols, err := m.ensureSheet(ctx, rec, ws.ID, snap.project.Name, snap.project.Name+" Tasks", desired, &res)
	if err != nil {
		return fail(err)
	}
	res.TaskSheetID = taskSheet.ID

	m.wireCrossRefs(ctx, taskSheet.ID, taskCols, resourceSheet.ID, resourceCols, log, &res)

	aux := m.assignmentCells(snap.assignments, index, tasks, taskCols, log, &res)
	for _, t := range tasks {
		if cells := CustomCells(t, discovered, taskCols); len(cells) > 0 {
			aux[t.ID] = append(aux[t.ID], cells...)
		}
	}

	taskLoader := NewTaskLoader(m.sheets, m.opts.Retry, log)
	taskLoader.OnLevel = func(level, rows int) {
		m.emit(Event{Kind: EventLevelLoaded, Project: snap.project.Name, Sheet: taskSheet.Name, Level: level, Rows: rows})
	}
	taskStats, err := taskLoader.Load(ctx, taskSheet.ID, tasks, taskCols, aux)
	res.RowsCreated += taskStats.RowsCreated
	res.TasksSkipped += taskStats.Skipped
	res.Problems = append(res.Problems, taskStats.Problems...)
	if err != nil {
		return fail(err)
	}

	log.WithFields(logrus.Fields{
		"rows_created":    res.RowsCreated,
		"columns_created": res.ColumnsCreated,
		"tasks_skipped":   res.TasksSkipped,
		"problems":        len(res.Problems),
	}).Info("project migrated")
	m.emit(Event{Kind: EventProjectDone, Project: snap.project.Name, Rows: res.RowsCreated})
	return res, nil
}

// MigrateProjects migrates each spec, at most opts.Concurrency projects at
// a time. A failed project never cancels its siblings; per-project failures
// land in the matching Result and the returned error only summarizes.
func (m *Migrator) MigrateProjects(ctx context.Context, specs []ProjectSpec) ([]Result, error) {
	results := make([]Result, len(specs))

	var g errgroup.Group
	g.SetLimit(m.opts.Concurrency)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			res, err := m.MigrateProject(ctx, spec.ID, spec.Workspace)
			if err != nil {
				m.log.WithError(err).WithField("project_id", spec.ID).Error("project migration failed")
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return results, errors.Errorf("%d of %d projects failed", failed, len(specs))
	}
	return results, nil
}
