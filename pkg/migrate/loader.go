package migrate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/planbridge/planbridge/pkg/planapi"
	"github.com/planbridge/planbridge/pkg/retry"
	"github.com/planbridge/planbridge/pkg/sheetapi"
)

// AuxCells carries per-task cells assembled outside the loader: assignment
// values and discovered custom fields, keyed by source task ID.
type AuxCells map[string][]sheetapi.Cell

type LoadStats struct {
	RowsCreated int
	Skipped     int
	Batches     int
	Problems    []Problem
}

// TaskLoader inserts a project's task outline into one sheet, level by
// level, so every parent row exists before its children are submitted.
// Within a level, tasks sharing a parent go in as one ordered batch; the
// response rows map positionally back onto the batch to grow the identity
// map that later levels and dependency references resolve against.
type TaskLoader struct {
	sheets SheetService
	retry  retry.Options
	log    logrus.FieldLogger

	// OnLevel, when set, is called after each completed level with the
	// number of rows that level created.
	OnLevel func(level, rows int)
}

func NewTaskLoader(sheets SheetService, retryOpts retry.Options, log logrus.FieldLogger) *TaskLoader {
	return &TaskLoader{sheets: sheets, retry: retryOpts, log: log}
}

type parentKey struct {
	rowID    int64
	toBottom bool
}

// Load inserts tasks into the sheet. Tasks whose source ID already appears
// in the sheet's hidden ID column are left untouched, which is what makes
// re-running a partly failed migration safe. A batch failure aborts the
// load; rows created so far stay and the stats report them.
func (l *TaskLoader) Load(ctx context.Context, sheetID int64, tasks []planapi.Task, cols ColumnMap, aux AuxCells) (LoadStats, error) {
	var stats LoadStats

	rowIDs := make(map[string]int64, len(tasks))
	if err := l.seedExisting(ctx, sheetID, cols, rowIDs); err != nil {
		return stats, err
	}

	positions := make(map[string]int, len(tasks))
	maxLevel := 0
	for i, t := range tasks {
		positions[t.ID] = i + 1
		if t.OutlineLevel > maxLevel {
			maxLevel = t.OutlineLevel
		}
	}

	for level := 1; level <= maxLevel; level++ {
		levelRows := 0

		var pending []planapi.Task
		for _, t := range tasks {
			if t.OutlineLevel != level {
				continue
			}
			if _, done := rowIDs[t.ID]; done {
				stats.Skipped++
				continue
			}
			pending = append(pending, t)
		}
		if len(pending) == 0 {
			continue
		}

		groups, order := l.groupByParent(pending, rowIDs, &stats)
		for _, key := range order {
			group := groups[key]

			batch := make([]sheetapi.RowInsert, 0, len(group))
			for _, t := range group {
				ins := sheetapi.RowInsert{Cells: l.buildCells(t, cols, aux, positions, rowIDs, &stats)}
				if key.toBottom {
					ins.ToBottom = true
				} else {
					ins.ParentID = key.rowID
				}
				batch = append(batch, ins)
			}

			created, err := retry.Do(ctx, "add rows", l.retry, func(ctx context.Context) ([]sheetapi.Row, error) {
				return l.sheets.AddRows(ctx, sheetID, batch)
			})
			if err != nil {
				getMetrics().batches.WithLabelValues("error").Inc()
				return stats, failure(KindOf(err), "add rows", errors.Wrapf(err, "level %d", level))
			}
			if len(created) != len(batch) {
				getMetrics().batches.WithLabelValues("error").Inc()
				return stats, failure(KindEscalated, "add rows",
					fmt.Errorf("level %d: response carried %d rows for %d submitted", level, len(created), len(batch)))
			}

			for i, row := range created {
				rowIDs[group[i].ID] = row.ID
			}
			stats.RowsCreated += len(created)
			stats.Batches++
			levelRows += len(created)
			getMetrics().batches.WithLabelValues("ok").Inc()
			getMetrics().rowsCreated.WithLabelValues("tasks").Add(float64(len(created)))

			l.log.WithFields(logrus.Fields{
				"sheet_id": sheetID,
				"level":    level,
				"rows":     len(created),
			}).Debug("task batch inserted")
		}

		if l.OnLevel != nil {
			l.OnLevel(level, levelRows)
		}
	}

	return stats, nil
}

func (l *TaskLoader) seedExisting(ctx context.Context, sheetID int64, cols ColumnMap, rowIDs map[string]int64) error {
	sourceCol := cols.ID(ColSourceTaskID)
	if sourceCol == 0 {
		return nil
	}

	existing, err := retry.Do(ctx, "list rows", l.retry, func(ctx context.Context) ([]sheetapi.Row, error) {
		return l.sheets.ListRows(ctx, sheetID)
	})
	if err != nil {
		return errors.Wrap(err, "list rows")
	}
	for _, row := range existing {
		if sid := row.StringValue(sourceCol); sid != "" {
			rowIDs[sid] = row.ID
		}
	}
	if len(rowIDs) > 0 {
		l.log.WithFields(logrus.Fields{"sheet_id": sheetID, "rows": len(rowIDs)}).
			Info("sheet already holds migrated rows, resuming")
	}
	return nil
}

// groupByParent splits a level's tasks by resolved parent row. Tasks with
// no parent, and tasks whose parent never made it into the sheet, append to
// the bottom. Group submission order is fixed: the no-parent group first,
// then parents by ascending row ID.
func (l *TaskLoader) groupByParent(pending []planapi.Task, rowIDs map[string]int64, stats *LoadStats) (map[parentKey][]planapi.Task, []parentKey) {
	groups := make(map[parentKey][]planapi.Task)
	for _, t := range pending {
		key := parentKey{toBottom: true}
		if t.ParentID != "" {
			if rowID, ok := rowIDs[t.ParentID]; ok {
				key = parentKey{rowID: rowID}
			} else {
				l.log.WithFields(logrus.Fields{"task": t.ID, "parent": t.ParentID}).
					Warn("parent has no row, attaching task at top level")
				stats.Problems = append(stats.Problems, Problem{
					Entity: "task",
					ID:     t.ID,
					Reason: fmt.Sprintf("parent %s has no row, attached at top level", t.ParentID),
				})
			}
		}
		groups[key] = append(groups[key], t)
	}

	order := make([]parentKey, 0, len(groups))
	for key := range groups {
		order = append(order, key)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].toBottom != order[j].toBottom {
			return order[i].toBottom
		}
		return order[i].rowID < order[j].rowID
	})
	return groups, order
}

func (l *TaskLoader) buildCells(t planapi.Task, cols ColumnMap, aux AuxCells, positions map[string]int, rowIDs map[string]int64, stats *LoadStats) []sheetapi.Cell {
	var cells []sheetapi.Cell
	add := func(title string, value any) {
		if id := cols.ID(title); id != 0 {
			cells = append(cells, sheetapi.Cell{ColumnID: id, Value: value})
		}
	}

	add(ColTaskName, t.Name)
	if hours, ok := DurationHours(t.Duration); ok {
		add(ColDuration, FormatDurationDays(hours))
	}
	if d := FormatDate(t.Start); d != "" {
		add(ColStart, d)
	}
	if d := FormatDate(t.Finish); d != "" {
		add(ColFinish, d)
	}
	add(ColPercentComplete, t.PercentComplete)
	add(ColStatus, StatusLabel(t.PercentComplete))
	add(ColPriority, PriorityLabel(t.Priority))
	if refs := l.predecessorValue(t, positions, rowIDs, stats); refs != "" {
		add(ColPredecessors, refs)
	}
	if t.Milestone {
		add(ColMilestone, true)
	}
	add(ColConstraintType, ConstraintLabel(t.ConstraintType))
	if d := FormatDate(t.ConstraintDate); d != "" {
		add(ColConstraintDate, d)
	}
	if d := FormatDate(t.Deadline); d != "" {
		add(ColDeadline, d)
	}
	if t.Notes != "" {
		add(ColNotes, t.Notes)
	}
	if d := FormatDate(t.CreatedAt); d != "" {
		add(ColCreated, d)
	}
	if d := FormatDate(t.ModifiedAt); d != "" {
		add(ColModified, d)
	}
	add(ColSourceTaskID, t.ID)

	return append(cells, aux[t.ID]...)
}

// predecessorValue rewrites the task's dependency references into the
// target's positional format: the predecessor's 1-based list position, the
// link code, and the lag suffix, e.g. "2FS+3d". A reference whose target
// has no row yet is dropped from the cell, not failed: the target format
// has no way to point at a row that does not exist.
func (l *TaskLoader) predecessorValue(t planapi.Task, positions map[string]int, rowIDs map[string]int64, stats *LoadStats) string {
	refs := make([]string, 0, len(t.Predecessors))
	for _, p := range t.Predecessors {
		pos, known := positions[p.PredecessorID]
		_, inserted := rowIDs[p.PredecessorID]
		if !known || !inserted {
			l.log.WithFields(logrus.Fields{"task": t.ID, "predecessor": p.PredecessorID}).
				Warn("dependency target has no row, dropping reference")
			stats.Problems = append(stats.Problems, Problem{
				Entity: "predecessor",
				ID:     t.ID,
				Reason: fmt.Sprintf("target %s has no row, reference dropped", p.PredecessorID),
			})
			getMetrics().predecessorsDropped.Inc()
			continue
		}
		refs = append(refs, fmt.Sprintf("%d%s%s", pos, DependencyLabel(p.Type), LagSuffix(p.Lag)))
	}
	return strings.Join(refs, ", ")
}
