package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/planbridge/planbridge/pkg/planapi"
	"github.com/planbridge/planbridge/pkg/retry"
	"github.com/planbridge/planbridge/pkg/sheetapi"
)

// ClassifiedResource pairs a source resource with its resolved class.
type ClassifiedResource struct {
	Resource planapi.Resource
	Class    ResourceClass
}

// ResourceIndex maps source resource IDs to their classified form. Only
// resources that hold a row in the sheet appear; assignments pointing at
// anything else are dropped by the caller.
type ResourceIndex map[string]ClassifiedResource

// ResourceLoader inserts a project's resource pool into the resource sheet.
// The pool is flat, so unlike tasks it goes in as a single appended batch.
type ResourceLoader struct {
	sheets SheetService
	retry  retry.Options
	log    logrus.FieldLogger
}

func NewResourceLoader(sheets SheetService, retryOpts retry.Options, log logrus.FieldLogger) *ResourceLoader {
	return &ResourceLoader{sheets: sheets, retry: retryOpts, log: log}
}

func (l *ResourceLoader) Load(ctx context.Context, sheetID int64, resources []planapi.Resource, cols ColumnMap) (LoadStats, ResourceIndex, error) {
	var stats LoadStats
	index := make(ResourceIndex, len(resources))

	rowIDs := make(map[string]int64, len(resources))
	if err := l.seedExisting(ctx, sheetID, cols, rowIDs); err != nil {
		return stats, index, err
	}

	var pending []ClassifiedResource
	for _, r := range resources {
		if strings.TrimSpace(r.Name) == "" {
			l.log.WithFields(logrus.Fields{"resource": r.ID}).Warn("resource has no name, skipping")
			stats.Skipped++
			stats.Problems = append(stats.Problems, Problem{Entity: "resource", ID: r.ID, Reason: "name is empty"})
			getMetrics().entitiesSkipped.WithLabelValues("resource").Inc()
			continue
		}

		class := Classify(r)
		if ClassificationConflict(r) {
			l.log.WithFields(logrus.Fields{"resource": r.ID, "class": class.String()}).
				Warn("resource fields contradict its declared type, declared type wins")
			stats.Problems = append(stats.Problems, Problem{
				Entity: "resource",
				ID:     r.ID,
				Reason: fmt.Sprintf("fields contradict declared type, kept %s", class),
			})
		}
		index[r.ID] = ClassifiedResource{Resource: r, Class: class}

		if _, done := rowIDs[r.ID]; done {
			stats.Skipped++
			continue
		}
		pending = append(pending, ClassifiedResource{Resource: r, Class: class})
	}
	if len(pending) == 0 {
		return stats, index, nil
	}

	batch := make([]sheetapi.RowInsert, 0, len(pending))
	for _, cr := range pending {
		batch = append(batch, sheetapi.RowInsert{ToBottom: true, Cells: l.buildCells(cr, cols)})
	}

	created, err := retry.Do(ctx, "add resource rows", l.retry, func(ctx context.Context) ([]sheetapi.Row, error) {
		return l.sheets.AddRows(ctx, sheetID, batch)
	})
	if err != nil {
		getMetrics().batches.WithLabelValues("error").Inc()
		return stats, index, failure(KindOf(err), "add resource rows", err)
	}
	if len(created) != len(batch) {
		getMetrics().batches.WithLabelValues("error").Inc()
		return stats, index, failure(KindEscalated, "add resource rows",
			fmt.Errorf("response carried %d rows for %d submitted", len(created), len(batch)))
	}

	stats.RowsCreated = len(created)
	stats.Batches = 1
	getMetrics().batches.WithLabelValues("ok").Inc()
	getMetrics().rowsCreated.WithLabelValues("resources").Add(float64(len(created)))

	l.log.WithFields(logrus.Fields{"sheet_id": sheetID, "rows": len(created)}).Debug("resource batch inserted")
	return stats, index, nil
}

func (l *ResourceLoader) seedExisting(ctx context.Context, sheetID int64, cols ColumnMap, rowIDs map[string]int64) error {
	sourceCol := cols.ID(ColSourceResourceID)
	if sourceCol == 0 {
		return nil
	}

	existing, err := retry.Do(ctx, "list resource rows", l.retry, func(ctx context.Context) ([]sheetapi.Row, error) {
		return l.sheets.ListRows(ctx, sheetID)
	})
	if err != nil {
		return errors.Wrap(err, "list resource rows")
	}
	for _, row := range existing {
		if sid := row.StringValue(sourceCol); sid != "" {
			rowIDs[sid] = row.ID
		}
	}
	if len(rowIDs) > 0 {
		l.log.WithFields(logrus.Fields{"sheet_id": sheetID, "rows": len(rowIDs)}).
			Info("resource sheet already holds migrated rows, resuming")
	}
	return nil
}

func (l *ResourceLoader) buildCells(cr ClassifiedResource, cols ColumnMap) []sheetapi.Cell {
	r := cr.Resource

	var cells []sheetapi.Cell
	add := func(title string, value any) {
		if id := cols.ID(title); id != 0 {
			cells = append(cells, sheetapi.Cell{ColumnID: id, Value: value})
		}
	}

	add(ColResourceName, strings.TrimSpace(r.Name))
	add(ColResourceType, cr.Class.String())
	if cell, ok := TypeCell(r, cr.Class, cols); ok && cell.ColumnID != 0 {
		cells = append(cells, cell)
	}
	if cr.Class == ClassMaterial && strings.TrimSpace(r.MaterialLabel) != "" {
		add(ColUnitLabel, strings.TrimSpace(r.MaterialLabel))
	}
	if r.Department != "" {
		add(ColDepartment, r.Department)
	}
	if r.Code != "" {
		add(ColResourceCode, r.Code)
	}
	if cr.Class == ClassPerson && !r.MaxUnits.IsZero() {
		add(ColMaxUnits, CapacityPercent(r.MaxUnits))
	}
	if !r.StandardRate.IsZero() {
		add(ColStandardRate, RatePerHour(r.StandardRate))
	}
	if !r.OvertimeRate.IsZero() {
		add(ColOvertimeRate, RatePerHour(r.OvertimeRate))
	}
	if !r.CostPerUse.IsZero() {
		add(ColCostPerUse, CostAmount(r.CostPerUse))
	}
	if r.Generic {
		add(ColGeneric, true)
	}
	add(ColSourceResourceID, r.ID)

	return cells
}
