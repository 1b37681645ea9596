package migrate

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/planbridge/planbridge/pkg/planapi"
	"github.com/planbridge/planbridge/pkg/retry"
	"github.com/planbridge/planbridge/pkg/sheetapi"
)

// fakeSheets is an in-memory SheetService that records every write so tests
// can assert on call counts and batch composition.
type fakeSheets struct {
	mu     sync.Mutex
	nextID int64

	workspaces []sheetapi.Workspace
	sheets     map[int64]*fakeSheet
	sheetIDs   map[int64][]int64 // workspace id -> sheet ids in creation order

	createWorkspaceCalls int
	createSheetCalls     int
	addColumnCalls       int
	addRowsCalls         int

	// batches records every AddRows call: sheet id plus the submitted rows.
	batches []recordedBatch
	updates []recordedUpdate

	failAddColumn map[string]error // by column title
	failAddRows   map[int]error    // by 1-based AddRows call number

	// truncateAddRows drops that many trailing rows from every AddRows
	// response, simulating a server that breaks the order-count contract.
	truncateAddRows int
}

type fakeSheet struct {
	sheet   sheetapi.Sheet
	columns []sheetapi.Column
	rows    []sheetapi.Row
}

type recordedBatch struct {
	SheetID int64
	Rows    []sheetapi.RowInsert
}

type recordedUpdate struct {
	SheetID  int64
	ColumnID int64
	Update   sheetapi.ColumnUpdate
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{
		nextID:        1000,
		sheets:        make(map[int64]*fakeSheet),
		sheetIDs:      make(map[int64][]int64),
		failAddColumn: make(map[string]error),
		failAddRows:   make(map[int]error),
	}
}

func (f *fakeSheets) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeSheets) CreateWorkspace(_ context.Context, name string) (sheetapi.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createWorkspaceCalls++
	ws := sheetapi.Workspace{ID: f.id(), Name: name}
	f.workspaces = append(f.workspaces, ws)
	return ws, nil
}

func (f *fakeSheets) ListWorkspaces(_ context.Context) ([]sheetapi.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sheetapi.Workspace(nil), f.workspaces...), nil
}

func (f *fakeSheets) CreateSheet(_ context.Context, workspaceID int64, spec sheetapi.SheetSpec) (sheetapi.Sheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createSheetCalls++
	sheet := sheetapi.Sheet{ID: f.id(), WorkspaceID: workspaceID, Name: spec.Name}
	fs := &fakeSheet{sheet: sheet}
	for _, cs := range spec.Columns {
		fs.columns = append(fs.columns, sheetapi.Column{
			ID: f.id(), Title: cs.Title, Type: cs.Type,
			Primary: cs.Primary, Hidden: cs.Hidden, Options: cs.Options,
		})
	}
	f.sheets[sheet.ID] = fs
	f.sheetIDs[workspaceID] = append(f.sheetIDs[workspaceID], sheet.ID)
	return sheet, nil
}

func (f *fakeSheets) ListSheets(_ context.Context, workspaceID int64) ([]sheetapi.Sheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sheetapi.Sheet
	for _, id := range f.sheetIDs[workspaceID] {
		out = append(out, f.sheets[id].sheet)
	}
	return out, nil
}

func (f *fakeSheets) ListColumns(_ context.Context, sheetID int64) ([]sheetapi.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fs, ok := f.sheets[sheetID]
	if !ok {
		return nil, &sheetapi.Error{StatusCode: 404, Code: "sheet_not_found", Message: fmt.Sprintf("sheet %d", sheetID)}
	}
	return append([]sheetapi.Column(nil), fs.columns...), nil
}

func (f *fakeSheets) AddColumn(_ context.Context, sheetID int64, spec sheetapi.ColumnSpec) (sheetapi.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addColumnCalls++
	if err, ok := f.failAddColumn[spec.Title]; ok {
		return sheetapi.Column{}, err
	}
	fs, ok := f.sheets[sheetID]
	if !ok {
		return sheetapi.Column{}, &sheetapi.Error{StatusCode: 404, Code: "sheet_not_found"}
	}
	col := sheetapi.Column{
		ID: f.id(), Title: spec.Title, Type: spec.Type,
		Primary: spec.Primary, Hidden: spec.Hidden, Options: spec.Options,
	}
	fs.columns = append(fs.columns, col)
	return col, nil
}

func (f *fakeSheets) UpdateColumn(_ context.Context, sheetID, columnID int64, update sheetapi.ColumnUpdate) (sheetapi.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, recordedUpdate{SheetID: sheetID, ColumnID: columnID, Update: update})
	fs, ok := f.sheets[sheetID]
	if !ok {
		return sheetapi.Column{}, &sheetapi.Error{StatusCode: 404, Code: "sheet_not_found"}
	}
	for i, col := range fs.columns {
		if col.ID == columnID {
			if update.Type != "" {
				fs.columns[i].Type = update.Type
			}
			if update.Options != nil {
				fs.columns[i].Options = update.Options
			}
			return fs.columns[i], nil
		}
	}
	return sheetapi.Column{}, &sheetapi.Error{StatusCode: 404, Code: "column_not_found"}
}

func (f *fakeSheets) AddRows(_ context.Context, sheetID int64, rows []sheetapi.RowInsert) ([]sheetapi.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addRowsCalls++
	if err, ok := f.failAddRows[f.addRowsCalls]; ok {
		return nil, err
	}
	fs, ok := f.sheets[sheetID]
	if !ok {
		return nil, &sheetapi.Error{StatusCode: 404, Code: "sheet_not_found"}
	}
	f.batches = append(f.batches, recordedBatch{SheetID: sheetID, Rows: append([]sheetapi.RowInsert(nil), rows...)})

	created := make([]sheetapi.Row, 0, len(rows))
	for _, ins := range rows {
		row := sheetapi.Row{
			ID:        f.id(),
			ParentID:  ins.ParentID,
			RowNumber: len(fs.rows) + 1,
			Cells:     append([]sheetapi.Cell(nil), ins.Cells...),
		}
		fs.rows = append(fs.rows, row)
		created = append(created, row)
	}
	if f.truncateAddRows > 0 && len(created) >= f.truncateAddRows {
		created = created[:len(created)-f.truncateAddRows]
	}
	return created, nil
}

func (f *fakeSheets) ListRows(_ context.Context, sheetID int64) ([]sheetapi.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fs, ok := f.sheets[sheetID]
	if !ok {
		return nil, &sheetapi.Error{StatusCode: 404, Code: "sheet_not_found"}
	}
	return append([]sheetapi.Row(nil), fs.rows...), nil
}

// rowCells returns the stored cells of a row by id, for assertions.
func (f *fakeSheets) rowCells(sheetID, rowID int64) []sheetapi.Cell {
	f.mu.Lock()
	defer f.mu.Unlock()
	fs, ok := f.sheets[sheetID]
	if !ok {
		return nil
	}
	for _, row := range fs.rows {
		if row.ID == rowID {
			return row.Cells
		}
	}
	return nil
}

// fakePlans serves fixed source data.
type fakePlans struct {
	project     planapi.Project
	tasks       []planapi.Task
	resources   []planapi.Resource
	assignments []planapi.Assignment

	err    error            // every call fails
	errFor map[string]error // calls for one project fail
}

func (f *fakePlans) fail(projectID string) error {
	if f.err != nil {
		return f.err
	}
	return f.errFor[projectID]
}

func (f *fakePlans) GetProject(_ context.Context, projectID string) (planapi.Project, error) {
	if err := f.fail(projectID); err != nil {
		return planapi.Project{}, err
	}
	return f.project, nil
}

func (f *fakePlans) ListTasks(_ context.Context, projectID string) ([]planapi.Task, error) {
	if err := f.fail(projectID); err != nil {
		return nil, err
	}
	return f.tasks, nil
}

func (f *fakePlans) ListResources(_ context.Context, projectID string) ([]planapi.Resource, error) {
	if err := f.fail(projectID); err != nil {
		return nil, err
	}
	return f.resources, nil
}

func (f *fakePlans) ListAssignments(_ context.Context, projectID string) ([]planapi.Assignment, error) {
	if err := f.fail(projectID); err != nil {
		return nil, err
	}
	return f.assignments, nil
}

// fastRetry keeps test retries near-instant.
func fastRetry() retry.Options {
	return retry.Options{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
