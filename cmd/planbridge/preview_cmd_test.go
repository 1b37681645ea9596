package main

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/planbridge/planbridge/pkg/planapi"
)

func previewFixtures() ([]planapi.Task, []planapi.Resource, []planapi.Assignment) {
	costType := planapi.ResourceTypeCost

	tasks := []planapi.Task{
		{
			ID:              "t1",
			Name:            "Site prep",
			OutlineLevel:    1,
			Duration:        "P2D",
			Start:           "2024-03-04T08:00:00Z",
			Finish:          "2024-03-05T17:00:00Z",
			PercentComplete: 100,
			Priority:        800,
			ConstraintType:  4,
			Notes:           "level ground",
			CustomFields:    map[string]any{"Crew Size": float64(4)},
		},
		{
			ID:              "t2",
			Name:            "Pour concrete",
			OutlineLevel:    2,
			ParentID:        "t1",
			PercentComplete: 40,
			Priority:        500,
			Predecessors:    []planapi.Predecessor{{PredecessorID: "t1", Type: 1, Lag: "P1D"}},
		},
		{
			ID:           "t3",
			Name:         "Open site",
			OutlineLevel: 1,
			Milestone:    true,
			Predecessors: []planapi.Predecessor{{PredecessorID: "ghost", Type: 3}},
		},
	}
	resources := []planapi.Resource{
		{ID: "r1", Name: "Dana", Email: "dana@example.com"},
		{ID: "r2", Name: "Cement", MaterialLabel: "tons", StandardRate: decimal.NewFromInt(25)},
		{ID: "r3", Name: "Crane Rental", Type: &costType, CostPerUse: decimal.NewFromInt(1200), Generic: true},
	}
	assignments := []planapi.Assignment{
		{TaskID: "t1", ResourceID: "r1"},
		{TaskID: "t2", ResourceID: "r2"},
		{TaskID: "t2", ResourceID: "r3"},
		{TaskID: "t2", ResourceID: "ghost"},
	}
	return tasks, resources, assignments
}

func TestBuildPreviewWorkbook(t *testing.T) {
	t.Parallel()

	tasks, resources, assignments := previewFixtures()
	f, err := buildPreviewWorkbook(tasks, resources, assignments)
	if err != nil {
		t.Fatalf("buildPreviewWorkbook: %v", err)
	}

	path := filepath.Join(t.TempDir(), "preview.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close workbook: %v", err)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer func() { _ = wb.Close() }()

	cell := func(sheet, ref string) string {
		t.Helper()
		v, err := wb.GetCellValue(sheet, ref)
		if err != nil {
			t.Fatalf("read %s!%s: %v", sheet, ref, err)
		}
		return v
	}

	headers := map[string]string{
		"A1": "Task Name",
		"B1": "Duration",
		"H1": "Predecessors",
		"R1": "Modified",
		"S1": "Crew Size",
	}
	for ref, want := range headers {
		if got := cell("Tasks", ref); got != want {
			t.Fatalf("Tasks!%s = %q, want %q", ref, got, want)
		}
	}

	taskCells := map[string]string{
		"A2": "Site prep",
		"B2": "2d",
		"C2": "2024-03-04",
		"E2": "100",
		"F2": "Complete",
		"G2": "Very High",
		"I2": "FALSE",
		"J2": "SNET",
		"M2": "Dana <dana@example.com>",
		"P2": "level ground",
		"S2": "4",
		"A3": "Pour concrete",
		"F3": "In Progress",
		"G3": "Medium",
		"H3": "1FS+1d",
		"N3": "Cement",
		"O3": "Crane Rental",
		"A4": "Open site",
		"H4": "",
		"I4": "TRUE",
	}
	for ref, want := range taskCells {
		if got := cell("Tasks", ref); got != want {
			t.Fatalf("Tasks!%s = %q, want %q", ref, got, want)
		}
	}

	level, err := wb.GetRowOutlineLevel("Tasks", 3)
	if err != nil {
		t.Fatalf("outline level row 3: %v", err)
	}
	if level != 1 {
		t.Fatalf("row 3 outline level = %d, want 1", level)
	}
	level, err = wb.GetRowOutlineLevel("Tasks", 4)
	if err != nil {
		t.Fatalf("outline level row 4: %v", err)
	}
	if level != 0 {
		t.Fatalf("row 4 outline level = %d, want 0", level)
	}

	resourceCells := map[string]string{
		"A1": "Resource Name",
		"B1": "Type",
		"M1": "Generic",
		"A2": "Dana",
		"B2": "Person",
		"C2": "Dana <dana@example.com>",
		"D2": "",
		"A3": "Cement",
		"B3": "Material",
		"D3": "Cement",
		"F3": "tons",
		"J3": "$25.00/hr",
		"A4": "Crane Rental",
		"B4": "Cost",
		"E4": "Crane Rental",
		"L4": "$1,200.00",
		"M4": "TRUE",
	}
	for ref, want := range resourceCells {
		if got := cell("Resources", ref); got != want {
			t.Fatalf("Resources!%s = %q, want %q", ref, got, want)
		}
	}
}
