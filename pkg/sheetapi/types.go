package sheetapi

import "strconv"

type Workspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Sheet struct {
	ID          int64    `json:"id"`
	WorkspaceID int64    `json:"workspace_id"`
	Name        string   `json:"name"`
	Columns     []Column `json:"columns,omitempty"`
}

type SheetSpec struct {
	Name    string       `json:"name"`
	Columns []ColumnSpec `json:"columns,omitempty"`
}

type ColumnType string

const (
	ColumnTextNumber       ColumnType = "TEXT_NUMBER"
	ColumnDate             ColumnType = "DATE"
	ColumnCheckbox         ColumnType = "CHECKBOX"
	ColumnPicklist         ColumnType = "PICKLIST"
	ColumnContactList      ColumnType = "CONTACT_LIST"
	ColumnMultiContactList ColumnType = "MULTI_CONTACT_LIST"
	ColumnMultiPicklist    ColumnType = "MULTI_PICKLIST"
)

type Column struct {
	ID      int64      `json:"id"`
	Title   string     `json:"title"`
	Type    ColumnType `json:"type"`
	Primary bool       `json:"primary,omitempty"`
	Hidden  bool       `json:"hidden,omitempty"`
	Options []string   `json:"options,omitempty"`
}

type ColumnSpec struct {
	Title   string     `json:"title"`
	Type    ColumnType `json:"type"`
	Primary bool       `json:"primary,omitempty"`
	Hidden  bool       `json:"hidden,omitempty"`
	Options []string   `json:"options,omitempty"`
}

// CrossSheetReference points a multi-select column's option source at a
// column of another sheet.
type CrossSheetReference struct {
	SheetID  int64 `json:"sheet_id"`
	ColumnID int64 `json:"column_id"`
}

type ColumnUpdate struct {
	Type        ColumnType           `json:"type,omitempty"`
	Options     []string             `json:"options,omitempty"`
	OptionsFrom *CrossSheetReference `json:"options_from,omitempty"`
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Cell values are strings, numbers, bools, a Contact, []Contact for
// multi-contact columns or []string for multi-select columns.
type Cell struct {
	ColumnID int64 `json:"column_id"`
	Value    any   `json:"value,omitempty"`
}

type Row struct {
	ID       int64 `json:"id"`
	ParentID int64 `json:"parent_id,omitempty"`
	// RowNumber is the 1-based position of the row in the sheet.
	RowNumber int    `json:"row_number,omitempty"`
	Cells     []Cell `json:"cells,omitempty"`
}

// StringValue returns the cell value under columnID rendered as a string,
// or "" when the cell is absent or not scalar.
func (r Row) StringValue(columnID int64) string {
	for _, c := range r.Cells {
		if c.ColumnID != columnID {
			continue
		}
		switch v := c.Value.(type) {
		case string:
			return v
		case float64:
			if v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10)
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
		return ""
	}
	return ""
}

// RowInsert describes one row of a batch insert. A batch either appends to
// the bottom of the sheet or nests every row under the same parent; the two
// placements are mutually exclusive.
type RowInsert struct {
	ParentID int64  `json:"parent_id,omitempty"`
	ToBottom bool   `json:"to_bottom,omitempty"`
	Cells    []Cell `json:"cells"`
}
