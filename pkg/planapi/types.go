package planapi

import "github.com/shopspring/decimal"

// Project is a source project header.
type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Start      string `json:"start,omitempty"`
	Finish     string `json:"finish,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

// Predecessor references another task of the same project. Type is the
// dependency kind (0 finish-finish, 1 finish-start, 2 start-finish,
// 3 start-start); Lag is an ISO-8601 duration, possibly negative.
type Predecessor struct {
	PredecessorID string `json:"predecessor_id"`
	Type          int    `json:"type"`
	Lag           string `json:"lag,omitempty"`
}

// Task is one row of a project's task outline. Timestamps are ISO-8601
// strings; the source reports unset dates as year-0001 sentinels. Duration
// is either an ISO-8601 duration or a shorthand like "4d" or "32h".
// CustomFields carries ad-hoc fields configured per project on the source.
type Task struct {
	ID              string         `json:"id" validate:"required"`
	Name            string         `json:"name" validate:"required"`
	OutlineLevel    int            `json:"outline_level" validate:"min=1"`
	ParentID        string         `json:"parent_id,omitempty"`
	Start           string         `json:"start,omitempty"`
	Finish          string         `json:"finish,omitempty"`
	Duration        string         `json:"duration,omitempty"`
	PercentComplete int            `json:"percent_complete"`
	Priority        int            `json:"priority"`
	Milestone       bool           `json:"milestone"`
	ConstraintType  int            `json:"constraint_type"`
	ConstraintDate  string         `json:"constraint_date,omitempty"`
	Deadline        string         `json:"deadline,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	CreatedAt       string         `json:"created_at,omitempty"`
	ModifiedAt      string         `json:"modified_at,omitempty"`
	Predecessors    []Predecessor  `json:"predecessors,omitempty"`
	CustomFields    map[string]any `json:"custom_fields,omitempty"`
}

// Resource classes as reported by the source. The field is optional; older
// projects omit it and the class must be derived from the other fields.
const (
	ResourceTypeWork     = 0
	ResourceTypeMaterial = 1
	ResourceTypeCost     = 2
)

type Resource struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email,omitempty"`
	Type          *int            `json:"type,omitempty"`
	MaterialLabel string          `json:"material_label,omitempty"`
	Department    string          `json:"department,omitempty"`
	Code          string          `json:"code,omitempty"`
	MaxUnits      decimal.Decimal `json:"max_units"`
	StandardRate  decimal.Decimal `json:"standard_rate"`
	OvertimeRate  decimal.Decimal `json:"overtime_rate"`
	CostPerUse    decimal.Decimal `json:"cost_per_use"`
	Generic       bool            `json:"generic"`
}

// Assignment joins a task to a resource.
type Assignment struct {
	TaskID     string          `json:"task_id"`
	ResourceID string          `json:"resource_id"`
	Units      decimal.Decimal `json:"units"`
}
