package migrate

import (
	"strings"

	"github.com/planbridge/planbridge/pkg/planapi"
	"github.com/planbridge/planbridge/pkg/sheetapi"
)

// ResourceClass decides which target columns a resource occupies: people
// become contacts, consumable materials and cost items become plain-text
// option sources for the task sheet's multi-select columns.
type ResourceClass int

const (
	ClassPerson ResourceClass = iota
	ClassMaterial
	ClassCost
)

func (c ResourceClass) String() string {
	switch c {
	case ClassPerson:
		return "Person"
	case ClassMaterial:
		return "Material"
	default:
		return "Cost"
	}
}

// ClassLabels is the resource sheet's Type picklist.
func ClassLabels() []string {
	return []string{"Person", "Material", "Cost"}
}

// Classify determines a resource's class. An explicit source type is
// authoritative; without one the class is derived from the fields that only
// one kind of resource carries: a contact identity means a person, a
// unit-of-measure label means a material, anything else is a cost item.
func Classify(r planapi.Resource) ResourceClass {
	if r.Type != nil {
		switch *r.Type {
		case planapi.ResourceTypeWork:
			return ClassPerson
		case planapi.ResourceTypeMaterial:
			return ClassMaterial
		case planapi.ResourceTypeCost:
			return ClassCost
		}
	}
	if strings.TrimSpace(r.Email) != "" {
		return ClassPerson
	}
	if strings.TrimSpace(r.MaterialLabel) != "" {
		return ClassMaterial
	}
	return ClassCost
}

// ClassificationConflict reports whether the resource carries a positive
// signal for a class other than the explicit one, e.g. a cost resource with
// an email address. The explicit class still wins; the conflict is only
// surfaced as a warning.
func ClassificationConflict(r planapi.Resource) bool {
	if r.Type == nil {
		return false
	}
	class := Classify(r)
	if class != ClassPerson && strings.TrimSpace(r.Email) != "" {
		return true
	}
	if class != ClassMaterial && strings.TrimSpace(r.MaterialLabel) != "" {
		return true
	}
	return false
}

// OptionValue is the value by which task rows reference this resource in
// multi-select cells, and the value stored in its type column.
func OptionValue(r planapi.Resource) string {
	return strings.TrimSpace(r.Name)
}

// TypeCell builds the one type-specific cell a resource row populates.
// Exactly one of Contact, Material and Cost Item carries a value per row.
func TypeCell(r planapi.Resource, class ResourceClass, cols ColumnMap) (sheetapi.Cell, bool) {
	switch class {
	case ClassPerson:
		contact, ok := ContactFrom(r.Name, r.Email)
		if !ok {
			return sheetapi.Cell{}, false
		}
		return sheetapi.Cell{ColumnID: cols.ID(ColContact), Value: contact}, true
	case ClassMaterial:
		return sheetapi.Cell{ColumnID: cols.ID(ColMaterial), Value: OptionValue(r)}, true
	default:
		return sheetapi.Cell{ColumnID: cols.ID(ColCostItem), Value: OptionValue(r)}, true
	}
}

// AssignmentRoute names the task-sheet column that holds assignments of a
// class and, for multi-select classes, the resource-sheet column that feeds
// its options through a cross-sheet reference. Contacts need no reference,
// they are self-describing values.
type AssignmentRoute struct {
	TaskColumn     string
	ResourceColumn string
	CrossSheet     bool
}

func RouteFor(class ResourceClass) AssignmentRoute {
	switch class {
	case ClassPerson:
		return AssignmentRoute{TaskColumn: ColAssignedTo}
	case ClassMaterial:
		return AssignmentRoute{TaskColumn: ColMaterials, ResourceColumn: ColMaterial, CrossSheet: true}
	default:
		return AssignmentRoute{TaskColumn: ColCostResources, ResourceColumn: ColCostItem, CrossSheet: true}
	}
}
