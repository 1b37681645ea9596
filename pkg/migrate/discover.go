package migrate

import (
	"sort"
	"strconv"
	"strings"

	"github.com/planbridge/planbridge/pkg/planapi"
	"github.com/planbridge/planbridge/pkg/sheetapi"
)

// The source lets projects define ad-hoc task fields on top of the modeled
// ones. Discovery is an explicit pass over the whole snapshot, run after the
// fixed layout is reconciled: it surfaces those fields as extra columns
// instead of silently dropping them.

type fieldSample struct {
	bools, numbers, dates, others int
}

func (s *fieldSample) only(n int) bool {
	return n > 0 && s.bools+s.numbers+s.dates+s.others == n
}

// DiscoverColumns scans the tasks' custom fields and returns specs for the
// columns the fixed layout does not own, in normalized-title order. A field
// gets a typed column only when every observed value agrees on the type;
// mixed fields fall back to text.
func DiscoverColumns(tasks []planapi.Task, isKnown func(title string) bool) []sheetapi.ColumnSpec {
	samples := make(map[string]*fieldSample)
	display := make(map[string]string)

	for _, task := range tasks {
		for title, value := range task.CustomFields {
			clean := strings.Join(strings.Fields(title), " ")
			if clean == "" || value == nil {
				continue
			}
			if isKnown != nil && isKnown(clean) {
				continue
			}
			key := NormalizeTitle(clean)
			s, ok := samples[key]
			if !ok {
				s = &fieldSample{}
				samples[key] = s
				display[key] = clean
			}
			switch v := value.(type) {
			case bool:
				s.bools++
			case float64:
				s.numbers++
			case string:
				if FormatDate(v) != "" {
					s.dates++
				} else {
					s.others++
				}
			default:
				s.others++
			}
		}
	}

	keys := make([]string, 0, len(samples))
	for key := range samples {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	specs := make([]sheetapi.ColumnSpec, 0, len(keys))
	for _, key := range keys {
		s := samples[key]
		spec := sheetapi.ColumnSpec{Title: display[key], Type: sheetapi.ColumnTextNumber}
		switch {
		case s.only(s.bools):
			spec.Type = sheetapi.ColumnCheckbox
		case s.only(s.dates):
			spec.Type = sheetapi.ColumnDate
		}
		specs = append(specs, spec)
	}
	return specs
}

// CustomCells renders one task's custom fields into cells for the
// discovered columns. Values that do not fit the column's inferred type are
// skipped rather than written wrong.
func CustomCells(task planapi.Task, specs []sheetapi.ColumnSpec, cols ColumnMap) []sheetapi.Cell {
	if len(task.CustomFields) == 0 || len(specs) == 0 {
		return nil
	}

	values := make(map[string]any, len(task.CustomFields))
	for title, value := range task.CustomFields {
		values[NormalizeTitle(title)] = value
	}

	var cells []sheetapi.Cell
	for _, spec := range specs {
		value, ok := values[NormalizeTitle(spec.Title)]
		if !ok || value == nil {
			continue
		}
		columnID := cols.ID(spec.Title)
		if columnID == 0 {
			continue
		}

		switch spec.Type {
		case sheetapi.ColumnCheckbox:
			if b, isBool := value.(bool); isBool {
				cells = append(cells, sheetapi.Cell{ColumnID: columnID, Value: b})
			}
		case sheetapi.ColumnDate:
			if s, isString := value.(string); isString {
				if date := FormatDate(s); date != "" {
					cells = append(cells, sheetapi.Cell{ColumnID: columnID, Value: date})
				}
			}
		default:
			switch v := value.(type) {
			case string:
				if v != "" {
					cells = append(cells, sheetapi.Cell{ColumnID: columnID, Value: v})
				}
			case float64:
				cells = append(cells, sheetapi.Cell{ColumnID: columnID, Value: v})
			case bool:
				cells = append(cells, sheetapi.Cell{ColumnID: columnID, Value: strconv.FormatBool(v)})
			}
		}
	}
	return cells
}
