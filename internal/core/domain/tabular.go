package domain

import (
	"fmt"
	"strings"
)

// DatasetFromRows builds a dataset from a grid whose first row is the header.
//
// Header cells are trimmed. Blank headers become "column_<n>" (1-based) and
// repeated headers get a "_<n>" suffix so every column name is unique.
// Empty cells are left out of the record values. Rows keep their position,
// so RowIndex matches the row's offset below the header.
func DatasetFromRows(id, title string, rows [][]any) Dataset {
	ds := Dataset{ID: id, Title: title}
	if len(rows) == 0 {
		return ds
	}

	ds.Columns = headerNames(rows[0])
	ds.Records = make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		values := make(map[string]any, len(ds.Columns))
		for j, cell := range row {
			if j >= len(ds.Columns) || isBlank(cell) {
				continue
			}
			if s, ok := cell.(string); ok {
				cell = strings.TrimSpace(s)
			}
			values[ds.Columns[j]] = cell
		}
		ds.Records = append(ds.Records, Record{
			DatasetID: id,
			RowIndex:  i,
			Columns:   ds.Columns,
			Values:    values,
		})
	}
	return ds
}

func headerNames(header []any) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, cell := range header {
		name := strings.TrimSpace(fmt.Sprint(cell))
		if cell == nil || name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		names[i] = name
	}
	return names
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}
