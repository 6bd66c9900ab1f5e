// Package render turns record tables into Markdown and XLSX documents.
package render

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/use-agent/nepse/models"
)

// Table is a header plus string rows, the common shape every renderer takes.
type Table struct {
	Columns []string
	Rows    [][]string
}

// FromRecords lays records out under columns, which name JSON fields.
func FromRecords(columns []string, records []models.Record) (Table, error) {
	maps := make([]map[string]any, 0, len(records))
	for _, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return Table{}, fmt.Errorf("marshal %T: %w", r, err)
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return Table{}, fmt.Errorf("unmarshal %T: %w", r, err)
		}
		maps = append(maps, m)
	}
	return FromMaps(columns, maps), nil
}

// FromMaps lays decoded JSON objects out under columns. Missing keys become
// empty cells.
func FromMaps(columns []string, items []map[string]any) Table {
	t := Table{Columns: columns, Rows: make([][]string, 0, len(items))}
	for _, item := range items {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = cellString(item[col])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func cellString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
