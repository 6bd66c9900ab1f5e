package driver

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/nepse/models"
)

// ParseRows extracts the data rows of the first table matching spec from root.
// Rows with no cells (header rows rendered inside tbody, spacer rows) are
// skipped. Cell text is whitespace-collapsed. A missing table yields no rows.
func ParseRows(root *goquery.Selection, spec TableSpec) []models.RawRow {
	table := root.Find(spec.Selector).First()
	if table.Length() == 0 {
		// root may itself be the table (rod hands us its outer HTML).
		table = root.Filter(spec.Selector).First()
		if table.Length() == 0 {
			return nil
		}
	}

	var rows []models.RawRow
	table.Find(spec.rowSelector()).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find(spec.cellSelector())
		if cells.Length() == 0 {
			return
		}
		row := make(models.RawRow, 0, cells.Length())
		cells.Each(func(_ int, td *goquery.Selection) {
			row = append(row, cleanText(td.Text()))
		})
		rows = append(rows, row)
	})
	return rows
}

// cleanText collapses runs of whitespace (nbsp included) to single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// rowSignature summarises the first data row so a click can detect that the
// table was re-rendered.
func rowSignature(rows []models.RawRow) string {
	if len(rows) == 0 {
		return ""
	}
	return strings.Join(rows[0], "\x1f")
}
