package driver

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/nepse/models"
)

const priceTable = `<html><body>
<table class="table">
  <thead><tr><th>S.N.</th><th>Symbol</th><th>LTP</th></tr></thead>
  <tbody>
    <tr><td>1</td><td> NABIL </td><td>1,020.00</td></tr>
    <tr class="spacer"></tr>
    <tr><td>2</td><td>NICA&nbsp;&nbsp;</td></tr>
  </tbody>
</table>
</body></html>`

func parse(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Selection
}

func TestParseRows(t *testing.T) {
	rows := ParseRows(parse(t, priceTable), TableSpec{Selector: "table.table"})

	require.Len(t, rows, 2)
	assert.Equal(t, models.RawRow{"1", "NABIL", "1,020.00"}, rows[0])
	assert.Equal(t, models.RawRow{"2", "NICA"}, rows[1], "short rows are kept as-is")
}

func TestParseRowsRootIsTable(t *testing.T) {
	fragment := `<table class="table"><tbody><tr><td>1</td><td>HIDCL</td></tr></tbody></table>`
	doc := parse(t, fragment)

	rows := ParseRows(doc.Find("table"), TableSpec{Selector: "table.table"})
	require.Len(t, rows, 1)
	assert.Equal(t, "HIDCL", rows[0].Cell(1))
}

func TestParseRowsMissingTable(t *testing.T) {
	rows := ParseRows(parse(t, `<p>maintenance</p>`), TableSpec{Selector: "table.table"})
	assert.Empty(t, rows)
}

func TestTableSpecDefaults(t *testing.T) {
	spec := TableSpec{Selector: "#floorsheet"}
	assert.Equal(t, "#floorsheet tbody tr", spec.Rows())

	spec.RowSelector = "tr.data"
	assert.Equal(t, "#floorsheet tr.data", spec.Rows())
}

func TestRowSignature(t *testing.T) {
	assert.Equal(t, "", rowSignature(nil))
	assert.Equal(t, "1\x1fNABIL", rowSignature([]models.RawRow{{"1", "NABIL"}, {"2", "NICA"}}))
}
