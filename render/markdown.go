package render

import (
	"html"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Markdown renders tables as GitHub-style Markdown. The zero value is not
// usable; create one with NewMarkdown. It is safe for concurrent use.
type Markdown struct {
	conv *converter.Converter
}

// NewMarkdown creates a Markdown renderer.
func NewMarkdown() *Markdown {
	return &Markdown{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					// One space per cell instead of aligned columns keeps
					// floor-sheet pages small.
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Render converts t, preceded by an optional heading, to Markdown.
func (m *Markdown) Render(title string, t Table) (string, error) {
	return m.conv.ConvertString(tableHTML(title, t))
}

func tableHTML(title string, t Table) string {
	var b strings.Builder
	if title != "" {
		b.WriteString("<h2>")
		b.WriteString(html.EscapeString(title))
		b.WriteString("</h2>")
	}
	if len(t.Rows) == 0 {
		b.WriteString("<p>No records.</p>")
		return b.String()
	}

	b.WriteString("<table><thead><tr>")
	for _, c := range t.Columns {
		b.WriteString("<th>")
		b.WriteString(html.EscapeString(c))
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, row := range t.Rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(cell))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}
