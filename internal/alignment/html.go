package alignment

import (
	"fmt"
	"html/template"
	"io"
)

const tableHTML = `<table class="alignment">
{{- range .Rows}}
<tr><th>{{.Sigil}}</th>
{{- range .Cells}}<td class="{{.Classes}}">{{.Text}}</td>{{end -}}
</tr>
{{- end}}
</table>
`

var tableTemplate = template.Must(template.New("alignment").Parse(tableHTML))

// WriteHTML writes the table as an HTML fragment. Sigils and witness text are
// escaped as character data.
func WriteHTML(w io.Writer, table RenderedTable) error {
	if err := tableTemplate.Execute(w, table); err != nil {
		return fmt.Errorf("alignment: write html: %w", err)
	}
	return nil
}
