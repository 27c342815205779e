// Package text writes records as free-form text: each record renders one
// template-evaluated line over its column name → string values.
package text

import (
	"fmt"
	"io"
	"text/template"

	"github.com/rowkit/rowkit/pkg/types"
)

// Writer renders records through a line template.
type Writer struct {
	tmpl *template.Template
	out  io.Writer
}

// NewWriter parses the line template. Column values are addressed by field
// name, e.g. "{{.name}} owes {{.balance}}".
func NewWriter(templateText string, out io.Writer) (*Writer, error) {
	tmpl, err := template.New("line").Option("missingkey=zero").Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse line template: %w", err)
	}
	return &Writer{tmpl: tmpl, out: out}, nil
}

// WriteRecord renders one record followed by a newline.
func (w *Writer) WriteRecord(schema *types.RecordSchema, values []any) error {
	cols := make(map[string]string, schema.FieldCount())
	for i, name := range schema.FieldNames() {
		if i >= len(values) || values[i] == nil {
			cols[name] = ""
			continue
		}
		cols[name] = stringify(values[i])
	}

	if err := w.tmpl.Execute(w.out, cols); err != nil {
		return fmt.Errorf("failed to render record: %w", err)
	}
	_, err := io.WriteString(w.out, "\n")
	return err
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
