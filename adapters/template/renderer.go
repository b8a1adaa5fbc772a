package reporttemplate

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goliatone/go-rights/report"
)

// DefaultTemplateName is used when no template name is requested.
const DefaultTemplateName = "report"

// DefaultMaxBufferedRows bounds template buffering by default.
const DefaultMaxBufferedRows = 10000

// Renderer renders report rows through an HTML template.
type Renderer struct {
	Templates    TemplateExecutor
	TemplateName string
	MaxRows      int
}

// Render buffers rows and executes the template.
func (r Renderer) Render(ctx context.Context, schema report.Schema, rows report.RowIterator, w io.Writer, opts report.RenderOptions) (report.RenderStats, error) {
	if r.Templates == nil {
		return report.RenderStats{}, report.NewError(report.KindValidation, "template renderer requires templates", nil)
	}

	name := opts.Template.TemplateName
	if name == "" {
		name = r.TemplateName
	}
	if name == "" {
		name = DefaultTemplateName
	}

	maxRows := r.MaxRows
	if opts.Template.MaxRows > 0 {
		maxRows = opts.Template.MaxRows
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxBufferedRows
	}

	var buffered [][]string
	for {
		if err := ctx.Err(); err != nil {
			return report.RenderStats{}, err
		}
		row, err := rows.Next(ctx)
		if err != nil {
			if err == io.EOF {
				break
			}
			return report.RenderStats{}, err
		}
		if len(buffered) >= maxRows {
			return report.RenderStats{}, report.NewError(report.KindValidation, "template renderer max rows exceeded", nil)
		}
		buffered = append(buffered, formatRow(schema, row))
	}

	generatedAt := opts.Template.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	title := opts.Template.Title
	if title == "" {
		title = "Rights Report"
	}

	data := map[string]any{
		"title":        title,
		"generated_at": generatedAt.Format("2006-01-02 15:04 MST"),
		"columns":      columnLabels(schema),
		"rows":         buffered,
		"row_count":    len(buffered),
	}
	for key, value := range opts.Template.Data {
		data[key] = value
	}

	cw := &countingWriter{w: w}
	if err := r.Templates.ExecuteTemplate(cw, name, data); err != nil {
		return report.RenderStats{}, err
	}
	return report.RenderStats{Rows: int64(len(buffered)), Bytes: cw.count}, nil
}

func columnLabels(schema report.Schema) []string {
	labels := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		if col.Label != "" {
			labels[i] = col.Label
			continue
		}
		labels[i] = col.Name
	}
	return labels
}

func formatRow(schema report.Schema, row report.Row) []string {
	out := make([]string, len(row))
	for i, value := range row {
		var col report.Column
		if i < len(schema.Columns) {
			col = schema.Columns[i]
		}
		out[i] = formatCell(col, value)
	}
	return out
}

func formatCell(col report.Column, value any) string {
	switch strings.ToLower(strings.TrimSpace(col.Type)) {
	case "money", "currency", "cents":
		if cents, ok := toCents(value); ok {
			return fmt.Sprintf("%.2f", float64(cents)/100)
		}
	case "list", "tags":
		if items, ok := value.([]string); ok {
			return strings.Join(items, "; ")
		}
	}
	return formatValue(value, col.Format.Layout)
}

func toCents(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func formatValue(value any, layout string) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if v.IsZero() {
			return ""
		}
		if layout == "" {
			layout = "2006-01-02"
		}
		return v.Format(layout)
	case *time.Time:
		if v == nil {
			return ""
		}
		return formatValue(*v, layout)
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
	case float32:
		return formatValue(float64(v), layout)
	default:
		return fmt.Sprintf("%v", v)
	}
}

type countingWriter struct {
	w     io.Writer
	count int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.count += int64(n)
	return n, err
}
