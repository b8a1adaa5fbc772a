package reportapi

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

// Request provides minimal request access for transport adapters.
type Request interface {
	Context() context.Context
	Method() string
	Path() string
	URL() *url.URL
	Header(name string) string
	Query(name string) string
	Body() io.ReadCloser
}

// RequestDecoder parses an HTTP request into a report request.
type RequestDecoder interface {
	Decode(req Request) (report.ReportRequest, error)
}

// QueryDecoder converts raw JSON query payloads into typed values.
type QueryDecoder func(dataset string, raw json.RawMessage) (any, error)

// JSONRequestDecoder decodes JSON into report requests.
type JSONRequestDecoder struct {
	QueryDecoder QueryDecoder
}

// Decode decodes a JSON request body into a report request.
func (d JSONRequestDecoder) Decode(req Request) (report.ReportRequest, error) {
	if req == nil {
		return report.ReportRequest{}, report.NewError(report.KindInternal, "request is nil", nil)
	}
	body := req.Body()
	if body == nil {
		return report.ReportRequest{}, report.NewError(report.KindValidation, "request body is required", nil)
	}
	defer body.Close()

	payload, err := decodePayload(body)
	if err != nil {
		return report.ReportRequest{}, err
	}

	query := any(nil)
	if len(payload.Query) > 0 {
		if d.QueryDecoder != nil {
			query, err = d.QueryDecoder(payload.Dataset, payload.Query)
			if err != nil {
				return report.ReportRequest{}, err
			}
		} else {
			if err := json.Unmarshal(payload.Query, &query); err != nil {
				return report.ReportRequest{}, report.NewError(report.KindValidation, "invalid query", err)
			}
		}
	}

	reqModel := report.ReportRequest{
		Dataset:           payload.Dataset,
		Resource:          payload.Resource,
		Format:            normalizeFormat(payload.Format),
		Query:             query,
		Columns:           payload.Columns,
		Locale:            payload.Locale,
		Timezone:          payload.Timezone,
		Delivery:          payload.Delivery,
		IdempotencyKey:    payload.IdempotencyKey,
		EstimatedRows:     payload.EstimatedRows,
		EstimatedBytes:    payload.EstimatedBytes,
		EstimatedDuration: payload.EstimatedDuration.Duration,
		Contracts:         payload.Contracts.toFilter(),
		Conflicts:         payload.Conflicts.toFilter(),
		RenderOptions:     payload.RenderOptions.toRenderOptions(),
	}

	return reqModel, nil
}

func normalizeFormat(format report.Format) report.Format {
	normalized := strings.ToLower(strings.TrimSpace(string(format)))
	switch normalized {
	case "excel", "xls":
		return report.FormatXLSX
	default:
		return report.Format(normalized)
	}
}

type requestPayload struct {
	Dataset           string                `json:"dataset"`
	Resource          string                `json:"resource,omitempty"`
	Format            report.Format         `json:"format,omitempty"`
	Query             json.RawMessage       `json:"query,omitempty"`
	Columns           []string              `json:"columns,omitempty"`
	Locale            string                `json:"locale,omitempty"`
	Timezone          string                `json:"timezone,omitempty"`
	Delivery          report.DeliveryMode   `json:"delivery,omitempty"`
	IdempotencyKey    string                `json:"idempotency_key,omitempty"`
	EstimatedRows     int                   `json:"estimated_rows,omitempty"`
	EstimatedBytes    int64                 `json:"estimated_bytes,omitempty"`
	EstimatedDuration durationValue         `json:"estimated_duration,omitempty"`
	Contracts         contractFilterPayload `json:"contracts,omitempty"`
	Conflicts         conflictFilterPayload `json:"conflicts,omitempty"`
	RenderOptions     renderOptionsPayload  `json:"render_options,omitempty"`
}

type contractFilterPayload struct {
	Licensee string    `json:"licensee,omitempty"`
	Work     string    `json:"work,omitempty"`
	Media    string    `json:"media,omitempty"`
	Since    time.Time `json:"since,omitempty"`
}

func (p contractFilterPayload) toFilter() rights.ContractFilter {
	return rights.ContractFilter{
		Licensee: p.Licensee,
		Work:     p.Work,
		Media:    rights.MediaType(p.Media),
		Since:    p.Since,
	}
}

type conflictFilterPayload struct {
	Work     string `json:"work,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Severity string `json:"severity,omitempty"`
}

func (p conflictFilterPayload) toFilter() rights.ConflictFilter {
	return rights.ConflictFilter{
		Work:     p.Work,
		Kind:     rights.ConflictKind(p.Kind),
		Severity: rights.Severity(p.Severity),
	}
}

type renderOptionsPayload struct {
	CSV      csvOptionsPayload      `json:"csv,omitempty"`
	JSON     jsonOptionsPayload     `json:"json,omitempty"`
	Template templateOptionsPayload `json:"template,omitempty"`
	XLSX     xlsxOptionsPayload     `json:"xlsx,omitempty"`
	SQLite   sqliteOptionsPayload   `json:"sqlite,omitempty"`
	Format   formatOptionsPayload   `json:"format,omitempty"`
}

func (p renderOptionsPayload) toRenderOptions() report.RenderOptions {
	return report.RenderOptions{
		CSV: report.CSVOptions{
			IncludeHeaders: p.CSV.IncludeHeaders,
			Delimiter:      p.CSV.Delimiter,
			HeadersSet:     p.CSV.HeadersSet,
		},
		JSON: report.JSONOptions{
			Mode: p.JSON.Mode,
		},
		Template: report.TemplateOptions{
			TemplateName: p.Template.TemplateName,
			Title:        p.Template.Title,
			MaxRows:      p.Template.MaxRows,
			GeneratedAt:  p.Template.GeneratedAt,
			Data:         p.Template.Data,
		},
		XLSX: report.XLSXOptions{
			IncludeHeaders: p.XLSX.IncludeHeaders,
			HeadersSet:     p.XLSX.HeadersSet,
			SheetName:      p.XLSX.SheetName,
			MaxRows:        p.XLSX.MaxRows,
			MaxBytes:       p.XLSX.MaxBytes,
		},
		SQLite: report.SQLiteOptions{
			TableName: p.SQLite.TableName,
		},
		Format: report.FormatOptions{
			Locale:   p.Format.Locale,
			Timezone: p.Format.Timezone,
		},
	}
}

type csvOptionsPayload struct {
	IncludeHeaders bool `json:"include_headers,omitempty"`
	Delimiter      rune `json:"delimiter,omitempty"`
	HeadersSet     bool `json:"headers_set,omitempty"`
}

type jsonOptionsPayload struct {
	Mode report.JSONMode `json:"mode,omitempty"`
}

type templateOptionsPayload struct {
	TemplateName string         `json:"template_name,omitempty"`
	Title        string         `json:"title,omitempty"`
	MaxRows      int            `json:"max_rows,omitempty"`
	GeneratedAt  time.Time      `json:"generated_at,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

type xlsxOptionsPayload struct {
	IncludeHeaders bool   `json:"include_headers,omitempty"`
	HeadersSet     bool   `json:"headers_set,omitempty"`
	SheetName      string `json:"sheet_name,omitempty"`
	MaxRows        int    `json:"max_rows,omitempty"`
	MaxBytes       int64  `json:"max_bytes,omitempty"`
}

type sqliteOptionsPayload struct {
	TableName string `json:"table_name,omitempty"`
}

type formatOptionsPayload struct {
	Locale   string `json:"locale,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type durationValue struct {
	time.Duration
}

func (d *durationValue) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if asString == "" {
			return nil
		}
		parsed, err := time.ParseDuration(asString)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	}

	var asNumber float64
	if err := json.Unmarshal(data, &asNumber); err == nil {
		d.Duration = time.Duration(asNumber * float64(time.Second))
		return nil
	}

	return report.NewError(report.KindValidation, "invalid duration", nil)
}

func decodePayload(body io.Reader) (requestPayload, error) {
	var payload requestPayload
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		return requestPayload{}, report.NewError(report.KindValidation, "invalid request payload", err)
	}
	return payload, nil
}
