package report

import (
	"fmt"
	"strings"
	"time"
)

// ResolvedReport contains validated inputs for a run.
type ResolvedReport struct {
	Request       ReportRequest
	Definition    ResolvedDefinition
	Columns       []Column
	ColumnNames   []string
	RedactIndices map[int]any
	Filename      string
}

// ResolveReport validates and resolves a request against a definition.
func ResolveReport(req ReportRequest, def ResolvedDefinition, now time.Time) (ResolvedReport, error) {
	req = normalizeRequest(req)

	if req.Dataset == "" {
		return ResolvedReport{}, NewError(KindValidation, "dataset is required", nil)
	}
	if !formatAllowed(req.Format, def.AllowedFormats) {
		return ResolvedReport{}, NewError(KindValidation, fmt.Sprintf("format %q not allowed", req.Format), nil)
	}

	columns, columnNames, redactions, err := resolveColumns(def.Schema.Columns, req.Columns, def.Policy)
	if err != nil {
		return ResolvedReport{}, err
	}

	if def.Policy.MaxRows > 0 && req.EstimatedRows > def.Policy.MaxRows {
		return ResolvedReport{}, NewError(KindValidation, "estimated rows exceed max rows", nil)
	}
	if def.Policy.MaxBytes > 0 && req.EstimatedBytes > def.Policy.MaxBytes {
		return ResolvedReport{}, NewError(KindValidation, "estimated bytes exceed max bytes", nil)
	}
	if def.Policy.MaxDuration > 0 && req.EstimatedDuration > def.Policy.MaxDuration {
		return ResolvedReport{}, NewError(KindValidation, "estimated duration exceeds max duration", nil)
	}

	filename, err := renderFilename(def, req, now)
	if err != nil {
		return ResolvedReport{}, NewError(KindValidation, "invalid filename template", err)
	}

	return ResolvedReport{
		Request:       req,
		Definition:    def,
		Columns:       columns,
		ColumnNames:   columnNames,
		RedactIndices: redactions,
		Filename:      filename,
	}, nil
}

func normalizeRequest(req ReportRequest) ReportRequest {
	if req.Format == "" {
		req.Format = FormatCSV
	}
	if req.Delivery == "" {
		req.Delivery = DeliveryAuto
	}
	if req.RenderOptions.CSV.Delimiter == 0 {
		req.RenderOptions.CSV.Delimiter = ','
	}
	if !req.RenderOptions.CSV.HeadersSet {
		req.RenderOptions.CSV.IncludeHeaders = true
	}
	if !req.RenderOptions.XLSX.HeadersSet {
		req.RenderOptions.XLSX.IncludeHeaders = true
	}
	if req.RenderOptions.JSON.Mode == "" && req.Format == FormatNDJSON {
		req.RenderOptions.JSON.Mode = JSONModeLines
	}
	if req.RenderOptions.JSON.Mode == "" {
		req.RenderOptions.JSON.Mode = JSONModeArray
	}
	if req.RenderOptions.Format.Locale == "" {
		req.RenderOptions.Format.Locale = req.Locale
	}
	if req.RenderOptions.Format.Timezone == "" {
		req.RenderOptions.Format.Timezone = req.Timezone
	}
	return req
}

func formatAllowed(format Format, allowed []Format) bool {
	for _, f := range allowed {
		if f == format {
			return true
		}
	}
	return false
}

func resolveColumns(schema []Column, requested []string, policy ReportPolicy) ([]Column, []string, map[int]any, error) {
	if len(schema) == 0 {
		return nil, nil, nil, NewError(KindValidation, "schema has no columns", nil)
	}

	allowed := policy.AllowedColumns
	allowedSet := make(map[string]struct{})
	for _, name := range allowed {
		allowedSet[name] = struct{}{}
	}

	schemaSet := make(map[string]Column)
	for _, col := range schema {
		schemaSet[col.Name] = col
	}

	projection := requested
	if len(projection) == 0 {
		if len(allowed) > 0 {
			projection = allowed
		} else {
			for _, col := range schema {
				projection = append(projection, col.Name)
			}
		}
	}

	columns := make([]Column, 0, len(projection))
	columnNames := make([]string, 0, len(projection))
	seen := make(map[string]struct{})
	for _, name := range projection {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		col, ok := schemaSet[name]
		if !ok {
			return nil, nil, nil, NewError(KindValidation, fmt.Sprintf("unknown column %q", name), nil)
		}
		if len(allowedSet) > 0 {
			if _, ok := allowedSet[name]; !ok {
				return nil, nil, nil, NewError(KindValidation, fmt.Sprintf("column %q not allowed", name), nil)
			}
		}
		columns = append(columns, col)
		columnNames = append(columnNames, col.Name)
	}

	redactions := make(map[int]any)
	if len(policy.RedactColumns) > 0 {
		redactionValue := policy.RedactionValue
		if redactionValue == nil {
			redactionValue = "[redacted]"
		}
		for idx, col := range columns {
			for _, name := range policy.RedactColumns {
				if name == col.Name {
					redactions[idx] = redactionValue
				}
			}
		}
	}

	if len(columns) == 0 {
		return nil, nil, nil, NewError(KindValidation, "no columns selected", nil)
	}

	return columns, columnNames, redactions, nil
}
