package reportcrud

import "github.com/goliatone/go-rights/report"

// GridRequest captures the datagrid report payload.
type GridRequest struct {
	Dataset        string              `json:"dataset"`
	Format         report.Format       `json:"format,omitempty"`
	Query          *Query              `json:"query,omitempty"`
	Columns        []string            `json:"columns,omitempty"`
	Delivery       report.DeliveryMode `json:"delivery,omitempty"`
	EstimatedRows  int                 `json:"estimated_rows,omitempty"`
	EstimatedBytes int64               `json:"estimated_bytes,omitempty"`
}

// ReportRequest converts the datagrid payload into a core report request.
func (r GridRequest) ReportRequest() report.ReportRequest {
	delivery := r.Delivery
	if delivery == "" {
		delivery = report.DeliveryAuto
	}
	format := r.Format
	if format == "" {
		format = report.FormatCSV
	}
	req := report.ReportRequest{
		Dataset:        r.Dataset,
		Format:         format,
		Columns:        r.Columns,
		Delivery:       delivery,
		EstimatedRows:  r.EstimatedRows,
		EstimatedBytes: r.EstimatedBytes,
	}
	if r.Query != nil {
		req.Query = r.Query
	}
	return req
}
