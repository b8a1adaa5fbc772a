package reportapi

import (
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
	reportcrud "github.com/goliatone/go-rights/sources/crud"
)

// QueryRequestDecoder decodes querystring payloads into report requests.
type QueryRequestDecoder struct {
	Resolver DatasetResolver
}

// Decode parses query params into a report request.
func (d QueryRequestDecoder) Decode(req Request) (report.ReportRequest, error) {
	if req == nil {
		return report.ReportRequest{}, report.NewError(report.KindInternal, "request is nil", nil)
	}

	values := url.Values{}
	if parsed := req.URL(); parsed != nil {
		values = parsed.Query()
	}

	grid, err := gridRequestFromValues(values)
	if err != nil {
		return report.ReportRequest{}, err
	}

	reqModel := grid.ReportRequest()
	if reqModel.Dataset == "" {
		resource := strings.TrimSpace(values.Get("resource"))
		if resource != "" {
			if d.Resolver != nil {
				dataset, err := d.Resolver.ResolveDataset(req.Context(), resource)
				if err != nil {
					return report.ReportRequest{}, err
				}
				reqModel.Dataset = dataset
			} else {
				reqModel.Resource = resource
			}
		}
	}

	contracts, conflicts, err := filtersFromValues(values)
	if err != nil {
		return report.ReportRequest{}, err
	}
	reqModel.Contracts = contracts
	reqModel.Conflicts = conflicts

	return reqModel, nil
}

func gridRequestFromValues(values url.Values) (reportcrud.GridRequest, error) {
	dataset := strings.TrimSpace(values.Get("dataset"))
	format := normalizeFormat(report.Format(values.Get("format")))
	delivery := report.DeliveryMode(strings.ToLower(strings.TrimSpace(values.Get("delivery"))))

	columns := splitCSVValues(values["columns"])

	queryValues := stripReservedValues(values)
	query, err := reportcrud.QueryFromValues(queryValues)
	if err != nil {
		return reportcrud.GridRequest{}, err
	}
	var queryPtr *reportcrud.Query
	if !isEmptyQuery(query) {
		queryPtr = &query
	}

	return reportcrud.GridRequest{
		Dataset:  dataset,
		Format:   format,
		Query:    queryPtr,
		Columns:  columns,
		Delivery: delivery,
	}, nil
}

func filtersFromValues(values url.Values) (rights.ContractFilter, rights.ConflictFilter, error) {
	contracts := rights.ContractFilter{
		Licensee: strings.TrimSpace(values.Get("licensee")),
		Work:     strings.TrimSpace(values.Get("work")),
		Media:    rights.MediaType(strings.ToLower(strings.TrimSpace(values.Get("media")))),
	}
	if since := strings.TrimSpace(values.Get("since")); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return rights.ContractFilter{}, rights.ConflictFilter{},
				report.NewError(report.KindValidation, "invalid since timestamp", err)
		}
		contracts.Since = ts
	}

	conflicts := rights.ConflictFilter{
		Work:     contracts.Work,
		Kind:     rights.ConflictKind(strings.ToLower(strings.TrimSpace(values.Get("kind")))),
		Severity: rights.Severity(strings.ToLower(strings.TrimSpace(values.Get("severity")))),
	}
	return contracts, conflicts, nil
}

func splitCSVValues(values []string) []string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			parts = append(parts, part)
		}
	}
	return parts
}

func stripReservedValues(values url.Values) url.Values {
	if len(values) == 0 {
		return nil
	}
	filtered := url.Values{}
	for key, vals := range values {
		if isReservedKey(key) {
			continue
		}
		filtered[key] = append([]string(nil), vals...)
	}
	return filtered
}

func isReservedKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "dataset", "resource", "format", "delivery", "columns",
		"licensee", "work", "media", "since", "kind", "severity":
		return true
	default:
		return false
	}
}

func isEmptyQuery(query reportcrud.Query) bool {
	return len(query.Filters) == 0 &&
		len(query.Sort) == 0 &&
		query.Search == "" &&
		query.Cursor == "" &&
		query.Limit == 0 &&
		query.Offset == 0
}
