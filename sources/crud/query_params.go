package reportcrud

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-rights/report"
	"github.com/goliatone/go-rights/rights"
)

// QueryFromValues converts URL query params into a crud Query.
func QueryFromValues(values url.Values) (Query, error) {
	if len(values) == 0 {
		return Query{}, nil
	}

	query := Query{}
	if search := strings.TrimSpace(values.Get("search")); search != "" {
		query.Search = search
	} else if search := strings.TrimSpace(values.Get("q")); search != "" {
		query.Search = search
	}
	filters := make([]Filter, 0)
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		if !hasNonEmptyValue(vals) {
			continue
		}
		switch key {
		case "order", "sort":
			query.Sort = append(query.Sort, parseSortOrder(vals[0])...)
			continue
		case "q", "search":
			continue
		case "limit":
			limit, err := parseInt(vals[0])
			if err != nil {
				return Query{}, report.NewError(report.KindValidation, "invalid limit", err)
			}
			query.Limit = limit
			continue
		case "offset":
			offset, err := parseInt(vals[0])
			if err != nil {
				return Query{}, report.NewError(report.KindValidation, "invalid offset", err)
			}
			query.Offset = offset
			continue
		case "cursor":
			query.Cursor = vals[0]
			continue
		case "since":
			start, err := rights.ParseDate(vals[0])
			if err != nil {
				return Query{}, report.NewError(report.KindValidation, "invalid since date", err)
			}
			filters = append(filters, Filter{Field: "window_start", Op: "gte", Value: start})
			continue
		case "until":
			end, err := rights.ParseDate(vals[0])
			if err != nil {
				return Query{}, report.NewError(report.KindValidation, "invalid until date", err)
			}
			filters = append(filters, Filter{Field: "window_end", Op: "lte", Value: end})
			continue
		}

		field, op := splitFilterKey(key)
		if field == "" {
			continue
		}
		value := parseFilterValues(op, vals)
		switch field {
		case "media":
			value = canonicalMediaValue(value)
		case "territories", "territory":
			field = "territories"
			value = canonicalTerritoryValue(value)
		}
		filters = append(filters, Filter{
			Field: field,
			Op:    op,
			Value: value,
		})
	}

	query.Filters = filters
	return query, nil
}

// canonicalMediaValue maps free-form media labels ("streaming",
// "broadcast") onto the media types grants are stored under. Unknown
// labels pass through so the repository can reject them.
func canonicalMediaValue(value any) any {
	switch v := value.(type) {
	case string:
		if media, err := rights.CanonicalMedia(v); err == nil {
			return string(media)
		}
		return v
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = item
			if media, err := rights.CanonicalMedia(item); err == nil {
				out[i] = string(media)
			}
		}
		return out
	default:
		return value
	}
}

// canonicalTerritoryValue lowercases and dedupes territory labels the
// way grants store them, collapsing worldwide synonyms to the
// wildcard.
func canonicalTerritoryValue(value any) any {
	switch v := value.(type) {
	case string:
		if normalized := rights.NormalizeTerritories([]string{v}); len(normalized) == 1 {
			return normalized[0]
		}
		return v
	case []string:
		if normalized := rights.NormalizeTerritories(v); len(normalized) > 0 {
			return normalized
		}
		return v
	default:
		return value
	}
}

func hasNonEmptyValue(values []string) bool {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}

func splitFilterKey(key string) (string, string) {
	parts := strings.SplitN(key, "__", 2)
	field := strings.TrimSpace(parts[0])
	op := "eq"
	if len(parts) == 2 {
		if candidate := strings.TrimSpace(parts[1]); candidate != "" {
			op = candidate
		}
	}
	return field, op
}

func parseFilterValues(op string, values []string) any {
	if len(values) == 0 {
		return ""
	}
	if len(values) == 1 {
		value := values[0]
		if (op == "in" || op == "ilike") && strings.Contains(value, ",") {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts
		}
		return value
	}
	return values
}

func parseSortOrder(raw string) []Sort {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	sorts := make([]Sort, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		desc := false
		field := ""
		if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "+") {
			desc = strings.HasPrefix(trimmed, "-")
			field = strings.TrimSpace(trimmed[1:])
		} else {
			fields := strings.Fields(trimmed)
			if len(fields) > 0 {
				field = fields[0]
			}
			if len(fields) > 1 {
				desc = strings.EqualFold(fields[1], "desc")
			}
		}
		if field == "" {
			continue
		}
		sorts = append(sorts, Sort{Field: field, Desc: desc})
	}
	return sorts
}

func parseInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return value, nil
}
