package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type formatContext struct {
	locale   string
	location *time.Location
}

func newFormatContext(opts FormatOptions) (formatContext, error) {
	ctx := formatContext{locale: strings.TrimSpace(opts.Locale)}
	if tz := strings.TrimSpace(opts.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return formatContext{}, NewError(KindValidation, "invalid timezone", err)
		}
		ctx.location = loc
	}
	return ctx, nil
}

func (f formatContext) applyTimezone(value time.Time) time.Time {
	if f.location == nil {
		return value
	}
	return value.In(f.location)
}

func (f formatContext) formatTextValue(col Column, value any) (string, error) {
	if value == nil {
		return "", nil
	}
	switch normalizeColumnType(col.Type) {
	case "date", "datetime", "time":
		timeValue, ok := coerceTime(value)
		if !ok {
			return "", NewError(KindValidation, fmt.Sprintf("invalid time for column %q", col.Name), nil)
		}
		timeValue = f.applyTimezone(timeValue)
		layout := strings.TrimSpace(col.Format.Layout)
		if layout == "" {
			layout = defaultLayoutForType(normalizeColumnType(col.Type))
		}
		return timeValue.Format(layout), nil
	case "bool":
		boolValue, ok := coerceBool(value)
		if !ok {
			return "", NewError(KindValidation, fmt.Sprintf("invalid bool for column %q", col.Name), nil)
		}
		return strconv.FormatBool(boolValue), nil
	case "int":
		intValue, ok := coerceInt(value)
		if !ok {
			return "", NewError(KindValidation, fmt.Sprintf("invalid int for column %q", col.Name), nil)
		}
		return strconv.FormatInt(intValue, 10), nil
	case "float":
		floatValue, ok := coerceFloat(value)
		if !ok {
			return "", NewError(KindValidation, fmt.Sprintf("invalid number for column %q", col.Name), nil)
		}
		if format := strings.TrimSpace(col.Format.Number); format != "" && strings.Contains(format, "%") {
			return fmt.Sprintf(format, floatValue), nil
		}
		return strconv.FormatFloat(floatValue, 'f', -1, 64), nil
	case "money":
		cents, ok := coerceInt(value)
		if !ok {
			return "", NewError(KindValidation, fmt.Sprintf("invalid amount for column %q", col.Name), nil)
		}
		return strconv.FormatFloat(float64(cents)/100, 'f', 2, 64), nil
	case "list":
		items, ok := coerceStringList(value)
		if !ok {
			return "", NewError(KindValidation, fmt.Sprintf("invalid list for column %q", col.Name), nil)
		}
		return strings.Join(items, "; "), nil
	default:
		return stringify(value), nil
	}
}

func defaultLayoutForType(colType string) string {
	switch colType {
	case "date":
		return "2006-01-02"
	case "time":
		return "15:04:05"
	default:
		return time.RFC3339
	}
}

func normalizeColumnType(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case "", "string", "text", "varchar", "uuid":
		return "string"
	case "bool", "boolean":
		return "bool"
	case "int", "integer", "int64", "int32", "bigint", "smallint":
		return "int"
	case "float", "float64", "float32", "decimal", "number", "numeric", "double":
		return "float"
	case "date":
		return "date"
	case "time":
		return "time"
	case "datetime", "timestamp", "timestamptz":
		return "datetime"
	case "money", "currency", "cents":
		return "money"
	case "list", "tags":
		return "list"
	default:
		return normalized
	}
}

func coerceBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case *bool:
		if v == nil {
			return false, false
		}
		return *v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return parsed, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		return v != 0, true
	default:
		return false, false
	}
}

func coerceInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if math.Trunc(v) != v {
			return 0, false
		}
		return int64(v), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func coerceFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func coerceStringList(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case string:
		return []string{v}, true
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = stringify(item)
		}
		return out, true
	default:
		return nil, false
	}
}

func coerceTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		return parseTimeString(v)
	case int64:
		return time.Unix(v, 0), true
	case float64:
		return time.Unix(int64(v), 0), true
	default:
		return time.Time{}, false
	}
}

func parseTimeString(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
