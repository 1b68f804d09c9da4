package datatable

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"15:04:05",
	"15:04",
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

func parseTimeValue(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		raw := strings.TrimSpace(v)
		if raw == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				return parsed, true
			}
		}
		if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil && seconds > 0 {
			return time.Unix(seconds, 0).UTC(), true
		}
		return time.Time{}, false
	default:
		seconds, ok := toFloat(value)
		if !ok || seconds <= 0 {
			return time.Time{}, false
		}
		return time.Unix(int64(seconds), 0).UTC(), true
	}
}

func formatTimeValue(value any, layout string) string {
	parsed, ok := parseTimeValue(value)
	if !ok {
		return Placeholder
	}

	return parsed.Format(layout)
}

func formatCurrency(value any, prefix string) string {
	amount, ok := toFloat(value)
	if !ok {
		amount = 0
	}

	return printer.Sprintf("%s %.2f", prefix, amount)
}

func formatPercentage(value any) string {
	pct, ok := toFloat(value)
	if !ok || pct == 0 {
		return "0%"
	}

	return strconv.FormatFloat(pct, 'f', 1, 64) + "%"
}

func formatNumber(value any) string {
	if value == nil {
		return ""
	}

	if n, ok := toFloat(value); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}

	return stringify(value)
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "no", "n", "off":
			return false
		}
		return true
	default:
		n, ok := toFloat(value)
		return ok && n != 0
	}
}
