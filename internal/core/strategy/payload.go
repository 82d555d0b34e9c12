package strategy

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	v1 "github.com/pulse-lab/pulse-reports/internal/api/v1"
)

// NumberField extracts a numeric payload field as a decimal.
// Missing, nil, or non-numeric values read as zero so reducers stay total
// over arbitrary producer payloads.
func NumberField(event *v1.Event, key string) decimal.Decimal {
	if event == nil || event.Data == nil {
		return decimal.Zero
	}

	switch v := event.Data[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// StringField extracts a string payload field, or fallback when absent.
func StringField(event *v1.Event, key, fallback string) string {
	if event == nil || event.Data == nil {
		return fallback
	}
	if s, ok := event.Data[key].(string); ok && s != "" {
		return s
	}
	return fallback
}
