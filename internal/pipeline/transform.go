package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/shopspring/decimal"
)

// transformLineItems converts the extraction response into line items. A
// single object is treated as a one-item list and objects under a
// "transactions" key are accepted. Items that cannot be used are skipped and
// reported in warnings; only a response that is not JSON at all is an error.
func transformLineItems(raw string, now time.Time) ([]LineItem, []string, error) {
	parsed, err := decodeModelJSON(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("transformLineItems: %w", err)
	}

	var list []any
	switch v := parsed.(type) {
	case []any:
		list = v
	case map[string]any:
		if inner, ok := v["transactions"].([]any); ok {
			list = inner
		} else {
			list = []any{v}
		}
	default:
		return nil, nil, fmt.Errorf("transformLineItems: response is %T, want a list of objects", parsed)
	}

	var (
		items    = make([]LineItem, 0, len(list))
		warnings []string
	)
	for i, elem := range list {
		obj, ok := elem.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("item %d is %T, want object", i, elem))
			continue
		}

		amount, err := getDecimalField(obj, "amount")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("item %d skipped: %v", i, err))
			continue
		}

		typ := domain.TransactionTypeExpense
		rawType, err := getOptionalStringField(obj, "type")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("item %d: %v", i, err))
		}
		if rawType != nil {
			typ = domain.SanitizeTransactionType(*rawType)
		}
		// Amounts are magnitudes; the sign lives in the type.
		amount = amount.Abs()

		merchant, err := getOptionalStringField(obj, "merchant")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("item %d: %v", i, err))
		}
		note, err := getOptionalStringField(obj, "note")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("item %d: %v", i, err))
		}

		date := now
		rawDate, err := getOptionalStringField(obj, "transaction_date")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("item %d: %v", i, err))
		}
		if rawDate != nil {
			if d, ok := parseItemDate(*rawDate); ok {
				date = d
			} else {
				warnings = append(warnings, fmt.Sprintf("item %d: invalid date %q, using processing time", i, *rawDate))
			}
		}

		items = append(items, LineItem{
			Amount:          amount,
			Merchant:        deref(merchant),
			TransactionDate: date,
			Type:            typ,
			Note:            deref(note),
		})
	}

	return items, warnings, nil
}

var itemDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseItemDate accepts YYYY-MM-DD and the common date-time forms; results are UTC.
func parseItemDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if d, err := civil.ParseDate(s); err == nil {
		return d.In(time.UTC), true
	}
	for _, layout := range itemDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func getOptionalStringField(m map[string]any, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

func getDecimalField(m map[string]any, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Zero, fmt.Errorf("missing required field %q", key)
	}
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: %w", key, err)
		}
		return d, nil
	case string:
		clean := strings.TrimSpace(strings.NewReplacer(",", "", "$", "", "£", "", "€", "").Replace(val))
		d, err := decimal.NewFromString(clean)
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: %q is not a number", key, val)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	default:
		return decimal.Zero, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
