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

// Action is a parsed reasoning response: QueryAction, DecideAction or
// MalformedAction.
type Action interface {
	action()
}

// SearchQuery asks for more ledger evidence before deciding.
type SearchQuery struct {
	Merchant string           `json:"merchant,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	DateFrom string           `json:"date_from,omitempty"`
	DateTo   string           `json:"date_to,omitempty"`
}

// Filter converts the query into a bounded transaction filter. Dates are
// YYYY-MM-DD and both bounds are inclusive.
func (q SearchQuery) Filter(limit int) (domain.TransactionFilter, error) {
	f := domain.TransactionFilter{Merchant: strings.TrimSpace(q.Merchant), Amount: q.Amount, Limit: limit}
	if q.Amount != nil {
		abs := q.Amount.Abs()
		f.Amount = &abs
	}
	if q.DateFrom != "" {
		d, err := civil.ParseDate(strings.TrimSpace(q.DateFrom))
		if err != nil {
			return f, fmt.Errorf("date_from %q is not a YYYY-MM-DD date", q.DateFrom)
		}
		from := d.In(time.UTC)
		f.DateFrom = &from
	}
	if q.DateTo != "" {
		d, err := civil.ParseDate(strings.TrimSpace(q.DateTo))
		if err != nil {
			return f, fmt.Errorf("date_to %q is not a YYYY-MM-DD date", q.DateTo)
		}
		to := d.AddDays(1).In(time.UTC).Add(-time.Microsecond)
		f.DateTo = &to
	}
	return f, nil
}

// QueryAction requests a transaction search.
type QueryAction struct {
	Query SearchQuery
}

// DecideAction proposes one or more decisions.
type DecideAction struct {
	Decisions []Decision
}

// MalformedAction is any response that is neither a usable QUERY nor DECIDE.
type MalformedAction struct {
	Raw    string
	Reason string
}

func (QueryAction) action()     {}
func (DecideAction) action()    {}
func (MalformedAction) action() {}

type envelope struct {
	Action    string       `json:"action"`
	Query     *SearchQuery `json:"query"`
	Decisions []Decision   `json:"decisions"`
}

// ParseAction turns a raw response into an Action. It never fails: anything
// unusable becomes a MalformedAction.
func ParseAction(raw string) Action {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return MalformedAction{Raw: raw, Reason: "empty response"}
	}

	var env envelope
	if err := json.Unmarshal([]byte(clean), &env); err != nil {
		return MalformedAction{Raw: raw, Reason: fmt.Sprintf("unparsable response: %v", err)}
	}

	switch strings.ToUpper(strings.TrimSpace(env.Action)) {
	case "QUERY":
		if env.Query == nil {
			return MalformedAction{Raw: raw, Reason: "QUERY without query"}
		}
		return QueryAction{Query: *env.Query}
	case "DECIDE":
		if len(env.Decisions) == 0 {
			return MalformedAction{Raw: raw, Reason: "DECIDE without decisions"}
		}
		return DecideAction{Decisions: env.Decisions}
	case "":
		return MalformedAction{Raw: raw, Reason: "missing action"}
	default:
		return MalformedAction{Raw: raw, Reason: fmt.Sprintf("unknown action %q", env.Action)}
	}
}
