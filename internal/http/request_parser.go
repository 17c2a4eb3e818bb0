// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing request data into the form
// state the pages re-render and the inputs the services validate.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"smartfin/internal/core"
)

const maxFormBody = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, up to 1 MiB.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxFormBody))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetRaw returns a value untouched, for passwords.
func (p *RequestBodyParser) GetRaw(key string) string {
	if p.jsonData != nil {
		return stringValue(p.jsonData[key])
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseBody parses r's body, answering 400 itself on failure.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return nil, false
	}
	return p, true
}

// ParseMonthParam returns the ?month= query value, or the current month when
// it is missing or not YYYY-MM.
func ParseMonthParam(query url.Values) (month string, valid bool) {
	month = strings.TrimSpace(query.Get("month"))
	if month == "" {
		return core.CurrentMonth(), true
	}
	if err := core.ValidateMonth(month); err != nil {
		return core.CurrentMonth(), false
	}
	return month, true
}

// TransactionForm is the transaction form as typed, kept for re-rendering.
type TransactionForm struct {
	ID       string
	Title    string
	Amount   string
	Type     string
	Category string
	Date     string
}

func NewTransactionForm() TransactionForm {
	return TransactionForm{Type: string(core.Expense), Date: core.Today().String()}
}

func TransactionFormFrom(tx core.Transaction) TransactionForm {
	return TransactionForm{
		ID:       tx.ID,
		Title:    tx.Title,
		Amount:   tx.Amount.Input(),
		Type:     string(tx.Type),
		Category: tx.Category,
		Date:     tx.Date.String(),
	}
}

func ParseTransactionForm(p *RequestBodyParser) TransactionForm {
	return TransactionForm{
		Title:    p.Get("title"),
		Amount:   p.Get("amount"),
		Type:     p.Get("type"),
		Category: p.Get("category"),
		Date:     p.Get("date"),
	}
}

// Input converts the form leniently: unparseable amounts become zero and bad
// dates become unset, so Validate reports them in field order.
func (f TransactionForm) Input() core.TransactionInput {
	in := core.TransactionInput{
		Title:    f.Title,
		Type:     core.TransactionType(strings.ToLower(f.Type)),
		Category: f.Category,
	}
	if cents, err := core.ParseDecimalToCents(f.Amount); err == nil {
		in.Amount = core.Money{Cents: cents}
	}
	if d, err := core.ParseDate(f.Date); err == nil {
		in.Date = d
	}
	return in
}

// GoalForm is the goal form as typed.
type GoalForm struct {
	ID           string
	Title        string
	TargetAmount string
	SavedAmount  string
	Deadline     string
}

func GoalFormFrom(g core.Goal) GoalForm {
	return GoalForm{
		ID:           g.ID,
		Title:        g.Title,
		TargetAmount: g.TargetAmount.Input(),
		SavedAmount:  g.SavedAmount.Input(),
		Deadline:     g.Deadline.String(),
	}
}

func ParseGoalForm(p *RequestBodyParser) GoalForm {
	return GoalForm{
		Title:        p.Get("title"),
		TargetAmount: p.Get("targetAmount"),
		SavedAmount:  p.Get("savedAmount"),
		Deadline:     p.Get("deadline"),
	}
}

func (f GoalForm) Input() core.GoalInput {
	in := core.GoalInput{Title: f.Title}
	if cents, err := core.ParseDecimalToCents(f.TargetAmount); err == nil {
		in.TargetAmount = core.Money{Cents: cents}
	}
	if cents, err := core.ParseNonNegativeDecimalToCents(f.SavedAmount); err == nil {
		in.SavedAmount = core.Money{Cents: cents}
	} else {
		in.SavedAmount = core.Money{Cents: -1}
	}
	if d, err := core.ParseDate(f.Deadline); err == nil {
		in.Deadline = d
	}
	return in
}

// BudgetForm is the budget amount form for one month.
type BudgetForm struct {
	Month  string
	Amount string
}

func ParseBudgetForm(p *RequestBodyParser) BudgetForm {
	return BudgetForm{Month: p.Get("month"), Amount: p.Get("amount")}
}

func (f BudgetForm) Input() core.BudgetInput {
	in := core.BudgetInput{Month: f.Month}
	if cents, err := core.ParseDecimalToCents(f.Amount); err == nil {
		in.Amount = core.Money{Cents: cents}
	}
	return in
}

// IsHTMX reports whether r was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
