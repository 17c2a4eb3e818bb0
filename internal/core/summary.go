package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// UncategorizedLabel names expenses recorded without a category.
const UncategorizedLabel = "Uncategorized"

var hundred = decimal.NewFromInt(100)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name    string
	Amount  Money
	Percent float64 // share of the total, 0-100
}

// MonthAmount is the expense total for one calendar month.
type MonthAmount struct {
	Key    string // YYYY-MM
	Label  string // e.g. "Jan 24"
	Amount Money
}

// Totals holds income and expense sums over a set of transactions.
type Totals struct {
	Income  Money
	Expense Money
}

// Balance is income minus expense.
func (t Totals) Balance() Money {
	return Money{Cents: t.Income.Cents - t.Expense.Cents}
}

// Progress describes a filled bar. Percent is the true ratio and may exceed
// 100; Width is clamped to [0,100] for rendering.
type Progress struct {
	Percent  float64
	Width    float64
	Exceeded bool
}

// Sum adds up income and expense amounts.
func Sum(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			t.Income = t.Income.Add(tx.Amount)
		case Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	return t
}

// SortByDateDesc returns a copy ordered newest first. Ties keep input order.
func SortByDateDesc(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}

// FilterByType keeps transactions of the given type. "" or "all" keeps all.
func FilterByType(txs []Transaction, kind string) []Transaction {
	if kind == "" || kind == "all" {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if string(tx.Type) == kind {
			out = append(out, tx)
		}
	}
	return out
}

// Recent returns the n newest transactions.
func Recent(txs []Transaction, n int) []Transaction {
	sorted := SortByDateDesc(txs)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// MonthlyExpenses sums expenses per calendar month, oldest month first.
func MonthlyExpenses(txs []Transaction) []MonthAmount {
	byKey := map[string]*MonthAmount{}
	for _, tx := range txs {
		if tx.Type != Expense || tx.Date.IsZero() {
			continue
		}
		key := tx.Date.MonthKey()
		m, ok := byKey[key]
		if !ok {
			m = &MonthAmount{Key: key, Label: tx.Date.Format("Jan 06")}
			byKey[key] = m
		}
		m.Amount = m.Amount.Add(tx.Amount)
	}

	out := make([]MonthAmount, 0, len(byKey))
	for _, m := range byKey {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// CategoryExpenses sums expenses per category in first-seen order.
func CategoryExpenses(txs []Transaction) []CategoryAmount {
	var out []CategoryAmount
	index := map[string]int{}
	var total Money
	for _, tx := range txs {
		if tx.Type != Expense {
			continue
		}
		name := strings.TrimSpace(tx.Category)
		if name == "" {
			name = UncategorizedLabel
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, CategoryAmount{Name: name})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
		total = total.Add(tx.Amount)
	}
	for i := range out {
		out[i].Percent = percent(out[i].Amount, total)
	}
	return out
}

// BudgetProgress reports spent against the budget amount.
func BudgetProgress(b Budget) Progress {
	if b.Amount.Cents <= 0 {
		exceeded := b.Spent.Cents > 0
		p := Progress{Exceeded: exceeded}
		if exceeded {
			p.Width = 100
		}
		return p
	}
	pct := percent(b.Spent, b.Amount)
	return Progress{Percent: pct, Width: clamp(pct), Exceeded: pct > 100}
}

// GoalProgress reports the saved amount against the target.
func GoalProgress(g Goal) Progress {
	if g.TargetAmount.Cents <= 0 {
		return Progress{}
	}
	pct := percent(g.SavedAmount, g.TargetAmount)
	return Progress{Percent: pct, Width: clamp(pct), Exceeded: pct > 100}
}

// BarWidth scales part against the largest value in a chart, 0-100.
func BarWidth(part, top Money) float64 {
	if top.Cents <= 0 || part.Cents <= 0 {
		return 0
	}
	return clamp(percent(part, top))
}

// MaxAmount returns the largest month total.
func MaxAmount(months []MonthAmount) Money {
	var top Money
	for _, m := range months {
		if m.Amount.Cents > top.Cents {
			top = m.Amount
		}
	}
	return top
}

func percent(part, whole Money) float64 {
	if whole.Cents == 0 {
		return 0
	}
	return part.Decimal().Div(whole.Decimal()).Mul(hundred).InexactFloat64()
}

func clamp(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// FindTransaction returns the transaction with the given id.
func FindTransaction(txs []Transaction, id string) (Transaction, bool) {
	for _, tx := range txs {
		if tx.ID == id {
			return tx, true
		}
	}
	return Transaction{}, false
}

// FindGoal returns the goal with the given id.
func FindGoal(goals []Goal, id string) (Goal, bool) {
	for _, g := range goals {
		if g.ID == id {
			return g, true
		}
	}
	return Goal{}, false
}
