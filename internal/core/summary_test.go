package core

import (
	"math"
	"testing"
)

func tx(id string, kind TransactionType, cents int64, category string, d Date) Transaction {
	return Transaction{ID: id, Type: kind, Amount: Money{Cents: cents}, Category: category, Title: id, Date: d}
}

func sampleTransactions() []Transaction {
	return []Transaction{
		tx("rent", Expense, 150000, "Housing", NewDate(2024, 2, 1)),
		tx("salary", Income, 500000, "Work", NewDate(2024, 2, 28)),
		tx("food", Expense, 20000, "Food", NewDate(2024, 1, 15)),
		tx("misc", Expense, 5000, "", NewDate(2023, 12, 31)),
		tx("cafe", Expense, 5000, "Food", NewDate(2024, 2, 10)),
	}
}

func TestSum(t *testing.T) {
	totals := Sum(sampleTransactions())
	if totals.Income.Cents != 500000 {
		t.Errorf("income = %d", totals.Income.Cents)
	}
	if totals.Expense.Cents != 180000 {
		t.Errorf("expense = %d", totals.Expense.Cents)
	}
	if totals.Balance().Cents != 320000 {
		t.Errorf("balance = %d", totals.Balance().Cents)
	}
}

func TestSortByDateDescAndRecent(t *testing.T) {
	in := sampleTransactions()
	sorted := SortByDateDesc(in)
	want := []string{"salary", "cafe", "rent", "food", "misc"}
	for i, id := range want {
		if sorted[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, sorted[i].ID, id)
		}
	}
	if in[0].ID != "rent" {
		t.Error("SortByDateDesc must not reorder its input")
	}

	recent := Recent(in, 2)
	if len(recent) != 2 || recent[0].ID != "salary" || recent[1].ID != "cafe" {
		t.Errorf("Recent() = %+v", recent)
	}
	if len(Recent(in[:1], 5)) != 1 {
		t.Error("Recent() should not pad short lists")
	}
}

func TestFilterByType(t *testing.T) {
	all := sampleTransactions()
	if len(FilterByType(all, "all")) != 5 || len(FilterByType(all, "")) != 5 {
		t.Error("all filter should keep everything")
	}
	if got := FilterByType(all, "income"); len(got) != 1 || got[0].ID != "salary" {
		t.Errorf("income filter = %+v", got)
	}
	if got := FilterByType(all, "expense"); len(got) != 4 {
		t.Errorf("expense filter = %d items", len(got))
	}
}

func TestMonthlyExpenses(t *testing.T) {
	months := MonthlyExpenses(sampleTransactions())
	want := []struct {
		label string
		cents int64
	}{
		{"Dec 23", 5000},
		{"Jan 24", 20000},
		{"Feb 24", 155000},
	}
	if len(months) != len(want) {
		t.Fatalf("got %d months, want %d", len(months), len(want))
	}
	for i, w := range want {
		if months[i].Label != w.label || months[i].Amount.Cents != w.cents {
			t.Errorf("month %d = %s %d, want %s %d", i, months[i].Label, months[i].Amount.Cents, w.label, w.cents)
		}
	}
	if MaxAmount(months).Cents != 155000 {
		t.Errorf("MaxAmount = %d", MaxAmount(months).Cents)
	}
}

func TestCategoryExpenses(t *testing.T) {
	cats := CategoryExpenses(sampleTransactions())
	want := []struct {
		name  string
		cents int64
	}{
		{"Housing", 150000},
		{"Food", 25000},
		{UncategorizedLabel, 5000},
	}
	if len(cats) != len(want) {
		t.Fatalf("got %d categories, want %d", len(cats), len(want))
	}
	var share float64
	for i, w := range want {
		if cats[i].Name != w.name || cats[i].Amount.Cents != w.cents {
			t.Errorf("category %d = %s %d, want %s %d", i, cats[i].Name, cats[i].Amount.Cents, w.name, w.cents)
		}
		share += cats[i].Percent
	}
	if math.Abs(share-100) > 0.001 {
		t.Errorf("shares sum to %v, want 100", share)
	}
	if len(CategoryExpenses(nil)) != 0 {
		t.Error("no transactions should yield no categories")
	}
}

func TestBudgetProgress(t *testing.T) {
	tests := []struct {
		name     string
		budget   Budget
		percent  float64
		width    float64
		exceeded bool
	}{
		{"half spent", Budget{Amount: Money{Cents: 10000}, Spent: Money{Cents: 5000}}, 50, 50, false},
		{"exactly spent", Budget{Amount: Money{Cents: 10000}, Spent: Money{Cents: 10000}}, 100, 100, false},
		{"over budget", Budget{Amount: Money{Cents: 10000}, Spent: Money{Cents: 15000}}, 150, 100, true},
		{"nothing spent", Budget{Amount: Money{Cents: 10000}}, 0, 0, false},
		{"zero budget with spending", Budget{Spent: Money{Cents: 1}}, 0, 100, true},
		{"zero budget no spending", Budget{}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BudgetProgress(tt.budget)
			if math.Abs(p.Percent-tt.percent) > 1e-9 {
				t.Errorf("Percent = %v, want %v", p.Percent, tt.percent)
			}
			if p.Width != tt.width {
				t.Errorf("Width = %v, want %v", p.Width, tt.width)
			}
			if p.Width > 100 {
				t.Errorf("Width must never exceed 100, got %v", p.Width)
			}
			if p.Exceeded != tt.exceeded {
				t.Errorf("Exceeded = %v, want %v", p.Exceeded, tt.exceeded)
			}
		})
	}
}

func TestGoalProgress(t *testing.T) {
	p := GoalProgress(Goal{TargetAmount: Money{Cents: 30000}, SavedAmount: Money{Cents: 10000}})
	if math.Abs(p.Percent-33.3333) > 0.001 || p.Width != p.Percent {
		t.Errorf("GoalProgress = %+v", p)
	}
	if got := GoalProgress(Goal{}); got.Percent != 0 || got.Width != 0 {
		t.Errorf("zero target should give empty progress, got %+v", got)
	}
}

func TestBarWidth(t *testing.T) {
	if w := BarWidth(Money{Cents: 50}, Money{Cents: 200}); w != 25 {
		t.Errorf("BarWidth = %v, want 25", w)
	}
	if w := BarWidth(Money{Cents: 50}, Money{}); w != 0 {
		t.Errorf("BarWidth with zero max = %v", w)
	}
}

func TestFindTransactionAndGoal(t *testing.T) {
	if got, ok := FindTransaction(sampleTransactions(), "food"); !ok || got.Amount.Cents != 20000 {
		t.Errorf("FindTransaction = %+v, %v", got, ok)
	}
	if _, ok := FindTransaction(sampleTransactions(), "nope"); ok {
		t.Error("expected miss")
	}
	goals := []Goal{{ID: "g1", Title: "Bike"}}
	if got, ok := FindGoal(goals, "g1"); !ok || got.Title != "Bike" {
		t.Errorf("FindGoal = %+v, %v", got, ok)
	}
}
