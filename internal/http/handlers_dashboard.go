package http

import (
	"net/http"

	"smartfin/internal/core"
	"smartfin/internal/log"
	"smartfin/internal/session"
)

const recentTransactions = 5

type dashboardView struct {
	Username     string
	Totals       core.Totals
	Balance      core.Money
	Forecast     core.Money
	IncomeWidth  float64
	ExpenseWidth float64
	Recent       []core.Transaction
}

type monthBar struct {
	Label  string
	Amount core.Money
	Width  float64
}

type analyticsView struct {
	Forecast   core.Money
	Months     []monthBar
	Categories []core.CategoryAmount
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	p := s.page(r, "Dashboard", "dashboard", nil)
	view := dashboardView{Username: sess.User.Username}

	ov, err := s.ledger.Overview(r.Context(), actor(r))
	if err != nil {
		msg, handled := s.failure(w, r, err, log.OpRead, "Failed to fetch dashboard data.")
		if handled {
			return
		}
		p.Error = msg
	} else {
		view.Totals = core.Sum(ov.Transactions)
		view.Balance = view.Totals.Balance()
		view.Forecast = ov.Prediction.NextMonthPrediction

		top := view.Totals.Income
		if view.Totals.Expense.Cents > top.Cents {
			top = view.Totals.Expense
		}
		view.IncomeWidth = core.BarWidth(view.Totals.Income, top)
		view.ExpenseWidth = core.BarWidth(view.Totals.Expense, top)
		view.Recent = core.Recent(ov.Transactions, recentTransactions)
	}

	p.Data = view
	s.render(w, r, http.StatusOK, "dashboard.html", p)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	p := s.page(r, "Analytics", "analytics", nil)
	var view analyticsView

	ov, err := s.ledger.Overview(r.Context(), actor(r))
	if err != nil {
		msg, handled := s.failure(w, r, err, log.OpRead, "Failed to fetch analytics data.")
		if handled {
			return
		}
		p.Error = msg
	} else {
		view.Forecast = ov.Prediction.NextMonthPrediction
		months := core.MonthlyExpenses(ov.Transactions)
		top := core.MaxAmount(months)
		for _, m := range months {
			view.Months = append(view.Months, monthBar{Label: m.Label, Amount: m.Amount, Width: core.BarWidth(m.Amount, top)})
		}
		view.Categories = core.CategoryExpenses(ov.Transactions)
	}

	p.Data = view
	s.render(w, r, http.StatusOK, "analytics.html", p)
}
