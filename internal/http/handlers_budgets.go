package http

import (
	"net/http"
	"net/url"

	"smartfin/internal/core"
	"smartfin/internal/log"
)

type budgetFormView struct {
	Form      BudgetForm
	Error     string
	HasBudget bool
}

type budgetsView struct {
	Month    string
	Budget   *core.Budget
	Progress core.Progress
	FormView budgetFormView
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	month, valid := ParseMonthParam(r.URL.Query())
	if !valid {
		s.logger.WarnContext(r.Context(), "Invalid month parameter",
			log.FieldMonth, r.URL.Query().Get("month"),
			"corrected_to", month)
	}

	p := s.page(r, "Budgets", "budgets", nil)
	view, msg, handled := s.loadBudget(w, r, month)
	if handled {
		return
	}
	p.Error = msg
	p.Data = view
	s.render(w, r, http.StatusOK, "budgets.html", p)
}

// loadBudget fetches the budget for month. A month without a budget is not an
// error.
func (s *Server) loadBudget(w http.ResponseWriter, r *http.Request, month string) (budgetsView, string, bool) {
	view := budgetsView{Month: month, FormView: budgetFormView{Form: BudgetForm{Month: month}}}

	b, err := s.ledger.Budget(r.Context(), actor(r), month)
	if err != nil {
		msg, handled := s.failure(w, r, err, log.OpRead, "Failed to fetch budget.")
		return view, msg, handled
	}
	if b != nil {
		view.Budget = b
		view.Progress = core.BudgetProgress(*b)
		view.FormView.HasBudget = true
		view.FormView.Form.Amount = b.Amount.Input()
	}
	return view, "", false
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	form := ParseBudgetForm(body)
	if form.Month == "" {
		form.Month = core.CurrentMonth()
	}

	if _, err := s.ledger.SetBudget(r.Context(), actor(r), form.Input()); err != nil {
		msg, handled := s.failure(w, r, err, log.OpUpdate, "Failed to set budget.")
		if handled {
			return
		}
		status := formStatus(err)
		if IsHTMX(r) {
			s.render(w, r, status, "budget_form", budgetFormView{Form: form, Error: msg, HasBudget: body.Get("existing") == "1"})
			return
		}

		month := form.Month
		if core.ValidateMonth(month) != nil {
			month = core.CurrentMonth()
		}
		p := s.page(r, "Budgets", "budgets", nil)
		view, loadMsg, handled := s.loadBudget(w, r, month)
		if handled {
			return
		}
		view.FormView.Form = form
		view.FormView.Error = msg
		p.Error = loadMsg
		p.Data = view
		s.render(w, r, status, "budgets.html", p)
		return
	}

	s.appMetrics.incMutations()
	s.redirectAfterPost(w, r, "/budgets?month="+url.QueryEscape(form.Month), func(b *HTMXResponseBuilder) *HTMXResponseBuilder {
		return b.TriggerBudgetSet(form.Month)
	}, "Budget saved for "+monthLabel(form.Month)+".")
}
