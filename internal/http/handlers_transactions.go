package http

import (
	"net/http"
	"strings"

	"smartfin/internal/core"
	"smartfin/internal/log"
)

var transactionFilters = []string{"all", string(core.Income), string(core.Expense)}

type transactionFormView struct {
	Form  TransactionForm
	Error string
	Open  bool
}

type transactionsView struct {
	Filter       string
	Filters      []string
	Transactions []core.Transaction
	FormView     transactionFormView
}

func parseFilter(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, f := range transactionFilters {
		if v == f {
			return v
		}
	}
	return "all"
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := transactionsView{
		Filter:   parseFilter(q.Get("type")),
		Filters:  transactionFilters,
		FormView: transactionFormView{Form: NewTransactionForm(), Open: q.Get("new") == "1"},
	}
	p := s.page(r, "Transactions", "transactions", nil)

	txs, err := s.ledger.Transactions(r.Context(), actor(r))
	if err != nil {
		msg, handled := s.failure(w, r, err, log.OpList, "Failed to fetch transactions.")
		if handled {
			return
		}
		p.Error = msg
	}

	if id := q.Get("edit"); id != "" {
		if tx, ok := core.FindTransaction(txs, id); ok {
			view.FormView = transactionFormView{Form: TransactionFormFrom(tx), Open: true}
		}
	}

	view.Transactions = core.FilterByType(core.SortByDateDesc(txs), view.Filter)
	p.Data = view
	s.render(w, r, http.StatusOK, "transactions.html", p)
}

// handleSaveTransaction creates a transaction, or updates the one named in
// the path.
func (s *Server) handleSaveTransaction(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	form := ParseTransactionForm(body)
	form.ID = r.PathValue("id")

	var (
		saved core.Transaction
		err   error
	)
	if form.ID == "" {
		saved, err = s.ledger.CreateTransaction(r.Context(), actor(r), form.Input())
	} else {
		saved, err = s.ledger.UpdateTransaction(r.Context(), actor(r), form.ID, form.Input())
	}

	if err != nil {
		op, fallback := log.OpCreate, "Failed to add transaction."
		if form.ID != "" {
			op, fallback = log.OpUpdate, "Failed to update transaction."
		}
		msg, handled := s.failure(w, r, err, op, fallback)
		if handled {
			return
		}
		s.rerenderTransactionForm(w, r, formStatus(err), transactionFormView{Form: form, Error: msg, Open: true})
		return
	}

	s.appMetrics.incMutations()
	id := saved.ID
	if id == "" {
		id = form.ID
	}
	message := "Transaction added."
	if form.ID != "" {
		message = "Transaction updated."
	}
	s.redirectAfterPost(w, r, "/transactions", func(b *HTMXResponseBuilder) *HTMXResponseBuilder {
		return b.TriggerRecordSaved("transaction", id)
	}, message)
}

// rerenderTransactionForm answers htmx with the form fragment alone, and
// plain posts with the whole page.
func (s *Server) rerenderTransactionForm(w http.ResponseWriter, r *http.Request, status int, fv transactionFormView) {
	if IsHTMX(r) {
		s.render(w, r, status, "transaction_form", fv)
		return
	}

	p := s.page(r, "Transactions", "transactions", nil)
	txs, err := s.ledger.Transactions(r.Context(), actor(r))
	if err != nil {
		msg, handled := s.failure(w, r, err, log.OpList, "Failed to fetch transactions.")
		if handled {
			return
		}
		p.Error = msg
	}
	p.Data = transactionsView{
		Filter:       "all",
		Filters:      transactionFilters,
		Transactions: core.SortByDateDesc(txs),
		FormView:     fv,
	}
	s.render(w, r, status, "transactions.html", p)
}
