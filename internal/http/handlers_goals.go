package http

import (
	"net/http"

	"smartfin/internal/core"
	"smartfin/internal/log"
)

type goalCard struct {
	Goal      core.Goal
	Progress  core.Progress
	Completed bool
}

type goalFormView struct {
	Form  GoalForm
	Error string
	Open  bool
}

type goalsView struct {
	Goals    []goalCard
	FormView goalFormView
}

func goalCards(goals []core.Goal) []goalCard {
	cards := make([]goalCard, 0, len(goals))
	for _, g := range goals {
		cards = append(cards, goalCard{Goal: g, Progress: core.GoalProgress(g), Completed: g.Completed()})
	}
	return cards
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := s.page(r, "Goals", "goals", nil)

	goals, err := s.ledger.Goals(r.Context(), actor(r))
	if err != nil {
		msg, handled := s.failure(w, r, err, log.OpList, "Failed to fetch goals.")
		if handled {
			return
		}
		p.Error = msg
	}

	view := goalsView{Goals: goalCards(goals), FormView: goalFormView{Open: q.Get("new") == "1"}}
	if id := q.Get("edit"); id != "" {
		if g, ok := core.FindGoal(goals, id); ok {
			view.FormView = goalFormView{Form: GoalFormFrom(g), Open: true}
		}
	}
	p.Data = view
	s.render(w, r, http.StatusOK, "goals.html", p)
}

// handleSaveGoal creates a goal, or updates the one named in the path.
func (s *Server) handleSaveGoal(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	form := ParseGoalForm(body)
	form.ID = r.PathValue("id")

	var (
		saved core.Goal
		err   error
	)
	if form.ID == "" {
		saved, err = s.ledger.CreateGoal(r.Context(), actor(r), form.Input())
	} else {
		saved, err = s.ledger.UpdateGoal(r.Context(), actor(r), form.ID, form.Input())
	}

	if err != nil {
		op := log.OpCreate
		if form.ID != "" {
			op = log.OpUpdate
		}
		msg, handled := s.failure(w, r, err, op, "Failed to save goal.")
		if handled {
			return
		}
		s.rerenderGoalForm(w, r, formStatus(err), goalFormView{Form: form, Error: msg, Open: true})
		return
	}

	s.appMetrics.incMutations()
	id := saved.ID
	if id == "" {
		id = form.ID
	}
	message := "Goal saved."
	if form.ID != "" {
		message = "Goal updated."
	}
	s.redirectAfterPost(w, r, "/goals", func(b *HTMXResponseBuilder) *HTMXResponseBuilder {
		return b.TriggerRecordSaved("goal", id)
	}, message)
}

func (s *Server) rerenderGoalForm(w http.ResponseWriter, r *http.Request, status int, fv goalFormView) {
	if IsHTMX(r) {
		s.render(w, r, status, "goal_form", fv)
		return
	}

	p := s.page(r, "Goals", "goals", nil)
	goals, err := s.ledger.Goals(r.Context(), actor(r))
	if err != nil {
		msg, handled := s.failure(w, r, err, log.OpList, "Failed to fetch goals.")
		if handled {
			return
		}
		p.Error = msg
	}
	p.Data = goalsView{Goals: goalCards(goals), FormView: fv}
	s.render(w, r, status, "goals.html", p)
}
