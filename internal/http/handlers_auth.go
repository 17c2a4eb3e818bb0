package http

import (
	"net/http"

	"smartfin/internal/api"
	"smartfin/internal/core"
	"smartfin/internal/log"
)

type loginView struct {
	Email string
}

type registerView struct {
	Username string
	Email    string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	p := s.page(r, "Login", "login", loginView{})
	if r.URL.Query().Get("registered") == "1" {
		p.Notice = "Registration successful! Please log in."
	}
	s.render(w, r, http.StatusOK, "login.html", p)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	creds := core.Credentials{
		Email:    body.Get("email"),
		Password: body.GetRaw("password"),
	}

	res, err := s.auth.Login(r.Context(), creds)
	if err != nil {
		p := s.page(r, "Login", "login", loginView{Email: creds.Email})
		p.Error = core.Message(err)
		if p.Error == "" {
			s.errors.LogError(r.Context(), "Login failed", err, log.ComponentAPI, log.OpLogin, nil)
			p.Error = api.Message(err, "Failed to log in. Please check your credentials.")
		}
		s.render(w, r, formStatus(err), "login.html", p)
		return
	}

	if _, err := s.sessions.Login(w, r, res.Token, res.User); err != nil {
		s.errors.LogError(r.Context(), "Failed to persist session", err, log.ComponentSession, log.OpLogin,
			log.NewFields().WithUser(res.User.ID))
		p := s.page(r, "Login", "login", loginView{Email: creds.Email})
		p.Error = "Could not start your session. Please try again."
		s.render(w, r, http.StatusInternalServerError, "login.html", p)
		return
	}

	s.appMetrics.incLogins()
	s.redirectAfterPost(w, r, "/dashboard", nil, "Welcome back!")
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", s.page(r, "Register", "register", registerView{}))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	reg := core.Registration{
		Username: body.Get("username"),
		Email:    body.Get("email"),
		Password: body.GetRaw("password"),
	}

	if _, err := s.auth.Register(r.Context(), reg); err != nil {
		p := s.page(r, "Register", "register", registerView{Username: reg.Username, Email: reg.Email})
		p.Error = core.Message(err)
		if p.Error == "" {
			s.errors.LogError(r.Context(), "Registration failed", err, log.ComponentAPI, log.OpCreate, nil)
			p.Error = api.Message(err, "Failed to register. Please try again.")
		}
		s.render(w, r, formStatus(err), "register.html", p)
		return
	}

	s.logger.InfoContext(r.Context(), "Account registered", log.FieldOperation, log.OpCreate)
	s.redirectAfterPost(w, r, "/login?registered=1", nil, "Registration successful!")
}

// handleLogout clears the session and returns to the landing page.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(w, r); err != nil {
		s.errors.LogError(r.Context(), "Failed to clear session", err, log.ComponentSession, log.OpLogout, nil)
	}
	if IsHTMX(r) {
		NewHTMXResponse().Redirect("/").Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
