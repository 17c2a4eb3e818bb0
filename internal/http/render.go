package http

import (
	"bytes"
	"errors"
	"net/http"

	"smartfin/internal/api"
	"smartfin/internal/core"
	"smartfin/internal/log"
	"smartfin/internal/services"
	"smartfin/internal/session"
)

// pageData is what every page template receives. Data holds the
// page-specific view model.
type pageData struct {
	Title  string
	Active string
	User   *core.User
	Error  string
	Notice string
	Data   any
}

func (s *Server) page(r *http.Request, title, active string, data any) pageData {
	p := pageData{Title: title, Active: active, Data: data}
	if sess, ok := session.FromContext(r.Context()); ok {
		u := sess.User
		p.User = &u
	}
	return p
}

// render executes the named template into a buffer first so a template
// failure never leaves a half-written page. data is a pageData for full
// pages or a fragment view for htmx partials.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate,
			"error_type", log.ErrorTypeConfiguration)
		InternalServerError("templates not loaded").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.errors.LogError(r.Context(), "Template execution failed", err, log.ComponentTemplate, log.OpRender,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
		InternalServerError("Error rendering page").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// actor returns the API identity of the signed-in user. Only called behind
// session.Require.
func actor(r *http.Request) services.Actor {
	sess, _ := session.FromContext(r.Context())
	if sess == nil {
		return services.Actor{}
	}
	return services.Actor{Token: sess.Token, UserID: sess.User.ID}
}

// failure turns an error from a service call into the inline message for the
// page. It returns handled=true when the response was already written: a 401
// ends the session and sends the user to the login page.
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error, op, fallback string) (msg string, handled bool) {
	if m := core.Message(err); m != "" {
		return m, false
	}

	s.appMetrics.incAPIErrors()
	if api.IsUnauthorized(err) {
		s.logger.WarnContext(r.Context(), "API rejected credential, ending session",
			log.FieldOperation, op,
			log.FieldPath, r.URL.Path,
			"error_type", log.ErrorTypeAuth)
		if lerr := s.sessions.Logout(w, r); lerr != nil {
			s.errors.LogError(r.Context(), "Failed to clear session", lerr, log.ComponentSession, log.OpLogout, nil)
		}
		session.RedirectToLogin(w, r)
		return "", true
	}

	s.errors.LogError(r.Context(), "SmartFin API call failed", err, log.ComponentAPI, op,
		log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
	return api.Message(err, fallback), false
}

// formStatus is the status for a form re-render after err: 422 when the
// input was refused, locally or by the API, 502 when the API failed.
func formStatus(err error) int {
	if core.Message(err) != "" {
		return http.StatusUnprocessableEntity
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

// redirectAfterPost finishes a successful mutation: a 303 for plain forms,
// HX-Redirect plus a notification for htmx.
func (s *Server) redirectAfterPost(w http.ResponseWriter, r *http.Request, target string, notify func(*HTMXResponseBuilder) *HTMXResponseBuilder, message string) {
	if IsHTMX(r) {
		b := NewHTMXResponse().Redirect(target).TriggerFormReset().TriggerSuccessNotification(message)
		if notify != nil {
			b = notify(b)
		}
		b.Write(w)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
