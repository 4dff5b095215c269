package http

import (
	"net/http"
	"net/mail"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/session"
	"billed/internal/ui"
)

const defaultUserType = "Employee"

// handleSession signs an employee in by storing the user record in the
// session cookie. There is no password check: it selects whose bills the
// form files.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	if _, err := mail.ParseAddress(email); err != nil {
		UnprocessableEntityError("Adresse e-mail invalide").Write(w)
		return
	}
	userType := sanitizeInput(r.Form.Get("type"))
	if userType == "" {
		userType = defaultUserType
	}

	user := core.User{Type: userType, Email: email}
	if err := session.SetUser(session.NewCookieStorage(w, r, sessionMaxAge), user); err != nil {
		s.requestLogger(r.Context()).ErrorContext(r.Context(), "Storing session user failed",
			log.FieldError, err)
		InternalServerError("Connexion impossible").Write(w)
		return
	}

	s.requestLogger(r.Context()).InfoContext(r.Context(), "User signed in",
		log.FieldEmail, email)

	if isHTMX(r) {
		NewHTMXResponse().Redirect(ui.RouteBills).Write(w)
		return
	}
	http.Redirect(w, r, ui.RouteBills, http.StatusSeeOther)
}
