package http

import (
	"bytes"
	"context"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/session"
)

// DraftCookie carries the key of the upload draft waiting for submission.
const DraftCookie = "billed_draft"

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// currentUser reads the signed-in employee from the session cookie.
func currentUser(w http.ResponseWriter, r *http.Request) (core.User, bool) {
	u, err := session.CurrentUser(session.NewCookieStorage(w, r, sessionMaxAge))
	if err != nil {
		return core.User{}, false
	}
	return u, true
}

// draftKey returns the draft cookie value, issuing a new one when absent.
func (s *Server) draftKey(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(DraftCookie); err == nil && c.Value != "" {
		return c.Value
	}
	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     DraftCookie,
		Value:    key,
		Path:     "/",
		MaxAge:   int(s.draftTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

func clearDraftCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     DraftCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// render executes a template into a buffer first so a failing template
// never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldOperation, log.OpRender)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		atomic.AddInt64(&s.appMetrics.renderFailures, 1)
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// requestLogger returns the request-scoped logger placed by the trace
// middleware, falling back to the server logger.
func (s *Server) requestLogger(ctx context.Context) *log.Logger {
	if l := log.FromContext(ctx); l.Component() != "unknown" {
		return l
	}
	return s.logger
}

// fragment renders a named template to a string, empty on failure.
func (s *Server) fragment(ctx context.Context, name string, data any) string {
	if s.templates == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		atomic.AddInt64(&s.appMetrics.renderFailures, 1)
		s.requestLogger(ctx).ErrorContext(ctx, "Fragment execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		return ""
	}
	return buf.String()
}
