package http

import (
	"errors"
	"html/template"
	"io"
	"net/http"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/proofs"
	"billed/internal/ui"
)

type billsPage struct {
	User  core.User
	Bills []core.Bill
	Error string
}

type proofModalPage struct {
	Width   int
	Content template.HTML
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, ui.RouteBills, http.StatusSeeOther)
}

// handleBills renders the employee's bills, most recent first.
func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := currentUser(w, r)

	bills := ui.NewBills(ui.BillsOptions{
		Store:  s.store,
		Logger: s.requestLogger(ctx),
	})

	list, err := bills.GetBills(ctx)
	if err != nil {
		s.requestLogger(ctx).ErrorContext(ctx, "Listing bills failed",
			log.FieldOperation, log.OpList,
			log.FieldError, err)
		s.render(w, r, http.StatusInternalServerError, "bills.html", billsPage{
			User:  user,
			Error: "Impossible de charger les notes de frais.",
		})
		return
	}

	s.render(w, r, http.StatusOK, "bills.html", billsPage{User: user, Bills: list})
}

// handleProofModal clicks a view-proof icon carrying the requested URL and
// renders whatever the Bills container put in the modal.
func (s *Server) handleProofModal(w http.ResponseWriter, r *http.Request) {
	proofURL, err := parseProofURL(r.URL.Query().Get("url"))
	if err != nil {
		BadRequestError("Justificatif invalide").Write(w)
		return
	}

	icon := ui.TestID("div", "icon-eye", ui.AttrBillURL, proofURL)
	modal := ui.NewHTMLModal(parseModalWidth(r.URL.Query()))
	ui.NewBills(ui.BillsOptions{
		Document: ui.NewPage(icon),
		Modal:    modal,
		Logger:   s.requestLogger(r.Context()),
	})
	icon.Click(r.Context())

	if !modal.Shown() {
		InternalServerError("Impossible d'afficher le justificatif").Write(w)
		return
	}

	// ProofImageHTML escapes the URL.
	s.render(w, r, http.StatusOK, "proof_modal.html", proofModalPage{
		Width:   modal.Width(),
		Content: template.HTML(modal.Content()),
	})
}

// handleProofFile streams a stored proof back to the browser.
func (s *Server) handleProofFile(w http.ResponseWriter, r *http.Request) {
	if s.proofs == nil {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	key := r.PathValue("key")

	rc, contentType, err := s.proofs.Proof(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, proofs.ErrNotFound):
			http.NotFound(w, r)
		case errors.Is(err, proofs.ErrInvalidKey):
			http.Error(w, "invalid proof key", http.StatusBadRequest)
		default:
			s.requestLogger(ctx).ErrorContext(ctx, "Opening proof failed",
				"key", key,
				log.FieldError, err)
			http.Error(w, "proof unavailable", http.StatusInternalServerError)
		}
		return
	}
	defer rc.Close()

	if contentType == "" {
		contentType = proofs.ContentType(key)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}
