package http

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/ui"
)

type newBillPage struct {
	User         core.User
	ExpenseTypes []string
	DefaultPct   int
	Today        string
	Draft        ui.UploadState
	Message      string
}

// proofInputFragment re-renders the file input after an upload attempt.
type proofInputFragment struct {
	Draft   ui.UploadState
	Message string
}

func (s *Server) handleNewBillForm(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		http.Redirect(w, r, ui.RouteBills, http.StatusSeeOther)
		return
	}

	var draft ui.UploadState
	if c, err := r.Cookie(DraftCookie); err == nil {
		draft, _ = s.drafts.Get(c.Value)
	}

	s.render(w, r, http.StatusOK, "new_bill.html", newBillPage{
		User:         user,
		ExpenseTypes: core.ExpenseTypes,
		DefaultPct:   core.DefaultPct,
		Today:        time.Now().Format(core.DateLayout),
		Draft:        draft,
	})
}

// handleUploadProof feeds the selected file to the NewBill container's
// change handler. The resulting upload state waits in the draft cache for
// the form submission.
func (s *Server) handleUploadProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.requestLogger(ctx)

	user, ok := currentUser(w, r)
	if !ok {
		UnauthorizedError("Veuillez vous connecter").Write(w)
		return
	}

	file, err := readProofFile(w, r, s.maxProofBytes)
	switch {
	case errors.Is(err, errProofTooLarge):
		ErrorResponse(http.StatusRequestEntityTooLarge, "Le justificatif est trop volumineux").Write(w)
		return
	case errors.Is(err, errMissingProof):
		BadRequestError("Aucun justificatif sélectionné").Write(w)
		return
	case err != nil:
		logger.WarnContext(ctx, "Reading proof upload failed", log.FieldError, err)
		BadRequestError("Format de requête invalide").Write(w)
		return
	}

	input := ui.TestID("input", "file", "type", "file")
	input.SetFiles(file)

	var alerted string
	nb := ui.NewBillContainer(ui.NewBillOptions{
		Document: ui.NewPage(input),
		Store:    s.store,
		User:     user,
		Alert:    func(msg string) { alerted = msg },
		Logger:   logger,
	})

	err = nb.HandleChangeFile(ctx, &ui.Event{Type: ui.EventChange, Target: input})
	if alerted != "" {
		atomic.AddInt64(&s.appMetrics.proofsRejected, 1)
		body := s.fragment(ctx, "proof_input", proofInputFragment{Message: alerted})
		NewHTMXResponse().
			Status(http.StatusUnprocessableEntity).
			TriggerProofRejected().
			TriggerErrorNotification(alerted).
			BodyHTML(body).
			Write(w)
		return
	}
	if err != nil {
		// Already logged by the container.
		InternalServerError("Échec de l'envoi du justificatif").Write(w)
		return
	}

	state := nb.State()
	s.drafts.Set(s.draftKey(w, r), state)
	atomic.AddInt64(&s.appMetrics.proofsUploaded, 1)

	NewHTMXResponse().
		TriggerProofUploaded(state.FileName).
		BodyHTML(s.fragment(ctx, "proof_input", proofInputFragment{Draft: state})).
		Write(w)
}

// handleSubmitBill dispatches the submitted form to the NewBill container.
// The bill update runs in the background; the response only reflects the
// container's navigation.
func (s *Server) handleSubmitBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := currentUser(w, r)
	if !ok {
		UnauthorizedError("Veuillez vous connecter").Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	page := newBillDocument(r.Form)
	var route string
	nb := ui.NewBillContainer(ui.NewBillOptions{
		Document: page,
		Navigate: func(to string) { route = to },
		Store:    s.store,
		User:     user,
		Logger:   s.requestLogger(ctx),
	})

	if c, err := r.Cookie(DraftCookie); err == nil {
		if state, found := s.drafts.Take(c.Value); found {
			nb.Resume(state)
		}
	}
	clearDraftCookie(w)

	form := page.Query(ui.SelectorNewBillForm)
	form.Dispatch(ctx, &ui.Event{Type: ui.EventSubmit})
	s.track(nb)
	atomic.AddInt64(&s.appMetrics.billsSubmitted, 1)

	if route == "" {
		route = ui.RouteBills
	}
	if isHTMX(r) {
		NewHTMXResponse().
			TriggerBillSubmitted(nb.State().BillID).
			Redirect(route).
			Write(w)
		return
	}
	http.Redirect(w, r, route, http.StatusSeeOther)
}
