package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/store"
)

// ErrNoStore is returned by upload when the container has no store.
var ErrNoStore = errors.New("no store configured")

// UploadState is what a completed proof upload leaves behind for submission.
type UploadState struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	BillID   string `json:"billId"`
}

// Uploaded reports whether a proof upload completed.
func (s UploadState) Uploaded() bool {
	return s.BillID != ""
}

// NewBillOptions configures the NewBill container.
type NewBillOptions struct {
	Document Document
	Navigate Navigator
	Store    store.BillsResource
	User     core.User
	Alert    Alerter
	Logger   *log.Logger
}

// NewBill drives the new bill form.
type NewBill struct {
	document Document
	navigate Navigator
	store    store.BillsResource
	user     core.User
	alert    Alerter
	logger   *log.Logger

	mu    sync.Mutex
	state UploadState

	inflight sync.WaitGroup
}

// NewBillContainer binds the file input change and the form submit events.
func NewBillContainer(opts NewBillOptions) *NewBill {
	nb := &NewBill{
		document: opts.Document,
		navigate: opts.Navigate,
		store:    opts.Store,
		user:     opts.User,
		alert:    opts.Alert,
		logger:   componentLogger(opts.Logger, log.ComponentUI),
	}
	if nb.document == nil {
		return nb
	}
	if input := nb.document.QueryElement(SelectorFileInput); input != nil {
		input.AddEventListener(EventChange, func(ctx context.Context, ev *Event) {
			_ = nb.HandleChangeFile(ctx, ev)
		})
	}
	if form := nb.document.QueryElement(SelectorNewBillForm); form != nil {
		form.AddEventListener(EventSubmit, nb.HandleSubmit)
	}
	return nb
}

// State returns the current upload state.
func (nb *NewBill) State() UploadState {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	return nb.state
}

// Resume restores an upload state carried over from an earlier instance.
func (nb *NewBill) Resume(state UploadState) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.state = state
}

// HandleChangeFile validates the selected proof and uploads it. A rejected
// file alerts the user and clears the input. Upload failures are logged and
// returned; the state is left untouched.
func (nb *NewBill) HandleChangeFile(ctx context.Context, ev *Event) error {
	input := ev.Target
	if input == nil && nb.document != nil {
		input = nb.document.QueryElement(SelectorFileInput)
	}
	if input == nil {
		return nil
	}
	files := input.Files()
	if len(files) == 0 {
		return nil
	}
	file := files[0]

	if err := core.ValidateProofName(file.Name); err != nil {
		if nb.alert != nil {
			nb.alert(core.InvalidProofMessage)
		}
		input.SetValue("")
		return err
	}
	if nb.store == nil {
		return ErrNoStore
	}

	fileName := core.ProofFileName(file.Name)
	res, err := nb.store.Create(ctx, file, store.CreateMeta{Email: nb.user.Email})
	if err != nil {
		nb.logger.ErrorContext(ctx, "Proof upload failed",
			log.FieldOperation, log.OpUpload,
			log.FieldFileName, fileName,
			log.FieldError, err.Error())
		return fmt.Errorf("upload proof: %w", err)
	}

	nb.mu.Lock()
	nb.state = UploadState{
		FileURL:  res.FileURL,
		FileName: fileName,
		BillID:   res.Key,
	}
	nb.mu.Unlock()

	nb.logger.DebugContext(ctx, "Proof uploaded",
		log.FieldBillID, res.Key,
		log.FieldFileName, fileName)
	return nil
}

// HandleSubmit assembles the bill from the form, starts UpdateBill and
// navigates to the bills list without waiting for the update to settle.
func (nb *NewBill) HandleSubmit(ctx context.Context, ev *Event) {
	if ev != nil {
		ev.PreventDefault()
	}
	bill := nb.billFromForm()

	nb.inflight.Add(1)
	go func() {
		defer nb.inflight.Done()
		nb.UpdateBill(context.WithoutCancel(ctx), bill)
	}()

	if nb.navigate != nil {
		nb.navigate(RouteBills)
	}
}

func (nb *NewBill) billFromForm() core.Bill {
	state := nb.State()
	return core.Bill{
		Email:      nb.user.Email,
		Type:       nb.field(SelectorExpenseType),
		Name:       nb.field(SelectorExpenseName),
		Amount:     core.ParseAmount(nb.field(SelectorAmount)),
		Date:       nb.field(SelectorDate),
		VAT:        nb.field(SelectorVAT),
		Pct:        core.ParsePct(nb.field(SelectorPct)),
		Commentary: nb.field(SelectorCommentary),
		FileURL:    state.FileURL,
		FileName:   state.FileName,
		Status:     core.StatusPending,
	}
}

func (nb *NewBill) field(selector string) string {
	if nb.document == nil {
		return ""
	}
	el := nb.document.QueryElement(selector)
	if el == nil {
		return ""
	}
	return el.Value()
}

// UpdateBill persists bill under the uploaded bill id. Without a store it
// does nothing. Failures are logged and not retried.
func (nb *NewBill) UpdateBill(ctx context.Context, bill core.Bill) {
	if nb.store == nil {
		return
	}
	data, err := json.Marshal(bill)
	if err != nil {
		nb.logger.ErrorContext(ctx, "Encoding bill failed", log.FieldError, err.Error())
		return
	}
	billID := nb.State().BillID
	if err := nb.store.Update(ctx, billID, data); err != nil {
		nb.logger.ErrorContext(ctx, "Bill update failed",
			log.FieldOperation, log.OpUpdate,
			log.FieldBillID, billID,
			log.FieldError, err.Error())
		return
	}
	nb.logger.InfoContext(ctx, "Bill submitted",
		log.FieldBillID, billID,
		log.FieldBillType, bill.Type,
		log.FieldAmount, bill.Amount)
}

// Wait blocks until updates started by HandleSubmit have settled.
func (nb *NewBill) Wait() {
	nb.inflight.Wait()
}
