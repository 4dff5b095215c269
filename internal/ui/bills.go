package ui

import (
	"context"
	"fmt"
	"html"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/store"
)

// BillsOptions configures the Bills container. Every field is optional.
type BillsOptions struct {
	Document Document
	Navigate Navigator
	Store    store.BillsResource
	Modal    Modal
	Logger   *log.Logger
}

// Bills drives the list of an employee's bills.
type Bills struct {
	document Document
	navigate Navigator
	store    store.BillsResource
	modal    Modal
	logger   *log.Logger
}

// NewBills wires the new-bill button and every view-proof icon found in the
// document. Missing elements are skipped.
func NewBills(opts BillsOptions) *Bills {
	b := &Bills{
		document: opts.Document,
		navigate: opts.Navigate,
		store:    opts.Store,
		modal:    opts.Modal,
		logger:   componentLogger(opts.Logger, log.ComponentBills),
	}
	if b.document == nil {
		return b
	}
	if btn := b.document.QueryElement(SelectorNewBillButton); btn != nil {
		btn.AddEventListener(EventClick, func(context.Context, *Event) {
			b.HandleClickNewBill()
		})
	}
	for _, icon := range b.document.QueryAll(SelectorIconEye) {
		icon.AddEventListener(EventClick, func(context.Context, *Event) {
			b.HandleClickIconEye(icon)
		})
	}
	return b
}

// HandleClickNewBill navigates to the new bill form.
func (b *Bills) HandleClickNewBill() {
	if b.navigate != nil {
		b.navigate(RouteNewBill)
	}
}

// HandleClickIconEye shows the icon's proof in the modal, at half the modal width.
func (b *Bills) HandleClickIconEye(icon Element) {
	if b.modal == nil || icon == nil {
		return
	}
	url := icon.Attribute(AttrBillURL)
	b.modal.SetContent(ProofImageHTML(url, b.modal.Width()/2))
	b.modal.Show()
}

// ProofImageHTML renders the modal body for a proof. A zero width is omitted.
func ProofImageHTML(url string, width int) string {
	widthAttr := ""
	if width > 0 {
		widthAttr = fmt.Sprintf(` width="%d"`, width)
	}
	return fmt.Sprintf(`<div style="text-align: center;" class="bill-proof-container"><img%s src="%s" alt="Bill" /></div>`,
		widthAttr, html.EscapeString(url))
}

// GetBills lists the bills most recent first, with display dates and status
// labels. Without a store it returns nothing and calls nothing.
func (b *Bills) GetBills(ctx context.Context) ([]core.Bill, error) {
	if b.store == nil {
		return nil, nil
	}
	bills, err := b.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	core.SortAntiChrono(bills)

	out := make([]core.Bill, 0, len(bills))
	for _, bill := range bills {
		date, err := core.FormatDate(bill.Date)
		if err != nil {
			b.logger.WarnContext(ctx, "Keeping unformatted bill date",
				log.FieldBillID, bill.ID,
				log.FieldError, err.Error())
			date = bill.Date
		}
		bill.Date = date
		bill.Status = core.Status(core.FormatStatus(bill.Status))
		out = append(out, bill)
	}
	return out, nil
}

func componentLogger(l *log.Logger, component string) *log.Logger {
	if l == nil {
		l = log.FromContext(context.Background())
	}
	return l.WithComponent(component)
}
