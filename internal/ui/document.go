// Package ui holds the Bills and NewBill containers and the document
// abstraction they bind to.
package ui

import (
	"context"

	"billed/internal/core"
)

// Navigation routes.
const (
	RouteBills   = "/bills"
	RouteNewBill = "/bills/new"
)

// Event types dispatched by the document.
const (
	EventClick  = "click"
	EventChange = "change"
	EventSubmit = "submit"
)

// Stable selectors of the elements the containers wire.
const (
	SelectorNewBillButton = `button[data-testid="btn-new-bill"]`
	SelectorIconEye       = `div[data-testid="icon-eye"]`
	SelectorFileInput     = `input[data-testid="file"]`
	SelectorNewBillForm   = `form[data-testid="form-new-bill"]`
	SelectorExpenseType   = `select[data-testid="expense-type"]`
	SelectorExpenseName   = `input[data-testid="expense-name"]`
	SelectorAmount        = `input[data-testid="amount"]`
	SelectorDate          = `input[data-testid="datepicker"]`
	SelectorVAT           = `input[data-testid="vat"]`
	SelectorPct           = `input[data-testid="pct"]`
	SelectorCommentary    = `textarea[data-testid="commentary"]`
)

// AttrBillURL is the attribute of a view-proof icon holding the proof URL.
const AttrBillURL = "data-bill-url"

// Listener handles an event dispatched on an element.
type Listener func(ctx context.Context, ev *Event)

// Event is a dispatched interaction.
type Event struct {
	Type   string
	Target Element

	prevented bool
}

// PreventDefault marks the event's default action as cancelled.
func (e *Event) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.prevented }

// Element is the subset of a DOM element the containers use.
type Element interface {
	Attribute(name string) string
	Value() string
	SetValue(v string)
	Files() []core.ProofFile
	AddEventListener(eventType string, l Listener)
	Dispatch(ctx context.Context, ev *Event)
}

// Document finds elements. QueryElement returns nil when nothing matches.
type Document interface {
	QueryElement(selector string) Element
	QueryAll(selector string) []Element
}

// Modal is the proof viewer.
type Modal interface {
	Width() int
	SetContent(html string)
	Show()
}

// Navigator moves the user to a route.
type Navigator func(route string)

// Alerter shows a blocking message to the user.
type Alerter func(msg string)
