package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"billed/internal/core"
	"billed/internal/store/memory"
)

func TestNewBillsWithoutElements(t *testing.T) {
	rec := &recorder{}
	b := NewBills(BillsOptions{Document: NewPage(), Navigate: rec.navigate})
	if b == nil {
		t.Fatal("expected a container")
	}
	// No document at all is fine too.
	NewBills(BillsOptions{})
	if len(rec.navigated()) != 0 {
		t.Errorf("unexpected navigation: %v", rec.navigated())
	}
}

func TestClickNewBillNavigates(t *testing.T) {
	rec := &recorder{}
	btn := TestID("button", "btn-new-bill")
	NewBills(BillsOptions{Document: NewPage(btn), Navigate: rec.navigate})

	btn.Click(context.Background())

	got := rec.navigated()
	if len(got) != 1 || got[0] != RouteNewBill {
		t.Fatalf("expected navigation to %s, got %v", RouteNewBill, got)
	}
}

func TestEveryIconIsWired(t *testing.T) {
	var icons []*Node
	page := NewPage()
	for _, url := range []string{"a.jpg", "b.png", "c.jpeg"} {
		icon := TestID("div", "icon-eye", AttrBillURL, url)
		icons = append(icons, icon)
		page.Append(icon)
	}
	NewBills(BillsOptions{Document: page, Modal: NewHTMLModal(800)})

	for i, icon := range icons {
		if n := icon.Listeners(EventClick); n != 1 {
			t.Errorf("icon %d: expected 1 click listener, got %d", i, n)
		}
	}
}

func TestClickIconEyeOpensModal(t *testing.T) {
	icon := TestID("div", "icon-eye", AttrBillURL, "https://localhost:3456/proofs/x/receipt.jpg")
	modal := NewHTMLModal(800)
	NewBills(BillsOptions{Document: NewPage(icon), Modal: modal})

	icon.Click(context.Background())

	if !modal.Shown() {
		t.Fatal("expected modal to be shown")
	}
	content := modal.Content()
	if !strings.Contains(content, `class="bill-proof-container"`) {
		t.Errorf("missing proof container: %q", content)
	}
	if !strings.Contains(content, `width="400"`) {
		t.Errorf("expected half the modal width, got %q", content)
	}
	if !strings.Contains(content, `src="https://localhost:3456/proofs/x/receipt.jpg"`) {
		t.Errorf("expected proof url, got %q", content)
	}
}

func TestClickIconEyeToleratesMissingModal(t *testing.T) {
	icon := TestID("div", "icon-eye", AttrBillURL, "a.jpg")
	b := NewBills(BillsOptions{Document: NewPage(icon)})
	icon.Click(context.Background())
	b.HandleClickIconEye(nil)

	modal := NewHTMLModal(0)
	NewBills(BillsOptions{Modal: modal}).HandleClickIconEye(icon)
	if strings.Contains(modal.Content(), "width=") {
		t.Errorf("expected no width attribute, got %q", modal.Content())
	}
	if !modal.Shown() {
		t.Error("expected modal to be shown")
	}
}

func TestProofImageHTMLEscapesURL(t *testing.T) {
	got := ProofImageHTML(`x.jpg" onerror="alert(1)`, 10)
	if strings.Contains(got, `onerror="`) {
		t.Errorf("url not escaped: %q", got)
	}
}

func TestGetBillsWithoutStore(t *testing.T) {
	bills, err := NewBills(BillsOptions{}).GetBills(context.Background())
	if err != nil || bills != nil {
		t.Fatalf("expected nil, nil; got %v, %v", bills, err)
	}
}

func TestGetBillsSortsAndFormats(t *testing.T) {
	b := NewBills(BillsOptions{Store: memory.NewSeeded()})

	bills, err := b.GetBills(context.Background())
	if err != nil {
		t.Fatalf("GetBills: %v", err)
	}
	want := []struct {
		date   string
		status string
	}{
		{"4 Avr. 04", "En attente"},
		{"3 Mar. 03", "Accepté"},
		{"2 Fév. 02", "Refusé"},
		{"1 Jan. 01", "Refusé"},
	}
	if len(bills) != len(want) {
		t.Fatalf("expected %d bills, got %d", len(want), len(bills))
	}
	for i, w := range want {
		if bills[i].Date != w.date {
			t.Errorf("bill %d: date = %q, want %q", i, bills[i].Date, w.date)
		}
		if string(bills[i].Status) != w.status {
			t.Errorf("bill %d: status = %q, want %q", i, bills[i].Status, w.status)
		}
	}
}

func TestGetBillsKeepsMalformedDate(t *testing.T) {
	logger, buf := captureLogger()
	fs := &fakeStore{bills: []core.Bill{
		{ID: "bad", Date: "not-a-date", Status: core.StatusPending},
		{ID: "good", Date: "2020-05-01", Status: core.StatusAccepted},
	}}
	b := NewBills(BillsOptions{Store: fs, Logger: logger})

	bills, err := b.GetBills(context.Background())
	if err != nil {
		t.Fatalf("GetBills: %v", err)
	}
	if len(bills) != 2 {
		t.Fatalf("expected both bills kept, got %d", len(bills))
	}
	bad := bills[1]
	if bad.ID != "bad" || bad.Date != "not-a-date" {
		t.Errorf("expected raw date kept last, got %+v", bad)
	}
	if bad.Status == "" {
		t.Error("expected a status label")
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
}

func TestGetBillsStoreError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewBills(BillsOptions{Store: &fakeStore{listErr: boom}}).GetBills(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
