// This file implements utilities for parsing and validating request data
// before it reaches the bill containers.

package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"billed/internal/core"
	"billed/internal/store/api"
	"billed/internal/ui"
)

const (
	// defaultModalWidth is used when the browser does not report its modal size.
	defaultModalWidth = 800
	maxModalWidth     = 4000
	// multipartOverhead leaves room for the boundary and the other fields.
	multipartOverhead = 1 << 20
)

var (
	errMissingProof    = errors.New("missing proof file")
	errProofTooLarge   = errors.New("proof file too large")
	errInvalidProofURL = errors.New("invalid proof url")
)

// formField binds a form field name to the element the NewBill container
// reads it from.
type formField struct {
	tag  string
	name string
}

// newBillFields are the inputs of the new bill form. Field names are the
// elements' test ids.
var newBillFields = []formField{
	{"select", "expense-type"},
	{"input", "expense-name"},
	{"input", "amount"},
	{"input", "datepicker"},
	{"input", "vat"},
	{"input", "pct"},
	{"textarea", "commentary"},
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// ParseFormOrFail parses the request form, multipart or not, and returns an
// error response on failure. Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(multipartOverhead)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return BadRequestError("Format de requête invalide")
	}
	return nil
}

// newBillDocument builds the form as the NewBill container sees it, with the
// submitted values filled in.
func newBillDocument(form url.Values) *ui.Page {
	page := ui.NewPage(ui.TestID("form", "form-new-bill"))
	for _, f := range newBillFields {
		n := ui.TestID(f.tag, f.name, "name", f.name)
		n.SetValue(sanitizeInput(form.Get(f.name)))
		page.Append(n)
	}
	return page
}

// parseModalWidth reads the modal width reported by the browser.
func parseModalWidth(query url.Values) int {
	v := strings.TrimSpace(query.Get("width"))
	if v == "" {
		return defaultModalWidth
	}
	w, err := strconv.Atoi(v)
	if err != nil || w <= 0 {
		return defaultModalWidth
	}
	return min(w, maxModalWidth)
}

// parseProofURL accepts site-relative paths and http(s) URLs.
func parseProofURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", errInvalidProofURL)
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidProofURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", errInvalidProofURL, raw)
	}
	return raw, nil
}

// readProofFile reads the uploaded proof from a multipart request, at most
// maxBytes of it.
func readProofFile(w http.ResponseWriter, r *http.Request, maxBytes int64) (core.ProofFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.ProofFile{}, errProofTooLarge
		}
		return core.ProofFile{}, fmt.Errorf("parse multipart form: %w", err)
	}

	f, header, err := r.FormFile(api.FieldFile)
	if err != nil {
		return core.ProofFile{}, errMissingProof
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return core.ProofFile{}, fmt.Errorf("read proof: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return core.ProofFile{}, errProofTooLarge
	}
	return core.ProofFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
