// Package api is the network-backed bills resource. It speaks to the
// /api/bills REST surface served by cmd/billed.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/store"
)

// BillsPath is the REST collection, relative to the base URL.
const BillsPath = "/api/bills"

// Form fields of the create request.
const (
	FieldFile  = "file"
	FieldEmail = "email"
)

// ErrorResponse is the JSON body sent with every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusError is returned for non-2xx answers. It unwraps to the matching
// core sentinel when there is one.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store api: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("store api: %d %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return core.ErrBillNotFound
	case http.StatusUnprocessableEntity:
		for _, sentinel := range validationErrors {
			if strings.Contains(e.Message, sentinel.Error()) {
				return sentinel
			}
		}
		return core.ErrInvalidProofType
	}
	return nil
}

var validationErrors = []error{
	core.ErrInvalidProofType,
	core.ErrEmptyProof,
	core.ErrEmptyEmail,
	core.ErrInvalidStatus,
}

// Client implements store.BillsResource over HTTP
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

var _ store.BillsResource = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. with httptest's.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(l *log.Logger) Option {
	return func(cl *Client) { cl.logger = l.WithComponent(log.ComponentAPI) }
}

func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse store api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("store api url %q: unsupported scheme", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches every bill.
func (c *Client) List(ctx context.Context) ([]core.Bill, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+BillsPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var bills []core.Bill
	if err := c.do(req, http.StatusOK, &bills); err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

// Create uploads the proof as multipart form data.
func (c *Client) Create(ctx context.Context, file core.ProofFile, meta store.CreateMeta) (store.UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField(FieldEmail, meta.Email); err != nil {
		return store.UploadResult{}, err
	}
	part, err := mw.CreateFormFile(FieldFile, core.ProofFileName(file.Name))
	if err != nil {
		return store.UploadResult{}, err
	}
	if _, err := part.Write(file.Data); err != nil {
		return store.UploadResult{}, err
	}
	if err := mw.Close(); err != nil {
		return store.UploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+BillsPath, &body)
	if err != nil {
		return store.UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var res store.UploadResult
	if err := c.do(req, http.StatusCreated, &res); err != nil {
		return store.UploadResult{}, fmt.Errorf("create bill: %w", err)
	}
	c.logger.DebugContext(ctx, "Proof uploaded through store api",
		log.FieldBillID, res.Key,
		log.FieldFileName, file.Name)
	return res, nil
}

// Update sends data, a JSON bill, to the bill under selector.
func (c *Client) Update(ctx context.Context, selector string, data []byte) error {
	if selector == "" {
		return fmt.Errorf("update bill: %w", core.ErrBillNotFound)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.baseURL+BillsPath+"/"+url.PathEscape(selector), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("update bill %s: %w", selector, err)
	}
	return nil
}

func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var er ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &er) != nil || er.Error == "" {
			er.Error = strings.TrimSpace(string(raw))
		}
		return &StatusError{Code: resp.StatusCode, Message: er.Error}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
