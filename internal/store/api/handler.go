package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/store"
)

// Handler serves a bills resource as the REST surface Client speaks to.
type Handler struct {
	resource store.BillsResource
	maxBytes int64
	logger   *log.Logger
	mux      *http.ServeMux
}

// NewHandler exposes resource under BillsPath. Uploads larger than maxBytes
// are refused.
func NewHandler(resource store.BillsResource, maxBytes int64, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Discard()
	}
	h := &Handler{
		resource: resource,
		maxBytes: maxBytes,
		logger:   logger.WithComponent(log.ComponentAPI),
		mux:      http.NewServeMux(),
	}
	h.mux.HandleFunc("GET "+BillsPath, h.handleList)
	h.mux.HandleFunc("POST "+BillsPath, h.handleCreate)
	h.mux.HandleFunc("PATCH "+BillsPath+"/{id}", h.handleUpdate)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	bills, err := h.resource.List(r.Context())
	if err != nil {
		h.fail(w, r, log.OpList, err)
		return
	}
	if bills == nil {
		bills = []core.Bill{}
	}
	writeJSON(w, http.StatusOK, bills)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<16)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, header, err := r.FormFile(FieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable file")
		return
	}
	if int64(len(data)) > h.maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	res, err := h.resource.Create(r.Context(), core.ProofFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, store.CreateMeta{Email: r.FormValue(FieldEmail)})
	if err != nil {
		h.fail(w, r, log.OpUpload, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	if !json.Valid(data) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.resource.Update(r.Context(), r.PathValue("id"), data); err != nil {
		h.fail(w, r, log.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := StatusFor(err)
	if code >= 500 {
		h.logger.ErrorContext(r.Context(), "Store request failed",
			log.FieldOperation, op,
			log.FieldError, err)
	}
	writeError(w, code, err.Error())
}

// StatusFor maps store errors to HTTP status codes.
func StatusFor(err error) int {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, core.ErrBillNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidProofType),
		errors.Is(err, core.ErrEmptyProof),
		errors.Is(err, core.ErrEmptyEmail),
		errors.Is(err, core.ErrInvalidStatus):
		return http.StatusUnprocessableEntity
	case errors.As(err, &typeErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}
