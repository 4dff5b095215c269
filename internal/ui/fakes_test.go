package ui

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/store"
)

type createCall struct {
	file core.ProofFile
	meta store.CreateMeta
}

type updateCall struct {
	selector string
	data     string
}

type fakeStore struct {
	mu sync.Mutex

	bills     []core.Bill
	listErr   error
	createRes store.UploadResult
	createErr error
	updateErr error

	lists   int
	creates []createCall
	updates []updateCall
}

func (f *fakeStore) List(context.Context) ([]core.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]core.Bill(nil), f.bills...), nil
}

func (f *fakeStore) Create(_ context.Context, file core.ProofFile, meta store.CreateMeta) (store.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, createCall{file: file, meta: meta})
	if f.createErr != nil {
		return store.UploadResult{}, f.createErr
	}
	return f.createRes, nil
}

func (f *fakeStore) Update(_ context.Context, selector string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{selector: selector, data: string(data)})
	return f.updateErr
}

func (f *fakeStore) createCalls() []createCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]createCall(nil), f.creates...)
}

func (f *fakeStore) updateCalls() []updateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]updateCall(nil), f.updates...)
}

// syncBuffer lets the update goroutine and the test share a log buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLogger() (*log.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return log.NewWriter(buf, slog.LevelDebug), buf
}

type recorder struct {
	mu     sync.Mutex
	routes []string
	alerts []string
}

func (r *recorder) navigate(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *recorder) alert(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, msg)
}

func (r *recorder) navigated() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}

func (r *recorder) alerted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.alerts...)
}
