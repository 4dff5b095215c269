package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"billed/internal/backend"
	"billed/internal/cache"
	"billed/internal/log"
	"billed/internal/middleware/ratelimit"
	"billed/internal/middleware/security"
	"billed/internal/middleware/trace"
	"billed/internal/store"
	"billed/internal/store/api"
	"billed/internal/ui"
	appweb "billed/web"
)

const (
	defaultMaxProofBytes = 10 << 20
	defaultDraftTTL      = time.Hour
	maxDrafts            = 1000
	sessionMaxAge        = 30 * 24 * time.Hour
)

// Options wires a Server. Store is required; everything else has defaults.
type Options struct {
	Addr   string
	Store  store.BillsResource
	Proofs backend.ProofOpener
	// Ready reports whether the backing store can serve requests.
	Ready func(ctx context.Context) error
	// ProofOrigin is allowed as an image source when proofs are served from
	// another origin.
	ProofOrigin        string
	MaxProofBytes      int64
	DraftTTL           time.Duration
	RateLimitPerMinute int
	Logger             *log.Logger
}

// Server hosts the bill screens and the store REST API.
type Server struct {
	http.Server
	templates *template.Template

	store  store.BillsResource
	proofs backend.ProofOpener
	ready  func(ctx context.Context) error

	maxProofBytes int64
	draftTTL      time.Duration

	// Upload state waiting for its form submission, keyed by draft cookie
	drafts       *cache.LRUCache[ui.UploadState]
	cacheManager *cache.Manager

	logger           *log.Logger
	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	appMetrics *appMetrics

	// Bill updates still running after their response was sent
	pending sync.WaitGroup

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

type appMetrics struct {
	uptime         time.Time
	proofsUploaded int64
	proofsRejected int64
	billsSubmitted int64
	draftsExpired  int64
	renderFailures int64
}

func (m *appMetrics) inc(counter *int64) {
	atomic.AddInt64(counter, 1)
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server. Background sweeps start immediately and stop on
// Shutdown.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	if opts.MaxProofBytes <= 0 {
		opts.MaxProofBytes = defaultMaxProofBytes
	}
	if opts.DraftTTL <= 0 {
		opts.DraftTTL = defaultDraftTTL
	}

	s := &Server{
		store:            opts.Store,
		proofs:           opts.Proofs,
		ready:            opts.Ready,
		maxProofBytes:    opts.MaxProofBytes,
		draftTTL:         opts.DraftTTL,
		cacheManager:     cache.NewManager(logger),
		logger:           logger,
		securityDetector: security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		appMetrics: &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	s.drafts = cache.NewLRUCache[ui.UploadState](maxDrafts, opts.DraftTTL,
		cache.WithEvictCallback(func(key string, state ui.UploadState) {
			s.appMetrics.inc(&s.appMetrics.draftsExpired)
			logger.Info("Bill draft dropped before submission",
				log.FieldBillID, state.BillID,
				log.FieldFileName, state.FileName)
		}))
	s.cacheManager.Register(s.drafts)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates",
			log.FieldError, err,
			log.FieldComponent, log.ComponentHTTP)
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig(opts.ProofOrigin))
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(logger, s.securityDetector.ExtractClientIP)(handler)
	handler = headers.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = s.securityDetector.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	go s.cacheManager.Run(ctx, 5*time.Minute)
	go s.rateLimiter.Run(ctx)

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET "+ui.RouteBills, s.handleBills)
	mux.HandleFunc("GET "+ui.RouteBills+"/proof", s.handleProofModal)
	mux.HandleFunc("GET "+ui.RouteNewBill, s.handleNewBillForm)
	mux.HandleFunc("POST "+ui.RouteNewBill+"/proof", s.handleUploadProof)
	mux.HandleFunc("POST "+ui.RouteNewBill, s.handleSubmitBill)
	mux.HandleFunc("POST /session", s.handleSession)
	mux.HandleFunc("GET /proofs/{key...}", s.handleProofFile)

	rest := api.NewHandler(s.store, s.maxProofBytes, s.logger)
	mux.Handle(api.BillsPath, rest)
	mux.Handle(api.BillsPath+"/", rest)
}

// Shutdown stops background sweeps, drains the HTTP server and waits for
// bill updates started by earlier submissions.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopBackground != nil {
			s.stopBackground()
		}

		shutdownErr = s.Server.Shutdown(ctx)

		done := make(chan struct{})
		go func() {
			s.pending.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("Shutdown timed out waiting for bill updates",
				log.FieldOperation, log.OpShutdown)
			if shutdownErr == nil {
				shutdownErr = ctx.Err()
			}
		}
	})

	return shutdownErr
}

// track keeps the server alive until nb's background update settles.
func (s *Server) track(nb *ui.NewBill) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		nb.Wait()
	}()
}
