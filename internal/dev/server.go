package dev

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/interactivity/internal/config"
	"github.com/vango-dev/interactivity/internal/source"
	"github.com/vango-dev/interactivity/pkg/directive"
	"github.com/vango-dev/interactivity/pkg/dom"
	"github.com/vango-dev/interactivity/pkg/interactivity"
	"github.com/vango-dev/interactivity/pkg/middleware"
	"github.com/vango-dev/interactivity/pkg/store"
)

// Route paths served next to the pages.
const (
	LivePath    = "/_interactivity/live"
	MetricsPath = "/metrics"
	PagesPrefix = "/pages/"
)

// SettleFrames is how many animation frames a live session runs after each
// event before sending patches.
const SettleFrames = 8

// Options configures the development server.
type Options struct {
	// Config is the project configuration.
	Config *config.Config

	// Source serves the pages. Nil opens Config.PagesPath().
	Source source.Source

	// Logger receives server and runtime logs. Nil uses Config.Logger.
	Logger *slog.Logger

	// Setup registers store namespaces on every new runtime.
	Setup func(*store.Store) error

	// Registry holds the metrics. Nil uses the default registry.
	Registry *prometheus.Registry

	// Watch polls a local pages directory and reloads live sessions whose
	// page changed.
	Watch bool
}

// Server is the development server.
type Server struct {
	config   *config.Config
	source   source.Source
	logger   *slog.Logger
	setup    func(*store.Store) error
	metrics  prometheus.Gatherer
	upgrader websocket.Upgrader
	watcher  *Watcher

	mu         sync.Mutex
	sessions   map[*session]struct{}
	httpServer *http.Server
	running    bool
}

// NewServer creates a new development server.
func NewServer(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = cfg.Logger(os.Stderr)
	}

	src := opts.Source
	if src == nil {
		var err error
		src, err = source.Open(cfg.PagesPath(), source.WithRegion(cfg.Source.Region))
		if err != nil {
			return nil, err
		}
	}

	s := &Server{
		config:   cfg,
		source:   src,
		logger:   logger.With("component", "dev"),
		setup:    opts.Setup,
		sessions: make(map[*session]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
	}

	if cfg.Metrics.Enabled {
		var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
		metricsOpts := []middleware.MetricsOption{middleware.WithNamespace(cfg.Metrics.Namespace)}
		if opts.Registry != nil {
			gatherer = opts.Registry
			metricsOpts = append(metricsOpts, middleware.WithRegistry(opts.Registry))
		}
		// Registers the collectors before the first scrape.
		middleware.Prometheus(metricsOpts...)
		s.metrics = gatherer
	}

	if opts.Watch && watchable(src.String()) {
		s.watcher = NewWatcher(WatcherConfig{Root: src.String()})
		s.watcher.OnChange(s.reloadPages)
	}
	return s, nil
}

// observer builds the observer for one runtime. The tracing observer keeps
// per-runtime span state, so each runtime gets its own.
func (s *Server) observer() directive.Observer {
	var observers []directive.Observer
	if s.metrics != nil {
		observers = append(observers, middleware.Prometheus())
	}
	if name := s.config.Tracing.TracerName; name != "" {
		observers = append(observers, middleware.OpenTelemetry(middleware.WithTracerName(name)))
	}
	if len(observers) == 0 {
		return nil
	}
	return middleware.Chain(observers...)
}

// hydrate parses markup, numbers its elements and hydrates it in a new
// runtime. Hydration failures are logged and the runtime is still returned.
func (s *Server) hydrate(ctx context.Context, markup []byte) (*interactivity.Runtime, error) {
	doc, err := dom.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, err
	}
	doc.AssignHIDs()

	rt := interactivity.New(
		interactivity.WithConfig(s.config.Runtime()),
		interactivity.WithLogger(s.logger),
		interactivity.WithObserver(s.observer()),
	)
	if s.setup != nil {
		if err := s.setup(rt.Store()); err != nil {
			rt.Close()
			return nil, err
		}
	}
	if err := rt.Hydrate(ctx, doc); err != nil {
		s.logger.WarnContext(ctx, "hydration incomplete", "error", err)
	}
	return rt, nil
}

// =============================================================================
// HTTP
// =============================================================================

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get(PagesPrefix+"*", s.handlePage)
	r.Get(LivePath, s.handleLive)
	if s.metrics != nil {
		r.Handle(MetricsPath, promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}
	return r
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><title>Pages</title></head><body>
<h1>{{.Source}}</h1>
<ul>{{range .Pages}}
<li><a href="/pages/{{.}}">{{.}}</a></li>{{end}}
</ul>
</body></html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	pages, err := s.source.List(r.Context())
	if err != nil {
		s.logError("list pages", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	indexTemplate.Execute(w, struct {
		Source string
		Pages  []string
	}{s.source.String(), pages})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	markup, err := s.source.Read(r.Context(), name)
	if err != nil {
		s.pageError(w, name, err)
		return
	}

	rt, err := s.hydrate(r.Context(), markup)
	if err != nil {
		s.logError("hydrate "+name, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rt.Close()
	rt.Settle(SettleFrames)

	var buf bytes.Buffer
	if err := rt.Document().Render(&buf, dom.RenderOptions{HIDs: true}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(injectClient(buf.Bytes(), name))
}

func (s *Server) pageError(w http.ResponseWriter, name string, err error) {
	var noKey *types.NoSuchKey
	if errors.Is(err, fs.ErrNotExist) || errors.As(err, &noKey) {
		http.NotFound(w, nil)
		return
	}
	s.logError("read page "+name, err)
	http.Error(w, err.Error(), http.StatusBadRequest)
}

// injectClient inserts the live client before the closing body tag.
func injectClient(page []byte, name string) []byte {
	script := `<script data-page="` + template.HTMLEscapeString(name) + `">` + ClientScript + `</script>`
	i := bytes.LastIndex(page, []byte("</body>"))
	if i < 0 {
		return append(page, script...)
	}
	out := make([]byte, 0, len(page)+len(script))
	out = append(out, page[:i]...)
	out = append(out, script...)
	return append(out, page[i:]...)
}

// =============================================================================
// Lifecycle
// =============================================================================

// Start serves until ctx is done or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.httpServer = &http.Server{
		Addr:              s.config.DevAddress(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	if s.watcher != nil {
		go s.watcher.Start(ctx)
	}

	s.log("Serving %s at %s", s.source, s.config.DevURL())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		return err
	}
}

// Stop closes live sessions and shuts the HTTP server down.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	httpServer := s.httpServer
	s.mu.Unlock()

	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.closeSessions()

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
	}
}

// =============================================================================
// Logging
// =============================================================================

func (s *Server) log(format string, args ...any) {
	s.logger.Info(fmt.Sprintf(format, args...))
}

func (s *Server) logError(op string, err error) {
	s.logger.Error(op+" failed", "error", err)
}

// pageName normalizes a page query parameter.
func pageName(raw string) string {
	return strings.TrimPrefix(raw, "/")
}
