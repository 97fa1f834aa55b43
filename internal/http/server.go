package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"customer-request-dashboard/internal/config"
	"customer-request-dashboard/internal/connectors/history"
	"customer-request-dashboard/internal/connectors/sample"
	"customer-request-dashboard/internal/connectors/sheet"
	"customer-request-dashboard/internal/connectors/sqlsource"
	"customer-request-dashboard/internal/connectors/telegram"
	"customer-request-dashboard/internal/refresh"
)

// Server wraps an HTTP server, the refresh controller and its integrations.
type Server struct {
	httpServer   *nethttp.Server
	controller   *refresh.Controller
	historyStore *history.Store
	notifier     *telegram.Notifier
	sourceCloser io.Closer
	logger       *slog.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	started      atomic.Bool
	runDone      chan struct{}
}

// NewServer creates a configured HTTP server with v1 endpoints.
func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	src, closer, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}

	opts := []refresh.Option{
		refresh.WithInterval(cfg.RefreshInterval),
		refresh.WithTableLimit(cfg.TableLimit),
		refresh.WithLogger(logger),
		refresh.WithRecorder(refresh.RecorderFunc(recordRefreshRun)),
	}

	var historyStore *history.Store
	if cfg.HistorySQLitePath != "" {
		historyStore, err = history.NewSQLiteStore(cfg.HistorySQLitePath, cfg.HistoryKeep)
		if err != nil {
			closeQuietly(closer)
			return nil, fmt.Errorf("open history store: %w", err)
		}
		opts = append(opts, refresh.WithRecorder(historyStore))
	}

	var notifier *telegram.Notifier
	if cfg.TelegramToken != "" {
		notifier, err = telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID, logger)
		if err != nil {
			closeQuietly(closer)
			_ = historyStore.Close()
			return nil, err
		}
	}

	controller := refresh.New(src, opts...)

	mux := nethttp.NewServeMux()
	mux.HandleFunc("/", dashboardHandler)
	mux.HandleFunc("/favicon.ico", faviconHandler)
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/api/v1/metrics/app", appMetricsSummaryHandler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(controller))
	mux.HandleFunc("/api/v1/dashboard", dashboardDataHandler(controller))
	mux.HandleFunc("/api/v1/orders", ordersHandler(controller))
	mux.HandleFunc("/api/v1/orders/export", exportHandler(controller))
	mux.HandleFunc("/api/v1/refresh", refreshHandler(controller))
	mux.HandleFunc("/api/v1/visibility", visibilityHandler(controller))
	mux.HandleFunc("/api/v1/focus", focusHandler(controller))
	mux.HandleFunc("/api/v1/state", stateHandler(controller))
	mux.HandleFunc("/api/v1/events", eventsHandler(controller))
	mux.HandleFunc("/api/v1/history", historyHandler(historyStore))
	mux.HandleFunc("/api/v1/status/pipeline", pipelineStatusHandler(controller, historyStore))
	mux.HandleFunc("/api/v1/settings", settingsHandler(cfg))

	// Request contexts derive from ctx, which Shutdown cancels so event
	// streams end.
	ctx, cancel := context.WithCancel(context.Background())
	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      loggingMiddleware(logger, observabilityMiddleware(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	return &Server{
		httpServer:   httpServer,
		controller:   controller,
		historyStore: historyStore,
		notifier:     notifier,
		sourceCloser: closer,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		runDone:      make(chan struct{}),
	}, nil
}

func buildSource(cfg config.Config) (refresh.Source, io.Closer, error) {
	switch cfg.Source {
	case "", "sheet":
		return sheet.NewSource(cfg.SheetCSVURL, cfg.FetchTimeout), nil, nil
	case "sample":
		return sample.NewSource(nil), nil, nil
	case "sql":
		src, err := sqlsource.NewSource(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open sql source: %w", err)
		}
		return src, src, nil
	default:
		return nil, nil, fmt.Errorf("unknown APP_SOURCE %q (want sheet, sample or sql)", cfg.Source)
	}
}

// Controller exposes the refresh controller, mainly for embedding and tests.
func (s *Server) Controller() *refresh.Controller {
	return s.controller
}

// ListenAndServe starts the refresh loop and the HTTP server.
func (s *Server) ListenAndServe() error {
	if s.notifier != nil {
		events, unsubscribe := s.controller.Subscribe(0)
		go func() {
			defer unsubscribe()
			s.notifier.Watch(s.ctx, events)
		}()
	}
	s.started.Store(true)
	go func() {
		defer close(s.runDone)
		s.controller.Run(s.ctx)
	}()

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and the refresh loop.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		// No new cycles start once Run has returned.
		if s.started.Load() {
			<-s.runDone
		}
		s.controller.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("shutdown: refresh still in flight")
	}

	closeQuietly(s.sourceCloser)
	if s.historyStore != nil {
		_ = s.historyStore.Close()
	}
	return err
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func readyHandler(c *refresh.Controller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		if c.Snapshot() == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"status": "waiting for first refresh",
				"state":  c.State(),
			})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"status": "ready",
		})
	}
}

func loggingMiddleware(logger *slog.Logger, next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
