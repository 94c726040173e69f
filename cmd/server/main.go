package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"vciquote/internal/cache"
	"vciquote/internal/config"
	"vciquote/internal/httpx"
	"vciquote/internal/marketdata"
	"vciquote/internal/ratelimit"
	"vciquote/internal/vci"
)

// registry memoizes one decorated provider per symbol so the window cache
// and rate limit state survive across requests.
type registry struct {
	cfg        config.Config
	httpClient *httpx.Client
	bucket     *ratelimit.TokenBucket
	logger     *slog.Logger

	mu        sync.Mutex
	providers map[string]marketdata.Provider
}

func newRegistry(cfg config.Config, httpClient *httpx.Client, logger *slog.Logger) *registry {
	r := &registry{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
		providers:  make(map[string]marketdata.Provider),
	}
	if cfg.VCI.MaxRequestsPerMinute > 0 {
		r.bucket = ratelimit.NewTokenBucket(float64(cfg.VCI.MaxRequestsPerMinute)/60.0, cfg.VCI.Burst)
	}
	return r
}

func (r *registry) provider(symbol string) (marketdata.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[symbol]; ok {
		return p, nil
	}
	q, err := vci.New(symbol,
		vci.WithBaseURL(r.cfg.VCI.BaseURL),
		vci.WithHTTPClient(r.httpClient),
		vci.WithHeader(httpx.BrowserHeaders(r.cfg.VCI.Referer, r.cfg.VCI.RandomAgent)),
		vci.WithLogger(r.logger),
	)
	if err != nil {
		return nil, err
	}
	var p marketdata.Provider = q
	if r.bucket != nil {
		p = &ratelimit.TokenBucketProvider{P: p, TB: r.bucket}
	} else if r.cfg.VCI.MinRequestIntervalSec > 0 {
		p = &ratelimit.MinInterval{P: p, Interval: time.Duration(r.cfg.VCI.MinRequestIntervalSec) * time.Second}
	}
	if r.cfg.VCI.CacheTTLSeconds > 0 {
		p = &cache.Provider{P: p, TTL: time.Duration(r.cfg.VCI.CacheTTLSeconds) * time.Second, MaxItems: r.cfg.VCI.CacheMaxItems}
	}
	r.providers[symbol] = p
	return p, nil
}

func main() {
	cfgPath := os.Getenv("CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.VCI.LogLevel)}))

	httpClient := httpx.NewWithProxy(time.Duration(cfg.Server.RequestTimeoutSec)*time.Second, httpx.ProxyConfig{
		ProxyList:   cfg.Proxy.ProxyList,
		ProxyMode:   cfg.Proxy.ProxyMode,
		RequestMode: cfg.Proxy.RequestMode,
		ForwardURL:  cfg.Proxy.ForwardURL,
	})
	reg := newRegistry(cfg, httpClient, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		handleHistory(w, r, reg.provider)
	})
	mux.HandleFunc("/api/intraday", func(w http.ResponseWriter, r *http.Request) {
		handleIntraday(w, r, reg.provider)
	})
	mux.HandleFunc("/api/depth", func(w http.ResponseWriter, r *http.Request) {
		handleDepth(w, r, reg.provider)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// providerFunc resolves a symbol to a ready-to-call provider.
type providerFunc func(symbol string) (marketdata.Provider, error)

type rowsResponse struct {
	Symbol string `json:"symbol"`
	Rows   any    `json:"rows"`
}

func handleHistory(w http.ResponseWriter, r *http.Request, providers providerFunc) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if strings.TrimSpace(symbol) == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	req := marketdata.HistoryRequest{
		Start:    r.URL.Query().Get("start"),
		End:      r.URL.Query().Get("end"),
		Interval: marketdata.Interval(r.URL.Query().Get("interval")),
	}
	if req.Interval == "" {
		req.Interval = marketdata.Interval1D
	}
	if v := r.URL.Query().Get("countBack"); v != "" {
		req.CountBack, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("floating"); v != "" {
		req.Floating, _ = strconv.Atoi(v)
	}
	if req.Start == "" {
		http.Error(w, "missing start query param", http.StatusBadRequest)
		return
	}

	writeRows(w, r.Context(), providers, symbol, func(ctx context.Context, p marketdata.Provider) (any, error) {
		return p.History(ctx, req)
	})
}

func handleIntraday(w http.ResponseWriter, r *http.Request, providers providerFunc) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if strings.TrimSpace(symbol) == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	req := marketdata.IntradayRequest{LastTime: r.URL.Query().Get("lastTime")}
	if v := r.URL.Query().Get("pageSize"); v != "" {
		req.PageSize, _ = strconv.Atoi(v)
	}
	writeRows(w, r.Context(), providers, symbol, func(ctx context.Context, p marketdata.Provider) (any, error) {
		return p.Intraday(ctx, req)
	})
}

func handleDepth(w http.ResponseWriter, r *http.Request, providers providerFunc) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if strings.TrimSpace(symbol) == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	writeRows(w, r.Context(), providers, symbol, func(ctx context.Context, p marketdata.Provider) (any, error) {
		return p.PriceDepth(ctx)
	})
}

func writeRows(w http.ResponseWriter, rctx context.Context, providers providerFunc, symbol string, fetch func(context.Context, marketdata.Provider) (any, error)) {
	ctx, cancel := context.WithTimeout(rctx, 15*time.Second)
	defer cancel()

	p, err := providers(symbol)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	rows, err := fetch(ctx, p)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(rowsResponse{Symbol: p.Symbol(), Rows: rows})
}

// statusFor maps the failure taxonomy onto HTTP statuses; anything
// unrecognized is treated as an upstream transport failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, marketdata.ErrInvalidSymbol),
		errors.Is(err, marketdata.ErrInvalidInterval),
		errors.Is(err, marketdata.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, marketdata.ErrSessionNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, marketdata.ErrEmptyResult):
		return http.StatusNotFound
	case errors.Is(err, marketdata.ErrMissingColumns):
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		// Basic CORS for browser usage; adjust as needed.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		// Prefer best speed to reduce CPU usage since payloads are JSON
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
