package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"vciquote/internal/cache"
	"vciquote/internal/config"
	"vciquote/internal/httpx"
	"vciquote/internal/marketdata"
	"vciquote/internal/ratelimit"
	"vciquote/internal/vci"
)

func main() {
	var symbolsCSV string
	var data string
	var start string
	var end string
	var interval string
	var countBack int
	var floating int
	var pageSize int
	var lastTime string
	var records bool
	var timeout int
	var configPath string

	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "VNINDEX"), "comma-separated symbols")
	flag.StringVar(&data, "data", "history", "data shape: history, intraday or depth")
	flag.StringVar(&start, "start", "", "start date YYYY-MM-DD (history)")
	flag.StringVar(&end, "end", "", "end date YYYY-MM-DD, empty means now (history)")
	flag.StringVar(&interval, "interval", "1D", "bar interval: 1m, 5m, 15m, 30m, 1H, 1D, 1W, 1M")
	flag.IntVar(&countBack, "count-back", 0, "explicit lookback count, 0 derives it from the range")
	flag.IntVar(&floating, "floating", 0, "price decimal digits, 0 means default (2)")
	flag.IntVar(&pageSize, "page-size", 100, "intraday page size")
	flag.StringVar(&lastTime, "last-time", "", "intraday truncation time")
	flag.BoolVar(&records, "records", false, "print raw JSON records instead of a keyed object")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 15), "request timeout seconds")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("config: %v", err)
	}
	if timeout != 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}
	logger := newLogger(cfg.VCI.LogLevel)

	httpClient := httpx.NewWithProxy(time.Duration(cfg.Server.RequestTimeoutSec)*time.Second, httpx.ProxyConfig{
		ProxyList:   cfg.Proxy.ProxyList,
		ProxyMode:   cfg.Proxy.ProxyMode,
		RequestMode: cfg.Proxy.RequestMode,
		ForwardURL:  cfg.Proxy.ForwardURL,
	})

	if data == "history" && start == "" {
		fatal("-start is required for history")
	}

	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		fatal("no symbols given")
	}

	// Shared bucket across symbols; client config itself is immutable so
	// per-symbol fan-out is safe.
	var bucket *ratelimit.TokenBucket
	if cfg.VCI.MaxRequestsPerMinute > 0 {
		bucket = ratelimit.NewTokenBucket(float64(cfg.VCI.MaxRequestsPerMinute)/60.0, cfg.VCI.Burst)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
	defer cancel()

	var mu sync.Mutex
	out := make(map[string]any, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			p, err := newProvider(cfg, httpClient, bucket, logger, symbol)
			if err != nil {
				return err
			}
			rows, err := fetchOne(gctx, p, data, marketdata.HistoryRequest{
				Start:     start,
				End:       end,
				Interval:  marketdata.Interval(interval),
				CountBack: countBack,
				Floating:  floating,
			}, marketdata.IntradayRequest{PageSize: pageSize, LastTime: lastTime})
			if err != nil {
				return fmt.Errorf("%s: %w", symbol, err)
			}
			mu.Lock()
			out[p.Symbol()] = rows
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fatal("%v", err)
	}

	if records {
		// raw serialization path: one JSON array per symbol, stable order
		keys := make([]string, 0, len(out))
		for k := range out {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s, err := marketdata.RecordsJSON(out[k])
			if err != nil {
				fatal("serialize %s: %v", k, err)
			}
			fmt.Println(s)
		}
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatal("encode: %v", err)
	}
}

func fetchOne(ctx context.Context, p marketdata.Provider, data string, hreq marketdata.HistoryRequest, ireq marketdata.IntradayRequest) (any, error) {
	switch data {
	case "history":
		return p.History(ctx, hreq)
	case "intraday":
		return p.Intraday(ctx, ireq)
	case "depth":
		return p.PriceDepth(ctx)
	default:
		return nil, fmt.Errorf("unknown data shape %q (want history, intraday or depth)", data)
	}
}

func newProvider(cfg config.Config, httpClient *httpx.Client, bucket *ratelimit.TokenBucket, logger *slog.Logger, symbol string) (marketdata.Provider, error) {
	q, err := vci.New(symbol,
		vci.WithBaseURL(cfg.VCI.BaseURL),
		vci.WithHTTPClient(httpClient),
		vci.WithHeader(httpx.BrowserHeaders(cfg.VCI.Referer, cfg.VCI.RandomAgent)),
		vci.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	var p marketdata.Provider = q
	if bucket != nil {
		p = &ratelimit.TokenBucketProvider{P: p, TB: bucket}
	} else if cfg.VCI.MinRequestIntervalSec > 0 {
		p = &ratelimit.MinInterval{P: p, Interval: time.Duration(cfg.VCI.MinRequestIntervalSec) * time.Second}
	}
	if cfg.VCI.CacheTTLSeconds > 0 {
		p = &cache.Provider{P: p, TTL: time.Duration(cfg.VCI.CacheTTLSeconds) * time.Second, MaxItems: cfg.VCI.CacheMaxItems}
	}
	return p, nil
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(level)}))
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

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if x, err := strconv.Atoi(v); err == nil {
			return x
		}
	}
	return def
}
