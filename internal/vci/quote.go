package vci

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"vciquote/internal/marketdata"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=vci_test -destination=mock_http_client_test.go -source=quote.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Hook observes one public call for telemetry. Hooks run after the pipeline
// finishes and have no bearing on its result.
type Hook func(op, symbol string, elapsed time.Duration, err error)

// Quote fetches historical and intraday price data for one instrument.
// All fields are fixed at construction; instances are safe for concurrent
// calls.
type Quote struct {
	symbol     string
	assetType  string
	baseURL    string
	header     http.Header
	httpClient HTTPClient
	session    SessionFunc
	now        func() time.Time
	logger     *slog.Logger
	hooks      []Hook
}

// QuoteOption is a configuration option for a Quote client.
type QuoteOption func(*Quote)

// WithBaseURL overrides the provider base URL.
func WithBaseURL(baseURL string) QuoteOption {
	return func(q *Quote) { q.baseURL = baseURL }
}

// WithHTTPClient sets the HTTP client used for provider requests.
func WithHTTPClient(httpClient HTTPClient) QuoteOption {
	return func(q *Quote) { q.httpClient = httpClient }
}

// WithHeader adds headers to be sent with each request.
func WithHeader(header http.Header) QuoteOption {
	return func(q *Quote) {
		for key, values := range header {
			for _, value := range values {
				q.header.Add(key, value)
			}
		}
	}
}

// WithSession replaces the wall-clock session schedule.
func WithSession(session SessionFunc) QuoteOption {
	return func(q *Quote) { q.session = session }
}

// WithClock replaces the time source used for open-ended ranges.
func WithClock(now func() time.Time) QuoteOption {
	return func(q *Quote) { q.now = now }
}

// WithLogger sets a scoped logger. Verbosity is the logger's concern; the
// client never touches global logging state.
func WithLogger(logger *slog.Logger) QuoteOption {
	return func(q *Quote) { q.logger = logger }
}

// WithHook registers a telemetry hook around each public call.
func WithHook(hook Hook) QuoteOption {
	return func(q *Quote) { q.hooks = append(q.hooks, hook) }
}

// New creates a Quote client for one symbol, resolving index aliases and
// the asset type up front.
func New(symbol string, options ...QuoteOption) (*Quote, error) {
	resolved, err := ResolveSymbol(symbol)
	if err != nil {
		return nil, err
	}
	q := &Quote{
		symbol:     resolved,
		assetType:  AssetTypeOf(resolved),
		baseURL:    defaultBaseURL,
		header:     http.Header{},
		httpClient: http.DefaultClient,
		session: func() marketdata.MarketStatus {
			return SessionStatus(time.Now())
		},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, option := range options {
		option(q)
	}
	return q, nil
}

// Symbol returns the resolved provider-native symbol.
func (q *Quote) Symbol() string { return q.symbol }

// AssetType returns the classified asset type of the symbol.
func (q *Quote) AssetType() string { return q.assetType }

// History fetches price bars for the requested date range and interval.
// Weekly and monthly bars are resampled from daily data; output is ordered
// by time ascending and holds at most CountBack most-recent rows.
func (q *Quote) History(ctx context.Context, req marketdata.HistoryRequest) (bars []marketdata.Bar, err error) {
	defer q.observe("history")(&err)

	timeframe, err := ResolveInterval(req.Interval)
	if err != nil {
		return nil, err
	}
	endStamp, countBack, err := computeRange(req.Start, req.End, req.Interval, q.now())
	if err != nil {
		return nil, err
	}
	if req.CountBack > 0 {
		countBack = req.CountBack
	}
	floating := req.Floating
	if floating <= 0 {
		floating = defaultFloating
	}

	payload := newChartRequest(q.symbol, timeframe, endStamp, countBack)
	var series []chartResponse
	if err = q.post(ctx, chartPath, payload, &series); err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no history for %s, check the symbol and time range",
			marketdata.ErrEmptyResult, q.symbol)
	}
	return normalizeBars(series[0], q.meta(), req.Interval, floating, countBack)
}

func (q *Quote) meta() recordMeta {
	return recordMeta{Symbol: q.symbol, AssetType: q.assetType, Source: Source}
}

// observe starts the hook timer for op and returns the completion callback.
func (q *Quote) observe(op string) func(*error) {
	if len(q.hooks) == 0 {
		return func(*error) {}
	}
	start := time.Now()
	return func(errp *error) {
		elapsed := time.Since(start)
		for _, hook := range q.hooks {
			hook(op, q.symbol, elapsed, *errp)
		}
	}
}

// post sends one JSON request and decodes the response into out. Transport
// and decode failures are wrapped and propagated unchanged; there is no
// retry.
func (q *Quote) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	url := q.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = q.header.Clone()
	req.Header.Set("Content-Type", "application/json")

	q.logger.Debug("provider request", "url", url, "payload", string(body))

	res, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return fmt.Errorf("POST %s -> %d: %s", url, res.StatusCode, string(b))
	}

	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
