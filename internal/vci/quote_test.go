package vci_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"vciquote/internal/marketdata"
	"vciquote/internal/vci"
)

var vnLoc = time.FixedZone("ICT", 7*60*60)

func sessionAt(trading bool, status marketdata.SessionState) vci.SessionFunc {
	return func() marketdata.MarketStatus {
		return marketdata.MarketStatus{
			IsTradingHour: trading,
			DataStatus:    status,
			Time:          time.Date(2024, 1, 2, 8, 30, 0, 0, vnLoc),
		}
	}
}

func jsonResponse(t *testing.T, status int, body any) *http.Response {
	t.Helper()
	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(body))
	return &http.Response{StatusCode: status, Body: io.NopCloser(buffer)}
}

func TestNew_ResolvesIndexAlias(t *testing.T) {
	t.Parallel()

	q, err := vci.New("HNXINDEX")
	require.NoError(t, err)
	require.Equal(t, "HNXIndex", q.Symbol())
	require.Equal(t, "index", q.AssetType())
}

func TestNew_UnknownIndexAlias(t *testing.T) {
	t.Parallel()

	_, err := vci.New("MYINDEX")
	require.ErrorIs(t, err, marketdata.ErrInvalidSymbol)
}

func TestHistory(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller and HTTP client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	day := func(d int) int64 {
		return time.Date(2024, 1, d, 0, 0, 0, 0, vnLoc).Unix()
	}

	// Assert: stub the Do method, checking the provider payload
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodPost, req.Method)
			require.Contains(t, req.URL.Path, "chart/OHLCChart/gap-chart")

			var payload map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			require.Equal(t, "ONE_DAY", payload["timeFrame"])
			require.Equal(t, []any{"FPT"}, payload["symbols"])
			require.Equal(t, float64(9), payload["countBack"])
			require.Greater(t, payload["to"], float64(0))

			return jsonResponse(t, http.StatusOK, []map[string]any{{
				"symbol": "FPT",
				"t":      []int64{day(8), day(9), day(10)},
				"o":      []float64{100.124, 101, 102},
				"h":      []float64{101, 102, 103},
				"l":      []float64{99, 100, 101},
				"c":      []float64{100.5, 101.5, 102.5},
				"v":      []float64{1000, 2000, 3000},
			}}), nil
		}).
		Times(1)

	// Arrange: a client backed by the mock
	q, err := vci.New("FPT", vci.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act
	bars, err := q.History(context.Background(), marketdata.HistoryRequest{
		Start:    "2024-01-01",
		End:      "2024-01-10",
		Interval: marketdata.Interval1D,
	})
	require.NoError(t, err)

	// Assert: typed, rounded, tagged rows in time order
	require.Len(t, bars, 3)
	require.Equal(t, 100.12, bars[0].Open)
	require.Equal(t, int64(1000), bars[0].Volume)
	require.Equal(t, "FPT", bars[0].Symbol)
	require.Equal(t, "VCI", bars[0].Source)
	require.Equal(t, marketdata.Interval1D, bars[0].Interval)
	require.True(t, bars[0].Time.Before(bars[1].Time))
}

func TestHistory_ExplicitCountBackWins(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			var payload map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			require.Equal(t, float64(3), payload["countBack"])

			return jsonResponse(t, http.StatusOK, []map[string]any{{
				"symbol": "FPT",
				"t":      []int64{1704672000},
				"o":      []float64{100}, "h": []float64{101}, "l": []float64{99}, "c": []float64{100},
				"v": []float64{1000},
			}}), nil
		}).
		Times(1)

	q, err := vci.New("FPT", vci.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = q.History(context.Background(), marketdata.HistoryRequest{
		Start:     "2024-01-01",
		End:       "2024-01-10",
		Interval:  marketdata.Interval1D,
		CountBack: 3,
	})
	require.NoError(t, err)
}

func TestHistory_InvalidInterval(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	q, err := vci.New("FPT", vci.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = q.History(context.Background(), marketdata.HistoryRequest{
		Start:    "2024-01-01",
		Interval: "2h",
	})
	require.ErrorIs(t, err, marketdata.ErrInvalidInterval)
}

func TestHistory_EmptySeries(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(t, http.StatusOK, []map[string]any{}), nil
		}).
		Times(1)

	q, err := vci.New("FPT", vci.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = q.History(context.Background(), marketdata.HistoryRequest{
		Start:    "2024-01-01",
		End:      "2024-01-10",
		Interval: marketdata.Interval1D,
	})
	require.ErrorIs(t, err, marketdata.ErrEmptyResult)
}

func TestHistory_TransportErrorPropagates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(nil, fmt.Errorf("connection reset")).
		Times(1)

	q, err := vci.New("FPT", vci.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = q.History(context.Background(), marketdata.HistoryRequest{
		Start:    "2024-01-01",
		End:      "2024-01-10",
		Interval: marketdata.Interval1D,
	})
	require.ErrorContains(t, err, "connection reset")
}

func TestHistory_BadStatusCode(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusForbidden,
				Body:       io.NopCloser(bytes.NewBufferString("denied")),
			}, nil
		}).
		Times(1)

	q, err := vci.New("FPT", vci.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = q.History(context.Background(), marketdata.HistoryRequest{
		Start:    "2024-01-01",
		End:      "2024-01-10",
		Interval: marketdata.Interval1D,
	})
	require.ErrorContains(t, err, "403")
}

func TestIntraday(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Contains(t, req.URL.Path, "market-watch/LEData/getAll")

			var payload map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			require.Equal(t, "FPT", payload["symbol"])
			require.Equal(t, float64(100), payload["limit"])
			require.Nil(t, payload["truncTime"])

			return jsonResponse(t, http.StatusOK, []map[string]any{
				{"truncTime": "1704160500", "matchPrice": 101.5, "matchVol": 300, "matchType": "b"},
				{"truncTime": "1704160200", "matchPrice": 101.0, "matchVol": 100, "matchType": "s"},
			}), nil
		}).
		Times(1)

	q, err := vci.New("FPT",
		vci.WithHTTPClient(httpClient),
		vci.WithSession(sessionAt(true, marketdata.SessionOpen)),
	)
	require.NoError(t, err)

	ticks, err := q.Intraday(context.Background(), marketdata.IntradayRequest{})
	require.NoError(t, err)
	require.Len(t, ticks, 2)
	require.Equal(t, 101.5, ticks[0].Price)
	require.Equal(t, "b", ticks[0].MatchType)
}

func TestIntraday_BlockedWhilePreparing(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	q, err := vci.New("FPT",
		vci.WithHTTPClient(httpClient),
		vci.WithSession(sessionAt(false, marketdata.SessionPreparing)),
	)
	require.NoError(t, err)

	_, err = q.Intraday(context.Background(), marketdata.IntradayRequest{})
	require.ErrorIs(t, err, marketdata.ErrSessionNotReady)

	_, err = q.PriceDepth(context.Background())
	require.ErrorIs(t, err, marketdata.ErrSessionNotReady)
}

func TestPriceDepth(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Contains(t, req.URL.Path, "market-watch/AccumulatedPriceStepVol/getSymbolData")

			var payload map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			require.Equal(t, "FPT", payload["symbol"])

			return jsonResponse(t, http.StatusOK, []map[string]any{{
				"priceStep":             120.5,
				"accumulatedVolume":     5000,
				"accumulatedBuyVolume":  3000,
				"accumulatedSellVolume": 2000,
			}}), nil
		}).
		Times(1)

	q, err := vci.New("FPT",
		vci.WithHTTPClient(httpClient),
		vci.WithSession(sessionAt(false, marketdata.SessionClosed)),
	)
	require.NoError(t, err)

	levels, err := q.PriceDepth(context.Background())
	require.NoError(t, err)
	require.Len(t, levels, 1)
	require.Equal(t, 120.5, levels[0].Price)
	require.Equal(t, int64(3000), levels[0].AccBuyVolume)
}

func TestHook_ObservesCalls(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	var gotOp, gotSymbol string
	var gotErr error

	q, err := vci.New("FPT",
		vci.WithHTTPClient(httpClient),
		vci.WithHook(func(op, symbol string, elapsed time.Duration, err error) {
			gotOp, gotSymbol, gotErr = op, symbol, err
		}),
	)
	require.NoError(t, err)

	_, err = q.History(context.Background(), marketdata.HistoryRequest{Start: "2024-01-01", Interval: "bad"})
	require.Error(t, err)

	require.Equal(t, "history", gotOp)
	require.Equal(t, "FPT", gotSymbol)
	require.ErrorIs(t, gotErr, marketdata.ErrInvalidInterval)
}
