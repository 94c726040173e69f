package vci

// Provider request payloads. Pure values assembled from already-validated
// inputs.

type chartRequest struct {
	TimeFrame string   `json:"timeFrame"`
	Symbols   []string `json:"symbols"`
	To        int64    `json:"to"`
	CountBack int      `json:"countBack"`
}

func newChartRequest(symbol, timeframe string, endStamp int64, countBack int) chartRequest {
	return chartRequest{
		TimeFrame: timeframe,
		Symbols:   []string{symbol},
		To:        endStamp,
		CountBack: countBack,
	}
}

type tickRequest struct {
	Symbol    string  `json:"symbol"`
	Limit     int     `json:"limit"`
	TruncTime *string `json:"truncTime"`
}

func newTickRequest(symbol string, pageSize int, lastTime string) tickRequest {
	req := tickRequest{Symbol: symbol, Limit: pageSize}
	if lastTime != "" {
		req.TruncTime = &lastTime
	}
	return req
}

type depthRequest struct {
	Symbol string `json:"symbol"`
}
