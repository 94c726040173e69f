package vci

import (
	"context"
	"fmt"

	"vciquote/internal/marketdata"
)

const defaultPageSize = 100

// Intraday fetches the most recent trade ticks for the symbol. The call is
// gated during the pre-session preparation window; provider row order is
// preserved.
func (q *Quote) Intraday(ctx context.Context, req marketdata.IntradayRequest) (ticks []marketdata.Tick, err error) {
	defer q.observe("intraday")(&err)

	if err = checkSession(q.session()); err != nil {
		return nil, err
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > pageSizeWarnThreshold {
		q.logger.Warn("large intraday page size may overload the provider",
			"symbol", q.symbol, "page_size", pageSize)
	}

	payload := newTickRequest(q.symbol, pageSize, req.LastTime)
	var records []tickRecord
	if err = q.post(ctx, tickEndpoint, payload, &records); err != nil {
		return nil, err
	}
	return normalizeTicks(records, q.meta())
}

// PriceDepth fetches the accumulated matched volume per price step. Gated
// like Intraday.
func (q *Quote) PriceDepth(ctx context.Context) (levels []marketdata.DepthLevel, err error) {
	defer q.observe("price_depth")(&err)

	if err = checkSession(q.session()); err != nil {
		return nil, err
	}

	var records []map[string]any
	if err = q.post(ctx, depthEndpoint, depthRequest{Symbol: q.symbol}, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no depth data for %s", marketdata.ErrEmptyResult, q.symbol)
	}
	return normalizeDepth(records)
}
