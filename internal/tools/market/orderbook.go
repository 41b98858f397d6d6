// orderbook.go - Aggregated order book and per-exchange market depth.
package market

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
)

const maxDepthLevels = 1000

// Quote is one aggregated book level, encoded as [price, size, exchange].
type Quote struct {
	Price    float64
	Size     float64
	Exchange string
}

// MarshalJSON encodes a quote as [price, size, exchange].
func (q Quote) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{q.Price, q.Size, q.Exchange})
}

var (
	sampleBids = []Quote{
		{67850.23, 1.5, "binance"},
		{67849.95, 0.8, "coinbase"},
		{67848.50, 2.1, "kraken"},
		{67845.75, 1.2, "binance"},
		{67844.90, 0.5, "coinbase"},
	}
	sampleAsks = []Quote{
		{67855.40, 0.9, "binance"},
		{67856.20, 1.3, "coinbase"},
		{67857.50, 0.7, "kraken"},
		{67858.10, 1.8, "binance"},
		{67860.25, 2.4, "coinbase"},
	}
)

// AggregatedOrderBook is the get_aggregated_order_book result.
type AggregatedOrderBook struct {
	Symbol              string      `json:"symbol"`
	Timestamp           int64       `json:"timestamp"`
	Exchanges           []string    `json:"exchanges"`
	Bids                []Quote     `json:"bids"`
	Asks                []Quote     `json:"asks"`
	AggregatedLiquidity SideAmounts `json:"aggregatedLiquidity"`
}

// SideAmounts holds a USD figure per book side.
type SideAmounts struct {
	Bids float64 `json:"bids"`
	Asks float64 `json:"asks"`
}

func aggregatedOrderBook(clock clockwork.Clock) registry.Handler {
	return func(_ context.Context, raw json.RawMessage) (any, error) {
		var params struct {
			Symbol    string   `json:"symbol"`
			Exchanges []string `json:"exchanges"`
			Depth     *int     `json:"depth"`
		}
		if err := mcp.DecodeParams(raw, &params); err != nil {
			return nil, err
		}
		if params.Exchanges == nil {
			params.Exchanges = defaultExchanges
		}
		depth := 10
		if params.Depth != nil {
			depth = *params.Depth
		}
		if depth < 0 || depth > maxDepthLevels {
			return nil, errors.Errorf("depth must be between 0 and %d", maxDepthLevels)
		}

		bids := selectQuotes(sampleBids, params.Exchanges, depth)
		asks := selectQuotes(sampleAsks, params.Exchanges, depth)
		return AggregatedOrderBook{
			Symbol:    params.Symbol,
			Timestamp: clock.Now().UnixMilli(),
			Exchanges: params.Exchanges,
			Bids:      bids,
			Asks:      asks,
			AggregatedLiquidity: SideAmounts{
				Bids: notional(bids),
				Asks: notional(asks),
			},
		}, nil
	}
}

// selectQuotes keeps levels from the named exchanges, best first, at most depth of them.
func selectQuotes(book []Quote, exchanges []string, depth int) []Quote {
	out := make([]Quote, 0, min(depth, len(book)))
	for _, q := range book {
		if len(out) == depth {
			break
		}
		for _, ex := range exchanges {
			if strings.EqualFold(ex, q.Exchange) {
				out = append(out, q)
				break
			}
		}
	}
	return out
}

func notional(quotes []Quote) float64 {
	var sum float64
	for _, q := range quotes {
		sum += q.Price * q.Size
	}
	return math.Round(sum)
}

// MarketDepth is the get_market_depth result.
type MarketDepth struct {
	Symbol    string        `json:"symbol"`
	Exchange  string        `json:"exchange"`
	Timestamp int64         `json:"timestamp"`
	OrderBook DepthBook     `json:"orderBook"`
	Analysis  DepthAnalysis `json:"analysis"`
}

// DepthBook levels are [price, volume] pairs.
type DepthBook struct {
	Bids [][2]float64 `json:"bids"`
	Asks [][2]float64 `json:"asks"`
}

// DepthAnalysis summarizes bid/ask volume and the resulting pressure.
type DepthAnalysis struct {
	BidAskImbalance    float64      `json:"bidAskImbalance"`
	MarketPressure     string       `json:"marketPressure"`
	LargeOrders        []SizedOrder `json:"largeOrders"`
	PriceWalls         []SizedOrder `json:"priceWalls"`
	DepthVisualization string       `json:"depthVisualization"`
}

// SizedOrder is an unusually large resting order.
type SizedOrder struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
	Side   string  `json:"side"`
}

func marketDepth(clock clockwork.Clock) registry.Handler {
	return func(_ context.Context, raw json.RawMessage) (any, error) {
		var params struct {
			Symbol   string `json:"symbol"`
			Exchange string `json:"exchange"`
			Levels   *int   `json:"levels"`
		}
		if err := mcp.DecodeParams(raw, &params); err != nil {
			return nil, err
		}
		levels := 20
		if params.Levels != nil {
			levels = *params.Levels
		}
		if levels < 1 || levels > maxDepthLevels {
			return nil, errors.Errorf("levels must be between 1 and %d", maxDepthLevels)
		}

		book := depthLevels(levels)
		imbalance := round2(sideVolume(book.Bids) / sideVolume(book.Asks))
		return MarketDepth{
			Symbol:    params.Symbol,
			Exchange:  params.Exchange,
			Timestamp: clock.Now().UnixMilli(),
			OrderBook: book,
			Analysis: DepthAnalysis{
				BidAskImbalance: imbalance,
				MarketPressure:  pressure(imbalance),
				LargeOrders: []SizedOrder{
					{Price: 67820, Volume: 12.5, Side: "BID"},
					{Price: 67900, Volume: 8.2, Side: "ASK"},
				},
				PriceWalls: []SizedOrder{
					{Price: 67800, Volume: 45.8, Side: "BID"},
					{Price: 68000, Volume: 62.3, Side: "ASK"},
				},
				DepthVisualization: "BASE64_ENCODED_IMAGE_PLACEHOLDER",
			},
		}, nil
	}
}

// depthLevels builds a 5-dollar ladder around 67850/67855. Volumes cycle through
// 0.5..3.4 so the same request always yields the same book.
func depthLevels(levels int) DepthBook {
	book := DepthBook{
		Bids: make([][2]float64, levels),
		Asks: make([][2]float64, levels),
	}
	for i := 0; i < levels; i++ {
		book.Bids[i] = [2]float64{float64(67850 - i*5), 0.5 + float64((i*7)%30)/10}
		book.Asks[i] = [2]float64{float64(67855 + i*5), 0.5 + float64((i*11+3)%30)/10}
	}
	return book
}

func sideVolume(levels [][2]float64) float64 {
	var sum float64
	for _, l := range levels {
		sum += l[1]
	}
	return sum
}

func pressure(imbalance float64) string {
	switch {
	case imbalance > 1.05:
		return "BULLISH"
	case imbalance < 0.95:
		return "BEARISH"
	default:
		return "NEUTRAL"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
