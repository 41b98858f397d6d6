// market_test.go - Tests for the market intelligence tools.
package market

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func call(t *testing.T, name, params string) (any, error) {
	t.Helper()
	for _, tool := range Tools(clockwork.NewFakeClockAt(epoch)) {
		if tool.Name == name {
			return tool.Call(context.Background(), json.RawMessage(params))
		}
	}
	t.Fatalf("tool %s not registered", name)
	return nil, nil
}

func TestTools_Registers(t *testing.T) {
	t.Parallel()
	reg, err := registry.New(Tools(clockwork.NewFakeClock()))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"get_aggregated_order_book",
		"get_arbitrage_opportunities",
		"analyze_liquidity",
		"get_market_depth",
	}, reg.Names())
}

func TestAggregatedOrderBook(t *testing.T) {
	t.Parallel()

	out, err := call(t, "get_aggregated_order_book", `{"symbol":"BTC/USDT"}`)
	require.NoError(t, err)
	book := out.(AggregatedOrderBook)
	assert.Equal(t, "BTC/USDT", book.Symbol)
	assert.Equal(t, epoch.UnixMilli(), book.Timestamp)
	assert.Equal(t, defaultExchanges, book.Exchanges)
	assert.Len(t, book.Bids, 5)
	assert.Len(t, book.Asks, 5)
	assert.Greater(t, book.AggregatedLiquidity.Bids, 0.0)

	out, err = call(t, "get_aggregated_order_book", `{"symbol":"BTC/USDT","exchanges":["Kraken"],"depth":3}`)
	require.NoError(t, err)
	book = out.(AggregatedOrderBook)
	require.Len(t, book.Bids, 1)
	assert.Equal(t, "kraken", book.Bids[0].Exchange)

	raw, err := json.Marshal(book.Bids[0])
	require.NoError(t, err)
	assert.JSONEq(t, `[67848.5, 2.1, "kraken"]`, string(raw))
}

func TestAggregatedOrderBook_Errors(t *testing.T) {
	t.Parallel()

	_, err := call(t, "get_aggregated_order_book", `{}`)
	assert.EqualError(t, err, `missing required parameter "symbol"`)

	_, err = call(t, "get_aggregated_order_book", `{"symbol":"BTC/USDT","depth":-1}`)
	assert.Error(t, err)

	_, err = call(t, "get_aggregated_order_book", `{"symbol":42}`)
	assert.ErrorContains(t, err, `"symbol"`)
}

func TestArbitrageOpportunities(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  string
		symbols []string
		noFees  bool
	}{
		{"default spread", `{"symbols":["ETH/USDT","LINK/USDT"]}`, []string{"ETH/USDT", "LINK/USDT"}, false},
		{"high spread", `{"symbols":["ETH/USDT","LINK/USDT"],"minSpread":0.9}`, []string{"LINK/USDT"}, false},
		{"unknown symbol", `{"symbols":["BTC/USDT"]}`, nil, false},
		{"without fees", `{"symbols":["eth/usdt"],"includesFees":false}`, []string{"ETH/USDT"}, true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out, err := call(t, "get_arbitrage_opportunities", tc.params)
			require.NoError(t, err)
			report := out.(ArbitrageReport)

			var got []string
			for _, o := range report.Opportunities {
				got = append(got, o.Symbol)
				if tc.noFees {
					assert.Nil(t, o.Fees)
					assert.Equal(t, o.SpreadPercentage, o.NetProfitPercentage)
				} else {
					assert.NotNil(t, o.Fees)
				}
			}
			assert.Equal(t, tc.symbols, got)
		})
	}
}

func TestAnalyzeLiquidity(t *testing.T) {
	t.Parallel()

	out, err := call(t, "analyze_liquidity", `{"symbol":"BTC/USDT","exchanges":["Binance","bitstamp"]}`)
	require.NoError(t, err)
	report := out.(LiquidityReport)
	assert.Equal(t, 1.0, report.VolumeThreshold)
	assert.Len(t, report.ExchangeMetrics, 1)
	assert.Contains(t, report.ExchangeMetrics, "binance")

	raw, err := json.Marshal(report.GlobalMetrics.AverageSlippage)
	require.NoError(t, err)
	assert.JSONEq(t, `{"10k":0.04,"100k":0.12,"1M":0.38}`, string(raw))
}

func TestMarketDepth_Deterministic(t *testing.T) {
	t.Parallel()

	first, err := call(t, "get_market_depth", `{"symbol":"BTC/USDT","exchange":"binance","levels":5}`)
	require.NoError(t, err)
	second, err := call(t, "get_market_depth", `{"symbol":"BTC/USDT","exchange":"binance","levels":5}`)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	depth := first.(MarketDepth)
	require.Len(t, depth.OrderBook.Bids, 5)
	require.Len(t, depth.OrderBook.Asks, 5)
	assert.Equal(t, [2]float64{67850, 0.5}, depth.OrderBook.Bids[0])
	assert.Equal(t, 67830.0, depth.OrderBook.Bids[4][0])
	assert.Equal(t, 67875.0, depth.OrderBook.Asks[4][0])
	for _, l := range append(depth.OrderBook.Bids, depth.OrderBook.Asks...) {
		assert.GreaterOrEqual(t, l[1], 0.5)
		assert.Less(t, l[1], 3.5)
	}
	assert.Contains(t, []string{"BULLISH", "BEARISH", "NEUTRAL"}, depth.Analysis.MarketPressure)
}

func TestMarketDepth_DefaultAndBounds(t *testing.T) {
	t.Parallel()

	out, err := call(t, "get_market_depth", `{"symbol":"BTC/USDT","exchange":"kraken"}`)
	require.NoError(t, err)
	assert.Len(t, out.(MarketDepth).OrderBook.Bids, 20)

	_, err = call(t, "get_market_depth", `{"symbol":"BTC/USDT","exchange":"kraken","levels":0}`)
	assert.Error(t, err)

	_, err = call(t, "get_market_depth", `{"symbol":"BTC/USDT"}`)
	assert.EqualError(t, err, `missing required parameter "exchange"`)
}

func TestPressure(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "BULLISH", pressure(1.2))
	assert.Equal(t, "BEARISH", pressure(0.8))
	assert.Equal(t, "NEUTRAL", pressure(1.0))
}
