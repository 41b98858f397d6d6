// market.go - Market intelligence tools: order books, arbitrage, liquidity, depth.
// All figures are demo data; nothing here talks to an exchange.
package market

import (
	"github.com/jonboulle/clockwork"

	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
	"github.com/crypto-signal/crypto-signal-mcp/internal/schema"
)

var defaultExchanges = []string{"binance", "coinbase", "kraken"}

const symbolDescription = `Trading pair symbol (e.g., "BTC/USDT")`

// Tools returns the market collection. Timestamps come from clock.
func Tools(clock clockwork.Clock) []registry.Tool {
	return []registry.Tool{
		{
			Name:        "get_aggregated_order_book",
			Description: "Aggregate order book data across multiple exchanges",
			Parameters: schema.Object(map[string]any{
				"symbol":    schema.String(symbolDescription),
				"exchanges": schema.StringArray("List of exchanges to include (default: top exchanges by volume)"),
				"depth":     schema.Number("Depth of order book to fetch (default: 10)"),
			}, "symbol"),
			Handler: aggregatedOrderBook(clock),
		},
		{
			Name:        "get_arbitrage_opportunities",
			Description: "Detect arbitrage opportunities across exchanges",
			Parameters: schema.Object(map[string]any{
				"symbols":      schema.StringArray("List of trading pair symbols to check"),
				"minSpread":    schema.Number("Minimum spread percentage to consider (default: 0.5)"),
				"includesFees": schema.Boolean("Whether to include exchange fees in calculations (default: true)"),
			}, "symbols"),
			Handler: arbitrageOpportunities(clock),
		},
		{
			Name:        "analyze_liquidity",
			Description: "Analyze liquidity metrics for a trading pair across exchanges",
			Parameters: schema.Object(map[string]any{
				"symbol":          schema.String(symbolDescription),
				"exchanges":       schema.StringArray("List of exchanges to include"),
				"volumeThreshold": schema.Number("Minimum volume threshold in base currency (default: 1.0)"),
			}, "symbol"),
			Handler: analyzeLiquidity(clock),
		},
		{
			Name:        "get_market_depth",
			Description: "Detailed order book and market microstructure analysis",
			Parameters: schema.Object(map[string]any{
				"symbol":   schema.String(symbolDescription),
				"exchange": schema.String("Exchange to analyze"),
				"levels":   schema.Number("Number of price levels to include (default: 20)"),
			}, "symbol", "exchange"),
			Handler: marketDepth(clock),
		},
	}
}
