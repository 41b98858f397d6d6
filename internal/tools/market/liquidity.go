// liquidity.go - Liquidity metrics per exchange and across the market.
package market

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
)

// Slippage is the expected percentage slippage by order size in USD.
type Slippage struct {
	Small  float64 `json:"10k"`
	Medium float64 `json:"100k"`
	Large  float64 `json:"1M"`
}

// GlobalLiquidity sums liquidity across the requested exchanges.
type GlobalLiquidity struct {
	TotalVolume24h  float64  `json:"totalVolume24h"`
	AverageSlippage Slippage `json:"averageSlippage"`
	BidAskSpread    float64  `json:"bidAskSpread"`
	Volatility24h   float64  `json:"volatility24h"`
	LiquidityScore  int      `json:"liquidityScore"`
}

// ExchangeLiquidity is the liquidity picture on a single exchange.
type ExchangeLiquidity struct {
	Volume24h            float64  `json:"volume24h"`
	MarketShare          float64  `json:"marketShare"`
	OrderBookDepth       float64  `json:"orderBookDepth"`
	Slippage             Slippage `json:"slippage"`
	AverageExecutionTime int      `json:"averageExecutionTime"`
}

// LiquidityRecommendations names the best exchange per execution goal.
type LiquidityRecommendations struct {
	BestForLargeOrders string `json:"bestForLargeOrders"`
	BestForSpeed       string `json:"bestForSpeed"`
	BestForPrice       string `json:"bestForPrice"`
	ExecutionStrategy  string `json:"executionStrategy"`
}

// LiquidityReport is the analyze_liquidity result.
type LiquidityReport struct {
	Symbol          string                       `json:"symbol"`
	Timestamp       int64                        `json:"timestamp"`
	VolumeThreshold float64                      `json:"volumeThreshold"`
	GlobalMetrics   GlobalLiquidity              `json:"globalMetrics"`
	ExchangeMetrics map[string]ExchangeLiquidity `json:"exchangeMetrics"`
	Recommendations LiquidityRecommendations     `json:"recommendations"`
}

var sampleLiquidity = map[string]ExchangeLiquidity{
	"binance": {
		Volume24h:            4800000000,
		MarketShare:          50.8,
		OrderBookDepth:       75000000,
		Slippage:             Slippage{0.02, 0.08, 0.29},
		AverageExecutionTime: 45,
	},
	"coinbase": {
		Volume24h:            2700000000,
		MarketShare:          28.6,
		OrderBookDepth:       45000000,
		Slippage:             Slippage{0.03, 0.12, 0.42},
		AverageExecutionTime: 65,
	},
	"kraken": {
		Volume24h:            1950000000,
		MarketShare:          20.6,
		OrderBookDepth:       38000000,
		Slippage:             Slippage{0.05, 0.18, 0.52},
		AverageExecutionTime: 72,
	},
}

func analyzeLiquidity(clock clockwork.Clock) registry.Handler {
	return func(_ context.Context, raw json.RawMessage) (any, error) {
		var params struct {
			Symbol          string   `json:"symbol"`
			Exchanges       []string `json:"exchanges"`
			VolumeThreshold *float64 `json:"volumeThreshold"`
		}
		if err := mcp.DecodeParams(raw, &params); err != nil {
			return nil, err
		}
		if params.Exchanges == nil {
			params.Exchanges = defaultExchanges
		}
		threshold := 1.0
		if params.VolumeThreshold != nil {
			threshold = *params.VolumeThreshold
		}
		if threshold < 0 {
			return nil, errors.New("volumeThreshold must not be negative")
		}

		metrics := make(map[string]ExchangeLiquidity, len(params.Exchanges))
		for _, ex := range params.Exchanges {
			if m, ok := sampleLiquidity[strings.ToLower(ex)]; ok {
				metrics[strings.ToLower(ex)] = m
			}
		}

		return LiquidityReport{
			Symbol:          params.Symbol,
			Timestamp:       clock.Now().UnixMilli(),
			VolumeThreshold: threshold,
			GlobalMetrics: GlobalLiquidity{
				TotalVolume24h:  9450000000,
				AverageSlippage: Slippage{0.04, 0.12, 0.38},
				BidAskSpread:    0.02,
				Volatility24h:   2.4,
				LiquidityScore:  92,
			},
			ExchangeMetrics: metrics,
			Recommendations: LiquidityRecommendations{
				BestForLargeOrders: "binance",
				BestForSpeed:       "binance",
				BestForPrice:       "binance",
				ExecutionStrategy:  "Split between Binance (60%) and Coinbase (40%) for $1M+ orders",
			},
		}, nil
	}
}
