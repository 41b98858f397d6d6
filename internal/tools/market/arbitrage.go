// arbitrage.go - Cross-exchange spread detection.
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

// Opportunity is a buy on one exchange and a sell on another.
type Opportunity struct {
	Symbol              string          `json:"symbol"`
	BuyExchange         string          `json:"buyExchange"`
	SellExchange        string          `json:"sellExchange"`
	BuyPrice            float64         `json:"buyPrice"`
	SellPrice           float64         `json:"sellPrice"`
	SpreadPercentage    float64         `json:"spreadPercentage"`
	EstimatedProfit     float64         `json:"estimatedProfit"`
	Volume24h           ExchangeVolumes `json:"volume24h"`
	ExecutionTimeMs     int             `json:"executionTime"`
	Fees                *Fees           `json:"fees,omitempty"`
	NetProfitPercentage float64         `json:"netProfitPercentage"`
	RecommendedSize     float64         `json:"recommendedSize"`
	RiskLevel           string          `json:"riskLevel"`
}

// ExchangeVolumes is the volume available on each leg.
type ExchangeVolumes struct {
	BuyExchange  float64 `json:"buyExchange"`
	SellExchange float64 `json:"sellExchange"`
}

// Fees is nil in the JSON when the caller excluded fees.
type Fees struct {
	Buy   float64 `json:"buy"`
	Sell  float64 `json:"sell"`
	Total float64 `json:"total"`
}

// ArbitrageReport is the get_arbitrage_opportunities result.
type ArbitrageReport struct {
	Opportunities      []Opportunity `json:"opportunities"`
	Timestamp          int64         `json:"timestamp"`
	MarketStatus       string        `json:"marketStatus"`
	ExchangesMonitored []string      `json:"exchangesMonitored"`
}

var sampleOpportunities = []Opportunity{
	{
		Symbol:              "ETH/USDT",
		BuyExchange:         "Binance",
		SellExchange:        "Coinbase",
		BuyPrice:            3247.50,
		SellPrice:           3272.10,
		SpreadPercentage:    0.76,
		EstimatedProfit:     24.60,
		Volume24h:           ExchangeVolumes{BuyExchange: 1200000000, SellExchange: 890000000},
		ExecutionTimeMs:     45,
		Fees:                &Fees{Buy: 3.25, Sell: 3.27, Total: 6.52},
		NetProfitPercentage: 0.56,
		RecommendedSize:     25000,
		RiskLevel:           "LOW",
	},
	{
		Symbol:              "LINK/USDT",
		BuyExchange:         "Kraken",
		SellExchange:        "Binance",
		BuyPrice:            14.25,
		SellPrice:           14.39,
		SpreadPercentage:    0.98,
		EstimatedProfit:     14.00,
		Volume24h:           ExchangeVolumes{BuyExchange: 450000000, SellExchange: 520000000},
		ExecutionTimeMs:     38,
		Fees:                &Fees{Buy: 1.42, Sell: 1.44, Total: 2.86},
		NetProfitPercentage: 0.78,
		RecommendedSize:     10000,
		RiskLevel:           "MEDIUM",
	},
}

func arbitrageOpportunities(clock clockwork.Clock) registry.Handler {
	return func(_ context.Context, raw json.RawMessage) (any, error) {
		var params struct {
			Symbols      []string `json:"symbols"`
			MinSpread    *float64 `json:"minSpread"`
			IncludesFees *bool    `json:"includesFees"`
		}
		if err := mcp.DecodeParams(raw, &params); err != nil {
			return nil, err
		}
		minSpread := 0.5
		if params.MinSpread != nil {
			minSpread = *params.MinSpread
		}
		if minSpread < 0 {
			return nil, errors.New("minSpread must not be negative")
		}
		includeFees := params.IncludesFees == nil || *params.IncludesFees

		found := make([]Opportunity, 0, len(sampleOpportunities))
		for _, o := range sampleOpportunities {
			if o.SpreadPercentage < minSpread || !containsFold(params.Symbols, o.Symbol) {
				continue
			}
			if !includeFees {
				o.Fees = nil
				o.NetProfitPercentage = o.SpreadPercentage
			}
			found = append(found, o)
		}

		return ArbitrageReport{
			Opportunities:      found,
			Timestamp:          clock.Now().UnixMilli(),
			MarketStatus:       "Active",
			ExchangesMonitored: []string{"Binance", "Coinbase", "Kraken", "KuCoin", "Bitfinex"},
		}, nil
	}
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
