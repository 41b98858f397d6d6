// rebalance.go - Rebalancing orders from current holdings and target weights.
package portfolio

import (
	"cmp"
	"context"
	"encoding/json"
	"math"
	"slices"

	"github.com/pkg/errors"

	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
)

const (
	tradingFeeRate = 0.001
	taxRate        = 0.15
)

// Relative tax efficiency of selling each asset; higher sells first.
var taxEfficiency = map[string]float64{
	"BTC":   0.8,
	"ETH":   0.9,
	"SOL":   0.6,
	"LINK":  0.75,
	"MATIC": 0.85,
}

const defaultTaxEfficiency = 0.5

// Order is one BUY or SELL needed to reach the target weights.
type Order struct {
	Symbol           string  `json:"symbol"`
	Action           string  `json:"action"`
	ValueChange      float64 `json:"valueChange"`
	PercentageChange float64 `json:"percentageChange"`
	FromWeight       float64 `json:"fromWeight"`
	ToWeight         float64 `json:"toWeight"`
}

// TaxImplications is reported only when tax optimization is on.
type TaxImplications struct {
	EstimatedTaxableGains float64 `json:"estimatedTaxableGains"`
	TaxLossHarvesting     string  `json:"taxLossHarvesting"`
}

// RebalanceReport is the rebalance_portfolio result.
type RebalanceReport struct {
	RebalancingOrders       []Order            `json:"rebalancingOrders"`
	CurrentPortfolioWeights map[string]float64 `json:"currentPortfolioWeights"`
	TargetPortfolioWeights  map[string]float64 `json:"targetPortfolioWeights"`
	TotalRebalancingValue   float64            `json:"totalRebalancingValue"`
	EstimatedTradingCosts   float64            `json:"estimatedTradingCosts"`
	// TaxImplications is a TaxImplications or a short notice string.
	TaxImplications any `json:"taxImplications"`
}

type position struct {
	Symbol       string  `json:"symbol"`
	Amount       float64 `json:"amount"`
	CurrentValue float64 `json:"currentValue"`
}

func rebalancePortfolio(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		CurrentPortfolio struct {
			Assets     []position `json:"assets"`
			TotalValue float64   `json:"totalValue"`
		} `json:"currentPortfolio"`
		TargetWeights   map[string]float64 `json:"targetWeights"`
		Threshold       *float64           `json:"threshold"`
		TaxOptimization bool               `json:"taxOptimization"`
	}
	if err := mcp.DecodeParams(raw, &params); err != nil {
		return nil, err
	}
	threshold := 5.0
	if params.Threshold != nil {
		threshold = *params.Threshold
	}

	assets := params.CurrentPortfolio.Assets
	total := params.CurrentPortfolio.TotalValue
	if total == 0 {
		for _, a := range assets {
			total += a.CurrentValue
		}
	}
	if total == 0 {
		return nil, errors.New("portfolio total value is zero")
	}

	current := make(map[string]float64, len(assets))
	for _, a := range assets {
		current[a.Symbol] = a.CurrentValue / total * 100
	}

	// Targets are visited in symbol order so the output is stable.
	targets := make([]string, 0, len(params.TargetWeights))
	for symbol := range params.TargetWeights {
		targets = append(targets, symbol)
	}
	slices.Sort(targets)

	orders := make([]Order, 0, len(targets)+len(assets))
	for _, symbol := range targets {
		target := params.TargetWeights[symbol]
		held := current[symbol]
		diff := target - held
		if math.Abs(diff) < threshold {
			continue
		}
		action := "SELL"
		if diff > 0 {
			action = "BUY"
		}
		orders = append(orders, Order{
			Symbol:           symbol,
			Action:           action,
			ValueChange:      round2(math.Abs(diff) / 100 * total),
			PercentageChange: round2(math.Abs(diff)),
			FromWeight:       round2(held),
			ToWeight:         target,
		})
	}
	for _, a := range assets {
		if _, ok := params.TargetWeights[a.Symbol]; ok {
			continue
		}
		w := round2(current[a.Symbol])
		orders = append(orders, Order{
			Symbol:           a.Symbol,
			Action:           "SELL",
			ValueChange:      round2(a.CurrentValue),
			PercentageChange: w,
			FromWeight:       w,
			ToWeight:         0,
		})
	}

	var moved, taxable float64
	for _, o := range orders {
		moved += o.ValueChange
		if o.Action == "SELL" {
			taxable += o.ValueChange * taxRate
		}
	}

	var tax any = "Tax optimization not enabled"
	if params.TaxOptimization {
		sortForTax(orders)
		tax = TaxImplications{
			EstimatedTaxableGains: round2(taxable),
			TaxLossHarvesting:     "Optimized sell orders to minimize tax impact",
		}
	}

	weights := make(map[string]float64, len(current))
	for symbol, w := range current {
		weights[symbol] = round2(w)
	}
	if params.TargetWeights == nil {
		params.TargetWeights = map[string]float64{}
	}

	return RebalanceReport{
		RebalancingOrders:       orders,
		CurrentPortfolioWeights: weights,
		TargetPortfolioWeights:  params.TargetWeights,
		TotalRebalancingValue:   round2(moved),
		EstimatedTradingCosts:   round2(moved * tradingFeeRate),
		TaxImplications:         tax,
	}, nil
}

// sortForTax moves sells ahead of buys, most tax-efficient sells first.
func sortForTax(orders []Order) {
	rank := func(o Order) float64 {
		if o.Action != "SELL" {
			return -1
		}
		if e, ok := taxEfficiency[o.Symbol]; ok {
			return e
		}
		return defaultTaxEfficiency
	}
	slices.SortStableFunc(orders, func(a, b Order) int {
		return cmp.Compare(rank(b), rank(a))
	})
}
