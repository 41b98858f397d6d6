// portfolio.go - Portfolio tools: allocation, value at risk, rebalancing, stress tests.
package portfolio

import (
	"math"

	"github.com/jonboulle/clockwork"

	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
	"github.com/crypto-signal/crypto-signal-mcp/internal/schema"
)

// Reference prices in USD. Unknown symbols are valued at zero.
var prices = map[string]float64{
	"BTC":   67850,
	"ETH":   3247,
	"USDT":  1,
	"SOL":   142,
	"LINK":  14.67,
	"MATIC": 0.82,
}

// Daily volatilities used for risk contribution.
var volatilities = map[string]float64{
	"BTC":   0.048,
	"ETH":   0.062,
	"USDT":  0.001,
	"SOL":   0.078,
	"LINK":  0.068,
	"MATIC": 0.082,
}

var (
	objectives = []string{"minRisk", "maxSharpe", "riskParity"}
	varMethods = []string{"historical", "monteCarlo", "parametric"}
	scenarios  = []string{
		"market_crash_30pct", "march_2020", "may_2021",
		"interest_rate_hike", "regulatory_crackdown", "custom",
	}
)

// Tools returns the portfolio collection.
func Tools(clock clockwork.Clock) []registry.Tool {
	holding := func(valueKey string) map[string]any {
		return schema.Nested("", map[string]any{
			"symbol": schema.String(""),
			valueKey: schema.Number(""),
		})
	}

	return []registry.Tool{
		{
			Name:        "optimize_portfolio",
			Description: "Optimize cryptocurrency portfolio using Modern Portfolio Theory",
			Parameters: schema.Object(map[string]any{
				"assets": schema.Array("Assets to include in portfolio", holding("weight")),
				"constraints": schema.Array("Optimization constraints", schema.Nested("", map[string]any{
					"type":  schema.String(""),
					"value": schema.Number(""),
				})),
				"objective":          schema.Enum("Optimization objective", objectives...),
				"rebalanceFrequency": schema.String("How often to rebalance the portfolio"),
			}, "assets", "objective"),
			Handler: optimizePortfolio(clock),
		},
		{
			Name:        "calculate_var",
			Description: "Calculate Value at Risk for a cryptocurrency portfolio",
			Parameters: schema.Object(map[string]any{
				"portfolio": schema.Nested("Portfolio composition", map[string]any{
					"assets": schema.Array("", holding("amount")),
				}),
				"confidence": schema.Number("Confidence level (0-1)"),
				"horizon":    schema.Number("Time horizon in days"),
				"method":     schema.Enum("VaR calculation method", varMethods...),
			}, "portfolio", "confidence"),
			Handler: calculateVaR,
		},
		{
			Name:        "rebalance_portfolio",
			Description: "Generate rebalancing orders for a cryptocurrency portfolio",
			Parameters: schema.Object(map[string]any{
				"currentPortfolio": schema.Nested("Current portfolio composition", map[string]any{
					"assets": schema.Array("", schema.Nested("", map[string]any{
						"symbol":       schema.String(""),
						"amount":       schema.Number(""),
						"currentValue": schema.Number(""),
					})),
					"totalValue": schema.Number(""),
				}),
				"targetWeights":   schema.MapOf("Target portfolio weights", schema.Number("")),
				"threshold":       schema.Number("Minimum threshold for rebalancing (percentage)"),
				"taxOptimization": schema.Boolean("Whether to optimize for taxes"),
			}, "currentPortfolio", "targetWeights"),
			Handler: rebalancePortfolio,
		},
		{
			Name:        "run_stress_test",
			Description: "Simulate portfolio performance under stress scenarios",
			Parameters: schema.Object(map[string]any{
				"portfolio":      schema.Nested("Portfolio composition", nil),
				"scenarios":      schema.Array("Stress scenarios to simulate", schema.Enum("", scenarios...)),
				"customScenario": schema.Nested(`Custom scenario definition (if scenarios includes "custom")`, nil),
			}, "portfolio", "scenarios"),
			Handler: runStressTest(clock),
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
