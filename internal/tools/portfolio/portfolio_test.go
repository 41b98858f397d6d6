// portfolio_test.go - Tests for the portfolio tools.
package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
)

var epoch = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func call(t *testing.T, name, params string) (any, error) {
	t.Helper()
	reg, err := registry.New(Tools(clockwork.NewFakeClockAt(epoch)))
	require.NoError(t, err)
	tool, ok := reg.Lookup(name)
	require.True(t, ok, name)
	return tool.Call(context.Background(), json.RawMessage(params))
}

func TestOptimizePortfolio(t *testing.T) {
	t.Parallel()

	out, err := call(t, "optimize_portfolio",
		`{"assets":[{"symbol":"BTC","weight":3},{"symbol":"ETH","weight":2}],"objective":"minRisk"}`)
	require.NoError(t, err)
	p := out.(OptimizedPortfolio)

	assert.Equal(t, []CurrentWeight{{"BTC", 60}, {"ETH", 40}}, p.CurrentAllocation)
	require.Len(t, p.OptimizedAllocation, 6)
	assert.Equal(t, OptimizedWeight{Symbol: "BTC", OptimizedWeight: 45, ChangeFromCurrent: -15}, p.OptimizedAllocation[0])
	assert.Equal(t, OptimizedWeight{Symbol: "USDT", OptimizedWeight: 15, ChangeFromCurrent: 15}, p.OptimizedAllocation[2])
	assert.Equal(t, "monthly", p.RebalancingPlan.Frequency)
	assert.Equal(t, "2024-06-19", p.RebalancingPlan.NextRebalance)
	assert.Empty(t, p.Constraints)

	assert.Equal(t, []RebalancingAction{
		{"BTC", "SELL", 15, "Overweight"},
		{"ETH", "SELL", 15, "Overweight"},
		{"USDT", "BUY", 15, "New allocation"},
		{"SOL", "BUY", 5, "New allocation"},
		{"LINK", "BUY", 5, "New allocation"},
		{"MATIC", "BUY", 5, "New allocation"},
	}, p.RebalancingActions)
}

func TestOptimizePortfolio_Errors(t *testing.T) {
	t.Parallel()

	_, err := call(t, "optimize_portfolio", `{"assets":[{"symbol":"BTC","weight":0}],"objective":"maxSharpe"}`)
	assert.EqualError(t, err, "total asset weight is zero")

	_, err = call(t, "optimize_portfolio", `{"assets":[],"objective":"moon"}`)
	assert.ErrorContains(t, err, `invalid objective "moon"`)
}

func TestCalculateVaR(t *testing.T) {
	t.Parallel()

	out, err := call(t, "calculate_var",
		`{"portfolio":{"assets":[{"symbol":"BTC","amount":1},{"symbol":"USDT","amount":10000}]},"confidence":0.95,"horizon":4}`)
	require.NoError(t, err)
	r := out.(VaRReport)

	assert.Equal(t, 77850.0, r.PortfolioValue)
	assert.InDelta(t, 9030.6, r.RiskMetrics.ValueAtRisk.Confidence95, 0.01)
	assert.InDelta(t, 11.6, r.RiskMetrics.ValueAtRisk.AsPercentOfPortfolio95, 0.01)
	assert.InDelta(t, 12767.4, r.RiskMetrics.ValueAtRisk.Confidence99, 0.01)
	assert.Equal(t, "historical", r.Methodology.Method)
	assert.Equal(t, "95%", r.Methodology.ConfidenceLevel)
	assert.Equal(t, "4 day(s)", r.Methodology.TimeHorizon)

	require.Len(t, r.RiskContributionByAsset, 2)
	btc := r.RiskContributionByAsset[0]
	assert.Equal(t, "BTC", btc.Symbol)
	assert.InDelta(t, 67850*0.048*2, btc.RiskContribution, 0.01)
}

func TestCalculateVaR_MethodsScale(t *testing.T) {
	t.Parallel()

	base := `{"portfolio":{"assets":[{"symbol":"ETH","amount":10}]},"confidence":0.99,"method":"%s"}`
	var last float64
	for _, method := range []string{"parametric", "historical", "monteCarlo"} {
		out, err := call(t, "calculate_var", fmt.Sprintf(base, method))
		require.NoError(t, err, method)
		v := out.(VaRReport).RiskMetrics.ValueAtRisk.Confidence95
		assert.Greater(t, v, last, method)
		last = v
	}
}

func TestCalculateVaR_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unpriced portfolio": `{"portfolio":{"assets":[{"symbol":"DOGE","amount":5}]},"confidence":0.95}`,
		"empty portfolio":    `{"portfolio":{},"confidence":0.95}`,
		"bad confidence":     `{"portfolio":{"assets":[{"symbol":"BTC","amount":1}]},"confidence":95}`,
		"bad horizon":        `{"portfolio":{"assets":[{"symbol":"BTC","amount":1}]},"confidence":0.9,"horizon":-1}`,
		"bad method":         `{"portfolio":{"assets":[{"symbol":"BTC","amount":1}]},"confidence":0.9,"method":"vibes"}`,
	}
	for name, params := range tests {
		params := params
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := call(t, "calculate_var", params)
			assert.Error(t, err)
		})
	}
}

const rebalanceParams = `{
	"currentPortfolio":{"assets":[
		{"symbol":"BTC","currentValue":6000},
		{"symbol":"ETH","currentValue":3000},
		{"symbol":"DOGE","currentValue":1000}
	]},
	"targetWeights":{"SOL":20,"ETH":30,"BTC":50}%s
}`

func TestRebalancePortfolio(t *testing.T) {
	t.Parallel()

	out, err := call(t, "rebalance_portfolio", fmt.Sprintf(rebalanceParams, ""))
	require.NoError(t, err)
	r := out.(RebalanceReport)

	assert.Equal(t, []Order{
		{Symbol: "BTC", Action: "SELL", ValueChange: 1000, PercentageChange: 10, FromWeight: 60, ToWeight: 50},
		{Symbol: "SOL", Action: "BUY", ValueChange: 2000, PercentageChange: 20, FromWeight: 0, ToWeight: 20},
		{Symbol: "DOGE", Action: "SELL", ValueChange: 1000, PercentageChange: 10, FromWeight: 10, ToWeight: 0},
	}, r.RebalancingOrders)
	assert.Equal(t, map[string]float64{"BTC": 60, "ETH": 30, "DOGE": 10}, r.CurrentPortfolioWeights)
	assert.Equal(t, 4000.0, r.TotalRebalancingValue)
	assert.Equal(t, 4.0, r.EstimatedTradingCosts)
	assert.Equal(t, "Tax optimization not enabled", r.TaxImplications)
}

func TestRebalancePortfolio_TaxOptimization(t *testing.T) {
	t.Parallel()

	out, err := call(t, "rebalance_portfolio", fmt.Sprintf(rebalanceParams, `,"taxOptimization":true,"threshold":15`))
	require.NoError(t, err)
	r := out.(RebalanceReport)

	var symbols []string
	for _, o := range r.RebalancingOrders {
		symbols = append(symbols, o.Symbol)
	}
	// BTC drift (10) is under the threshold; sells lead, buys follow.
	assert.Equal(t, []string{"DOGE", "SOL"}, symbols)
	assert.Equal(t, TaxImplications{
		EstimatedTaxableGains: 150,
		TaxLossHarvesting:     "Optimized sell orders to minimize tax impact",
	}, r.TaxImplications)
}

func TestRebalancePortfolio_ZeroTotal(t *testing.T) {
	t.Parallel()

	_, err := call(t, "rebalance_portfolio", `{"currentPortfolio":{"assets":[]},"targetWeights":{"BTC":100}}`)
	assert.EqualError(t, err, "portfolio total value is zero")
}

func TestSortForTax(t *testing.T) {
	t.Parallel()

	orders := []Order{
		{Symbol: "SOL", Action: "BUY"},
		{Symbol: "DOGE", Action: "SELL"},
		{Symbol: "BTC", Action: "SELL"},
		{Symbol: "ETH", Action: "SELL"},
	}
	sortForTax(orders)
	var got []string
	for _, o := range orders {
		got = append(got, o.Symbol)
	}
	assert.Equal(t, []string{"ETH", "BTC", "DOGE", "SOL"}, got)
}

func TestRunStressTest(t *testing.T) {
	t.Parallel()

	out, err := call(t, "run_stress_test", `{
		"portfolio":{"assets":[{"symbol":"BTC","currentValue":10000},{"symbol":"XRP","currentValue":5000}]},
		"scenarios":["market_crash_30pct","custom"],
		"customScenario":{"impactFactors":{"BTC":-0.5}}
	}`)
	require.NoError(t, err)
	r := out.(StressReport)
	assert.Equal(t, epoch.UnixMilli(), r.Timestamp)
	require.Len(t, r.StressTestResults, 2)

	crash := r.StressTestResults[0]
	assert.Equal(t, "MARKET CRASH 30PCT", crash.Description)
	assert.Equal(t, 15000.0, crash.PortfolioValueBefore)
	assert.Equal(t, 10500.0, crash.PortfolioValueAfter)
	assert.Equal(t, -30.0, crash.PortfolioImpactPercentage)
	assert.Equal(t, -30.0, crash.AssetImpacts[1].ImpactPercentage)

	custom := r.StressTestResults[1]
	assert.Equal(t, 8500.0, custom.PortfolioValueAfter)
}

func TestRunStressTest_Errors(t *testing.T) {
	t.Parallel()

	_, err := call(t, "run_stress_test", `{"portfolio":{"assets":[{"symbol":"BTC","currentValue":1}]},"scenarios":["custom"]}`)
	assert.ErrorContains(t, err, "customScenario")

	_, err = call(t, "run_stress_test", `{"portfolio":{"assets":[]},"scenarios":["may_2021"]}`)
	assert.EqualError(t, err, "portfolio has no current value")

	_, err = call(t, "run_stress_test", `{"portfolio":{"assets":[{"symbol":"BTC","currentValue":1}]},"scenarios":["alien_invasion"]}`)
	assert.ErrorContains(t, err, `invalid scenario "alien_invasion"`)
}

func TestHandlersNeverEmitNaN(t *testing.T) {
	t.Parallel()

	out, err := call(t, "calculate_var", `{"portfolio":{"assets":[{"symbol":"USDT","amount":1}]},"confidence":0.5}`)
	require.NoError(t, err)
	_, err = json.Marshal(out)
	require.NoError(t, err)
}
