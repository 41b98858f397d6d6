// signals.go - Signal generation tools: model signals, backtests, optimization, patterns.
package signals

import (
	"github.com/jonboulle/clockwork"

	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
	"github.com/crypto-signal/crypto-signal-mcp/internal/schema"
)

var (
	models              = []string{"LSTM", "GRU", "XGBoost", "Ensemble"}
	optimizationGoals   = []string{"maximizeReturn", "maximizeSharpe", "minimizeDrawdown", "balanced"}
	optimizationMethods = []string{"genetic", "bayesian", "grid", "random"}
	chartPatterns       = []string{
		"Head_And_Shoulders", "Double_Top", "Double_Bottom", "Triangle",
		"Rectangle", "Flag", "Cup_And_Handle", "Wedge",
	}
)

func strategySchema(description string) map[string]any {
	return schema.Nested(description, map[string]any{
		"name":       schema.String(""),
		"parameters": schema.Nested("", nil),
	})
}

// Tools returns the signals collection.
func Tools(clock clockwork.Clock) []registry.Tool {
	return []registry.Tool{
		{
			Name:        "generate_signals",
			Description: "Generate trading signals using AI-enhanced technical analysis",
			Parameters: schema.Object(map[string]any{
				"model": schema.Enum("Machine learning model to use for prediction", models...),
				"marketData": schema.Nested("Market data parameters", map[string]any{
					"symbol":    schema.String(""),
					"timeframe": schema.String(""),
					"exchange":  schema.String(""),
				}),
				"confidence": schema.Number("Minimum confidence threshold (0-1, default: 0.7)"),
			}, "model", "marketData"),
			Handler: generateSignals(clock),
		},
		{
			Name:        "backtest_strategy",
			Description: "Backtest a trading strategy against historical data",
			Parameters: schema.Object(map[string]any{
				"strategy": strategySchema("Trading strategy configuration"),
				"historicalData": schema.Nested("Historical data parameters", map[string]any{
					"symbol":    schema.String(""),
					"timeframe": schema.String(""),
					"startDate": schema.String(""),
					"endDate":   schema.String(""),
				}),
				"initialCapital": schema.Number("Initial capital amount for backtesting"),
				"fees":           schema.Nested("Fee structure for trading", nil),
			}, "strategy", "historicalData"),
			Handler: backtestStrategy(clock),
		},
		{
			Name:        "optimize_strategy",
			Description: "Optimize trading strategy parameters using machine learning",
			Parameters: schema.Object(map[string]any{
				"strategy":           strategySchema("Trading strategy to optimize"),
				"optimizationGoal":   schema.Enum("Optimization objective", optimizationGoals...),
				"optimizationMethod": schema.Enum("Optimization method (default: bayesian)", optimizationMethods...),
				"testPeriod": schema.Nested("Testing period for optimization", map[string]any{
					"startDate": schema.String(""),
					"endDate":   schema.String(""),
				}),
			}, "strategy", "optimizationGoal"),
			Handler: optimizeStrategy,
		},
		{
			Name:        "detect_patterns",
			Description: "Detect technical chart patterns across multiple assets",
			Parameters: schema.Object(map[string]any{
				"patterns":      schema.Array("Patterns to detect", schema.Enum("", chartPatterns...)),
				"timeframes":    schema.StringArray("Timeframes to analyze"),
				"minConfidence": schema.Number("Minimum confidence threshold (0-1)"),
			}, "patterns", "timeframes"),
			Handler: detectPatterns(clock),
		},
	}
}
