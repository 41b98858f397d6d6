// generate.go - Model signals and chart pattern matches, filtered by confidence.
package signals

import (
	"context"
	"encoding/json"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
	"github.com/crypto-signal/crypto-signal-mcp/internal/schema"
)

// Indicators are the technical readings behind a signal.
type Indicators struct {
	RSI    RSI            `json:"RSI"`
	MACD   MACD           `json:"MACD"`
	BB     BollingerBands `json:"BB"`
	Volume RelativeVolume `json:"Volume"`
}

// RSI is the relative strength index reading.
type RSI struct {
	Value  float64 `json:"value"`
	Signal string  `json:"signal"`
}

// MACD is the moving-average convergence/divergence reading.
type MACD struct {
	Signal    string  `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerBands places the price relative to the bands.
type BollingerBands struct {
	Position string `json:"position"`
	Squeeze  bool   `json:"squeeze"`
}

// RelativeVolume compares volume to its recent average.
type RelativeVolume struct {
	RelativeToAvg float64 `json:"relative_to_avg"`
}

// Signal is one trading recommendation from a model.
type Signal struct {
	Symbol                  string     `json:"symbol"`
	Exchange                string     `json:"exchange"`
	Timeframe               string     `json:"timeframe"`
	SignalType              string     `json:"signal_type"`
	Confidence              float64    `json:"confidence"`
	Timestamp               int64      `json:"timestamp"`
	Price                   float64    `json:"price"`
	Indicators              Indicators `json:"indicators"`
	ModelUsed               string     `json:"model_used"`
	RiskRewardRatio         float64    `json:"risk_reward_ratio"`
	TargetPrice             float64    `json:"target_price"`
	StopLoss                float64    `json:"stop_loss"`
	RecommendedPositionSize string     `json:"recommended_position_size"`
	Analysis                string     `json:"analysis"`
}

// SignalReport is the generate_signals result.
type SignalReport struct {
	Signals   []Signal `json:"signals"`
	Timestamp int64    `json:"timestamp"`
	Model     string   `json:"model"`
}

// checkUnit rejects thresholds outside [0, 1].
func checkUnit(field string, v float64) error {
	if v < 0 || v > 1 {
		return errors.Errorf("%s must be between 0 and 1, got %g", field, v)
	}
	return nil
}

func generateSignals(clock clockwork.Clock) registry.Handler {
	return func(_ context.Context, raw json.RawMessage) (any, error) {
		var params struct {
			Model      string `json:"model"`
			MarketData struct {
				Symbol    string `json:"symbol"`
				Timeframe string `json:"timeframe"`
				Exchange  string `json:"exchange"`
			} `json:"marketData"`
			Confidence *float64 `json:"confidence"`
		}
		if err := mcp.DecodeParams(raw, &params); err != nil {
			return nil, err
		}
		if err := schema.CheckEnum("model", params.Model, models...); err != nil {
			return nil, err
		}
		minConfidence := 0.7
		if params.Confidence != nil {
			minConfidence = *params.Confidence
		}
		if err := checkUnit("confidence", minConfidence); err != nil {
			return nil, err
		}

		now := clock.Now().UnixMilli()
		md := params.MarketData
		candidates := []Signal{
			{
				Symbol:     valueOr(md.Symbol, "BTC/USDT"),
				Exchange:   valueOr(md.Exchange, "binance"),
				Timeframe:  valueOr(md.Timeframe, "4h"),
				SignalType: "STRONG_BUY",
				Confidence: 0.89,
				Price:      67850.23,
				Indicators: Indicators{
					RSI:    RSI{Value: 35.2, Signal: "OVERSOLD"},
					MACD:   MACD{Signal: "BULLISH_CROSS", Histogram: 0.0034},
					BB:     BollingerBands{Position: "LOWER_BAND", Squeeze: true},
					Volume: RelativeVolume{RelativeToAvg: 2.4},
				},
				RiskRewardRatio:         4.2,
				TargetPrice:             71250.50,
				StopLoss:                66950.10,
				RecommendedPositionSize: "3% of portfolio",
				Analysis: "Strong buy signal confirmed by oversold RSI, MACD bullish crossover, and price at lower " +
					"Bollinger Band with increased volume. Recent dip presents favorable entry point with positive risk-reward ratio.",
			},
			{
				Symbol:     "ETH/USDT",
				Exchange:   "binance",
				Timeframe:  "4h",
				SignalType: "BUY",
				Confidence: 0.82,
				Price:      3247.85,
				Indicators: Indicators{
					RSI:    RSI{Value: 42.3, Signal: "NEUTRAL"},
					MACD:   MACD{Signal: "BULLISH_DIVERGENCE", Histogram: 0.12},
					BB:     BollingerBands{Position: "MIDDLE", Squeeze: false},
					Volume: RelativeVolume{RelativeToAvg: 1.5},
				},
				RiskRewardRatio:         3.5,
				TargetPrice:             3420.00,
				StopLoss:                3180.00,
				RecommendedPositionSize: "2% of portfolio",
				Analysis: "Buy signal based on bullish MACD divergence and increasing volume. Price forming support " +
					"at key level with potential upside target at previous resistance.",
			},
		}

		signals := make([]Signal, 0, len(candidates))
		for _, s := range candidates {
			if s.Confidence < minConfidence {
				continue
			}
			s.Timestamp = now
			s.ModelUsed = params.Model
			signals = append(signals, s)
		}
		return SignalReport{Signals: signals, Timestamp: now, Model: params.Model}, nil
	}
}

// PatternMatch is a chart pattern found on one timeframe.
type PatternMatch struct {
	Symbol                string        `json:"symbol"`
	Pattern               string        `json:"pattern"`
	Timeframe             string        `json:"timeframe"`
	Confidence            float64       `json:"confidence"`
	FormationStart        string        `json:"formationStart"`
	FormationEnd          string        `json:"formationEnd"`
	BreakoutLevel         float64       `json:"breakoutLevel"`
	TargetPrice           float64       `json:"targetPrice"`
	StopLoss              float64       `json:"stopLoss"`
	Volume                PatternVolume `json:"volume"`
	TradingRecommendation string        `json:"tradingRecommendation"`
}

// PatternVolume describes volume while a pattern forms and at breakout.
type PatternVolume struct {
	DuringFormation string `json:"duringFormation"`
	AtBreakout      string `json:"atBreakout"`
}

// PatternReport is the detect_patterns result.
type PatternReport struct {
	Patterns           []PatternMatch `json:"patterns"`
	Timestamp          int64          `json:"timestamp"`
	PatternsSearched   []string       `json:"patternsSearched"`
	TimeframesAnalyzed []string       `json:"timeframesAnalyzed"`
	TotalMatchesFound  int            `json:"totalMatchesFound"`
}

var samplePatterns = []PatternMatch{
	{
		Symbol:                "BTC/USDT",
		Pattern:               "Bull_Flag",
		Timeframe:             "4h",
		Confidence:            0.86,
		FormationStart:        "2024-07-01",
		FormationEnd:          "2024-07-05",
		BreakoutLevel:         68500,
		TargetPrice:           73200,
		StopLoss:              66900,
		Volume:                PatternVolume{DuringFormation: "Decreasing", AtBreakout: "Increasing"},
		TradingRecommendation: "Buy on breakout of 68500 with stop at 66900. Target: 73200",
	},
	{
		Symbol:                "ETH/USDT",
		Pattern:               "Cup_And_Handle",
		Timeframe:             "1d",
		Confidence:            0.78,
		FormationStart:        "2024-06-01",
		FormationEnd:          "2024-07-04",
		BreakoutLevel:         3350,
		TargetPrice:           3750,
		StopLoss:              3150,
		Volume:                PatternVolume{DuringFormation: "Consistent", AtBreakout: "Pending"},
		TradingRecommendation: "Watch for breakout above 3350 with increasing volume",
	},
}

func detectPatterns(clock clockwork.Clock) registry.Handler {
	return func(_ context.Context, raw json.RawMessage) (any, error) {
		var params struct {
			Patterns      []string `json:"patterns"`
			Timeframes    []string `json:"timeframes"`
			MinConfidence *float64 `json:"minConfidence"`
		}
		if err := mcp.DecodeParams(raw, &params); err != nil {
			return nil, err
		}
		for _, p := range params.Patterns {
			if err := schema.CheckEnum("pattern", p, chartPatterns...); err != nil {
				return nil, err
			}
		}
		minConfidence := 0.7
		if params.MinConfidence != nil {
			minConfidence = *params.MinConfidence
		}
		if err := checkUnit("minConfidence", minConfidence); err != nil {
			return nil, err
		}

		matches := make([]PatternMatch, 0, len(samplePatterns))
		for _, m := range samplePatterns {
			if m.Confidence >= minConfidence {
				matches = append(matches, m)
			}
		}
		return PatternReport{
			Patterns:           matches,
			Timestamp:          clock.Now().UnixMilli(),
			PatternsSearched:   params.Patterns,
			TimeframesAnalyzed: params.Timeframes,
			TotalMatchesFound:  len(matches),
		}, nil
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
