// sentiment.go - Social sentiment scores derived from the asset name.
package alerts

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
)

var defaultPlatforms = []string{"twitter", "reddit", "telegram"}

// Sentiment is a score in [0,1] with its label.
type Sentiment struct {
	Score          float64 `json:"score"`
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
}

// PlatformSentiment is the sentiment for one asset on one platform.
type PlatformSentiment struct {
	Score          float64  `json:"score"`
	Volume         int      `json:"volume"`
	Trending       bool     `json:"trending"`
	KeyInfluencers []string `json:"keyInfluencers,omitempty"`
	TopSubreddits  []string `json:"topSubreddits,omitempty"`
	TopGroups      []string `json:"topGroups,omitempty"`
}

// SentimentPoint is one sample of the sentiment series.
type SentimentPoint struct {
	Date      string  `json:"date"`
	Sentiment float64 `json:"sentiment"`
	Volume    float64 `json:"volume"`
}

// Topic is a trending discussion topic and its sentiment.
type Topic struct {
	Topic     string  `json:"topic"`
	Frequency float64 `json:"frequency"`
	Sentiment float64 `json:"sentiment"`
}

// SentimentSignal flags an outlier in the series.
type SentimentSignal struct {
	Signal      string  `json:"signal"`
	Strength    float64 `json:"strength"`
	Timeframe   string  `json:"timeframe"`
	Reliability string  `json:"reliability"`
}

// AssetSentiment aggregates every requested platform for one asset.
type AssetSentiment struct {
	Asset                string                       `json:"asset"`
	OverallSentiment     Sentiment                    `json:"overallSentiment"`
	PlatformSentiment    map[string]PlatformSentiment `json:"platformSentiment"`
	TimeSeriesData       []SentimentPoint             `json:"timeSeriesData"`
	TopTopics            []Topic                      `json:"topTopics"`
	SentimentCorrelation map[string]any               `json:"sentimentCorrelation"`
	TradingSignals       SentimentSignal              `json:"tradingSignals"`
}

// SentimentSummary is the cross-asset overview.
type SentimentSummary struct {
	Overall  float64  `json:"overall"`
	Trend    string   `json:"trend"`
	Outliers []string `json:"outliers"`
}

// SentimentReport is the analyze_social_sentiment result.
type SentimentReport struct {
	Results                []AssetSentiment `json:"results"`
	Timestamp              int64            `json:"timestamp"`
	AnalysisPeriod         string           `json:"analysisPeriod"`
	PlatformsCovered       []string         `json:"platformsCovered"`
	MarketSentimentSummary SentimentSummary `json:"marketSentimentSummary"`
}

// nameHash is the sum of the asset's character codes.
func nameHash(asset string) int {
	var h int
	for _, r := range asset {
		h += int(r)
	}
	return h
}

// baseScore maps the hash into [0.50, 0.89].
func baseScore(hash int) float64 {
	return float64(hash%40+50) / 100
}

func classify(score float64, above, middle, below string) string {
	switch {
	case score > 0.7:
		return above
	case score > 0.5:
		return middle
	default:
		return below
	}
}

func analyzeSocialSentiment(clock clockwork.Clock) registry.Handler {
	return func(_ context.Context, raw json.RawMessage) (any, error) {
		var params struct {
			Assets    []string `json:"assets"`
			Platforms []string `json:"platforms"`
			Timeframe string   `json:"timeframe"`
		}
		if err := mcp.DecodeParams(raw, &params); err != nil {
			return nil, err
		}
		if len(params.Assets) == 0 {
			return nil, errors.New("at least one asset is required")
		}
		if params.Platforms == nil {
			params.Platforms = defaultPlatforms
		}
		if params.Timeframe == "" {
			params.Timeframe = "24h"
		}

		now := clock.Now()
		results := make([]AssetSentiment, len(params.Assets))
		outliers := []string{}
		var sum float64
		for i, asset := range params.Assets {
			results[i] = assetSentiment(asset, params.Platforms, now)
			score := results[i].OverallSentiment.Score
			sum += score
			if math.Abs(score-0.6) > 0.2 {
				outliers = append(outliers, asset)
			}
		}

		return SentimentReport{
			Results:          results,
			Timestamp:        now.UnixMilli(),
			AnalysisPeriod:   params.Timeframe,
			PlatformsCovered: params.Platforms,
			MarketSentimentSummary: SentimentSummary{
				Overall:  round(sum/float64(len(results)), 4),
				Trend:    "Improving",
				Outliers: outliers,
			},
		}, nil
	}
}

func assetSentiment(asset string, platforms []string, now time.Time) AssetSentiment {
	hash := nameHash(asset)
	base := baseScore(hash)

	byPlatform := make(map[string]PlatformSentiment, len(platforms))
	for _, p := range platforms {
		switch strings.ToLower(p) {
		case "twitter":
			byPlatform["twitter"] = PlatformSentiment{
				Score:          round(base-0.03, 2),
				Volume:         45000 + hash%15000,
				Trending:       hash%5 == 0,
				KeyInfluencers: []string{"user1", "user2"},
			}
		case "reddit":
			byPlatform["reddit"] = PlatformSentiment{
				Score:         round(base+0.05, 2),
				Volume:        28000 + hash%12000,
				Trending:      hash%4 == 0,
				TopSubreddits: []string{"r/cryptocurrency", "r/" + strings.ToLower(asset)},
			}
		case "telegram":
			byPlatform["telegram"] = PlatformSentiment{
				Score:     round(base-0.01, 2),
				Volume:    35000 + hash%10000,
				Trending:  hash%3 == 0,
				TopGroups: []string{"Official", "Trading"},
			}
		}
	}

	series := make([]SentimentPoint, 7)
	for i := range series {
		series[i] = SentimentPoint{
			Date:      now.Add(-time.Duration(6-i) * 24 * time.Hour).UTC().Format(time.DateOnly),
			Sentiment: round(base+math.Sin(float64(i))*0.1, 4),
			Volume:    round(35000+math.Cos(float64(i))*5000, 2),
		}
	}

	return AssetSentiment{
		Asset: asset,
		OverallSentiment: Sentiment{
			Score:          base,
			Classification: classify(base, "BULLISH", "NEUTRAL", "BEARISH"),
			Confidence:     0.85,
		},
		PlatformSentiment: byPlatform,
		TimeSeriesData:    series,
		TopTopics: []Topic{
			{Topic: "price", Frequency: 32.5, Sentiment: round(base+0.05, 2)},
			{Topic: "adoption", Frequency: 18.7, Sentiment: round(base+0.15, 2)},
			{Topic: "development", Frequency: 12.3, Sentiment: round(base+0.1, 2)},
		},
		SentimentCorrelation: map[string]any{
			"priceCorrelation":  0.68,
			"volumeCorrelation": 0.54,
			"timeDelay":         "2.5 hours",
		},
		TradingSignals: SentimentSignal{
			Signal:      classify(base, "BUY", "NEUTRAL", "SELL"),
			Strength:    round((base-0.5)*2, 2),
			Timeframe:   "1-3 days",
			Reliability: "Medium",
		},
	}
}
