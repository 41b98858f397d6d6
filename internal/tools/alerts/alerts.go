// alerts.go - Alerting tools: smart alerts, social sentiment, prioritization, predictive alerts.
package alerts

import (
	"crypto/rand"
	"math"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"

	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
	"github.com/crypto-signal/crypto-signal-mcp/internal/schema"
)

var (
	logicModes       = []string{"AND", "OR", "CUSTOM"}
	priorities       = []string{"low", "medium", "high", "critical"}
	predictionModels = []string{"price_prediction", "volatility_forecast", "pattern_completion", "trend_reversal"}
	volatilityLevels = []string{"low", "medium", "high"}
)

// Tools returns the alerts collection. Alert ids and created_at come from clock.
func Tools(clock clockwork.Clock) []registry.Tool {
	return []registry.Tool{
		{
			Name:        "create_smart_alert",
			Description: "Create a multi-condition intelligent alert",
			Parameters: schema.Object(map[string]any{
				"conditions": schema.Array("Alert conditions", schema.Nested("", map[string]any{
					"type":      schema.String(""),
					"asset":     schema.String(""),
					"parameter": schema.String(""),
					"operator":  schema.String(""),
					"value":     schema.Number(""),
				})),
				"logic":    schema.Enum("Logic to apply between conditions", logicModes...),
				"priority": schema.Enum("Alert priority", priorities...),
				"channels": schema.StringArray("Notification channels"),
			}, "conditions", "priority"),
			Handler: createSmartAlert(clock),
		},
		{
			Name:        "analyze_social_sentiment",
			Description: "Analyze social media sentiment for cryptocurrencies",
			Parameters: schema.Object(map[string]any{
				"assets":    schema.StringArray("Assets to analyze"),
				"platforms": schema.StringArray("Social platforms to include"),
				"timeframe": schema.String("Timeframe for analysis"),
			}, "assets"),
			Handler: analyzeSocialSentiment(clock),
		},
		{
			Name:        "prioritize_alerts",
			Description: "Intelligently prioritize and filter alerts based on context",
			Parameters: schema.Object(map[string]any{
				"alerts": schema.Array("Alerts to prioritize", schema.Nested("", map[string]any{
					"id":       schema.String(""),
					"type":     schema.String(""),
					"asset":    schema.String(""),
					"message":  schema.String(""),
					"priority": schema.String(""),
				})),
				"userPreferences": schema.Nested("User notification preferences", map[string]any{
					"maxAlertsPerHour": schema.Number(""),
					"minPriority":      schema.Enum("", priorities...),
					"quietHours": schema.Nested("", map[string]any{
						"start": schema.Number(""),
						"end":   schema.Number(""),
					}),
					"assetPriorities": schema.MapOf("", schema.Number("")),
				}),
				"marketContext": schema.Nested("Current market conditions", map[string]any{
					"volatility": schema.Enum("", volatilityLevels...),
				}),
			}, "alerts"),
			Handler: prioritizeAlerts(clock),
		},
		{
			Name:        "create_predictive_alert",
			Description: "Create an alert based on predicted future conditions",
			Parameters: schema.Object(map[string]any{
				"model":     schema.Enum("Prediction model to use", predictionModels...),
				"threshold": schema.Number("Confidence threshold for prediction"),
				"leadTime":  schema.Number("Lead time in hours for prediction"),
			}, "model", "threshold"),
			Handler: createPredictiveAlert(clock),
		},
	}
}

// newID returns prefix followed by a lowercase ULID stamped at now.
func newID(prefix string, now time.Time) string {
	return prefix + strings.ToLower(ulid.MustNew(ulid.Timestamp(now), rand.Reader).String())
}

// isoTime matches the millisecond UTC layout clients expect for created_at.
func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
