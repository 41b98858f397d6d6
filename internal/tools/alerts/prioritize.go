// prioritize.go - Scoring and filtering of pending alerts against user preferences.
package alerts

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
	"github.com/crypto-signal/crypto-signal-mcp/internal/schema"
)

const (
	defaultMaxAlertsPerHour = 5
	quietHoursMinRank       = 3 // high
)

var priorityRank = map[string]int{
	"low":      1,
	"medium":   2,
	"high":     3,
	"critical": 4,
}

// rank treats unknown priorities as low.
func rank(priority string) int {
	if r, ok := priorityRank[priority]; ok {
		return r
	}
	return 1
}

// PendingAlert is one alert submitted to prioritize_alerts.
type PendingAlert struct {
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
	Asset    string `json:"asset,omitempty"`
	Message  string `json:"message,omitempty"`
	Priority string `json:"priority"`
}

// ScoredAlert is a pending alert with its computed score and delivery plan.
type ScoredAlert struct {
	PendingAlert
	Score    float64 `json:"score"`
	Filtered bool    `json:"filtered"`
}

// QuietHours is a local-hour window; start > end wraps past midnight.
type QuietHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether hour falls inside the window. An empty window
// (start == end) contains nothing.
func (q QuietHours) Contains(hour int) bool {
	if q.Start <= q.End {
		return hour >= q.Start && hour < q.End
	}
	return hour >= q.Start || hour < q.End
}

// Delivery says how and when an alert is sent.
type Delivery struct {
	AlertID      string   `json:"alert_id"`
	Channels     []string `json:"channels"`
	DeliveryTime string   `json:"delivery_time"`
}

// PrioritizationContext echoes the inputs that shaped the ranking.
type PrioritizationContext struct {
	MarketVolatility string `json:"marketVolatility"`
	InQuietHours     bool   `json:"inQuietHours"`
	MaxAlertsPerHour int    `json:"maxAlertsPerHour"`
}

// PrioritizationResult is the prioritize_alerts result.
type PrioritizationResult struct {
	PrioritizedAlerts       []ScoredAlert         `json:"prioritizedAlerts"`
	FilteredAlerts          []ScoredAlert         `json:"filteredAlerts"`
	DeliveryRecommendations []Delivery            `json:"deliveryRecommendations"`
	Context                 PrioritizationContext `json:"context"`
}

func prioritizeAlerts(clock clockwork.Clock) registry.Handler {
	return func(_ context.Context, raw json.RawMessage) (any, error) {
		var params struct {
			Alerts          []PendingAlert `json:"alerts"`
			UserPreferences struct {
				MaxAlertsPerHour *int               `json:"maxAlertsPerHour"`
				MinPriority      string             `json:"minPriority"`
				QuietHours       *QuietHours        `json:"quietHours"`
				AssetPriorities  map[string]float64 `json:"assetPriorities"`
			} `json:"userPreferences"`
			MarketContext struct {
				Volatility string `json:"volatility"`
			} `json:"marketContext"`
		}
		if err := mcp.DecodeParams(raw, &params); err != nil {
			return nil, err
		}

		prefs := params.UserPreferences
		maxPerHour := defaultMaxAlertsPerHour
		if prefs.MaxAlertsPerHour != nil {
			maxPerHour = *prefs.MaxAlertsPerHour
		}
		if maxPerHour < 0 {
			return nil, errors.New("maxAlertsPerHour must not be negative")
		}
		if prefs.MinPriority == "" {
			prefs.MinPriority = "low"
		}
		if err := schema.CheckEnum("minPriority", prefs.MinPriority, priorities...); err != nil {
			return nil, err
		}
		quiet := QuietHours{Start: 22, End: 8}
		if prefs.QuietHours != nil {
			quiet = *prefs.QuietHours
		}
		volatility := params.MarketContext.Volatility
		if volatility == "" {
			volatility = "medium"
		}
		if err := schema.CheckEnum("volatility", volatility, volatilityLevels...); err != nil {
			return nil, err
		}

		inQuiet := quiet.Contains(clock.Now().Hour())
		minRank := rank(prefs.MinPriority)

		scored := make([]ScoredAlert, len(params.Alerts))
		for i, a := range params.Alerts {
			r := rank(a.Priority)
			score := float64(r) + prefs.AssetPriorities[a.Asset]
			if r == 1 {
				switch volatility {
				case "high":
					score -= 0.5
				case "low":
					score += 0.5
				}
			}
			scored[i] = ScoredAlert{
				PendingAlert: a,
				Score:        score,
				Filtered:     (inQuiet && r < quietHoursMinRank) || r < minRank,
			}
		}
		byScore := func(a, b ScoredAlert) int {
			return cmp.Compare(b.Score, a.Score)
		}
		slices.SortStableFunc(scored, byScore)

		// Critical alerts always go out; the rest share what is left of the hourly budget.
		var critical, regular, dropped []ScoredAlert
		for _, a := range scored {
			switch {
			case a.Filtered:
				dropped = append(dropped, a)
			case a.Priority == "critical":
				critical = append(critical, a)
			default:
				regular = append(regular, a)
			}
		}
		budget := max(0, maxPerHour-len(critical))
		if len(regular) > budget {
			dropped = append(dropped, regular[budget:]...)
			regular = regular[:budget]
		}
		slices.SortStableFunc(dropped, byScore)
		kept := append(critical, regular...)
		if kept == nil {
			kept = []ScoredAlert{}
		}
		if dropped == nil {
			dropped = []ScoredAlert{}
		}

		deliveries := make([]Delivery, len(kept))
		for i, a := range kept {
			deliveries[i] = Delivery{
				AlertID:      a.ID,
				Channels:     deliveryChannels(a.Priority, inQuiet),
				DeliveryTime: deliveryTime(a.Priority, inQuiet),
			}
		}

		return PrioritizationResult{
			PrioritizedAlerts:       kept,
			FilteredAlerts:          dropped,
			DeliveryRecommendations: deliveries,
			Context: PrioritizationContext{
				MarketVolatility: volatility,
				InQuietHours:     inQuiet,
				MaxAlertsPerHour: maxPerHour,
			},
		}, nil
	}
}

func deliveryChannels(priority string, quiet bool) []string {
	switch priority {
	case "critical":
		return []string{"email", "sms", "push", "phone"}
	case "high":
		if quiet {
			return []string{"email", "push"}
		}
		return []string{"email", "sms", "push"}
	case "medium":
		if quiet {
			return []string{"email"}
		}
		return []string{"email", "push"}
	default:
		return []string{"email"}
	}
}

func deliveryTime(priority string, quiet bool) string {
	switch priority {
	case "critical", "high":
		return "immediate"
	case "medium":
		if quiet {
			return "morning_digest"
		}
		return "immediate"
	default:
		if quiet {
			return "morning_digest"
		}
		return "hourly_digest"
	}
}
