// catalog.go - The tool collections served by this process, in merge order.
package tools

import (
	"github.com/jonboulle/clockwork"

	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
	"github.com/crypto-signal/crypto-signal-mcp/internal/tools/alerts"
	"github.com/crypto-signal/crypto-signal-mcp/internal/tools/market"
	"github.com/crypto-signal/crypto-signal-mcp/internal/tools/portfolio"
	"github.com/crypto-signal/crypto-signal-mcp/internal/tools/signals"
)

// Collections returns market, signals, portfolio and alerts tools.
func Collections(clock clockwork.Clock) [][]registry.Tool {
	return [][]registry.Tool{
		market.Tools(clock),
		signals.Tools(clock),
		portfolio.Tools(clock),
		alerts.Tools(clock),
	}
}

// Registry builds the registry for all collections.
func Registry(clock clockwork.Clock) (*registry.Registry, error) {
	return registry.New(Collections(clock)...)
}
