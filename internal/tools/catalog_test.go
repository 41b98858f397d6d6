// catalog_test.go - Tests for the merged tool catalog.
package tools

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AllCollectionsMerge(t *testing.T) {
	t.Parallel()

	reg, err := Registry(clockwork.NewFakeClock())
	require.NoError(t, err)
	assert.Equal(t, 16, reg.Len())

	names := reg.Names()
	assert.Equal(t, "get_aggregated_order_book", names[0])
	assert.Equal(t, "create_predictive_alert", names[len(names)-1])
}

func TestRegistry_SchemasAreWellFormed(t *testing.T) {
	t.Parallel()

	reg, err := Registry(clockwork.NewFakeClock())
	require.NoError(t, err)

	for _, tool := range reg.List() {
		t.Run(tool.Name, func(t *testing.T) {
			assert.NotEmpty(t, tool.Description)
			assert.Equal(t, "object", tool.Parameters["type"])
			props, ok := tool.Parameters["properties"].(map[string]any)
			require.True(t, ok)
			required, _ := tool.Parameters["required"].([]string)
			assert.NotEmpty(t, required)
			for _, key := range required {
				assert.Contains(t, props, key)
			}
		})
	}
}
