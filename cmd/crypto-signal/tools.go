// tools.go - Print the tool listing without starting a transport.
package main

import (
	"encoding/json"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/crypto-signal/crypto-signal-mcp/internal/tools"
)

func newToolsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List registered tools and their parameter schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := tools.Registry(clockwork.NewRealClock())
			if err != nil {
				return err
			}
			listing := reg.List()

			out := cmd.OutOrStdout()
			switch output {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(listing)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(listing); err != nil {
					return errors.Wrap(err, "encode yaml")
				}
				return enc.Close()
			default:
				return errors.Errorf("unknown output %q: must be json or yaml", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json or yaml")
	return cmd
}
