// root.go - Command tree and shared flags.
package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/crypto-signal/crypto-signal-mcp/internal/config"
	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
)

const serverName = "crypto-signal"

func serverInfo() mcp.ServerInfo {
	return mcp.ServerInfo{
		Name:        serverName,
		Description: "Crypto-Signal MCP Server - Trading signals and market intelligence",
		Version:     version,
	}
}

// newRootCmd builds the CLI. Running it without a subcommand serves.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           serverName,
		Short:         "JSON-RPC tool server for crypto trading intelligence",
		Long:          "Serves market, signal, portfolio and alert tools over stdio or HTTP/WebSocket.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: runServe,
	}
	addConfigFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd())
	root.AddCommand(newToolsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// addConfigFlags registers one flag per config key. Only flags the user sets
// override the file and environment.
func addConfigFlags(fs *pflag.FlagSet) {
	d := config.Default()
	fs.String("config", "", "Path to a YAML or JSON config file (env MCP_CONFIG)")
	fs.StringP("transport", "t", d.Transport, "Transport: stdio or http")
	fs.String("host", d.Host, "HTTP listen host")
	fs.IntP("port", "p", d.Port, "HTTP listen port")
	fs.StringP("log-level", "l", d.LogLevel, "Log level: debug, info, warn, error")
	fs.String("log-format", d.LogFormat, "Log format: auto, json, text, dev")
	fs.Duration("shutdown-timeout", d.ShutdownTimeout, "Grace period for in-flight HTTP requests on shutdown")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(config.Options{File: file, Flags: cmd.Flags()})
}
