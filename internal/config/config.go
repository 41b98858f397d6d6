// config.go - Layered configuration: defaults, optional file, MCP_* environment, flags.
package config

import (
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/crypto-signal/crypto-signal-mcp/internal/logging"
)

// EnvPrefix namespaces every environment variable the server reads.
const EnvPrefix = "MCP_"

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http" // HTTP and WebSocket on one listener
)

// Config is the resolved server configuration.
type Config struct {
	Transport       string        `koanf:"transport"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	LogLevel        string        `koanf:"log-level"`
	LogFormat       string        `koanf:"log-format"`
	ShutdownTimeout time.Duration `koanf:"shutdown-timeout"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Transport:       TransportStdio,
		Host:            "127.0.0.1",
		Port:            3000,
		LogLevel:        "info",
		LogFormat:       string(logging.FormatAuto),
		ShutdownTimeout: 5 * time.Second,
	}
}

// Options control where Load looks.
type Options struct {
	// File is an optional YAML or JSON config file. Empty falls back to MCP_CONFIG.
	File string
	// Flags, when set, contributes every flag the user changed, except "config".
	Flags *pflag.FlagSet
}

// Load resolves configuration from (lowest to highest priority) defaults, the
// config file, MCP_* environment variables and changed flags, then validates it.
func Load(opts Options) (Config, error) {
	k := koanf.New(".")

	path := opts.File
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvPrefix + "CONFIG"))
	}
	if path != "" {
		if err := loadFile(k, path); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", path)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, "", envKey), nil); err != nil {
		return Config{}, errors.Wrap(err, "load environment")
	}

	if opts.Flags != nil {
		var setErr error
		opts.Flags.Visit(func(f *pflag.Flag) {
			if f.Name == "config" {
				return
			}
			if err := k.Set(f.Name, f.Value.String()); err != nil && setErr == nil {
				setErr = errors.Wrapf(err, "apply flag --%s", f.Name)
			}
		})
		if setErr != nil {
			return Config{}, setErr
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps MCP_LOG_LEVEL to log-level. MCP_CONFIG names the file and is skipped.
func envKey(key, value string) (string, any) {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, EnvPrefix), "_", "-"))
	if name == "config" {
		return "", nil
	}
	return name, value
}

func loadFile(k *koanf.Koanf, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return k.Load(file.Provider(path), json.Parser())
	case ".yaml", ".yml":
		return k.Load(file.Provider(path), yaml.Parser())
	}
	// No extension: YAML first, then JSON.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if jerr := k.Load(file.Provider(path), json.Parser()); jerr != nil {
			return errors.Wrap(jerr, "config file must be JSON or YAML")
		}
	}
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var merr *multierror.Error
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		merr = multierror.Append(merr, errors.Errorf("unknown transport %q (want %s or %s)", c.Transport, TransportStdio, TransportHTTP))
	}
	if c.Port < 1 || c.Port > 65535 {
		merr = multierror.Append(merr, errors.Errorf("port %d out of range 1-65535", c.Port))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		merr = multierror.Append(merr, err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		merr = multierror.Append(merr, err)
	}
	if c.ShutdownTimeout < 0 {
		merr = multierror.Append(merr, errors.Errorf("negative shutdown timeout %s", c.ShutdownTimeout))
	}
	if err := merr.ErrorOrNil(); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Logger builds the process logger described by the config. Validate first.
func (c Config) Logger() *slog.Logger {
	level, _ := logging.ParseLevel(c.LogLevel)
	format, _ := logging.ParseFormat(c.LogFormat)
	return logging.New(logging.WithLevel(level), logging.WithFormat(format))
}
