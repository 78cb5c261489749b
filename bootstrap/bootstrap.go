// Package bootstrap implements Bootstrap & Config Loading (C9): a
// convenience layer that assembles the initial BrokerConfiguration draft
// handed to Controller.Configure. It sits in front of the validated core
// state machine exactly the way the alert-history service's internal/config.LoadConfig
// sits in front of its own Config struct — defaults, then an optional YAML
// file, then environment variable overrides, via spf13/viper with
// mapstructure tags — and never repairs or validates what it loads; that
// remains the Validator Pipeline's job once the caller calls Configure.
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/four-robots/brokerctl/config"
)

// Source identifies where the loaded draft's values ultimately came from,
// mirroring the alert-history service's ConfigSource diagnostic tag.
type Source string

const (
	SourceDefaults Source = "defaults"
	SourceFile     Source = "file"
	SourceEnv      Source = "env"
	SourceMixed    Source = "mixed"
)

// Draft is an unvalidated BrokerConfiguration plus provenance, returned by
// Load. Callers must still pass Config through the Validator Pipeline (via
// Controller.Configure) before it takes effect.
type Draft struct {
	Config *config.BrokerConfiguration
	Source Source
}

// Loader loads configuration drafts from a YAML file plus environment
// overrides, using a private viper instance so concurrent Loaders (e.g. in
// tests) never step on viper's global state.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a Loader with package defaults pre-populated.
func NewLoader() *Loader {
	l := &Loader{v: viper.New()}
	l.setDefaults()
	l.v.AutomaticEnv()
	l.v.SetEnvPrefix("BROKERCTL")
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return l
}

// Load reads configFile (if non-empty and present) over the defaults, then
// layers environment variables, and returns the resulting draft. A missing
// configFile is not an error; a malformed one is.
func (l *Loader) Load(description, configFile string) (Draft, error) {
	usedFile := false
	if configFile != "" {
		l.v.SetConfigFile(configFile)
		l.v.SetConfigType("yaml")
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Draft{}, fmt.Errorf("bootstrap: reading config file: %w", err)
			}
		} else {
			usedFile = true
		}
	}

	cfg := config.New(description)
	if err := l.v.Unmarshal(cfg); err != nil {
		return Draft{}, fmt.Errorf("bootstrap: unmarshalling config: %w", err)
	}

	return Draft{Config: cfg, Source: classifySource(usedFile)}, nil
}

// LoadFromEnv loads a draft from defaults plus environment variables only,
// skipping any file lookup.
func (l *Loader) LoadFromEnv(description string) (Draft, error) {
	return l.Load(description, "")
}

func classifySource(usedFile bool) Source {
	hasEnvOverride := len(envOverrideKeys()) > 0
	switch {
	case usedFile && hasEnvOverride:
		return SourceMixed
	case usedFile:
		return SourceFile
	case hasEnvOverride:
		return SourceEnv
	default:
		return SourceDefaults
	}
}

// envOverrideKeys reports which of the known config keys are actually
// present in the process environment, so classifySource can distinguish
// "defaults only" from "env overrode something".
func envOverrideKeys() []string {
	var hits []string
	for _, key := range []string{
		"host", "port", "http_port", "https_port",
		"max_payload", "max_control_line", "ping_interval", "max_pings_out", "write_deadline",
		"debug", "trace",
		"persistence.enabled", "persistence.store_dir", "persistence.max_memory", "persistence.max_store",
		"auth.username", "auth.password", "auth.token",
		"cluster.name", "cluster.host", "cluster.port",
		"leaf_node.host", "leaf_node.port",
		"logging.log_file", "logging.log_file_size_bytes",
	} {
		envKey := "BROKERCTL_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if _, ok := os.LookupEnv(envKey); ok {
			hits = append(hits, key)
		}
	}
	return hits
}

func (l *Loader) setDefaults() {
	defaults := config.New("")
	l.v.SetDefault("host", defaults.Host)
	l.v.SetDefault("port", defaults.Port)
	l.v.SetDefault("http_port", defaults.HTTPPort)
	l.v.SetDefault("https_port", defaults.HTTPSPort)
	l.v.SetDefault("max_payload", defaults.MaxPayload)
	l.v.SetDefault("max_control_line", defaults.MaxControlLine)
	l.v.SetDefault("ping_interval", defaults.PingInterval)
	l.v.SetDefault("max_pings_out", defaults.MaxPingsOut)
	l.v.SetDefault("write_deadline", defaults.WriteDeadline)
	l.v.SetDefault("debug", defaults.Debug)
	l.v.SetDefault("trace", defaults.Trace)
	l.v.SetDefault("persistence.enabled", defaults.Persistence.Enabled)
	l.v.SetDefault("persistence.store_dir", defaults.Persistence.StoreDir)
	l.v.SetDefault("persistence.max_memory", defaults.Persistence.MaxMemory)
	l.v.SetDefault("persistence.max_store", defaults.Persistence.MaxStore)
	l.v.SetDefault("auth.username", defaults.Auth.Username)
	l.v.SetDefault("auth.password", defaults.Auth.Password)
	l.v.SetDefault("auth.token", defaults.Auth.Token)
	l.v.SetDefault("cluster.name", defaults.Cluster.Name)
	l.v.SetDefault("cluster.host", defaults.Cluster.Host)
	l.v.SetDefault("cluster.port", defaults.Cluster.Port)
	l.v.SetDefault("leaf_node.host", defaults.LeafNode.Host)
	l.v.SetDefault("leaf_node.port", defaults.LeafNode.Port)
	l.v.SetDefault("logging.log_file", defaults.Logging.LogFile)
	l.v.SetDefault("logging.log_file_size_bytes", defaults.Logging.LogFileSizeBytes)
	l.v.SetDefault("logging.log_time_utc", defaults.Logging.LogTimeUTC)
}
