// Package config defines the typed BrokerConfiguration model (C1): the
// canonical, immutable-after-apply snapshot the rest of the control plane
// validates, diffs, stores and hands to the native broker. It is grounded
// on the alert-history service's internal/config.Config (nested viper/mapstructure
// sections, struct-tag validation) generalized from a generic application
// config to the NATS-compatible broker's own settings.
package config

import (
	"time"

	"github.com/google/uuid"
)

// ReloadClass classifies how a field change must be handled.
type ReloadClass int

const (
	// HOT fields can be applied to a live broker without a restart.
	HOT ReloadClass = iota
	// COLD fields require the broker to be restarted.
	COLD
	// IMMUTABLE fields must never change once a broker has started.
	IMMUTABLE
)

func (c ReloadClass) String() string {
	switch c {
	case HOT:
		return "HOT"
	case COLD:
		return "COLD"
	case IMMUTABLE:
		return "IMMUTABLE"
	default:
		return "UNKNOWN"
	}
}

// PersistenceConfig controls the broker's JetStream/file-store persistence.
type PersistenceConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	StoreDir   string `json:"store_dir" mapstructure:"store_dir"`
	MaxMemory  int64  `json:"max_memory" mapstructure:"max_memory"` // bytes, -1 = unlimited
	MaxStore   int64  `json:"max_store" mapstructure:"max_store"`   // bytes, -1 = unlimited
	Domain     string `json:"domain,omitempty" mapstructure:"domain"`
	UniqueTag  string `json:"unique_tag,omitempty" mapstructure:"unique_tag"`
}

// AuthConfig holds broker authentication. At most one of (Username+Password)
// or Token may be set (I3).
type AuthConfig struct {
	Username string `json:"username,omitempty" mapstructure:"username"`
	Password string `json:"password,omitempty" mapstructure:"password"`
	Token    string `json:"token,omitempty" mapstructure:"token"`
}

// ClusterConfig controls routed clustering between broker instances.
type ClusterConfig struct {
	Name   string   `json:"name,omitempty" mapstructure:"name"`
	Host   string   `json:"host" mapstructure:"host"`
	Port   int      `json:"port" mapstructure:"port" validate:"min=0,max=65535"` // 0 = disabled
	Routes []string `json:"routes" mapstructure:"routes"`
}

// LeafNodeConfig controls leaf-node connections to a hub broker.
type LeafNodeConfig struct {
	Host        string   `json:"host" mapstructure:"host"`
	Port        int      `json:"port" mapstructure:"port" validate:"min=0,max=65535"` // 0 = disabled
	Remotes     []string `json:"remotes" mapstructure:"remotes"`
	Credentials string   `json:"credentials,omitempty" mapstructure:"credentials"`
	TLSCertFile string   `json:"tls_cert_file,omitempty" mapstructure:"tls_cert_file"`
	TLSKeyFile  string   `json:"tls_key_file,omitempty" mapstructure:"tls_key_file"`
}

// LoggingConfig controls the broker's own log output.
type LoggingConfig struct {
	LogFile         string `json:"log_file,omitempty" mapstructure:"log_file"`
	LogTimeUTC      bool   `json:"log_time_utc" mapstructure:"log_time_utc"`
	LogFileSizeBytes int64 `json:"log_file_size_bytes" mapstructure:"log_file_size_bytes" validate:"min=0"`
}

// BrokerConfiguration is the full typed configuration snapshot (C1).
type BrokerConfiguration struct {
	// Identity (IMMUTABLE).
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	// Network.
	Host      string `json:"host" mapstructure:"host"`
	Port      int    `json:"port" mapstructure:"port" validate:"min=1,max=65535"`
	HTTPPort  int    `json:"http_port" mapstructure:"http_port" validate:"min=0,max=65535"`
	HTTPSPort int    `json:"https_port" mapstructure:"https_port" validate:"min=0,max=65535"`

	// Limits.
	MaxPayload     int64         `json:"max_payload" mapstructure:"max_payload" validate:"min=1"`
	MaxControlLine int64         `json:"max_control_line" mapstructure:"max_control_line" validate:"min=1"`
	PingInterval   time.Duration `json:"ping_interval" mapstructure:"ping_interval" validate:"min=1"`
	MaxPingsOut    int           `json:"max_pings_out" mapstructure:"max_pings_out" validate:"min=1"`
	WriteDeadline  time.Duration `json:"write_deadline" mapstructure:"write_deadline" validate:"min=1"`

	// Flags.
	Debug bool `json:"debug" mapstructure:"debug"`
	Trace bool `json:"trace" mapstructure:"trace"`

	Persistence PersistenceConfig `json:"persistence" mapstructure:"persistence"`
	Auth        AuthConfig        `json:"auth" mapstructure:"auth"`
	Cluster     ClusterConfig     `json:"cluster" mapstructure:"cluster"`
	LeafNode    LeafNodeConfig    `json:"leaf_node" mapstructure:"leaf_node"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
}

// MaxPayloadHardLimit is the 1 GiB ceiling on max_payload (I1).
const MaxPayloadHardLimit = 1 << 30

// New returns a BrokerConfiguration with a fresh identity and the package
// defaults applied; callers are expected to override fields before
// validating and calling Controller.Configure.
func New(description string) *BrokerConfiguration {
	return &BrokerConfiguration{
		ID:             uuid.New(),
		Description:    description,
		CreatedAt:      time.Now().UTC(),
		Host:           "0.0.0.0",
		Port:           4222,
		HTTPPort:       0,
		HTTPSPort:      0,
		MaxPayload:     1 << 20, // 1 MiB
		MaxControlLine: 4096,
		PingInterval:   2 * time.Minute,
		MaxPingsOut:    2,
		WriteDeadline:  10 * time.Second,
		Persistence: PersistenceConfig{
			MaxMemory: -1,
			MaxStore:  -1,
		},
		Logging: LoggingConfig{
			LogTimeUTC: true,
		},
	}
}

// DeepClone returns an independent copy; no field of the result shares
// storage with c, so mutating the clone can never affect the original
// (the Fluent Facade relies on this to hand mutators a safe copy).
func (c *BrokerConfiguration) DeepClone() *BrokerConfiguration {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Cluster.Routes = append([]string(nil), c.Cluster.Routes...)
	clone.LeafNode.Remotes = append([]string(nil), c.LeafNode.Remotes...)
	return &clone
}

// Equal reports canonical, field-by-field equality. Ordered sequences
// (Cluster.Routes, LeafNode.Remotes) are compared order-sensitively.
func (c *BrokerConfiguration) Equal(other *BrokerConfiguration) bool {
	if c == nil || other == nil {
		return c == other
	}
	for _, f := range Fields() {
		if !valuesEqual(f.Get(c), f.Get(other)) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	as, aok := a.([]string)
	bs, bok := b.([]string)
	if aok || bok {
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if as[i] != bs[i] {
				return false
			}
		}
		return true
	}
	return a == b
}
