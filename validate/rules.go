package validate

import (
	"fmt"
	"os"
	"path/filepath"

	goplayvalidator "github.com/go-playground/validator/v10"

	"github.com/four-robots/brokerctl/config"
)

// structTagValidator runs the min/max struct-tag constraints declared on
// BrokerConfiguration (port ranges, positive durations, etc.), the same
// layer the alert-history service's DefaultConfigValidator runs first via cv.v.Struct(cfg).
var structTagValidator = goplayvalidator.New()

func structTagRule(cfg *config.BrokerConfiguration) ([]Error, []Warning) {
	err := structTagValidator.Struct(cfg)
	if err == nil {
		return nil, nil
	}
	var errs []Error
	for _, fe := range err.(goplayvalidator.ValidationErrors) {
		errs = append(errs, Error{
			Field:   fieldPath(fe.Namespace()),
			Code:    "struct_tag." + fe.Tag(),
			Message: fmt.Sprintf("%s failed %s constraint (value=%v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value()),
		})
	}
	return errs, nil
}

// fieldPath turns "BrokerConfiguration.Cluster.Port" into "cluster.port"
// style paths, mirroring the alert-history service's fieldPathFromNamespace helper.
func fieldPath(namespace string) string {
	// Strip the leading "BrokerConfiguration." segment; the remainder is
	// already close enough to our schema paths for error messages.
	for i := 0; i < len(namespace); i++ {
		if namespace[i] == '.' {
			return toSnakePath(namespace[i+1:])
		}
	}
	return toSnakePath(namespace)
}

func toSnakePath(s string) string {
	out := make([]byte, 0, len(s)+4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			out = append(out, '.')
			continue
		}
		if c >= 'A' && c <= 'Z' {
			if i > 0 && s[i-1] != '.' {
				out = append(out, '_')
			}
			out = append(out, c-'A'+'a')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// portRangeRule implements the explicit port-range contract: ports are
// either 0 (disabled, where applicable) or in [1, 65535]. The struct-tag
// rule above already enforces this numerically; this rule exists so the
// error message carries a recognizable "port-range" code independent of
// the struct-tag wording.
func portRangeRule(cfg *config.BrokerConfiguration) ([]Error, []Warning) {
	var errs []Error
	check := func(field string, value int, allowZero bool) {
		if allowZero && value == 0 {
			return
		}
		if value < 1 || value > 65535 {
			errs = append(errs, Error{
				Field:   field,
				Code:    "port_range",
				Message: fmt.Sprintf("%s: port %d is out of range [1, 65535]", field, value),
			})
		}
	}
	check("port", cfg.Port, false)
	check("http_port", cfg.HTTPPort, true)
	check("https_port", cfg.HTTPSPort, true)
	check("cluster.port", cfg.Cluster.Port, true)
	check("leaf_node.port", cfg.LeafNode.Port, true)
	return errs, nil
}

// portConflictRule implements I4: http_port/https_port/cluster.port/
// leaf.port must be pairwise disjoint from port (and from each other) when
// non-zero.
func portConflictRule(cfg *config.BrokerConfiguration) ([]Error, []Warning) {
	type named struct {
		field string
		port  int
	}
	ports := []named{
		{"port", cfg.Port},
		{"http_port", cfg.HTTPPort},
		{"https_port", cfg.HTTPSPort},
		{"cluster.port", cfg.Cluster.Port},
		{"leaf_node.port", cfg.LeafNode.Port},
	}
	var errs []Error
	for i := 0; i < len(ports); i++ {
		if ports[i].port == 0 {
			continue
		}
		for j := i + 1; j < len(ports); j++ {
			if ports[j].port == 0 {
				continue
			}
			if ports[i].port == ports[j].port {
				errs = append(errs, Error{
					Field:   ports[j].field,
					Code:    "port_conflict",
					Message: fmt.Sprintf("%s (%d) conflicts with %s", ports[j].field, ports[j].port, ports[i].field),
				})
			}
		}
	}
	return errs, nil
}

// payloadRangeRule implements the max_payload ∈ [1, 1 GiB] contract.
func payloadRangeRule(cfg *config.BrokerConfiguration) ([]Error, []Warning) {
	if cfg.MaxPayload < 1 {
		return []Error{{
			Field:   "max_payload",
			Code:    "payload_range",
			Message: "max_payload must be at least 1 byte",
		}}, nil
	}
	if cfg.MaxPayload > config.MaxPayloadHardLimit {
		return []Error{{
			Field:   "max_payload",
			Code:    "payload_range",
			Message: fmt.Sprintf("max_payload %d exceeds the 1 GiB hard limit", cfg.MaxPayload),
		}}, nil
	}
	return nil, nil
}

// persistenceConsistencyRule implements I2 and I5.
func persistenceConsistencyRule(cfg *config.BrokerConfiguration) ([]Error, []Warning) {
	if !cfg.Persistence.Enabled {
		return nil, nil
	}
	var errs []Error
	if cfg.Persistence.StoreDir == "" {
		errs = append(errs, Error{
			Field:   "persistence.store_dir",
			Code:    "persistence_consistency",
			Message: "store_dir is required when persistence.enabled is true",
		})
	} else if parent := filepath.Dir(cfg.Persistence.StoreDir); !isWritableDir(parent) {
		errs = append(errs, Error{
			Field:   "persistence.store_dir",
			Code:    "persistence_consistency",
			Message: fmt.Sprintf("parent directory %q of store_dir is not writable", parent),
		})
	}
	if cfg.Persistence.MaxMemory >= 0 && cfg.Persistence.MaxStore >= 0 &&
		cfg.Persistence.MaxStore < cfg.Persistence.MaxMemory {
		errs = append(errs, Error{
			Field:   "persistence.max_store",
			Code:    "persistence_consistency",
			Message: "max_store must be >= max_memory when both are finite",
		})
	}
	return errs, nil
}

func isWritableDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	probe, err := os.CreateTemp(path, ".brokerctl-write-check-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return true
}

// authExclusivityRule implements I3.
func authExclusivityRule(cfg *config.BrokerConfiguration) ([]Error, []Warning) {
	hasUserPass := cfg.Auth.Username != "" || cfg.Auth.Password != ""
	hasToken := cfg.Auth.Token != ""
	if hasUserPass && hasToken {
		return []Error{{
			Field:   "auth",
			Code:    "auth_exclusivity",
			Message: "at most one of (username+password) or token may be set",
		}}, nil
	}
	return nil, nil
}

// timeoutsRule requires ping_interval and write_deadline to be positive.
func timeoutsRule(cfg *config.BrokerConfiguration) ([]Error, []Warning) {
	var errs []Error
	if cfg.PingInterval <= 0 {
		errs = append(errs, Error{Field: "ping_interval", Code: "timeouts", Message: "ping_interval must be > 0"})
	}
	if cfg.WriteDeadline <= 0 {
		errs = append(errs, Error{Field: "write_deadline", Code: "timeouts", Message: "write_deadline must be > 0"})
	}
	return errs, nil
}

// logFileRule requires a non-empty, writable-parent log_file whenever
// log rotation is configured with a nonzero size.
func logFileRule(cfg *config.BrokerConfiguration) ([]Error, []Warning) {
	if cfg.Logging.LogFileSizeBytes <= 0 {
		return nil, nil
	}
	if cfg.Logging.LogFile == "" {
		return []Error{{
			Field:   "logging.log_file",
			Code:    "log_file",
			Message: "log_file must be set when logging.log_file_size_bytes > 0",
		}}, nil
	}
	if parent := filepath.Dir(cfg.Logging.LogFile); !isWritableDir(parent) {
		return []Error{{
			Field:   "logging.log_file",
			Code:    "log_file",
			Message: fmt.Sprintf("parent directory %q of log_file is not writable", parent),
		}}, nil
	}
	return nil, nil
}

func builtinRules() []namedRule {
	return []namedRule{
		{"struct_tags", structTagRule},
		{"port_range", portRangeRule},
		{"port_conflict", portConflictRule},
		{"payload_range", payloadRangeRule},
		{"persistence_consistency", persistenceConsistencyRule},
		{"auth_exclusivity", authExclusivityRule},
		{"timeouts", timeoutsRule},
		{"log_file", logFileRule},
	}
}
