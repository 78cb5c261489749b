package config

// Field is one addressable, diffable attribute of BrokerConfiguration. The
// reload class and accessor are attached once, at schema-definition time
// (package init), so the Diff Engine and Controller never need string-based
// field lookups at diff time.
type Field struct {
	Path  string
	Class ReloadClass
	Get   func(*BrokerConfiguration) any
}

// fields is built once, in depth-first, lexicographic order at each level,
// so Diff Engine output ordering falls out of iteration order for free.
var fields = []Field{
	{"auth.password", HOT, func(c *BrokerConfiguration) any { return c.Auth.Password }},
	{"auth.token", HOT, func(c *BrokerConfiguration) any { return c.Auth.Token }},
	{"auth.username", HOT, func(c *BrokerConfiguration) any { return c.Auth.Username }},
	{"cluster.host", COLD, func(c *BrokerConfiguration) any { return c.Cluster.Host }},
	{"cluster.name", HOT, func(c *BrokerConfiguration) any { return c.Cluster.Name }},
	{"cluster.port", COLD, func(c *BrokerConfiguration) any { return c.Cluster.Port }},
	{"cluster.routes", HOT, func(c *BrokerConfiguration) any { return c.Cluster.Routes }},
	{"created_at", IMMUTABLE, func(c *BrokerConfiguration) any { return c.CreatedAt }},
	{"debug", HOT, func(c *BrokerConfiguration) any { return c.Debug }},
	{"description", IMMUTABLE, func(c *BrokerConfiguration) any { return c.Description }},
	{"host", COLD, func(c *BrokerConfiguration) any { return c.Host }},
	{"http_port", COLD, func(c *BrokerConfiguration) any { return c.HTTPPort }},
	{"https_port", COLD, func(c *BrokerConfiguration) any { return c.HTTPSPort }},
	{"id", IMMUTABLE, func(c *BrokerConfiguration) any { return c.ID }},
	{"leaf_node.credentials", HOT, func(c *BrokerConfiguration) any { return c.LeafNode.Credentials }},
	{"leaf_node.host", COLD, func(c *BrokerConfiguration) any { return c.LeafNode.Host }},
	{"leaf_node.port", COLD, func(c *BrokerConfiguration) any { return c.LeafNode.Port }},
	{"leaf_node.remotes", HOT, func(c *BrokerConfiguration) any { return c.LeafNode.Remotes }},
	{"leaf_node.tls_cert_file", HOT, func(c *BrokerConfiguration) any { return c.LeafNode.TLSCertFile }},
	{"leaf_node.tls_key_file", HOT, func(c *BrokerConfiguration) any { return c.LeafNode.TLSKeyFile }},
	{"logging.log_file", HOT, func(c *BrokerConfiguration) any { return c.Logging.LogFile }},
	{"logging.log_file_size_bytes", HOT, func(c *BrokerConfiguration) any { return c.Logging.LogFileSizeBytes }},
	{"logging.log_time_utc", HOT, func(c *BrokerConfiguration) any { return c.Logging.LogTimeUTC }},
	{"max_control_line", HOT, func(c *BrokerConfiguration) any { return c.MaxControlLine }},
	{"max_payload", HOT, func(c *BrokerConfiguration) any { return c.MaxPayload }},
	{"max_pings_out", HOT, func(c *BrokerConfiguration) any { return c.MaxPingsOut }},
	{"persistence.domain", COLD, func(c *BrokerConfiguration) any { return c.Persistence.Domain }},
	{"persistence.enabled", COLD, func(c *BrokerConfiguration) any { return c.Persistence.Enabled }},
	{"persistence.max_memory", COLD, func(c *BrokerConfiguration) any { return c.Persistence.MaxMemory }},
	{"persistence.max_store", COLD, func(c *BrokerConfiguration) any { return c.Persistence.MaxStore }},
	{"persistence.store_dir", COLD, func(c *BrokerConfiguration) any { return c.Persistence.StoreDir }},
	{"persistence.unique_tag", COLD, func(c *BrokerConfiguration) any { return c.Persistence.UniqueTag }},
	{"ping_interval", HOT, func(c *BrokerConfiguration) any { return c.PingInterval }},
	{"port", COLD, func(c *BrokerConfiguration) any { return c.Port }},
	{"trace", HOT, func(c *BrokerConfiguration) any { return c.Trace }},
	{"write_deadline", HOT, func(c *BrokerConfiguration) any { return c.WriteDeadline }},
}

// Fields returns the schema's field descriptors in canonical order.
func Fields() []Field {
	return fields
}

// ClassOf returns the reload class for a field path, or HOT if unknown
// (callers that need strict behavior should only ever pass paths produced
// by Fields() or the Diff Engine).
func ClassOf(path string) ReloadClass {
	for _, f := range fields {
		if f.Path == path {
			return f.Class
		}
	}
	return HOT
}
