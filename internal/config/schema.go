package config

// Config is the top-level YAML structure.
type Config struct {
	Server  ServerConf  `yaml:"server"`
	Storage StorageConf `yaml:"storage"`
	Sink    SinkConf    `yaml:"sink"`
	Cleanup CleanupConf `yaml:"cleanup"`
	UACache UACacheConf `yaml:"ua_cache"`
}

// ServerConf holds HTTP listener settings.
type ServerConf struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
	IdleTimeoutMs  int    `yaml:"idle_timeout_ms"`
}

// StorageConf selects and configures the durable window-log store.
type StorageConf struct {
	// Backend is "memory" or "redis".
	Backend  string `yaml:"backend"`
	RedisURL string `yaml:"redis_url"`
	// TTLMinutes expires window logs server-side as a backstop behind
	// cleanup. Zero disables expiry.
	TTLMinutes int `yaml:"ttl_minutes"`
}

// SinkConf configures fire-and-forget forwarding to the long-term store.
// An empty URL disables forwarding.
type SinkConf struct {
	URL        string `yaml:"url"`
	Workers    int    `yaml:"workers"`
	QueueDepth int    `yaml:"queue_depth"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// CleanupConf schedules the periodic stale-window sweep.
type CleanupConf struct {
	// Schedule is a cron expression (robfig/cron, standard 5-field).
	Schedule string `yaml:"schedule"`
}

// UACacheConf sizes the User-Agent parse cache.
type UACacheConf struct {
	Size       int `yaml:"size"`
	TTLMinutes int `yaml:"ttl_minutes"`
}
