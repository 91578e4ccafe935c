package config

type Logging struct {
	Pretty bool   `toml:"pretty"`
	Level  string `toml:"level"`
}

type API struct {
	Port int `toml:"port"`

	// ExternalURL is the server root used when formatting generated links,
	// e.g. "https://build.example.com". No trailing slash.
	ExternalURL string `toml:"external_url"`

	// DataDir holds the link snapshot file.
	DataDir string `toml:"data_dir"`

	HealthCheckFailFile string `toml:"healthcheck_fail_file"`
}

type BuildServer struct {
	Type     string         `toml:"type"`
	Settings map[string]any `toml:"settings"`
}

type Artifacts struct {
	Type     string         `toml:"type"`
	Settings map[string]any `toml:"settings"`
}

type Config struct {
	Logging     Logging     `toml:"logging"`
	API         API         `toml:"api"`
	BuildServer BuildServer `toml:"build_server"`
	Artifacts   Artifacts   `toml:"artifacts"`
}
