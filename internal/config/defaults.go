package config

// Default values for configuration options.
const (
	defaultAppName      = "tdstream"
	defaultRedirectURI  = "https://localhost"
	defaultHTTPTimeout  = "30s"
	defaultRegistry     = RegistrySQLite
	defaultLoginTimeout = "10s"
	defaultFrameTimeout = "0"
	defaultLogLevel     = "info"
	defaultLogFormat    = "auto"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset keys keep their defaults.
// URLs left empty fall back to the client packages' own defaults.
func DefaultConfig() *Config {
	return &Config{
		AuthConfig: AuthConfig{
			AppName:     defaultAppName,
			RedirectURI: defaultRedirectURI,
		},
		APIConfig: APIConfig{
			HTTPTimeout: defaultHTTPTimeout,
		},
		RegistryConfig: RegistryConfig{
			Registry: defaultRegistry,
		},
		StreamConfig: StreamConfig{
			LoginTimeout: defaultLoginTimeout,
			FrameTimeout: defaultFrameTimeout,
		},
		LoggingConfig: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
