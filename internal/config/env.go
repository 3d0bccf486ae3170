package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "TDSTREAM_CONFIG"
	EnvClientID = "TDSTREAM_CLIENT_ID"
	EnvApp      = "TDSTREAM_APP"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // TDSTREAM_CONFIG: override config file path
	ClientID   string // TDSTREAM_CLIENT_ID: consumer key, kept out of the file
	AppName    string // TDSTREAM_APP: app name override
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		ClientID:   os.Getenv(EnvClientID),
		AppName:    os.Getenv(EnvApp),
	}
}
