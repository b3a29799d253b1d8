package config

import "strings"

// DemoConfig holds configuration for the demo web application.
type DemoConfig struct {
	BindAddr string
	// PortFallbacks is how many following ports are tried when BindAddr is
	// taken. Zero disables the fallback.
	PortFallbacks int
	LogLevel      string
	LogFile       string
}

// LoadDemo reads demo app configuration from environment variables.
func LoadDemo() (*DemoConfig, error) {
	cfg := &DemoConfig{
		BindAddr: getEnvOrDefault("DEMO_BIND_ADDR", "127.0.0.1:3000"),
		LogLevel: strings.ToLower(getEnvOrDefault("DEMO_LOG_LEVEL", "info")),
		LogFile:  getEnvOrDefault("DEMO_LOG_FILE", "logs/demo_app.log"),
	}
	var err error
	if cfg.PortFallbacks, err = getEnvIntOrDefault("DEMO_PORT_FALLBACKS", 10); err != nil {
		return nil, err
	}
	if cfg.PortFallbacks < 0 {
		return nil, fieldError("DEMO_PORT_FALLBACKS", "must not be negative, got %d", cfg.PortFallbacks)
	}
	return cfg, nil
}
