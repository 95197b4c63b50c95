package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/daniacca/ecosim/internal/eco"
)

// ServerConfig holds the server configuration
type ServerConfig struct {
	Addr           string
	DefaultEnvID   string
	ConfigFile     string
	StepIntervalMS int
	LogLevel       string
}

// configResolver defines how to resolve a single configuration value
type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*ServerConfig, string)
}

// loadServerConfig loads server configuration from CLI flags and environment
// variables. Flags win over environment variables, which win over defaults.
func loadServerConfig() ServerConfig {
	cfg := ServerConfig{}

	resolvers := []configResolver{
		{
			flagName:    "addr",
			envVarName:  "ECOSIM_ADDR",
			defaultVal:  ":8080",
			description: "HTTP listen address (e.g. :8080, 0.0.0.0:8080)",
			setter:      func(c *ServerConfig, v string) { c.Addr = v },
		},
		{
			flagName:    "env-id",
			envVarName:  "ECOSIM_ENV_ID",
			defaultVal:  "default",
			description: "ID of the simulation created at startup",
			setter:      func(c *ServerConfig, v string) { c.DefaultEnvID = v },
		},
		{
			flagName:    "config-file",
			envVarName:  "ECOSIM_CONFIG_FILE",
			defaultVal:  "",
			description: "optional path to a JSON simulation config loaded at startup; the built-in config is used otherwise",
			setter:      func(c *ServerConfig, v string) { c.ConfigFile = v },
		},
		{
			flagName:    "step-interval-ms",
			envVarName:  "ECOSIM_STEP_INTERVAL_MS",
			defaultVal:  "0",
			description: "auto-run the startup simulation at this interval in milliseconds; 0 leaves it paused",
			setter: func(c *ServerConfig, v string) {
				if val, err := strconv.Atoi(v); err == nil && val >= 0 {
					c.StepIntervalMS = val
				} else {
					log.Printf("Invalid value for step-interval-ms: %s, using default 0", v)
					c.StepIntervalMS = 0
				}
			},
		},
		{
			flagName:    "log-level",
			envVarName:  "ECOSIM_LOG_LEVEL",
			defaultVal:  "info",
			description: "Log level: debug, info, warn, error",
			setter:      func(c *ServerConfig, v string) { c.LogLevel = v },
		},
	}

	flagVars := make(map[string]*string)
	for _, resolver := range resolvers {
		flagVars[resolver.flagName] = flag.String(resolver.flagName, "", resolver.description)
	}

	flag.Parse()

	for _, resolver := range resolvers {
		var value string
		if *flagVars[resolver.flagName] != "" {
			value = *flagVars[resolver.flagName]
		} else if envValue := os.Getenv(resolver.envVarName); envValue != "" {
			value = envValue
		} else {
			value = resolver.defaultVal
		}
		resolver.setter(&cfg, value)
	}

	return cfg
}

// loadSimulationConfigFromFile reads and validates a SimulationConfig.
// Fields missing from the file keep their default values.
func loadSimulationConfigFromFile(path string) (eco.SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return eco.SimulationConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	cfg := eco.DefaultSimulationConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return eco.SimulationConfig{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	if err := eco.ValidateSimulationConfig(cfg); err != nil {
		return eco.SimulationConfig{}, err
	}
	return cfg, nil
}

// startupSimulationConfig returns the config of the simulation created at
// startup.
func startupSimulationConfig(cfg ServerConfig) (eco.SimulationConfig, error) {
	if cfg.ConfigFile == "" {
		return eco.DefaultSimulationConfig(), nil
	}
	return loadSimulationConfigFromFile(cfg.ConfigFile)
}
