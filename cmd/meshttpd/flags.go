package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigPath  string
	Listen      string
	RadioAddr   string
	LogLevel    string
	LogFormat   string
	Debug       bool
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("MESHTTPD_CONFIG", ""),
		"Path to YAML configuration file, built-in defaults when empty (env: MESHTTPD_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("MESHTTPD_CONFIG", ""),
		"Path to YAML configuration file, built-in defaults when empty (env: MESHTTPD_CONFIG)")

	flag.StringVar(&cfg.Listen, "listen",
		getEnv("MESHTTPD_LISTEN", ""),
		"HTTP listen address, overrides config (env: MESHTTPD_LISTEN)")

	flag.StringVar(&cfg.RadioAddr, "radio",
		getEnv("MESHTTPD_RADIO", ""),
		"Mesh gateway TCP address, overrides config (env: MESHTTPD_RADIO)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("MESHTTPD_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error, overrides config (env: MESHTTPD_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("MESHTTPD_LOG_FORMAT", ""),
		"Log format: json, text, overrides config (env: MESHTTPD_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("MESHTTPD_DEBUG", false),
		"Enable debug logging (env: MESHTTPD_DEBUG)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if cfg.LogLevel != "" && !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if cfg.LogFormat != "" && !contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - HTTP bridge to a mesh radio network

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with built-in defaults against a local gateway
  %s

  # Run with a config file
  %s --config=/etc/meshttpd/meshttpd.yaml

  # Point at a remote gateway with debug logging
  %s --radio=10.0.0.5:4403 --log-level=debug --log-format=text

  # Validate configuration only
  %s --config=/etc/meshttpd/meshttpd.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "1", "true", "TRUE", "True":
			return true
		case "0", "false", "FALSE", "False":
			return false
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
