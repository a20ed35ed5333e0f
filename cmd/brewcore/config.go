package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds the resolved runtime options.
type Config struct {
	ConfigFile      string
	DataDir         string
	Backend         string
	LogLevel        string
	LogFile         string
	AttributeScript string
	Script          string
	Plain           bool
	Trace           bool
	ChainPolicy     string
	Version         bool
}

// configResolver resolves one option: flag, then environment, then default.
type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*Config, string) error
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", v)
		}
		*field(c) = b
		return nil
	}
}

func resolvers() []configResolver {
	return []configResolver{
		{
			flagName:    "config",
			envVarName:  "BREWCORE_CONFIG",
			defaultVal:  "brewing.yml",
			description: "path to the brewing definitions document",
			setter:      func(c *Config, v string) error { c.ConfigFile = v; return nil },
		},
		{
			flagName:    "data",
			envVarName:  "BREWCORE_DATA_DIR",
			defaultVal:  "./data",
			description: "directory for player records and pending effects",
			setter:      func(c *Config, v string) error { c.DataDir = v; return nil },
		},
		{
			flagName:    "backend",
			envVarName:  "BREWCORE_BACKEND",
			defaultVal:  "yaml",
			description: "storage backend: yaml or sqlite",
			setter: func(c *Config, v string) error {
				v = strings.ToLower(v)
				if v != "yaml" && v != "sqlite" {
					return fmt.Errorf("unknown backend %q (yaml, sqlite)", v)
				}
				c.Backend = v
				return nil
			},
		},
		{
			flagName:    "log-level",
			envVarName:  "BREWCORE_LOG_LEVEL",
			defaultVal:  "info",
			description: "log level: debug, info, warn, error",
			setter:      func(c *Config, v string) error { c.LogLevel = v; return nil },
		},
		{
			flagName:    "log-file",
			envVarName:  "BREWCORE_LOG_FILE",
			defaultVal:  "",
			description: "log destination (default: <data>/brewcore.log)",
			setter:      func(c *Config, v string) error { c.LogFile = v; return nil },
		},
		{
			flagName:    "attributes",
			envVarName:  "BREWCORE_ATTRIBUTES",
			defaultVal:  "",
			description: "optional Lua script providing placeholder attributes",
			setter:      func(c *Config, v string) error { c.AttributeScript = v; return nil },
		},
		{
			flagName:    "script",
			envVarName:  "BREWCORE_SCRIPT",
			defaultVal:  "",
			description: "run console commands from a file and exit",
			setter:      func(c *Config, v string) error { c.Script = v; return nil },
		},
		{
			flagName:    "plain",
			envVarName:  "BREWCORE_PLAIN",
			defaultVal:  "false",
			description: "use the line-oriented console instead of the full-screen UI",
			setter:      boolSetter(func(c *Config) *bool { return &c.Plain }),
		},
		{
			flagName:    "trace",
			envVarName:  "BREWCORE_TRACE",
			defaultVal:  "false",
			description: "print trace lines after commands",
			setter:      boolSetter(func(c *Config) *bool { return &c.Trace }),
		},
		{
			flagName:    "chain-policy",
			envVarName:  "BREWCORE_CHAIN_POLICY",
			defaultVal:  "",
			description: "override the out-of-order chain policy: ignore or notify",
			setter: func(c *Config, v string) error {
				v = strings.ToLower(v)
				if v != "" && v != "ignore" && v != "notify" {
					return fmt.Errorf("unknown chain policy %q (ignore, notify)", v)
				}
				c.ChainPolicy = v
				return nil
			},
		},
	}
}

// loadConfig resolves every option from args and the environment.
func loadConfig(args []string, getenv func(string) string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("brewcore", flag.ContinueOnError)
	fs.BoolVar(&cfg.Version, "version", false, "print version and exit")

	rs := resolvers()
	flagVars := make(map[string]*string, len(rs))
	for _, r := range rs {
		flagVars[r.flagName] = fs.String(r.flagName, "", r.description)
	}
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	// A single positional argument is the definitions file.
	if fs.NArg() > 0 && *flagVars["config"] == "" {
		*flagVars["config"] = fs.Arg(0)
	}

	for _, r := range rs {
		value := r.defaultVal
		if v := *flagVars[r.flagName]; v != "" {
			value = v
		} else if v := getenv(r.envVarName); v != "" {
			value = v
		}
		if err := r.setter(&cfg, value); err != nil {
			return cfg, fmt.Errorf("-%s: %w", r.flagName, err)
		}
	}

	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "brewcore.log")
	}
	return cfg, nil
}

// loadConfigFromOS resolves options from os.Args and the process environment.
func loadConfigFromOS() (Config, error) {
	return loadConfig(os.Args[1:], os.Getenv)
}
