package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file.
//
//	workers: 4
//	log_level: info
//	queries:
//	  cheap_electronics: category == "Electronics" and price <= 1000
type Config struct {
	Workers  int               `yaml:"workers"`
	LogLevel string            `yaml:"log_level"`
	Queries  map[string]string `yaml:"queries"`
}

func defaultConfig() *Config {
	return &Config{LogLevel: "warn", Queries: map[string]string{}}
}

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("config %s: workers must not be negative", path)
	}
	if cfg.Queries == nil {
		cfg.Queries = map[string]string{}
	}
	return cfg, nil
}

// resolveExpression returns the text of --expr, or of the named query when
// the value has the form "@name".
func (c *Config) resolveExpression(expr string) (string, error) {
	name, named := strings.CutPrefix(expr, "@")
	if !named {
		return expr, nil
	}
	q, ok := c.Queries[name]
	if !ok {
		return "", fmt.Errorf("no query named %q in config", name)
	}
	return q, nil
}

func newLogger(verbose bool, level string) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
