package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/example/lab-timetable/internal/calendar"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TIMETABLE_"

// Config captures the configuration values of the timetable service.
type Config struct {
	HTTPPort      int           `koanf:"http_port"`
	SQLitePath    string        `koanf:"sqlite_path"`
	SemesterStart string        `koanf:"semester_start"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	CacheSize     int           `koanf:"cache_size"`
	RedisAddr     string        `koanf:"redis_addr"`
	LogLevel      string        `koanf:"log_level"`
	LogFormat     string        `koanf:"log_format"`

	// Semester is SemesterStart parsed by Load.
	Semester time.Time `koanf:"-"`
}

// Defaults returns the values used for keys that are not configured.
func Defaults() Config {
	return Config{
		HTTPPort:   8080,
		SQLitePath: "timetable.db",
		CacheTTL:   30 * time.Second,
		CacheSize:  256,
		LogLevel:   "info",
		LogFormat:  "json",
	}
}

// LoadDotEnv copies the variables of a .env file into the process
// environment. A missing file is not an error; variables that are already set
// win over the file.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads an optional YAML or JSON file and then applies TIMETABLE_*
// environment overrides. All invalid or missing values are reported together.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return Config{}, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	c.SemesterStart = strings.TrimSpace(c.SemesterStart)
	if c.SemesterStart == "" {
		missing = append(missing, "semester_start")
	} else if start, err := calendar.ParseDate(c.SemesterStart); err != nil {
		invalid = append(invalid, "semester_start")
	} else {
		c.Semester = start
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, "http_port")
	}
	if strings.TrimSpace(c.SQLitePath) == "" {
		invalid = append(invalid, "sqlite_path")
	}
	if c.CacheTTL < 0 {
		invalid = append(invalid, "cache_ttl")
	}
	if c.CacheSize <= 0 {
		invalid = append(invalid, "cache_size")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "log_level")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		invalid = append(invalid, "log_format")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}
	return nil
}
