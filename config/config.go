// Package config loads injector settings from an optional YAML file, .env
// files and WARDEN_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const envPrefix = "WARDEN_"

type Config struct {
	Name          string `yaml:"name"`
	Stage         string `yaml:"stage" validate:"oneof=production prod development dev"`
	IsolationMode string `yaml:"isolation_mode" validate:"oneof=isolated isolated-child-scope flattened flattened-scope"`
	LogLevel      string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat     string `yaml:"log_format" validate:"oneof=json console"`
	Report        bool   `yaml:"report"`
	EagerAll      bool   `yaml:"eager_all"`
}

func Default() *Config {
	return &Config{
		Name:          "warden",
		Stage:         "production",
		IsolationMode: "isolated",
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty or the file does not exist), the given .env files and the
// process environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env files: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"NAME":           &c.Name,
		"STAGE":          &c.Stage,
		"ISOLATION_MODE": &c.IsolationMode,
		"LOG_LEVEL":      &c.LogLevel,
		"LOG_FORMAT":     &c.LogFormat,
	}
	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	bools := map[string]*bool{
		"REPORT":    &c.Report,
		"EAGER_ALL": &c.EagerAll,
	}
	for name, dst := range bools {
		v, ok := lookup(envPrefix + name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = b
	}
	return nil
}

// normalize lower-cases the enumerated settings so every source accepts any
// case. Name is kept as given.
func (c *Config) normalize() {
	for _, v := range []*string{&c.Stage, &c.IsolationMode, &c.LogLevel, &c.LogFormat} {
		*v = strings.ToLower(strings.TrimSpace(*v))
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s %q: must be one of [%s]", fe.Field(), fe.Value(), fe.Param())
		}
		return err
	}
	return nil
}

func (c *Config) Development() bool {
	return c.Stage == "development" || c.Stage == "dev"
}

// NewLogger builds a zap logger honoring LogLevel and LogFormat. Development
// stage uses zap's development defaults.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if c.Development() {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = c.LogFormat
	return zc.Build(zap.Fields(zap.String("injector", c.Name)))
}
