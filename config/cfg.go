package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	ImagesConfig struct {
		TablePath string `yaml:"table_path,omitempty" validate:"omitempty,file"`
		AssetsDir string `yaml:"assets_dir,omitempty" validate:"omitempty,dir"`
		BaseURL   string `yaml:"base_url,omitempty" validate:"omitempty,http_url"`
	}

	PreloadConfig struct {
		Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
		HTTPTimeout       time.Duration `yaml:"http_timeout" validate:"gte=0"`
		RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
		Burst             int           `yaml:"burst" validate:"min=1"`
	}

	MetadataConfig struct {
		Enable bool   `yaml:"enable"`
		Path   string `yaml:"path" validate:"required_if=Enable true"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Images    ImagesConfig   `yaml:"images"`
		Preload   PreloadConfig  `yaml:"preload"`
		Metadata  MetadataConfig `yaml:"metadata"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// crossChecks validates relations between sections which cannot be expressed
// with field tags.
func crossChecks(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok {
		return
	}
	// root-relative metadata location needs somewhere to be resolved against
	if cfg.Metadata.Enable && strings.HasPrefix(cfg.Metadata.Path, "/") &&
		len(cfg.Images.AssetsDir) == 0 && len(cfg.Images.BaseURL) == 0 && !isFile(cfg.Metadata.Path) {
		sl.ReportError(cfg.Metadata.Path, "Path", "path", "resolvable", "")
	}
	if cfg.Preload.HTTPTimeout > 0 && cfg.Preload.HTTPTimeout < cfg.Preload.Timeout {
		sl.ReportError(cfg.Preload.HTTPTimeout, "HTTPTimeout", "http_timeout", "gtefield", "Timeout")
	}
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(crossChecks)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
