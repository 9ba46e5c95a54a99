package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"linepump/internal/spec"
)

const (
	SupportedSchema = "v1"
	EnvPrefix       = "LINEPUMP_"

	DefaultFlushEvery   = 10
	DefaultTimeoutMS    = 5000
	DefaultRequiredAcks = 1
)

// Load merges the YAML file at path (if present) with env-vars
// (prefix `LINEPUMP_`, `__` separates nested keys, e.g. LINEPUMP_LOG__LEVEL).
func Load(path string) (spec.File, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return spec.File{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return spec.File{}, fmt.Errorf("config schema_version %q not supported (want %q)", sv, SupportedSchema)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return spec.File{}, fmt.Errorf("config env: %w", err)
	}

	var cfg spec.File
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	// 0 (no response) is a valid choice, so only an absent key is defaulted.
	if !k.Exists("kafka.required_acks") {
		cfg.Kafka.RequiredAcks = DefaultRequiredAcks
	}
	return cfg, nil
}

// envKey maps LINEPUMP_KAFKA__TOPIC to kafka.topic.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Dump renders the effective configuration as YAML.
func Dump(cfg spec.File) ([]byte, error) {
	return yamlv3.Marshal(cfg)
}

func applyDefaults(c *spec.File) {
	if c.SchemaVersion == "" {
		c.SchemaVersion = SupportedSchema
	}
	if c.Tally.FlushEvery <= 0 {
		c.Tally.FlushEvery = DefaultFlushEvery
	}
	if c.Transformer.TimeoutMS <= 0 {
		c.Transformer.TimeoutMS = DefaultTimeoutMS
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []string{"stdout"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
}
