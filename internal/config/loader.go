package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/rasbt/screenlamp/internal/objstore"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// envPrefix is the environment variable prefix for every setting:
// general.project_dir resolves to SCREENLAMP_GENERAL_PROJECT_DIR.
const envPrefix = "SCREENLAMP"

// keys lists every setting so that environment overrides apply even when the
// file leaves a key out.
var keys = []string{
	"general.project_dir", "general.input_dir", "general.processes", "general.batch_size",
	"logging.level", "logging.format", "logging.output_paths",
	"datatable.path", "datatable.id_column", "datatable.selection", "datatable.separator",
	"presence.selection",
	"distance.selection", "distance.distance",
	"overlay.input", "overlay.query", "overlay.sort_by", "overlay.selection", "overlay.missing", "overlay.id_suffix",
	"object_store.endpoint", "object_store.access_key", "object_store.secret_key", "object_store.region", "object_store.secure",
	"metrics.textfile",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the YAML file at path, merges SCREENLAMP_* environment
// overrides, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeConfig, "read config file %q", path)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from SCREENLAMP_* variables alone.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// ObjectStoreFromEnv reads only the object_store section from
// SCREENLAMP_OBJECT_STORE_* variables; single-stage commands use it without
// a project configuration.
func ObjectStoreFromEnv() (objstore.Config, error) {
	var cfg Config
	if err := newViper().Unmarshal(&cfg); err != nil {
		return objstore.Config{}, apperr.Wrap(err, apperr.CodeConfig, "decode object_store settings")
	}
	return cfg.ObjectStore, nil
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeConfig, "decode configuration")
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
