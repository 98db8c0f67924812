package config

import (
	"os"
	"reflect"
	"strings"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/paths"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables that map onto config keys
const EnvPrefix = "DOPKG_"

// Options control where configuration is read from
type Options struct {
	// ConfigFile is an explicit user file. When empty the XDG location is
	// used and a missing file is not an error.
	ConfigFile string

	// Overrides are dotted keys set from command line flags
	Overrides map[string]interface{}
}

// Load builds the layered configuration.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	// 2. User file
	path, required := opts.ConfigFile, true
	if path == "" {
		required = false
		if p, err := paths.New(paths.Overrides{}); err == nil {
			path = p.ConfigFile()
		}
	}
	if path != "" {
		path = paths.ExpandHome(path)
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", path).
					WithDetail(errors.DetailPath, path)
			}
		} else if required {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "config file %s not readable", path).
				WithDetail(errors.DetailPath, path)
		}
	}

	// 3. Environment. Only names that map onto a known key are taken, so
	// DOPKG_HOME and friends stay path overrides.
	known := envKeyMap(k.Keys())
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return known[strings.ToLower(strings.TrimPrefix(s, EnvPrefix))]
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
	}

	// 4. Command line
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load overrides")
		}
	}

	return decode(k)
}

// envKeyMap maps fetch_s3_access_key style names to fetch.s3.access_key.
func envKeyMap(keys []string) map[string]string {
	m := make(map[string]string, len(keys))
	for _, key := range keys {
		m[strings.ReplaceAll(key, ".", "_")] = key
	}
	return m
}

func decode(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				lockBackendHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// lockBackendHookFunc accepts lock backend names in any case.
func lockBackendHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		for _, v := range []string{LockBackendLocal, LockBackendRedis} {
			if strings.EqualFold(s, v) {
				return v, nil
			}
		}
		return data, nil
	}
}

// Validate checks value ranges that decoding cannot express.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...interface{}) error {
		return errors.Newf(errors.ErrConfigValid, format, args...).WithDetail("key", key)
	}

	if c.Jobs < 1 {
		return invalid("jobs", "jobs must be at least 1, got %d", c.Jobs)
	}
	if c.Fetch.Retries < 0 {
		return invalid("fetch.retries", "fetch.retries cannot be negative")
	}
	if c.Fetch.Backoff < 0 || c.Fetch.Timeout < 0 {
		return invalid("fetch", "fetch durations cannot be negative")
	}
	if len(c.Build.Interpreter) == 0 || c.Build.Interpreter[0] == "" {
		return invalid("build.interpreter", "build.interpreter must name a program")
	}
	if c.Build.OutputLimit <= 0 {
		return invalid("build.output_limit", "build.output_limit must be positive")
	}
	switch c.Lock.Backend {
	case LockBackendLocal:
	case LockBackendRedis:
		if c.Lock.RedisURL == "" {
			return invalid("lock.redis_url", "lock.redis_url is required for the redis backend")
		}
	default:
		return invalid("lock.backend", "unknown lock backend %q", c.Lock.Backend)
	}
	if c.Lock.TTL <= 0 {
		return invalid("lock.ttl", "lock.ttl must be positive")
	}
	return nil
}
