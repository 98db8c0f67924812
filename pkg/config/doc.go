// Package config loads dopkg configuration. Values are layered from the
// embedded defaults, the user config file, DOPKG_* environment variables and
// command line overrides, then decoded into a Config.
package config
