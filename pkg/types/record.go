package types

import "time"

// InstallationRecord is the persisted manifest of one installed package.
type InstallationRecord struct {
	Name          string        `toml:"name"`
	Version       string        `toml:"version"`
	Prefix        string        `toml:"prefix"`
	Files         []string      `toml:"files"`
	SourceURL     string        `toml:"source_url"`
	SourceHash    string        `toml:"source_hash"`
	HashAlgorithm HashAlgorithm `toml:"hash_algorithm"`
	Dependencies  []string      `toml:"dependencies,omitempty"`
	InstalledAt   time.Time     `toml:"installed_at"`
}

// ID returns "name@version".
func (r InstallationRecord) ID() string {
	return r.Name + "@" + r.Version
}
