package formula

import (
	"bytes"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/hashutil"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"github.com/arthur-debert/dopkg/pkg/paths"
	"github.com/arthur-debert/dopkg/pkg/types"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies a recipe encoding
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the recipe format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.Newf(errors.ErrInvalidInput, "unsupported recipe extension %q", filepath.Ext(path)).
		WithDetail(errors.DetailPath, path)
}

// Load reads, decodes and validates the recipe at path.
func Load(path string) (types.Formula, error) {
	logger := logging.GetLogger("formula")

	format, err := FormatFromPath(path)
	if err != nil {
		return types.Formula{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Formula{}, errors.Wrapf(err, errors.ErrNotFound, "recipe %s not found", path).
				WithDetail(errors.DetailPath, path)
		}
		return types.Formula{}, errors.Wrapf(err, errors.ErrIO, "failed to read recipe %s", path).
			WithDetail(errors.DetailPath, path)
	}

	f, err := Parse(data, format)
	if err != nil {
		return types.Formula{}, err
	}

	logger.Debug().
		Str("path", path).
		Str("formula", f.ID()).
		Int("steps", len(f.Install)).
		Msg("Loaded formula")
	return f, nil
}

// Parse decodes and validates a recipe document. Unknown keys are rejected.
func Parse(data []byte, format Format) (types.Formula, error) {
	var r recipe
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&r); err != nil {
			return types.Formula{}, errors.Wrap(err, errors.ErrFormulaParse, "invalid TOML recipe")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&r); err != nil {
			return types.Formula{}, errors.Wrap(err, errors.ErrFormulaParse, "invalid YAML recipe")
		}
	default:
		return types.Formula{}, errors.Newf(errors.ErrInvalidInput, "unknown recipe format %q", format)
	}

	f, err := r.toFormula()
	if err != nil {
		return types.Formula{}, err
	}
	if err := Validate(f); err != nil {
		return types.Formula{}, err
	}
	return f, nil
}

// Validate checks the structural rules every formula must satisfy before
// the pipeline will accept it.
func Validate(f types.Formula) error {
	invalid := func(format string, args ...interface{}) error {
		return errors.Newf(errors.ErrFormulaInvalid, format, args...).WithDetail("formula", f.Name)
	}

	if err := paths.ValidatePackageName(f.Name); err != nil {
		return invalid("invalid name: %v", err)
	}
	if err := paths.ValidateVersion(f.Version); err != nil {
		return invalid("invalid version: %v", err)
	}

	if f.URL == "" {
		return invalid("formula has no source url")
	}
	u, err := url.Parse(f.URL)
	if err != nil || u.Scheme == "" {
		return invalid("source url %q is not absolute", f.URL)
	}

	if !f.Algorithm.Valid() {
		return invalid("unsupported hash algorithm %q", f.Algorithm)
	}
	if !hashutil.ValidDigest(f.Algorithm, f.Hash) {
		return invalid("%s digest must be %d hex characters", f.Algorithm, f.Algorithm.DigestLength())
	}

	seen := make(map[string]bool, len(f.Dependencies))
	for _, d := range f.Dependencies {
		if err := paths.ValidatePackageName(d.Name); err != nil {
			return invalid("invalid dependency name: %v", err)
		}
		if !d.Kind.Valid() {
			return invalid("dependency %s has unknown kind %q", d.Name, d.Kind)
		}
		if d.Name == f.Name {
			return invalid("formula depends on itself")
		}
		if seen[d.Name] {
			return invalid("dependency %s declared twice", d.Name)
		}
		seen[d.Name] = true
	}

	if len(f.Install) == 0 {
		return invalid("formula has no install steps")
	}
	for i, step := range f.Install {
		if strings.TrimSpace(step) == "" {
			return invalid("install step %d is empty", i)
		}
	}

	if f.Test != nil {
		if strings.TrimSpace(f.Test.Command) == "" {
			return invalid("test has no command")
		}
		if err := f.Test.Predicate.Validate(); err != nil {
			return invalid("invalid test predicate: %v", err)
		}
	}
	return nil
}
