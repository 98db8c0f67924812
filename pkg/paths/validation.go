package paths

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/arthur-debert/dopkg/pkg/errors"
)

var packageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._+@-]*$`)

// ValidatePackageName ensures a package name is safe to use as a single path
// element in the cellar, the records directory and lock files.
func ValidatePackageName(name string) error {
	if name == "" {
		return errors.New(errors.ErrInvalidInput, "package name cannot be empty")
	}
	if name == "." || name == ".." {
		return errors.New(errors.ErrInvalidInput, "package name cannot be '.' or '..'")
	}
	if !packageNamePattern.MatchString(name) {
		return errors.Newf(errors.ErrInvalidInput,
			"package name %q must be lowercase alphanumerics and ._+@-", name)
	}
	return nil
}

// ValidateVersion ensures a version string is usable as a directory name.
func ValidateVersion(version string) error {
	if version == "" {
		return errors.New(errors.ErrInvalidInput, "version cannot be empty")
	}
	if version == "." || version == ".." || strings.HasPrefix(version, ".") {
		return errors.Newf(errors.ErrInvalidInput, "version %q cannot start with '.'", version)
	}
	if strings.ContainsAny(version, "/\\\x00") || strings.TrimSpace(version) != version {
		return errors.Newf(errors.ErrInvalidInput, "version %q contains invalid characters", version)
	}
	return nil
}

// SanitizePath expands home and cleans the path.
func SanitizePath(path string) string {
	path = expandHome(path)

	cleaned := filepath.Clean(path)
	if cleaned == "" {
		return "."
	}

	return cleaned
}

// ContainsPath checks if child is parent or lies within parent.
// Both paths are normalized before comparison.
func ContainsPath(parent, child string) bool {
	parent = SanitizePath(parent)
	child = SanitizePath(child)

	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
