package archive

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/paths"
)

// safeJoin resolves an archive entry name under root. The result is always
// inside root or an error is returned.
func safeJoin(root, name string) (string, error) {
	if strings.ContainsRune(name, 0) {
		return "", errors.PathTraversal(name)
	}
	slashed := filepath.ToSlash(name)
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", errors.PathTraversal(name)
	}

	target := filepath.Join(root, filepath.FromSlash(slashed))
	if !paths.ContainsPath(root, target) {
		return "", errors.PathTraversal(name)
	}
	return target, nil
}

// maxLinkHops bounds symlink resolution, matching the kernel's ELOOP limit
const maxLinkHops = 40

// checkLinkTarget verifies that a symlink at path pointing at linkname stays
// within root when resolved against the links already extracted.
func checkLinkTarget(root, path, entry, linkname string) error {
	if linkname == "" || filepath.IsAbs(linkname) || strings.HasPrefix(filepath.ToSlash(linkname), "/") {
		return errors.PathTraversal(entry).WithDetail("link", linkname)
	}
	if _, err := resolveWithin(root, filepath.Dir(path), linkname); err != nil {
		return errors.PathTraversal(entry).WithDetail("link", linkname)
	}
	return nil
}

// resolveWithin follows linkname from dir the way the kernel would, reading
// every symlink it meets on disk. Each step must stay inside root; leaving
// root even transiently is an error. Components that do not exist yet are
// joined lexically. dir must be a real directory under root.
func resolveWithin(root, dir, linkname string) (string, error) {
	root = filepath.Clean(root)
	current := filepath.Clean(dir)
	if !paths.ContainsPath(root, current) {
		return "", errors.PathTraversal(linkname)
	}

	pending := strings.Split(filepath.ToSlash(linkname), "/")
	hops := 0
	missing := false
	for len(pending) > 0 {
		part := pending[0]
		pending = pending[1:]

		switch part {
		case "", ".":
			continue
		case "..":
			if current == root {
				return "", errors.PathTraversal(linkname)
			}
			current = filepath.Dir(current)
			continue
		}

		next := filepath.Join(current, part)
		if missing {
			current = next
			continue
		}
		info, err := os.Lstat(next)
		if os.IsNotExist(err) {
			missing = true
			current = next
			continue
		}
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrUnpack, "failed to inspect %s", next)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			current = next
			continue
		}

		hops++
		if hops > maxLinkHops {
			return "", errors.PathTraversal(linkname).WithDetail("via", next)
		}
		target, err := os.Readlink(next)
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrUnpack, "failed to read link %s", next)
		}
		if filepath.IsAbs(target) || strings.HasPrefix(filepath.ToSlash(target), "/") {
			return "", errors.PathTraversal(linkname).WithDetail("via", next)
		}
		pending = append(strings.Split(filepath.ToSlash(target), "/"), pending...)
	}
	return current, nil
}

// verifyLinks re-resolves every symlink in the finished tree. Per-entry
// checks see only the links extracted so far; a later entry can change
// what an earlier link resolves to.
func verifyLinks(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, errors.ErrUnpack, "failed to walk %s", path)
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		entry, _ := filepath.Rel(root, path)
		linkname, err := os.Readlink(path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrUnpack, "failed to read link %s", path)
		}
		return checkLinkTarget(root, path, filepath.ToSlash(entry), linkname)
	})
}

// checkParents refuses to write through a symlink. Every existing component
// between root and target's parent must be a real directory, otherwise an
// earlier entry could redirect a later write outside root.
func checkParents(root, target, entry string) error {
	rel, err := filepath.Rel(root, filepath.Dir(target))
	if err != nil {
		return errors.PathTraversal(entry)
	}
	if rel == "." {
		return nil
	}

	current := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		info, err := os.Lstat(current)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, errors.ErrUnpack, "failed to inspect %s", current)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return errors.PathTraversal(entry).WithDetail("via", current)
		}
		if !info.IsDir() {
			return errors.Newf(errors.ErrUnpack, "archive entry %q is below a non-directory", entry).
				WithDetail(errors.DetailEntry, entry)
		}
	}
	return nil
}
