package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"compress/bzip2"
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Stats summarises an extraction
type Stats struct {
	Format  Format
	Files   int
	Dirs    int
	Links   int
	Skipped int
}

// Extract unpacks the archive at src into dest, which must exist. ctx is
// checked between entries.
func Extract(ctx context.Context, src, dest string) (Stats, error) {
	logger := logging.GetLogger("archive")

	f, err := os.Open(src)
	if err != nil {
		return Stats{}, errors.Wrapf(err, errors.ErrUnpack, "failed to open archive %s", src).
			WithDetail(errors.DetailPath, src)
	}
	defer func() { _ = f.Close() }()

	br := bufio.NewReader(f)
	header, _ := br.Peek(HeaderSize)
	format := Detect(header)
	logger.Debug().Str("archive", src).Str("format", string(format)).Msg("Extracting")

	var stats Stats
	switch format {
	case FormatZip:
		info, serr := f.Stat()
		if serr != nil {
			return stats, errors.Wrapf(serr, errors.ErrUnpack, "failed to stat %s", src)
		}
		stats, err = extractZip(ctx, f, info.Size(), dest)
	case FormatTar:
		stats, err = extractTar(ctx, br, dest)
	case FormatUnknown:
		return stats, errors.New(errors.ErrUnpack, "unrecognized archive format").
			WithDetail(errors.DetailPath, src)
	default:
		r, closeFn, derr := decompressor(format, br)
		if derr != nil {
			return stats, derr
		}
		defer closeFn()

		inner := bufio.NewReader(r)
		innerHeader, _ := inner.Peek(HeaderSize)
		if Detect(innerHeader) != FormatTar {
			return stats, errors.Newf(errors.ErrUnpack, "%s stream does not contain a tar archive", format).
				WithDetail(errors.DetailPath, src)
		}
		stats, err = extractTar(ctx, inner, dest)
	}
	stats.Format = format
	if err != nil {
		return stats, err
	}
	if stats.Links > 0 {
		if err := verifyLinks(dest); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func decompressor(format Format, r io.Reader) (io.Reader, func(), error) {
	noop := func() {}
	switch format {
	case FormatGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, noop, errors.Wrap(err, errors.ErrUnpack, "invalid gzip stream")
		}
		return gz, func() { _ = gz.Close() }, nil
	case FormatBzip2:
		return bzip2.NewReader(r), noop, nil
	case FormatXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, noop, errors.Wrap(err, errors.ErrUnpack, "invalid xz stream")
		}
		return xr, noop, nil
	case FormatZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, noop, errors.Wrap(err, errors.ErrUnpack, "invalid zstd stream")
		}
		return zr, zr.Close, nil
	}
	return nil, noop, errors.Newf(errors.ErrUnpack, "unsupported compression %s", format)
}

func extractTar(ctx context.Context, r io.Reader, dest string) (Stats, error) {
	var stats Stats
	tr := tar.NewReader(r)
	for {
		if err := errors.FromContext(ctx, "extraction cancelled"); err != nil {
			return stats, err
		}

		hdr, err := tr.Next()
		if stderrors.Is(err, io.EOF) {
			return stats, nil
		}
		// With GODEBUG=tarinsecurepath=0 the reader flags unsafe names
		// itself; safeJoin below reports them uniformly.
		if err != nil && !stderrors.Is(err, tar.ErrInsecurePath) {
			return stats, errors.Wrap(err, errors.ErrUnpack, "corrupt tar stream")
		}

		// pax global headers carry metadata only (GitHub tarballs start with one)
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return stats, err
		}
		if target == dest {
			continue
		}
		if err := checkParents(dest, target, hdr.Name); err != nil {
			return stats, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := mkdir(target, hdr.FileInfo().Mode()); err != nil {
				return stats, err
			}
			stats.Dirs++
		case tar.TypeReg, tar.TypeRegA: //nolint:staticcheck // old archives still use TypeRegA
			if err := writeFile(target, tr, hdr.FileInfo().Mode()); err != nil {
				return stats, err
			}
			stats.Files++
		case tar.TypeSymlink:
			if err := checkLinkTarget(dest, target, hdr.Name, hdr.Linkname); err != nil {
				return stats, err
			}
			if err := symlink(hdr.Linkname, target); err != nil {
				return stats, err
			}
			stats.Links++
		case tar.TypeLink:
			source, err := safeJoin(dest, hdr.Linkname)
			if err != nil {
				return stats, errors.PathTraversal(hdr.Name).WithDetail("link", hdr.Linkname)
			}
			if err := checkParents(dest, source, hdr.Name); err != nil {
				return stats, err
			}
			if err := hardlink(source, target); err != nil {
				return stats, err
			}
			stats.Links++
		default:
			// Devices, fifos and similar never belong in a source tree
			stats.Skipped++
		}
	}
}

func extractZip(ctx context.Context, r io.ReaderAt, size int64, dest string) (Stats, error) {
	var stats Stats
	zr, err := zip.NewReader(r, size)
	if err != nil && !stderrors.Is(err, zip.ErrInsecurePath) {
		return stats, errors.Wrap(err, errors.ErrUnpack, "corrupt zip archive")
	}

	for _, zf := range zr.File {
		if err := errors.FromContext(ctx, "extraction cancelled"); err != nil {
			return stats, err
		}

		target, err := safeJoin(dest, zf.Name)
		if err != nil {
			return stats, err
		}
		if target == dest {
			continue
		}
		if err := checkParents(dest, target, zf.Name); err != nil {
			return stats, err
		}

		mode := zf.Mode()
		switch {
		case mode.IsDir():
			if err := mkdir(target, mode); err != nil {
				return stats, err
			}
			stats.Dirs++
		case mode&fs.ModeSymlink != 0:
			linkname, err := readZipEntry(zf)
			if err != nil {
				return stats, err
			}
			if err := checkLinkTarget(dest, target, zf.Name, linkname); err != nil {
				return stats, err
			}
			if err := symlink(linkname, target); err != nil {
				return stats, err
			}
			stats.Links++
		case mode.IsRegular():
			rc, err := zf.Open()
			if err != nil {
				return stats, errors.Wrapf(err, errors.ErrUnpack, "failed to open zip entry %s", zf.Name)
			}
			err = writeFile(target, rc, mode)
			_ = rc.Close()
			if err != nil {
				return stats, err
			}
			stats.Files++
		default:
			stats.Skipped++
		}
	}
	return stats, nil
}

func readZipEntry(zf *zip.File) (string, error) {
	rc, err := zf.Open()
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrUnpack, "failed to open zip entry %s", zf.Name)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrUnpack, "failed to read zip entry %s", zf.Name)
	}
	return string(data), nil
}

func mkdir(path string, mode fs.FileMode) error {
	if err := os.MkdirAll(path, mode.Perm()|0o700); err != nil {
		return errors.Wrapf(err, errors.ErrUnpack, "failed to create %s", path)
	}
	return nil
}

func writeFile(path string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrUnpack, "failed to create %s", filepath.Dir(path))
	}
	// Replace rather than follow whatever an earlier entry left at path
	_ = os.Remove(path)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode.Perm()|0o600)
	if err != nil {
		return errors.Wrapf(err, errors.ErrUnpack, "failed to create %s", path)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, errors.ErrUnpack, "failed to write %s", path)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrUnpack, "failed to close %s", path)
	}
	return nil
}

func symlink(linkname, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrUnpack, "failed to create %s", filepath.Dir(path))
	}
	_ = os.Remove(path)
	if err := os.Symlink(linkname, path); err != nil {
		return errors.Wrapf(err, errors.ErrUnpack, "failed to create symlink %s", path)
	}
	return nil
}

func hardlink(source, path string) error {
	info, err := os.Lstat(source)
	if err != nil {
		return errors.Wrapf(err, errors.ErrUnpack, "hard link source %s missing", source)
	}
	if !info.Mode().IsRegular() {
		return errors.Newf(errors.ErrUnpack, "hard link source %s is not a regular file", source)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrUnpack, "failed to create %s", filepath.Dir(path))
	}
	_ = os.Remove(path)
	if err := os.Link(source, path); err != nil {
		return errors.Wrapf(err, errors.ErrUnpack, "failed to link %s", path)
	}
	return nil
}
