package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"crypto/sha1" //nolint:gosec // fixtures mirror sha1 formulas
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Entry describes one archive member. Type defaults to a regular file, or a
// directory when Name ends in "/".
type Entry struct {
	Name     string
	Body     string
	Mode     int64
	Type     byte
	Linkname string
}

// Dir returns a directory entry
func Dir(name string) Entry {
	return Entry{Name: name, Type: tar.TypeDir, Mode: 0o755}
}

// File returns a regular file entry with mode 0644
func File(name, body string) Entry {
	return Entry{Name: name, Body: body, Mode: 0o644}
}

// Exec returns an executable file entry
func Exec(name, body string) Entry {
	return Entry{Name: name, Body: body, Mode: 0o755}
}

// Symlink returns a symbolic link entry
func Symlink(name, target string) Entry {
	return Entry{Name: name, Type: tar.TypeSymlink, Linkname: target, Mode: 0o777}
}

// Hardlink returns a hard link entry
func Hardlink(name, target string) Entry {
	return Entry{Name: name, Type: tar.TypeLink, Linkname: target, Mode: 0o644}
}

func (e Entry) header() *tar.Header {
	typ := e.Type
	if typ == 0 {
		typ = tar.TypeReg
		if len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/' {
			typ = tar.TypeDir
		}
	}
	mode := e.Mode
	if mode == 0 {
		mode = 0o644
		if typ == tar.TypeDir {
			mode = 0o755
		}
	}
	hdr := &tar.Header{
		Name:     e.Name,
		Typeflag: typ,
		Mode:     mode,
		Linkname: e.Linkname,
		ModTime:  time.Unix(1421193600, 0),
		Format:   tar.FormatPAX,
	}
	if typ == tar.TypeReg {
		hdr.Size = int64(len(e.Body))
	}
	return hdr
}

// Tar builds an uncompressed tar archive
func Tar(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	writeTar(t, &buf, entries)
	return buf.Bytes()
}

// TarGz builds a gzip compressed tar archive
func TarGz(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	writeTar(t, gz, entries)
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// TarXZ builds an xz compressed tar archive
func TarXZ(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}
	writeTar(t, xw, entries)
	if err := xw.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}
	return buf.Bytes()
}

// TarZstd builds a zstd compressed tar archive
func TarZstd(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	writeTar(t, zw, entries)
	if err := zw.Close(); err != nil {
		t.Fatalf("zstd close: %v", err)
	}
	return buf.Bytes()
}

func writeTar(t testing.TB, w io.Writer, entries []Entry) {
	t.Helper()
	tw := tar.NewWriter(w)
	for _, e := range entries {
		hdr := e.header()
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", e.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := io.WriteString(tw, e.Body); err != nil {
				t.Fatalf("tar body %s: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
}

// Zip builds a zip archive. Symlinks are stored with their target as content.
func Zip(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := e.header()
		fh := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		fh.SetMode(hdr.FileInfo().Mode())
		w, err := zw.CreateHeader(fh)
		if err != nil {
			t.Fatalf("zip header %s: %v", e.Name, err)
		}
		body := e.Body
		if hdr.Typeflag == tar.TypeSymlink {
			body = e.Linkname
		}
		if hdr.Typeflag != tar.TypeDir {
			if _, err := io.WriteString(w, body); err != nil {
				t.Fatalf("zip body %s: %v", e.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// WriteArchive writes data to dir/name and returns the path
func WriteArchive(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

// SHA256 returns the hex sha256 of data
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA1 returns the hex sha1 of data
func SHA1(data []byte) string {
	sum := sha1.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
