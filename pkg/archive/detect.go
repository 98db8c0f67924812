package archive

import (
	"bytes"
)

// Format is a detected archive or compression format
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatTar     Format = "tar"
	FormatGzip    Format = "gzip"
	FormatBzip2   Format = "bzip2"
	FormatXZ      Format = "xz"
	FormatZstd    Format = "zstd"
	FormatZip     Format = "zip"
)

// HeaderSize is how many leading bytes Detect needs to recognise every format
const HeaderSize = 262

var magics = []struct {
	format Format
	offset int
	magic  []byte
}{
	{FormatGzip, 0, []byte{0x1f, 0x8b}},
	{FormatBzip2, 0, []byte("BZh")},
	{FormatXZ, 0, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
	{FormatZstd, 0, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{FormatZip, 0, []byte("PK\x03\x04")},
	{FormatZip, 0, []byte("PK\x05\x06")},
	{FormatTar, 257, []byte("ustar")},
}

// Detect identifies the format from the first bytes of a file.
func Detect(header []byte) Format {
	for _, m := range magics {
		end := m.offset + len(m.magic)
		if len(header) >= end && bytes.Equal(header[m.offset:end], m.magic) {
			return m.format
		}
	}
	return FormatUnknown
}
