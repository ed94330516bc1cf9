package imaging

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies the closed set of supported study formats.
type Format string

const (
	FormatDICOM   Format = "dicom"
	FormatNIfTI   Format = "nifti"
	FormatUnknown Format = "unknown"
)

var dicomExtensions = map[string]struct{}{
	".dcm":   {},
	".dicom": {},
	".ima":   {},
	"":       {},
}

// DetectFormat sniffs a file's format from its name and content. Extension
// checks run first; content magic settles ambiguous cases.
func DetectFormat(path string) Format {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".nii") || strings.HasSuffix(name, ".nii.gz") {
		return FormatNIfTI
	}
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := dicomExtensions[ext]; ok && IsDICOMFile(path) {
		return FormatDICOM
	}
	if IsNIfTIFile(path) {
		return FormatNIfTI
	}
	if IsDICOMFile(path) {
		return FormatDICOM
	}
	return FormatUnknown
}

// IsDICOMFile reports whether a file carries the DICM magic at offset 128 or
// a conventional DICOM extension.
func IsDICOMFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	magic := make([]byte, 4)
	if _, err := file.ReadAt(magic, 128); err == nil && bytes.Equal(magic, []byte("DICM")) {
		return true
	}
	switch ext {
	case ".dcm", ".dicom", ".ima":
		return true
	}
	return false
}

// IsNIfTIFile reports whether a file starts with a plausible NIfTI-1 header,
// transparently handling gzip compression.
func IsNIfTIFile(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	var reader io.Reader = file
	head := make([]byte, 2)
	if _, err := io.ReadFull(file, head); err != nil {
		return false
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false
	}
	if head[0] == 0x1f && head[1] == 0x8b {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return false
		}
		defer gz.Close()
		reader = gz
	}

	header := make([]byte, 348)
	if _, err := io.ReadFull(reader, header); err != nil {
		return false
	}
	size := binary.LittleEndian.Uint32(header[0:4])
	if size != 348 {
		size = binary.BigEndian.Uint32(header[0:4])
	}
	if size != 348 {
		return false
	}
	magic := header[344:348]
	return bytes.Equal(magic, []byte("n+1\x00")) || bytes.Equal(magic, []byte("ni1\x00"))
}
