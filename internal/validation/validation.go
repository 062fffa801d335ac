// Package validation checks user-supplied paths and detects the kind of
// FinalDraft source a file holds.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	fdxerrors "github.com/FocuswithJustin/fdx2fountain/core/errors"
)

// Limits on untrusted input (CWE-400).
const (
	// MaxFileSize is the maximum allowed decompressed document size (256 MB).
	MaxFileSize = 256 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
)

// SanitizePath validates userPath and joins it to baseDir, refusing paths
// that would escape baseDir. It returns the joined path.
func SanitizePath(baseDir, userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}
	if len(userPath) > MaxPathLength {
		return "", ErrPathTooLong
	}

	cleanPath := filepath.Clean(userPath)
	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(baseDir, cleanPath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	relPath, err := filepath.Rel(absBase, absPath)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	return filepath.Join(baseDir, cleanPath), nil
}

// ValidateFilename rejects names with path separators, control characters
// and other dangerous patterns.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	return nil
}

// ValidatePath checks a path for length limits and invalid characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// FileType is the detected kind of a source file.
type FileType string

const (
	FileTypeFDX     FileType = "fdx"
	FileTypeFDXGzip FileType = "fdx.gz"
	FileTypeFDXXZ   FileType = "fdx.xz"
	FileTypeUnknown FileType = "unknown"
)

// Compressed reports whether t needs decompression before parsing.
func (t FileType) Compressed() bool {
	return t == FileTypeFDXGzip || t == FileTypeFDXXZ
}

// HeaderSize is the number of leading bytes DetectFileType inspects.
const HeaderSize = 512

var (
	magicGzip    = []byte{0x1f, 0x8b}
	magicXZ      = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
	bomUTF8      = []byte{0xef, 0xbb, 0xbf}
	bomUTF16LE   = []byte{0xff, 0xfe}
	bomUTF16BE   = []byte{0xfe, 0xff}
	magicSQLite  = []byte("SQLite format 3")
	magicZip     = []byte{0x50, 0x4b, 0x03, 0x04}
	binaryMagics = [][]byte{magicSQLite, magicZip}
)

// DetectFileType classifies a file header by its magic bytes. Anything
// that is neither gzip nor xz and looks like text is treated as plain FDX;
// whether it is actually FinalDraft XML is decided by the parser. An empty
// header is FDX too, so the parser reports it.
func DetectFileType(header []byte) FileType {
	switch {
	case len(header) == 0:
		return FileTypeFDX
	case bytes.HasPrefix(header, magicGzip):
		return FileTypeFDXGzip
	case bytes.HasPrefix(header, magicXZ):
		return FileTypeFDXXZ
	case bytes.HasPrefix(header, bomUTF16LE), bytes.HasPrefix(header, bomUTF16BE):
		return FileTypeFDX
	}
	for _, m := range binaryMagics {
		if bytes.HasPrefix(header, m) {
			return FileTypeUnknown
		}
	}
	if isLikelyText(bytes.TrimPrefix(header, bomUTF8)) {
		return FileTypeFDX
	}
	return FileTypeUnknown
}

// FileTypeFromName returns the type implied by the file name's extension.
func FileTypeFromName(filename string) FileType {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".fdx.gz"):
		return FileTypeFDXGzip
	case strings.HasSuffix(lower, ".fdx.xz"):
		return FileTypeFDXXZ
	case strings.HasSuffix(lower, ".fdx"), strings.HasSuffix(lower, ".xml"):
		return FileTypeFDX
	}
	return FileTypeUnknown
}

// IsSourceName reports whether filename has a recognised source extension.
func IsSourceName(filename string) bool {
	return FileTypeFromName(filename) != FileTypeUnknown
}

// OutputName returns the Fountain file name for a source file name:
// "Pilot.fdx.xz" becomes "Pilot.fountain".
func OutputName(source string) string {
	base := filepath.Base(source)
	lower := strings.ToLower(base)
	for _, ext := range []string{".fdx.gz", ".fdx.xz", ".fdx", ".xml"} {
		if strings.HasSuffix(lower, ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}
	return base + ".fountain"
}

// ValidateFileType reads the header of r and checks it with CheckFileType.
func ValidateFileType(r io.Reader, filename string) (FileType, error) {
	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fdxerrors.NewIO("read header of", filename, err)
	}
	return CheckFileType(buf[:n], filename)
}

// CheckFileType checks that header agrees with the type implied by
// filename. Content wins when the name carries no known extension.
func CheckFileType(header []byte, filename string) (FileType, error) {
	detected := DetectFileType(header)
	expected := FileTypeFromName(filename)

	if detected == FileTypeUnknown {
		return FileTypeUnknown, fdxerrors.NewValidation("file", fmt.Sprintf("%s is not a FinalDraft document or a compressed one", filename))
	}
	if expected != FileTypeUnknown && expected != detected {
		return FileTypeUnknown, fdxerrors.NewValidation("file", fmt.Sprintf("file type mismatch: extension suggests %s but content is %s", expected, detected))
	}
	return detected, nil
}

// isLikelyText checks if the buffer contains likely text content.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
		// UTF-8 lead and continuation bytes are neutral.
	}

	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
