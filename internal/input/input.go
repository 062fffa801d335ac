// Package input opens FinalDraft sources, plain or compressed with gzip or
// xz, and reads them into memory under a size limit.
package input

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/fdx2fountain/core/errors"
	"github.com/FocuswithJustin/fdx2fountain/internal/validation"
)

// StdinName is the path that selects standard input.
const StdinName = "-"

// Source is a fully read, decompressed document.
type Source struct {
	Name string              // path as given, or "-" for stdin
	Type validation.FileType // container type detected from magic bytes
	Data []byte              // decompressed FDX bytes
	Size int64               // size of the file on disk, before decompression
}

// Reader yields the decompressed bytes of a source.
type Reader struct {
	io.Reader
	Type         validation.FileType
	file         io.Closer
	decompressor io.Closer
}

// NewReader wraps r, choosing a decompressor from the leading magic bytes.
// name is used for the extension check and in error messages.
func NewReader(r io.Reader, name string) (*Reader, error) {
	br := bufio.NewReaderSize(r, validation.HeaderSize)
	header, err := br.Peek(validation.HeaderSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, errors.NewIO("read", name, err)
	}

	typ, err := validation.CheckFileType(header, name)
	if err != nil {
		return nil, err
	}

	rd := &Reader{Reader: br, Type: typ}
	switch typ {
	case validation.FileTypeFDXXZ:
		xzr, err := xz.NewReader(br)
		if err != nil {
			return nil, errors.NewIO("open xz stream", name, err)
		}
		rd.Reader = xzr
	case validation.FileTypeFDXGzip:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.NewIO("open gzip stream", name, err)
		}
		rd.Reader = gzr
		rd.decompressor = gzr
	}
	return rd, nil
}

// Open opens the file at path for reading. StdinName reads standard input.
func Open(path string) (*Reader, error) {
	if path == StdinName {
		return NewReader(os.Stdin, path)
	}
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.NewValidation("path", err.Error())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	r, err := NewReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

// Close closes the reader and any underlying decompressor and file.
func (r *Reader) Close() error {
	var first error
	if r.decompressor != nil {
		first = r.decompressor.Close()
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ReadAll reads r to the end, failing once more than limit bytes have been
// produced.
func ReadAll(r io.Reader, name string, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.NewIO("read", name, err)
	}
	if int64(len(data)) > limit {
		return nil, errors.NewValidation("file", name+" exceeds the maximum document size")
	}
	return data, nil
}

// Read opens path and reads the whole decompressed document, capped at
// validation.MaxFileSize.
func Read(path string) (*Source, error) {
	return ReadLimit(path, validation.MaxFileSize)
}

// ReadLimit is Read with an explicit size limit.
func ReadLimit(path string, limit int64) (*Source, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := ReadAll(r, path, limit)
	if err != nil {
		return nil, err
	}

	src := &Source{Name: path, Type: r.Type, Data: data, Size: int64(len(data))}
	if f, ok := r.file.(*os.File); ok {
		if info, err := f.Stat(); err == nil {
			src.Size = info.Size()
		}
	}
	return src, nil
}
