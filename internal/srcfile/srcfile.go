// Package srcfile reads model source files deterministically: opened,
// fully consumed, and closed before the lexer sees a single byte of them.
package srcfile

import (
	"io"
	"os"
	"unicode/utf8"

	"github.com/edsrzf/mmap-go"
)

// mmapThreshold is the file size above which Read memory-maps the file
// instead of copying it into a heap buffer.
const mmapThreshold = 64 * 1024

// BOM is the UTF-8 byte order mark, stripped from the front of a file if present.
var bom = []byte{0xEF, 0xBB, 0xBF}

// Read returns the full, BOM-stripped, UTF-8-validated contents of path.
// Small files are read directly; files at or above mmapThreshold bytes are
// memory-mapped and copied out of the mapping before it is unmapped, so the
// returned slice always outlives the call (spec: files are opened, fully
// consumed, and closed deterministically).
func Read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var data []byte
	if info.Size() >= mmapThreshold {
		data, err = readMapped(f, info.Size())
	} else {
		data, err = io.ReadAll(f)
	}
	if err != nil {
		return nil, err
	}

	data = stripBOM(data)
	if !utf8.Valid(data) {
		return nil, &InvalidUTF8Error{Path: path}
	}
	return data, nil
}

func readMapped(f *os.File, size int64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer m.Unmap()

	out := make([]byte, len(m))
	copy(out, m)
	return out, nil
}

func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == bom[0] && b[1] == bom[1] && b[2] == bom[2] {
		return b[3:]
	}
	return b
}

// InvalidUTF8Error is returned by Read when a source file is not valid
// UTF-8 after BOM stripping (spec: a fatal I/O-class error).
type InvalidUTF8Error struct {
	Path string
}

func (e *InvalidUTF8Error) Error() string {
	return "file is not valid UTF-8: " + e.Path
}
