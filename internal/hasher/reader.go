package hasher

import (
	"fmt"
	"io"

	"github.com/soyunomas/fdupe/internal/fsys"
)

// ChunkedReader entrega bloques consecutivos de un archivo hasta su tamaño
// declarado. El cursor es exclusivo de cada instancia.
type ChunkedReader struct {
	f    fsys.File
	path string
	size int64
	pos  int64
	buf  []byte
}

// OpenChunked abre path y sitúa el cursor en offset. buf es el buffer de
// lectura; su longitud acota el tamaño de cada bloque.
func OpenChunked(src fsys.Source, path string, size, offset int64, buf []byte) (*ChunkedReader, error) {
	f, err := src.Open(path)
	if err != nil {
		return nil, err
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, fsys.NewError("seek", path, fsys.ErrRead, err)
		}
	}
	return &ChunkedReader{f: f, path: path, size: size, pos: offset, buf: buf}, nil
}

// Next devuelve hasta limit bytes a partir del cursor, o io.EOF cuando el
// cursor llega al tamaño declarado. El slice es válido hasta la siguiente
// llamada. Un archivo más corto de lo declarado produce fsys.ErrRead.
func (r *ChunkedReader) Next(limit int) ([]byte, error) {
	if r.pos >= r.size {
		return nil, io.EOF
	}
	n := int64(min(limit, len(r.buf)))
	n = min(n, r.size-r.pos)
	if n <= 0 {
		return nil, fmt.Errorf("next %s: invalid chunk size %d", r.path, limit)
	}

	m, err := io.ReadFull(r.f, r.buf[:n])
	r.pos += int64(m)
	if err != nil {
		return nil, &fsys.FileError{Op: "read", Path: r.path, Kind: fsys.ErrRead, Err: err}
	}
	return r.buf[:n], nil
}

// Offset es la posición actual del cursor.
func (r *ChunkedReader) Offset() int64 {
	return r.pos
}

func (r *ChunkedReader) Close() error {
	return r.f.Close()
}
