// Package fsys abstrae el acceso a archivos: metadatos, apertura para lectura,
// rutas canónicas y recorrido de directorios.
package fsys

import (
	"io"
	"path/filepath"
	"time"
)

// Info son los metadatos que se leen una sola vez por archivo.
type Info struct {
	Size     int64
	DeviceID uint64
	Inode    uint64
	ModTime  time.Time
	Regular  bool
}

// File es un manejador de lectura secuencial con posicionamiento.
type File interface {
	io.Reader
	io.Seeker
	io.Closer
}

// Source es el origen de los archivos a comparar.
type Source interface {
	Open(path string) (File, error)
	Stat(path string) (Info, error)
	// Canonical devuelve una ruta absoluta y sin enlaces simbólicos; dos
	// rutas con el mismo valor canónico son el mismo archivo.
	Canonical(path string) (string, error)
	Walk(root string, fn filepath.WalkFunc) error
}
