// Package entities define la representación en memoria de cada archivo y el
// contrato de orden e igualdad entre ellos.
package entities

import (
	"cmp"
	"context"
	"sync/atomic"
	"time"

	"github.com/soyunomas/fdupe/internal/comparator"
	"github.com/soyunomas/fdupe/internal/hasher"
)

// FileEntity representa un archivo en disco con los metadatos necesarios.
// Los metadatos se leen una sola vez; el digest se crea en la primera
// comparación que necesita leer contenido.
type FileEntity struct {
	Path      string    `json:"path"`
	Canonical string    `json:"canonical_path"`
	Size      int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
	DeviceID  uint64    `json:"device_id"`
	Inode     uint64    `json:"inode"`

	hasher *hasher.Hasher
	cmp    *comparator.Comparator

	digest atomic.Pointer[hasher.Digest]
}

// Digest devuelve el estado incremental del archivo, creándolo si hace falta.
func (f *FileEntity) Digest() *hasher.Digest {
	if d := f.digest.Load(); d != nil {
		return d
	}
	f.digest.CompareAndSwap(nil, f.hasher.NewDigest(f.Path, f.Size))
	return f.digest.Load()
}

// BytesRead es lo que se ha leído de este archivo hasta ahora.
func (f *FileEntity) BytesRead() int64 {
	if d := f.digest.Load(); d != nil {
		return d.BytesRead()
	}
	return 0
}

// Opens es el número de veces que se ha abierto este archivo.
func (f *FileEntity) Opens() int {
	if d := f.digest.Load(); d != nil {
		return d.Opens()
	}
	return 0
}

// SameFile indica si ambas entidades apuntan a la misma ruta canónica.
func (f *FileEntity) SameFile(other *FileEntity) bool {
	return f == other || f.Canonical == other.Canonical
}

// SameDevice indica si ambos archivos están en el mismo dispositivo y, por
// tanto, podrían enlazarse con un enlace duro.
func (f *FileEntity) SameDevice(other *FileEntity) bool {
	return f.DeviceID == other.DeviceID
}

// HardLinkOf indica si ambos archivos son el mismo inodo.
func (f *FileEntity) HardLinkOf(other *FileEntity) bool {
	return f.Inode != 0 && f.Inode == other.Inode && f.DeviceID == other.DeviceID
}

// Compare ordena por tamaño y después por contenido. Se usa para ordenar y
// agrupar; la misma ruta o el mismo inodo son iguales sin leer nada.
// Ambas entidades deben venir del mismo Builder.
func Compare(ctx context.Context, a, b *FileEntity) (int, error) {
	if a.SameFile(b) || a.HardLinkOf(b) {
		return 0, nil
	}
	if r := cmp.Compare(a.Size, b.Size); r != 0 {
		return r, nil
	}
	return a.cmp.Compare(ctx, a.Digest(), b.Digest())
}

// IsDuplicate indica si b es un duplicado de a: mismo contenido, mismo
// dispositivo y distinta ruta canónica. Un archivo nunca es duplicado de sí
// mismo, aunque Compare lo considere igual; es la única excepción a la
// coherencia entre orden e igualdad. Si la comparación falla devuelve false
// junto al error.
func IsDuplicate(ctx context.Context, a, b *FileEntity) (bool, error) {
	if a.SameFile(b) {
		return false, nil
	}
	if !a.SameDevice(b) {
		return false, nil
	}
	r, err := Compare(ctx, a, b)
	if err != nil {
		return false, err
	}
	return r == 0, nil
}
