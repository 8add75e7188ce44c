package entities

import (
	"encoding/hex"

	"github.com/opencontainers/go-digest"
)

// DuplicateSet es una clase de equivalencia: el original (el primero que se
// encontró) y los archivos con el mismo contenido en el mismo dispositivo.
type DuplicateSet struct {
	Original *FileEntity   `json:"original"`
	Members  []*FileEntity `json:"members"`
}

// Add agrega un duplicado al grupo
func (s *DuplicateSet) Add(f *FileEntity) {
	s.Members = append(s.Members, f)
}

// Count es el número de archivos del grupo, original incluido.
func (s *DuplicateSet) Count() int {
	return len(s.Members) + 1
}

// Digest devuelve el resumen completo del contenido del grupo. Sólo existe
// si alguna comparación llegó a leer el original entero; un grupo formado
// sólo por enlaces duros no lo tiene.
func (s *DuplicateSet) Digest() (digest.Digest, bool) {
	final, ok := s.Original.Digest().Final()
	if !ok {
		return "", false
	}
	alg := digest.Algorithm(s.Original.hasher.Algorithm().String())
	return digest.NewDigestFromEncoded(alg, hex.EncodeToString(final.Sum)), true
}

// Skipped es un archivo descartado y el motivo.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// NewSkipped registra path como descartado por err.
func NewSkipped(path string, err error) Skipped {
	return Skipped{Path: path, Reason: err.Error(), Err: err}
}
