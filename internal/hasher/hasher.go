// Package hasher implementa la lectura por bloques y el digest incremental de
// cada archivo. El digest sólo avanza lo necesario para decidir una
// comparación y recuerda el trabajo hecho entre comparaciones.
package hasher

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/soyunomas/fdupe/internal/fsys"
)

// BlockSize optimiza la lectura del disco (32KB es un buen estándar)
const BlockSize = 32 * 1024

// PreHashSize es el primer punto de control: cuánto leemos para la prueba rápida (4KB)
const PreHashSize = 4 * 1024

// MaxStepSize limita el crecimiento entre puntos de control consecutivos.
const MaxStepSize = 8 * 1024 * 1024

// DefaultMaxOpenFiles es el número de descriptores abiertos a la vez por defecto.
const DefaultMaxOpenFiles = 64

// Config define cómo se leen y se resumen los archivos.
type Config struct {
	Algorithm       Algorithm
	ChunkSize       int   // Tamaño de cada lectura
	FirstCheckpoint int64 // Primer punto de control en bytes
	MaxStep         int64 // Salto máximo entre puntos de control
	MaxOpenFiles    int64 // Descriptores simultáneos; <0 sin límite
}

// Hasher crea digests que comparten algoritmo, calendario de puntos de
// control y límite de archivos abiertos.
type Hasher struct {
	src   fsys.Source
	cfg   Config
	slots *semaphore.Weighted

	// bufferPool reutiliza los buffers de lectura entre pasadas.
	bufferPool sync.Pool
}

// New crea un Hasher sobre src. Los valores cero de cfg toman los valores por defecto.
func New(src fsys.Source, cfg Config) *Hasher {
	if cfg.Algorithm == "" {
		cfg.Algorithm = XXHash
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = BlockSize
	}
	if cfg.FirstCheckpoint <= 0 {
		cfg.FirstCheckpoint = PreHashSize
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = MaxStepSize
	}
	if cfg.MaxOpenFiles == 0 {
		cfg.MaxOpenFiles = DefaultMaxOpenFiles
	}

	h := &Hasher{src: src, cfg: cfg}
	if cfg.MaxOpenFiles > 0 {
		h.slots = semaphore.NewWeighted(cfg.MaxOpenFiles)
	}
	size := cfg.ChunkSize
	h.bufferPool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return h
}

// Algorithm devuelve el algoritmo de resumen en uso.
func (h *Hasher) Algorithm() Algorithm {
	return h.cfg.Algorithm
}

// NewDigest crea el digest vacío de un archivo de tamaño declarado size.
// No abre el archivo.
func (h *Hasher) NewDigest(path string, size int64) *Digest {
	return &Digest{
		h:    h,
		path: path,
		size: size,
		hash: h.cfg.Algorithm.New(),
	}
}

func (h *Hasher) acquire(ctx context.Context) error {
	if h.slots == nil {
		return nil
	}
	return h.slots.Acquire(ctx, 1)
}

func (h *Hasher) release() {
	if h.slots != nil {
		h.slots.Release(1)
	}
}

// nextOffset calcula el siguiente punto de control tras off: el primero en
// FirstCheckpoint, después duplicando hasta saltos de MaxStep. El último
// siempre coincide con size.
func (h *Hasher) nextOffset(off, size int64) int64 {
	step := h.cfg.FirstCheckpoint
	if off > 0 {
		step = min(off, h.cfg.MaxStep)
	}
	return min(off+step, size)
}
