// Package comparator ordena archivos por contenido leyendo lo mínimo posible.
//
// Dos archivos de distinto tamaño se ordenan por tamaño sin tocar el disco.
// Con el mismo tamaño se comparan los puntos de control de ambos digests en
// paralelo: la primera diferencia decide el orden y la igualdad exige haber
// resumido el archivo completo. El orden resultante es el lexicográfico de
// las secuencias de resúmenes, así que sirve para ordenar y agrupar.
package comparator

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/soyunomas/fdupe/internal/hasher"
)

// ErrIncompatible indica que dos digests no comparten calendario de puntos de control.
var ErrIncompatible = errors.New("incompatible digests")

// Stats cuenta el trabajo realizado por un Comparator.
type Stats struct {
	Comparisons     int64 `json:"comparisons"`
	SizeRejects     int64 `json:"size_rejects"`
	MemoHits        int64 `json:"memo_hits"`
	ContentCompares int64 `json:"content_compares"`
}

type pair struct {
	a, b *hasher.Digest
}

// Comparator recuerda el resultado de cada par ya comparado. Es seguro para
// uso concurrente.
type Comparator struct {
	mu    sync.Mutex
	memo  map[pair]int
	stats Stats
}

// New crea un Comparator vacío.
func New() *Comparator {
	return &Comparator{memo: make(map[pair]int)}
}

// Compare devuelve -1, 0 o +1 según el contenido de a sea menor, igual o
// mayor que el de b. Cualquier error de lectura se devuelve tal cual,
// nunca se interpreta como "distintos".
func (c *Comparator) Compare(ctx context.Context, a, b *hasher.Digest) (int, error) {
	c.mu.Lock()
	c.stats.Comparisons++
	c.mu.Unlock()

	if a == b {
		return 0, nil
	}
	if r := cmp.Compare(a.Size(), b.Size()); r != 0 {
		c.mu.Lock()
		c.stats.SizeRejects++
		c.mu.Unlock()
		return r, nil
	}

	c.mu.Lock()
	r, ok := c.memo[pair{a, b}]
	if ok {
		c.stats.MemoHits++
	} else {
		c.stats.ContentCompares++
	}
	c.mu.Unlock()
	if ok {
		return r, nil
	}

	r, err := compareContent(ctx, a, b)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.memo[pair{a, b}] = r
	c.memo[pair{b, a}] = -r
	c.mu.Unlock()
	return r, nil
}

// Stats devuelve una copia de los contadores.
func (c *Comparator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func compareContent(ctx context.Context, a, b *hasher.Digest) (int, error) {
	size := a.Size()
	for k := 0; ; k++ {
		ca, err := a.Checkpoint(ctx, k)
		if err != nil {
			return 0, fmt.Errorf("compare %s with %s: %w", a.Path(), b.Path(), err)
		}
		cb, err := b.Checkpoint(ctx, k)
		if err != nil {
			return 0, fmt.Errorf("compare %s with %s: %w", a.Path(), b.Path(), err)
		}
		if ca.Offset != cb.Offset {
			return 0, fmt.Errorf("compare %s with %s: %w", a.Path(), b.Path(), ErrIncompatible)
		}
		if r := bytes.Compare(ca.Sum, cb.Sum); r != 0 {
			return r, nil
		}
		if ca.Offset >= size {
			return 0, nil
		}
	}
}
