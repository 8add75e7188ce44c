package hasher

import (
	"context"
	"fmt"
	"hash"
	"sync"
)

// Checkpoint es el resumen de los primeros Offset bytes del archivo.
type Checkpoint struct {
	Offset int64
	Sum    []byte
}

// Digest es el estado incremental de un archivo: cuántos bytes iniciales se
// han resumido y los puntos de control alcanzados. Es seguro para uso
// concurrente; las extensiones de un mismo archivo se serializan.
type Digest struct {
	mu sync.Mutex

	h    *Hasher
	path string
	size int64

	hash        hash.Hash
	covered     int64
	checkpoints []Checkpoint

	bytesRead int64
	opens     int
}

func (d *Digest) Path() string { return d.path }
func (d *Digest) Size() int64  { return d.size }

// Extend resume el archivo hasta cubrir al menos target bytes, o el archivo
// completo si es más corto. No hace nada si ya está cubierto. Ante un error
// de lectura se conserva lo avanzado hasta ese momento.
func (d *Digest) Extend(ctx context.Context, target int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.extend(ctx, target)
}

// Checkpoint devuelve el punto de control k, extendiendo lo que haga falta.
// Los puntos ya alcanzados no vuelven a leerse.
func (d *Digest) Checkpoint(ctx context.Context, k int) (Checkpoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for len(d.checkpoints) <= k {
		if d.final() {
			return Checkpoint{}, fmt.Errorf("checkpoint %d of %s: past end of file", k, d.path)
		}
		if err := d.extend(ctx, d.nextMark()); err != nil {
			return Checkpoint{}, err
		}
	}
	return d.checkpoints[k], nil
}

// Snapshot devuelve los bytes cubiertos y el resumen actual sin modificar nada.
func (d *Digest) Snapshot() (int64, []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.covered, d.hash.Sum(nil)
}

// Final devuelve el resumen del archivo completo si ya se ha calculado.
func (d *Digest) Final() (Checkpoint, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.final() {
		return Checkpoint{}, false
	}
	return d.checkpoints[len(d.checkpoints)-1], true
}

// Covered es el número de bytes iniciales ya resumidos.
func (d *Digest) Covered() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.covered
}

// BytesRead es el total de bytes leídos del disco por este digest.
func (d *Digest) BytesRead() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bytesRead
}

// Opens es el número de veces que se ha abierto el archivo.
func (d *Digest) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

func (d *Digest) extend(ctx context.Context, target int64) error {
	target = min(target, d.size)
	d.record()
	if d.covered >= target {
		return nil
	}

	// Un descriptor por pasada: se abre aquí y se cierra al terminar.
	if err := d.h.acquire(ctx); err != nil {
		return err
	}
	defer d.h.release()

	bufPtr := d.h.bufferPool.Get().(*[]byte)
	defer d.h.bufferPool.Put(bufPtr)

	r, err := OpenChunked(d.h.src, d.path, d.size, d.covered, *bufPtr)
	if err != nil {
		return err
	}
	defer r.Close()
	d.opens++

	for d.covered < target {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Nunca cruzamos un punto de control sin registrarlo.
		limit := min(target, d.nextMark()) - d.covered
		chunk, err := r.Next(int(min(limit, int64(len(*bufPtr)))))
		if err != nil {
			return err
		}
		_, _ = d.hash.Write(chunk)
		d.covered += int64(len(chunk))
		d.bytesRead += int64(len(chunk))
		d.record()
	}
	return nil
}

// record guarda un punto de control si el cursor acaba de alcanzarlo.
func (d *Digest) record() {
	if !d.final() && d.covered == d.nextMark() {
		d.checkpoints = append(d.checkpoints, Checkpoint{Offset: d.covered, Sum: d.hash.Sum(nil)})
	}
}

func (d *Digest) nextMark() int64 {
	if len(d.checkpoints) == 0 {
		return d.h.nextOffset(0, d.size)
	}
	return d.h.nextOffset(d.checkpoints[len(d.checkpoints)-1].Offset, d.size)
}

func (d *Digest) final() bool {
	n := len(d.checkpoints)
	return n > 0 && d.checkpoints[n-1].Offset == d.size
}
