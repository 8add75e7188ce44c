// Package testutil ofrece sistemas de archivos en memoria y orígenes
// instrumentados para los tests.
package testutil

import (
	"errors"
	"path"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/soyunomas/fdupe/internal/fsys"
)

// ErrInjected es el error de FailingSource al pasar del límite configurado.
var ErrInjected = errors.New("injected read failure")

// MemFS devuelve un sistema de archivos en memoria con files.
func MemFS(t testing.TB, files map[string][]byte) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for name, data := range files {
		WriteFile(t, fs, name, data)
	}
	return fs
}

// WriteFile escribe data en name creando los directorios padre.
func WriteFile(t testing.TB, fs billy.Filesystem, name string, data []byte) {
	t.Helper()
	if err := fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		t.Fatalf("MkdirAll(%s) failed: %v", name, err)
	}
	if err := util.WriteFile(fs, name, data, 0o644); err != nil {
		t.Fatalf("WriteFile(%s) failed: %v", name, err)
	}
}

// MemSource devuelve un BillySource en memoria con files. Todos los
// archivos comparten el dispositivo 0.
func MemSource(t testing.TB, files map[string][]byte) *fsys.BillySource {
	t.Helper()
	return fsys.NewBillySource(MemFS(t, files), nil)
}

// Content devuelve n bytes pseudoaleatorios deterministas a partir de seed.
func Content(n int, seed byte) []byte {
	data := make([]byte, n)
	x := uint32(seed)*2654435761 + 1
	for i := range data {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		data[i] = byte(x)
	}
	return data
}

// Flip devuelve una copia de data con el byte i cambiado.
func Flip(data []byte, i int) []byte {
	out := append([]byte(nil), data...)
	out[i] ^= 0xFF
	return out
}

// CountingSource cuenta aperturas y bytes leídos por ruta.
type CountingSource struct {
	fsys.Source

	mu    sync.Mutex
	opens map[string]int
	read  map[string]int64
}

// NewCountingSource envuelve src.
func NewCountingSource(src fsys.Source) *CountingSource {
	return &CountingSource{
		Source: src,
		opens:  make(map[string]int),
		read:   make(map[string]int64),
	}
}

func (c *CountingSource) Open(name string) (fsys.File, error) {
	f, err := c.Source.Open(name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.opens[name]++
	c.mu.Unlock()
	return &countingFile{File: f, name: name, src: c}, nil
}

// Opens es el número de veces que se abrió name.
func (c *CountingSource) Opens(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens[name]
}

// TotalOpens suma las aperturas de todas las rutas.
func (c *CountingSource) TotalOpens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.opens {
		total += n
	}
	return total
}

// BytesRead es el número de bytes leídos de name.
func (c *CountingSource) BytesRead(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read[name]
}

type countingFile struct {
	fsys.File
	name string
	src  *CountingSource
}

func (f *countingFile) Read(p []byte) (int, error) {
	n, err := f.File.Read(p)
	f.src.mu.Lock()
	f.src.read[f.name] += int64(n)
	f.src.mu.Unlock()
	return n, err
}

// FailingSource hace fallar las lecturas de ciertas rutas a partir de un límite.
type FailingSource struct {
	fsys.Source

	// Limits asocia a cada ruta los bytes que se pueden leer antes de que
	// las lecturas fallen, contados desde el inicio del archivo.
	Limits map[string]int64
}

func (s *FailingSource) Open(name string) (fsys.File, error) {
	f, err := s.Source.Open(name)
	if err != nil {
		return nil, err
	}
	limit, ok := s.Limits[name]
	if !ok {
		return f, nil
	}
	return &failingFile{File: f, limit: limit}, nil
}

type failingFile struct {
	fsys.File
	pos   int64
	limit int64
}

func (f *failingFile) Seek(offset int64, whence int) (int64, error) {
	pos, err := f.File.Seek(offset, whence)
	if err == nil {
		f.pos = pos
	}
	return pos, err
}

func (f *failingFile) Read(p []byte) (int, error) {
	if f.pos >= f.limit {
		return 0, ErrInjected
	}
	if int64(len(p)) > f.limit-f.pos {
		p = p[:f.limit-f.pos]
	}
	n, err := f.File.Read(p)
	f.pos += int64(n)
	return n, err
}
