package entities

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/soyunomas/fdupe/internal/comparator"
	"github.com/soyunomas/fdupe/internal/fsys"
	"github.com/soyunomas/fdupe/internal/hasher"
)

// Builder materializa rutas en entidades que comparten Hasher y Comparator.
type Builder struct {
	src    fsys.Source
	hasher *hasher.Hasher
	cmp    *comparator.Comparator
}

// NewBuilder crea un Builder. Todas las entidades que se comparen entre sí
// deben salir del mismo Builder.
func NewBuilder(src fsys.Source, h *hasher.Hasher, c *comparator.Comparator) *Builder {
	return &Builder{src: src, hasher: h, cmp: c}
}

// Comparator devuelve el comparador compartido.
func (b *Builder) Comparator() *comparator.Comparator {
	return b.cmp
}

// Build lee los metadatos de path (un solo stat) y su ruta canónica. No abre
// el archivo.
func (b *Builder) Build(path string) (*FileEntity, error) {
	info, err := b.src.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Regular {
		return nil, &fsys.FileError{Op: "stat", Path: path, Kind: fsys.ErrNotRegular, Err: fsys.ErrNotRegular}
	}
	canonical, err := b.src.Canonical(path)
	if err != nil {
		return nil, err
	}
	return &FileEntity{
		Path:      path,
		Canonical: canonical,
		Size:      info.Size,
		ModTime:   info.ModTime,
		DeviceID:  info.DeviceID,
		Inode:     info.Inode,
		hasher:    b.hasher,
		cmp:       b.cmp,
	}, nil
}

// BuildAll construye las entidades de paths en paralelo con hasta workers
// goroutines, conservando el orden de entrada. Los archivos que fallan se
// devuelven en skipped; sólo la cancelación de ctx produce un error.
func (b *Builder) BuildAll(ctx context.Context, paths []string, workers int) ([]*FileEntity, []Skipped, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	built := make([]*FileEntity, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			built[i], errs[i] = b.Build(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	entities := make([]*FileEntity, 0, len(paths))
	var skipped []Skipped
	for i, e := range built {
		if errs[i] != nil {
			skipped = append(skipped, NewSkipped(paths[i], errs[i]))
			continue
		}
		entities = append(entities, e)
	}
	return entities, skipped, nil
}
