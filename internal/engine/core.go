// Package engine orquesta una ejecución completa: recorrido, construcción de
// entidades, orden de conservación y agrupación de duplicados.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/soyunomas/fdupe/internal/comparator"
	"github.com/soyunomas/fdupe/internal/entities"
	"github.com/soyunomas/fdupe/internal/fsys"
	"github.com/soyunomas/fdupe/internal/hasher"
	"github.com/soyunomas/fdupe/internal/logging"
	"github.com/soyunomas/fdupe/internal/scanner"
)

var logger = logging.GetLogger("engine")

// DefaultExcludes son los nombres que se ignoran si no se indica otra cosa.
var DefaultExcludes = []string{".git", "node_modules", ".DS_Store"}

type Options struct {
	MinSize  int64
	Excludes []string
	MaxDepth int // scanner.NoLimit para recorrer todo
	Strategy KeepStrategy
	Grouping Strategy

	Algorithm       hasher.Algorithm
	FirstCheckpoint int64
	MaxOpenFiles    int64 // <0 sin límite
	Workers         int   // 0 usa un worker por CPU

	Progress ProgressFunc
}

// Validate comprueba que las opciones tengan sentido.
func (o Options) Validate() error {
	var errs []error
	if o.MinSize < 0 {
		errs = append(errs, fmt.Errorf("tamaño mínimo negativo: %d", o.MinSize))
	}
	if o.MaxDepth < scanner.NoLimit {
		errs = append(errs, fmt.Errorf("profundidad inválida: %d", o.MaxDepth))
	}
	if o.FirstCheckpoint < 0 {
		errs = append(errs, fmt.Errorf("primer punto de control negativo: %d", o.FirstCheckpoint))
	}
	if o.Workers < 0 {
		errs = append(errs, fmt.Errorf("número de workers negativo: %d", o.Workers))
	}
	if o.Algorithm != "" {
		if _, err := hasher.ParseAlgorithm(string(o.Algorithm)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Stats struct {
	TotalFilesScanned int64
	Sets              []*entities.DuplicateSet
	DuplicatesCount   int64
	Skipped           []entities.Skipped
	UnreadableEntries int // Entradas que el recorrido no pudo leer
	Comparisons       comparator.Stats
	BytesRead         int64
	FileOpens         int64
	Duration          time.Duration
}

type Runner struct {
	opts Options
	src  fsys.Source
}

// New crea un Runner sobre el sistema de archivos del sistema operativo.
func New(opts Options) *Runner {
	return NewWithSource(fsys.NewOSSource(), opts)
}

// NewWithSource crea un Runner sobre src.
func NewWithSource(src fsys.Source, opts Options) *Runner {
	return &Runner{opts: opts, src: src}
}

// Run busca duplicados. Sin checkRoots agrupa todos los archivos de
// originRoots entre sí; con checkRoots busca, para cada archivo de
// originRoots, sus copias en checkRoots. Un archivo presente en ambas listas
// se construye una sola vez.
func (r *Runner) Run(ctx context.Context, originRoots, checkRoots []string) (*Stats, error) {
	start := time.Now()
	if err := r.opts.Validate(); err != nil {
		return nil, err
	}
	if len(originRoots) == 0 {
		return nil, errors.New("no se indicó ningún directorio")
	}

	// --- PASO 1: SCANNER ---
	sc := scanner.New(r.src, scanner.Config{
		MinSize:  r.opts.MinSize,
		Excludes: r.opts.Excludes,
		MaxDepth: r.opts.MaxDepth,
	})
	stats := &Stats{}

	originPaths, err := r.scan(sc, originRoots, stats)
	if err != nil {
		return nil, err
	}
	checkPaths, err := r.scan(sc, checkRoots, stats)
	if err != nil {
		return nil, err
	}

	union := make([]string, 0, len(originPaths)+len(checkPaths))
	seen := make(map[string]bool, cap(union))
	for _, p := range slices.Concat(originPaths, checkPaths) {
		if !seen[p] {
			seen[p] = true
			union = append(union, p)
		}
	}
	stats.TotalFilesScanned = int64(len(union))
	logger.Debugf("%d archivos encontrados", len(union))

	// --- PASO 2: METADATOS ---
	h := hasher.New(r.src, hasher.Config{
		Algorithm:       r.opts.Algorithm,
		FirstCheckpoint: r.opts.FirstCheckpoint,
		MaxOpenFiles:    r.opts.MaxOpenFiles,
	})
	builder := entities.NewBuilder(r.src, h, comparator.New())

	r.opts.Progress.emit(StageStat, "", 0, len(union))
	built, skipped, err := builder.BuildAll(ctx, union, r.opts.Workers)
	if err != nil {
		return nil, err
	}
	r.opts.Progress.emit(StageStat, "", len(union), len(union))
	stats.Skipped = append(stats.Skipped, skipped...)

	byPath := make(map[string]*entities.FileEntity, len(built))
	for _, f := range built {
		byPath[f.Path] = f
	}
	pick := func(paths []string) []*entities.FileEntity {
		out := make([]*entities.FileEntity, 0, len(paths))
		for _, p := range paths {
			if f, ok := byPath[p]; ok {
				out = append(out, f)
			}
		}
		return out
	}

	// --- PASO 3: AGRUPACIÓN ---
	grouper := NewGrouper(r.opts.Grouping, r.opts.Progress)
	var res *GroupResult
	if len(checkRoots) == 0 {
		list := pick(originPaths)
		sortCandidates(list, r.opts.Strategy)
		res, err = grouper.Group(ctx, list)
	} else {
		originals, checks := pick(originPaths), pick(checkPaths)
		sortCandidates(originals, r.opts.Strategy)
		sortCandidates(checks, r.opts.Strategy)
		res, err = grouper.GroupAgainst(ctx, originals, checks)
	}
	if err != nil {
		return nil, fmt.Errorf("fallo en la agrupación: %w", err)
	}

	// --- PASO 4: FINALIZAR ---
	stats.Sets = res.Sets
	stats.Skipped = append(stats.Skipped, res.Skipped...)
	for _, set := range res.Sets {
		stats.DuplicatesCount += int64(len(set.Members))
	}
	for _, f := range built {
		stats.BytesRead += f.BytesRead()
		stats.FileOpens += int64(f.Opens())
	}
	stats.Comparisons = builder.Comparator().Stats()
	stats.Duration = time.Since(start)

	logger.Debugf("%d grupos, %d duplicados, %d bytes leídos en %s",
		len(stats.Sets), stats.DuplicatesCount, stats.BytesRead, stats.Duration)
	return stats, nil
}

// scan recorre roots en orden y concatena sus archivos.
func (r *Runner) scan(sc *scanner.FileScanner, roots []string, stats *Stats) ([]string, error) {
	var paths []string
	for _, root := range roots {
		r.opts.Progress.emit(StageScanning, root, len(paths), 0)
		res, err := sc.Scan(root)
		if err != nil {
			return nil, fmt.Errorf("fallo en scanner: %w", err)
		}
		stats.UnreadableEntries += res.Skipped
		paths = append(paths, res.Paths...)
	}
	return paths, nil
}
