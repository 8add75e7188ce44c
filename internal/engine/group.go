package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/soyunomas/fdupe/internal/entities"
	"github.com/soyunomas/fdupe/internal/fsys"
)

// Strategy es el algoritmo de agrupación.
type Strategy int

const (
	// StrategyOrdered reparte por (tamaño, dispositivo) y mantiene cada
	// partición como una lista ordenada de cubos con búsqueda binaria:
	// O(n log n) comparaciones.
	StrategyOrdered Strategy = iota

	// StrategyPairwise compara cada original con todos los candidatos
	// restantes y los extrae: O(n²) comparaciones, aunque las de distinto
	// tamaño no leen nada.
	StrategyPairwise
)

// ParseStrategy interpreta "ordered" o "pairwise".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ordered", "":
		return StrategyOrdered, nil
	case "pairwise":
		return StrategyPairwise, nil
	default:
		return 0, fmt.Errorf("estrategia de agrupación desconocida: %q", s)
	}
}

func (s Strategy) String() string {
	if s == StrategyPairwise {
		return "pairwise"
	}
	return "ordered"
}

// errSkip indica que el archivo buscado falló y quedó descartado.
var errSkip = errors.New("archivo descartado")

// GroupResult son los grupos encontrados y los archivos descartados por
// errores de lectura durante la comparación.
type GroupResult struct {
	Sets    []*entities.DuplicateSet
	Skipped []entities.Skipped
}

// Grouper reparte entidades en grupos de duplicados.
type Grouper struct {
	strategy Strategy
	progress ProgressFunc
}

// NewGrouper crea un Grouper. progress puede ser nil.
func NewGrouper(strategy Strategy, progress ProgressFunc) *Grouper {
	return &Grouper{strategy: strategy, progress: progress}
}

// Group agrupa una única lista: cada clase con dos o más archivos produce un
// grupo cuyo original es el primero de la clase en la lista.
func (g *Grouper) Group(ctx context.Context, list []*entities.FileEntity) (*GroupResult, error) {
	return g.group(ctx, list, list, true)
}

// GroupAgainst busca, para cada original en orden, sus duplicados entre
// checks y los extrae. Ningún archivo aparece en dos grupos y el original de
// un grupo nunca es miembro de otro. Un error de lectura descarta sólo el
// archivo afectado; únicamente la cancelación de ctx aborta.
// Las listas pertenecen al Grouper durante la llamada.
func (g *Grouper) GroupAgainst(ctx context.Context, originals, checks []*entities.FileEntity) (*GroupResult, error) {
	return g.group(ctx, originals, checks, false)
}

// group ejecuta la estrategia. self indica que originals y checks son la
// misma lista.
func (g *Grouper) group(ctx context.Context, originals, checks []*entities.FileEntity, self bool) (*GroupResult, error) {
	r := &grouping{
		ctx:      ctx,
		progress: g.progress,
		claimed:  make(map[string]bool),
		failed:   make(map[string]bool),
	}
	checks = r.unique(checks)

	var err error
	switch {
	case g.strategy == StrategyPairwise:
		err = r.pairwise(originals, checks)
	case self:
		err = r.ordered(checks)
	default:
		err = r.orderedAgainst(originals, checks)
	}
	if err != nil {
		return nil, err
	}
	return &GroupResult{Sets: r.sets, Skipped: r.skipped}, nil
}

// grouping es el estado de una llamada a GroupAgainst.
type grouping struct {
	ctx      context.Context
	progress ProgressFunc

	claimed map[string]bool // rutas canónicas ya asignadas a un grupo
	failed  map[string]bool // rutas canónicas con errores de lectura
	sets    []*entities.DuplicateSet
	skipped []entities.Skipped
}

// unique elimina rutas canónicas repetidas conservando la primera.
func (r *grouping) unique(list []*entities.FileEntity) []*entities.FileEntity {
	seen := make(map[string]bool, len(list))
	out := make([]*entities.FileEntity, 0, len(list))
	for _, f := range list {
		if seen[f.Canonical] {
			logger.Debugf("Ruta repetida ignorada: %s", f.Path)
			continue
		}
		seen[f.Canonical] = true
		out = append(out, f)
	}
	return out
}

// usable indica si f puede participar todavía como candidato.
func (r *grouping) usable(f *entities.FileEntity) bool {
	return !r.failed[f.Canonical] && !r.claimed[f.Canonical]
}

// blame decide cuál de x e y causó err y lo descarta. Devuelve el error si
// no es atribuible a un archivo (cancelación).
func (r *grouping) blame(err error, x, y *entities.FileEntity) (*entities.FileEntity, error) {
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	culprit := x
	if path, ok := fsys.PathOf(err); ok && path == y.Path && path != x.Path {
		culprit = y
	}
	r.fail(culprit, err)
	return culprit, nil
}

func (r *grouping) fail(f *entities.FileEntity, err error) {
	if r.failed[f.Canonical] {
		return
	}
	r.failed[f.Canonical] = true
	logger.Warnf("Archivo descartado: %v", err)
	r.skipped = append(r.skipped, entities.NewSkipped(f.Path, err))
}

// emit registra un grupo si tiene miembros y reserva sus rutas.
func (r *grouping) emit(original *entities.FileEntity, members []*entities.FileEntity) {
	if len(members) == 0 {
		return
	}
	set := &entities.DuplicateSet{Original: original}
	r.claimed[original.Canonical] = true
	for _, m := range members {
		r.claimed[m.Canonical] = true
		set.Add(m)
	}
	r.sets = append(r.sets, set)
}

// pairwise es la variante cuadrática: cada original recorre los candidatos
// restantes y extrae sus duplicados.
func (r *grouping) pairwise(originals, checks []*entities.FileEntity) error {
	remaining := checks
	for i, orig := range originals {
		r.progress.emit(StageMatching, orig.Path, i, len(originals))
		if !r.usable(orig) {
			continue
		}

		var members []*entities.FileEntity
		keep := make([]*entities.FileEntity, 0, len(remaining))
		for _, c := range remaining {
			if !r.usable(c) {
				continue
			}
			if r.failed[orig.Canonical] {
				keep = append(keep, c)
				continue
			}
			dup, err := entities.IsDuplicate(r.ctx, orig, c)
			if err != nil {
				culprit, err := r.blame(err, orig, c)
				if err != nil {
					return err
				}
				if culprit == orig {
					keep = append(keep, c)
				}
				continue
			}
			if dup {
				members = append(members, c)
			} else {
				keep = append(keep, c)
			}
		}
		remaining = keep
		r.emit(orig, members)
	}
	r.progress.emit(StageMatching, "", len(originals), len(originals))
	return nil
}

// partitionKey agrupa los archivos que pueden ser duplicados entre sí.
type partitionKey struct {
	size   int64
	device uint64
}

func keyOf(f *entities.FileEntity) partitionKey {
	return partitionKey{size: f.Size, device: f.DeviceID}
}

// bucket es una clase de contenido dentro de una partición. rep es el
// elemento contra el que se compara; items incluye a rep. matches son los
// candidatos de otra lista con el mismo contenido.
type bucket struct {
	items   []*entities.FileEntity
	matches []*entities.FileEntity
}

func (b *bucket) rep() *entities.FileEntity {
	return b.items[0]
}

// partition mantiene sus cubos ordenados por contenido.
type partition struct {
	buckets []*bucket
}

// find busca por bisección el cubo de f. Devuelve el índice y si existe; si
// no existe, el índice es la posición de inserción. Si falla la lectura del
// representante de un cubo se descarta y la búsqueda vuelve a empezar; si
// falla la de f devuelve errSkip.
func (r *grouping) find(p *partition, f *entities.FileEntity) (int, bool, error) {
	for {
		lo, hi := 0, len(p.buckets)
		retry := false
		for lo < hi {
			mid := int(uint(lo+hi) >> 1)
			b := p.buckets[mid]
			c, err := entities.Compare(r.ctx, f, b.rep())
			if err != nil {
				culprit, err := r.blame(err, f, b.rep())
				if err != nil {
					return 0, false, err
				}
				if culprit == f {
					return 0, false, errSkip
				}
				r.dropRep(p, mid)
				retry = true
				break
			}
			switch {
			case c == 0:
				return mid, true, nil
			case c < 0:
				hi = mid
			default:
				lo = mid + 1
			}
		}
		if !retry {
			return lo, false, nil
		}
	}
}

// dropRep saca del cubo i a su representante, que falló al leerse. Los demás
// elementos tienen el mismo contenido, así que el siguiente ocupa su lugar
// sin alterar el orden.
func (r *grouping) dropRep(p *partition, i int) {
	b := p.buckets[i]
	b.items = b.items[1:]
	if len(b.items) == 0 {
		p.buckets = append(p.buckets[:i], p.buckets[i+1:]...)
	}
}

// insert coloca f en su cubo, creándolo si hace falta. Devuelve nil si f
// quedó descartado.
func (r *grouping) insert(p *partition, f *entities.FileEntity) (*bucket, error) {
	if len(p.buckets) == 0 {
		b := &bucket{items: []*entities.FileEntity{f}}
		p.buckets = append(p.buckets, b)
		return b, nil
	}
	i, found, err := r.find(p, f)
	if err != nil {
		if errors.Is(err, errSkip) {
			return nil, nil
		}
		return nil, err
	}
	if found {
		b := p.buckets[i]
		b.items = append(b.items, f)
		return b, nil
	}
	b := &bucket{items: []*entities.FileEntity{f}}
	p.buckets = slices.Insert(p.buckets, i, b)
	return b, nil
}

// ordered agrupa una sola lista: indexa todos sus archivos por (tamaño,
// dispositivo) y contenido y después resuelve cada uno, en orden, con una
// búsqueda en su partición.
func (r *grouping) ordered(list []*entities.FileEntity) error {
	originals, checks := list, list
	parts := make(map[partitionKey]*partition)
	counts := make(map[partitionKey]int)
	for _, c := range checks {
		counts[keyOf(c)]++
	}

	for i, c := range checks {
		r.progress.emit(StageIndexing, c.Path, i, len(checks))
		k := keyOf(c)
		p, ok := parts[k]
		if !ok {
			p = &partition{}
			parts[k] = p
		}
		if _, err := r.insert(p, c); err != nil {
			return err
		}
	}
	r.progress.emit(StageIndexing, "", len(checks), len(checks))
	logger.Debugf("Índice listo: %d particiones", len(parts))

	for i, orig := range originals {
		r.progress.emit(StageMatching, orig.Path, i, len(originals))
		if !r.usable(orig) {
			continue
		}
		p, ok := parts[keyOf(orig)]
		if !ok || len(p.buckets) == 0 {
			continue
		}
		// Una partición de un único archivo que es el propio original no
		// tiene nada con qué compararse.
		if counts[keyOf(orig)] == 1 && p.buckets[0].rep().SameFile(orig) {
			continue
		}
		idx, found, err := r.find(p, orig)
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			return err
		}
		if !found {
			continue
		}

		// Todo el cubo tiene el contenido del original.
		var members []*entities.FileEntity
		for _, c := range p.buckets[idx].items {
			if r.usable(c) && !orig.SameFile(c) {
				members = append(members, c)
			}
		}
		r.emit(orig, members)
	}
	r.progress.emit(StageMatching, "", len(originals), len(originals))
	return nil
}

// orderedAgainst indexa sólo los originales cuyo (tamaño, dispositivo)
// aparece entre los checks y busca cada check en ese índice. Un check sin
// partición no se lee, y un check sólo se compara con originales, nunca con
// otros checks.
func (r *grouping) orderedAgainst(originals, checks []*entities.FileEntity) error {
	wanted := make(map[partitionKey]bool, len(checks))
	for _, c := range checks {
		wanted[keyOf(c)] = true
	}

	parts := make(map[partitionKey]*partition)
	classOf := make(map[*entities.FileEntity]*bucket, len(originals))
	for i, orig := range originals {
		r.progress.emit(StageIndexing, orig.Path, i, len(originals))
		k := keyOf(orig)
		if !wanted[k] || !r.usable(orig) {
			continue
		}
		p, ok := parts[k]
		if !ok {
			p = &partition{}
			parts[k] = p
		}
		b, err := r.insert(p, orig)
		if err != nil {
			return err
		}
		if b != nil {
			classOf[orig] = b
		}
	}
	r.progress.emit(StageIndexing, "", len(originals), len(originals))
	logger.Debugf("Índice de originales listo: %d particiones", len(parts))

	for i, c := range checks {
		r.progress.emit(StageMatching, c.Path, i, len(checks))
		p, ok := parts[keyOf(c)]
		if !ok || len(p.buckets) == 0 {
			continue
		}
		idx, found, err := r.find(p, c)
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			return err
		}
		if found {
			b := p.buckets[idx]
			b.matches = append(b.matches, c)
		}
	}

	// Los originales reclaman sus copias en el orden de entrada.
	for _, orig := range originals {
		b, ok := classOf[orig]
		if !ok || !r.usable(orig) {
			continue
		}
		var members []*entities.FileEntity
		for _, c := range b.matches {
			if r.usable(c) && !orig.SameFile(c) {
				members = append(members, c)
			}
		}
		r.emit(orig, members)
	}
	r.progress.emit(StageMatching, "", len(checks), len(checks))
	return nil
}
