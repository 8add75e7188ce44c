package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/soyunomas/fdupe/internal/fsys"
	"github.com/soyunomas/fdupe/internal/logging"
)

var logger = logging.GetLogger("scanner")

// NoLimit desactiva el límite de profundidad.
const NoLimit = -1

// Config define las reglas para el escaneo.
type Config struct {
	MinSize  int64    // Tamaño mínimo en bytes para considerar
	Excludes []string // Nombres de carpetas o archivos a ignorar
	MaxDepth int      // Profundidad máxima bajo la raíz; NoLimit para ninguna
}

// Result son las rutas encontradas, en orden de recorrido.
type Result struct {
	Paths   []string
	Skipped int // Entradas ilegibles descartadas
}

// FileScanner encapsula la lógica de recorrido del sistema de archivos.
type FileScanner struct {
	src        fsys.Source
	cfg        Config
	excludeMap map[string]struct{} // Optimización O(1)
}

// New crea una nueva instancia del escáner con configuración.
func New(src fsys.Source, cfg Config) *FileScanner {
	// Pre-procesamos excludes a un mapa para búsquedas instantáneas
	exMap := make(map[string]struct{}, len(cfg.Excludes))
	for _, e := range cfg.Excludes {
		exMap[e] = struct{}{}
	}

	return &FileScanner{
		src:        src,
		cfg:        cfg,
		excludeMap: exMap,
	}
}

// Scan recorre root y devuelve sus archivos regulares. Si root es un archivo
// el resultado es ese archivo. Los enlaces simbólicos no se siguen.
func (s *FileScanner) Scan(root string) (*Result, error) {
	res := &Result{}
	logger.Debugf("Iniciando escaneo en: %s", root)

	err := s.src.Walk(root, func(path string, info os.FileInfo, err error) error {
		// 1. Manejo de errores de acceso (permisos, etc)
		if err != nil {
			if path == root {
				return err
			}
			logger.Debugf("Entrada ilegible %s: %v", path, err)
			res.Skipped++
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		depth := depthOf(root, path)

		// 2. Si es directorio, verificamos exclusiones y profundidad
		if info.IsDir() {
			if path != root {
				if _, ok := s.excludeMap[info.Name()]; ok {
					return filepath.SkipDir
				}
			}
			if s.cfg.MaxDepth != NoLimit && depth >= s.cfg.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		// 3. Sólo archivos regulares
		if !info.Mode().IsRegular() {
			return nil
		}
		if _, ok := s.excludeMap[info.Name()]; ok {
			return nil
		}
		if s.cfg.MaxDepth != NoLimit && depth > s.cfg.MaxDepth {
			return nil
		}

		// 4. Filtro de Tamaño
		if info.Size() < s.cfg.MinSize {
			return nil
		}

		res.Paths = append(res.Paths, path)
		return nil
	})
	if err != nil {
		return nil, fsys.NewError("scan", root, fsys.ErrRead, err)
	}
	return res, nil
}

// depthOf cuenta los componentes de path por debajo de root.
func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
