package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/soyunomas/fdupe/internal/entities"
)

// KeepStrategy decide qué archivo de un grupo se conserva como original.
type KeepStrategy int

const (
	KeepShortestPath KeepStrategy = iota // Default
	KeepLongestPath
	KeepOldest
	KeepNewest
)

// ParseKeepStrategy interpreta shortest, longest, oldest o newest.
func ParseKeepStrategy(s string) (KeepStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shortest", "":
		return KeepShortestPath, nil
	case "longest":
		return KeepLongestPath, nil
	case "oldest":
		return KeepOldest, nil
	case "newest":
		return KeepNewest, nil
	default:
		return 0, fmt.Errorf("estrategia desconocida: %s", s)
	}
}

func (k KeepStrategy) String() string {
	switch k {
	case KeepLongestPath:
		return "longest"
	case KeepOldest:
		return "oldest"
	case KeepNewest:
		return "newest"
	default:
		return "shortest"
	}
}

// sortCandidates ordena los archivos según la estrategia. Como el original
// de cada grupo es el primero que se encuentra, el archivo preferido de cada
// clase queda como original (el "Keeper").
func sortCandidates(files []*entities.FileEntity, strategy KeepStrategy) {
	slices.SortStableFunc(files, func(f1, f2 *entities.FileEntity) int {
		switch strategy {
		case KeepShortestPath:
			// [0] debe ser el más corto
			if len(f1.Path) != len(f2.Path) {
				return len(f1.Path) - len(f2.Path)
			}

		case KeepLongestPath:
			// [0] debe ser el más largo
			if len(f1.Path) != len(f2.Path) {
				return len(f2.Path) - len(f1.Path)
			}

		case KeepOldest:
			// [0] debe ser el más viejo (Fecha menor)
			if c := f1.ModTime.Compare(f2.ModTime); c != 0 {
				return c
			}

		case KeepNewest:
			// [0] debe ser el más nuevo (Fecha mayor)
			if c := f2.ModTime.Compare(f1.ModTime); c != 0 {
				return c
			}
		}

		// --- CRITERIOS DE DESEMPATE (Tie-Breakers) ---
		// 1. Longitud de ruta (si no fue el criterio principal)
		if len(f1.Path) != len(f2.Path) {
			if strategy == KeepLongestPath {
				return len(f2.Path) - len(f1.Path)
			}
			return len(f1.Path) - len(f2.Path)
		}

		// 2. Alfabético (último recurso)
		return strings.Compare(f1.Path, f2.Path)
	})
}
