// Package report convierte el resultado de una ejecución en el informe final:
// texto para la terminal o JSON, opcionalmente comprimido con zstd.
package report

import (
	"time"

	"github.com/docker/go-units"

	"github.com/soyunomas/fdupe/internal/comparator"
	"github.com/soyunomas/fdupe/internal/engine"
	"github.com/soyunomas/fdupe/internal/entities"
)

// --- ESTRUCTURAS PARA EL REPORTE FINAL ---

type Report struct {
	Summary  Summary            `json:"summary"`
	Groups   []GroupResult      `json:"groups"`
	Skipped  []entities.Skipped `json:"skipped"`
	Metadata Metadata           `json:"metadata"`
}

type Metadata struct {
	RunID        string    `json:"run_id,omitempty"`
	ScannedPaths []string  `json:"scanned_paths"`
	CheckPaths   []string  `json:"check_paths,omitempty"`
	Strategy     string    `json:"strategy"`
	Grouping     string    `json:"grouping"`
	Algorithm    string    `json:"algorithm"`
	Timestamp    time.Time `json:"timestamp"`
	Duration     string    `json:"duration_human"`
}

type Summary struct {
	TotalFilesScanned int64            `json:"total_files_scanned"`
	TotalSets         int              `json:"total_sets"`
	TotalDuplicates   int64            `json:"total_duplicates"`
	TotalHardLinks    int64            `json:"total_hard_links"`
	BytesSaved        int64            `json:"bytes_saved"`
	BytesSavedHuman   string           `json:"bytes_saved_human"`
	BytesRead         int64            `json:"bytes_read"`
	BytesReadHuman    string           `json:"bytes_read_human"`
	FileOpens         int64            `json:"file_opens"`
	UnreadableEntries int              `json:"unreadable_entries"`
	Comparisons       comparator.Stats `json:"comparisons"`
}

type GroupResult struct {
	Digest    string               `json:"digest,omitempty"`
	Size      int64                `json:"file_size"`
	Keeper    *entities.FileEntity `json:"keeper"`
	Victims   []Victim             `json:"victims"`
	HardLinks []string             `json:"hardlinks"`
}

type Victim struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

type sysID struct {
	dev, inode uint64
}

// Generate construye el informe. Los miembros que comparten inodo con un
// archivo ya visto del grupo son enlaces duros: no ocupan espacio extra y no
// cuentan como recuperables.
func Generate(stats *engine.Stats, meta Metadata) *Report {
	meta.Duration = stats.Duration.String()
	rep := &Report{
		Metadata: meta,
		Summary: Summary{
			TotalFilesScanned: stats.TotalFilesScanned,
			TotalSets:         len(stats.Sets),
			BytesRead:         stats.BytesRead,
			BytesReadHuman:    HumanSize(stats.BytesRead),
			FileOpens:         stats.FileOpens,
			UnreadableEntries: stats.UnreadableEntries,
			Comparisons:       stats.Comparisons,
		},
		Groups:  []GroupResult{},
		Skipped: stats.Skipped,
	}
	if rep.Skipped == nil {
		rep.Skipped = []entities.Skipped{}
	}

	for _, set := range stats.Sets {
		keeper := set.Original
		gRes := GroupResult{
			Size:   keeper.Size,
			Keeper: keeper,
		}
		if d, ok := set.Digest(); ok {
			gRes.Digest = d.String()
		}

		seenInodes := make(map[sysID]bool)
		if keeper.Inode != 0 {
			seenInodes[sysID{keeper.DeviceID, keeper.Inode}] = true
		}

		for _, file := range set.Members {
			id := sysID{file.DeviceID, file.Inode}

			if file.Inode != 0 && seenInodes[id] {
				gRes.HardLinks = append(gRes.HardLinks, file.Path)
				rep.Summary.TotalHardLinks++
				continue
			}
			gRes.Victims = append(gRes.Victims, Victim{
				Path: file.Path,
				Size: file.Size,
			})
			rep.Summary.TotalDuplicates++
			rep.Summary.BytesSaved += file.Size
			if file.Inode != 0 {
				seenInodes[id] = true
			}
		}

		rep.Groups = append(rep.Groups, gRes)
	}

	rep.Summary.BytesSavedHuman = HumanSize(rep.Summary.BytesSaved)
	return rep
}

// HumanSize formatea bytes en unidades decimales (kB, MB...).
func HumanSize(n int64) string {
	return units.HumanSize(float64(n))
}
