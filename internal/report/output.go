package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// WriteJSON escribe el informe indentado.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText escribe el informe legible para la terminal.
func (r *Report) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}

	if len(r.Groups) == 0 {
		ew.printf("✅ ¡Limpio! No se encontraron duplicados.\n")
	} else {
		ew.printf("🔴 DUPLICADOS ENCONTRADOS:\n")
	}

	for _, g := range r.Groups {
		ew.printf("   📦 Grupo (Size: %s) | 👑 KEEPER: %s\n", HumanSize(g.Size), g.Keeper.Path)
		if g.Digest != "" {
			ew.printf("      #️⃣  %s\n", g.Digest)
		}
		for _, hl := range g.HardLinks {
			ew.printf("      🔗 [HardLink]: %s (0B)\n", hl)
		}
		for _, v := range g.Victims {
			ew.printf("      🗑️  [Candidato]: %s\n", v.Path)
		}
		ew.printf("\n")
	}

	for _, s := range r.Skipped {
		ew.printf("   ⚠️  [Omitido]: %s (%s)\n", s.Path, s.Reason)
	}

	ew.printf("------------------------------------------------\n")
	ew.printf("🏁 Escaneo terminado. Archivos: %d | Candidatos a borrar: %d | Enlaces duros: %d\n",
		r.Summary.TotalFilesScanned, r.Summary.TotalDuplicates, r.Summary.TotalHardLinks)
	ew.printf("💾 Espacio recuperable: %s\n", r.Summary.BytesSavedHuman)
	ew.printf("📖 Leído del disco: %s (%d aperturas) en %s\n",
		r.Summary.BytesReadHuman, r.Summary.FileOpens, r.Metadata.Duration)
	return ew.err
}

// WriteFile guarda el informe en JSON en path. Si path termina en .zst se
// comprime con zstd.
func (r *Report) WriteFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("crear informe: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if !strings.HasSuffix(path, ".zst") {
		return r.WriteJSON(f)
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	if err := r.WriteJSON(enc); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// errWriter guarda el primer error de escritura y descarta el resto.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
