package main

import (
	"fmt"
	"io"

	"github.com/soyunomas/fdupe/internal/engine"
)

// progressPrinter muestra una línea por fase y un punto cada 200 elementos.
type progressPrinter struct {
	w     io.Writer
	stage engine.ProgressStage
	begun bool
	dots  bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

var stageTitles = map[engine.ProgressStage]string{
	engine.StageScanning: "🔍 Fase 1: Escaneando sistema de archivos...",
	engine.StageStat:     "🔍 Fase 2: Leyendo metadatos...",
	engine.StageIndexing: "🔍 Fase 3: Indexando por contenido...",
	engine.StageMatching: "🔍 Fase 4: Buscando duplicados...",
}

func (p *progressPrinter) update(e engine.ProgressEvent) {
	if !p.begun || e.Stage != p.stage {
		p.endLine()
		p.begun = true
		p.stage = e.Stage
		fmt.Fprintln(p.w, stageTitles[e.Stage])
	}
	if e.Total > 0 && e.Done == e.Total {
		p.endLine()
		fmt.Fprintf(p.w, "   -> %d/%d\n", e.Done, e.Total)
		return
	}
	if e.Done > 0 && e.Done%200 == 0 {
		fmt.Fprint(p.w, ".")
		p.dots = true
	}
}

func (p *progressPrinter) endLine() {
	if p.dots {
		fmt.Fprintln(p.w)
		p.dots = false
	}
}
