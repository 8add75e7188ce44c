package engine

// ProgressEvent es una actualización de progreso durante una ejecución.
type ProgressEvent struct {
	// Stage identifica la fase actual.
	Stage ProgressStage

	// Path es el archivo o raíz en proceso, si aplica.
	Path string

	// Done es el número de elementos completados en la fase.
	Done int

	// Total es el número de elementos de la fase; cero si se desconoce.
	Total int
}

// ProgressStage identifica la fase de una ejecución.
type ProgressStage uint8

const (
	// StageScanning recorre las raíces.
	StageScanning ProgressStage = iota

	// StageStat lee los metadatos de cada archivo.
	StageStat

	// StageIndexing inserta los candidatos en el índice ordenado.
	StageIndexing

	// StageMatching busca los duplicados de cada original.
	StageMatching
)

func (s ProgressStage) String() string {
	switch s {
	case StageScanning:
		return "scanning"
	case StageStat:
		return "stat"
	case StageIndexing:
		return "indexing"
	case StageMatching:
		return "matching"
	default:
		return "unknown"
	}
}

// ProgressFunc recibe las actualizaciones de progreso. Se invoca desde la
// goroutine que ejecuta la fase; no debe bloquear.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) emit(stage ProgressStage, path string, done, total int) {
	if f != nil {
		f(ProgressEvent{Stage: stage, Path: path, Done: done, Total: total})
	}
}
