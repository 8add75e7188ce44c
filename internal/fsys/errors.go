package fsys

import (
	"errors"
	"fmt"
	"io/fs"
)

// Tipos de error. Un archivo que produce cualquiera de ellos queda fuera del
// conjunto de candidatos; nunca aborta la ejecución completa.
var (
	ErrNotFound         = errors.New("file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrRead             = errors.New("read failure")
	ErrCanonicalize     = errors.New("canonicalization failure")
	ErrNotRegular       = errors.New("not a regular file")
)

// FileError asocia un fallo de E/S con la ruta que lo produjo y su tipo.
// errors.Is funciona tanto con el tipo (ErrRead, ErrNotFound...) como con el
// error original del sistema.
type FileError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Classify traduce un error del sistema de archivos a uno de los tipos
// anteriores. Si no encaja en ninguno devuelve fallback.
func Classify(err, fallback error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	default:
		return fallback
	}
}

// NewError construye un FileError clasificando err.
func NewError(op, path string, fallback, err error) *FileError {
	return &FileError{Op: op, Path: path, Kind: Classify(err, fallback), Err: err}
}

// PathOf devuelve la ruta del primer FileError de la cadena, si existe.
func PathOf(err error) (string, bool) {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Path, true
	}
	return "", false
}
