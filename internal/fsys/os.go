package fsys

import (
	"os"
	"path/filepath"
)

// OSSource lee del sistema de archivos nativo.
type OSSource struct{}

// NewOSSource crea un Source sobre el sistema operativo.
func NewOSSource() *OSSource {
	return &OSSource{}
}

func (OSSource) Open(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewError("open", path, ErrRead, err)
	}
	return f, nil
}

func (OSSource) Stat(path string) (Info, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Info{}, NewError("stat", path, ErrRead, err)
	}
	devID, inode := getSysInfo(info)
	return Info{
		Size:     info.Size(),
		DeviceID: devID,
		Inode:    inode,
		ModTime:  info.ModTime(),
		Regular:  info.Mode().IsRegular(),
	}, nil
}

func (OSSource) Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", NewError("canonicalize", path, ErrCanonicalize, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &FileError{Op: "canonicalize", Path: path, Kind: ErrCanonicalize, Err: err}
	}
	return resolved, nil
}

func (OSSource) Walk(root string, fn filepath.WalkFunc) error {
	return filepath.Walk(root, fn)
}
