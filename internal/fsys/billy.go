package fsys

import (
	"errors"
	"os"
	"path"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// maxSymlinkHops limita la resolución de enlaces encadenados.
const maxSymlinkHops = 40

// DeviceFunc asigna un identificador de dispositivo a una ruta. Los
// sistemas billy no exponen uno propio.
type DeviceFunc func(path string) uint64

// BillySource adapta un billy.Filesystem (memfs, osfs, chroot...) a Source.
// Los inodos siempre son 0, así que no se detectan enlaces duros.
type BillySource struct {
	fs     billy.Filesystem
	device DeviceFunc
}

// NewBillySource crea un Source sobre fs. device puede ser nil, en cuyo caso
// todos los archivos comparten el dispositivo 0.
func NewBillySource(fs billy.Filesystem, device DeviceFunc) *BillySource {
	return &BillySource{fs: fs, device: device}
}

func (b *BillySource) Open(name string) (File, error) {
	f, err := b.fs.Open(name)
	if err != nil {
		return nil, NewError("open", name, ErrRead, err)
	}
	return f, nil
}

func (b *BillySource) Stat(name string) (Info, error) {
	info, err := b.fs.Stat(name)
	if err != nil {
		return Info{}, NewError("stat", name, ErrRead, err)
	}
	var dev uint64
	if b.device != nil {
		dev = b.device(name)
	}
	return Info{
		Size:     info.Size(),
		DeviceID: dev,
		ModTime:  info.ModTime(),
		Regular:  info.Mode().IsRegular(),
	}, nil
}

// Canonical resuelve enlaces simbólicos en el último componente de la ruta.
func (b *BillySource) Canonical(name string) (string, error) {
	p := path.Join("/", filepath.ToSlash(name))
	for range maxSymlinkHops {
		info, err := b.fs.Lstat(p)
		if err != nil {
			return "", NewError("canonicalize", name, ErrCanonicalize, err)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			return p, nil
		}
		target, err := b.fs.Readlink(p)
		if err != nil {
			return "", NewError("canonicalize", name, ErrCanonicalize, err)
		}
		if !path.IsAbs(target) {
			target = path.Join(path.Dir(p), target)
		}
		p = path.Clean(target)
	}
	return "", &FileError{
		Op:   "canonicalize",
		Path: name,
		Kind: ErrCanonicalize,
		Err:  errors.New("too many levels of symbolic links"),
	}
}

func (b *BillySource) Walk(root string, fn filepath.WalkFunc) error {
	return util.Walk(b.fs, root, fn)
}
