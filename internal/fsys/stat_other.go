//go:build !unix

package fsys

import "io/fs"

// Sin Stat_t todos los archivos comparten dispositivo y no hay inodos.
func getSysInfo(fs.FileInfo) (uint64, uint64) {
	return 0, 0
}
