package samehada_util

import (
	"github.com/ryogrid/SamehadaPager/storage/disk"
)

func FileExists(fs disk.FileSystem, filename string) bool {
	_, err := fs.Size(filename)
	return err == nil
}
