package samehada

import (
	"os"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/ryogrid/SamehadaPager/common"
	"github.com/ryogrid/SamehadaPager/samehada/samehada_util"
	"github.com/ryogrid/SamehadaPager/storage/disk"
	"github.com/ryogrid/SamehadaPager/types"
)

// Metadata is the allocation state persisted next to the data file.
//
//	| next page id (4) | free page count (4) | free page id (4) ... |
//
// All fields are little endian uint32, without padding.
type Metadata struct {
	NextPageID  types.PageID
	FreePageIDs []types.PageID
}

const metadataHeaderSize = types.SizeOfUInt32 * 2

// suffix of the file a new record is written to before it replaces the old one
const tmpSuffix = ".tmp"

func NewMetadata() *Metadata {
	return &Metadata{common.FirstPageID, make([]types.PageID, 0)}
}

func (m *Metadata) Serialize() []byte {
	buf := make([]byte, 0, metadataHeaderSize+types.SizeOfPageID*len(m.FreePageIDs))
	buf = append(buf, m.NextPageID.Serialize()...)
	buf = append(buf, types.UInt32(len(m.FreePageIDs)).Serialize()...)
	for _, pageID := range m.FreePageIDs {
		buf = append(buf, pageID.Serialize()...)
	}
	return buf
}

// DeserializeMetadata decodes and validates a metadata record
func DeserializeMetadata(data []byte) (*Metadata, error) {
	if len(data) < metadataHeaderSize {
		return nil, errors.Wrapf(types.ErrMetadataCorrupt, "record has %d bytes", len(data))
	}

	nextPageID := types.NewPageIDFromBytes(data[:types.SizeOfPageID])
	count := int(types.NewUInt32FromBytes(data[types.SizeOfPageID:metadataHeaderSize]))
	if want := metadataHeaderSize + count*types.SizeOfPageID; len(data) != want {
		return nil, errors.Wrapf(types.ErrMetadataCorrupt, "%d free ids need %d bytes, record has %d", count, want, len(data))
	}
	if !nextPageID.IsValid() {
		return nil, errors.Wrap(types.ErrMetadataCorrupt, "next page id is invalid")
	}

	seen := mapset.NewThreadUnsafeSet[types.PageID]()
	freePageIDs := make([]types.PageID, 0, count)
	for i := 0; i < count; i++ {
		offset := metadataHeaderSize + i*types.SizeOfPageID
		pageID := types.NewPageIDFromBytes(data[offset : offset+types.SizeOfPageID])
		if !pageID.IsValid() || pageID >= nextPageID {
			return nil, errors.Wrapf(types.ErrMetadataCorrupt, "free page id %d with next page id %d", pageID, nextPageID)
		}
		if !seen.Add(pageID) {
			return nil, errors.Wrapf(types.ErrMetadataCorrupt, "free page id %d listed twice", pageID)
		}
		freePageIDs = append(freePageIDs, pageID)
	}

	return &Metadata{nextPageID, freePageIDs}, nil
}

// loadMetadata reads the record at path. A missing file is a fresh database.
func loadMetadata(fs disk.FileSystem, path string) (*Metadata, error) {
	if !samehada_util.FileExists(fs, path) {
		return NewMetadata(), nil
	}

	size, err := fs.Size(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	file, err := fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	data := make([]byte, size)
	if n, err := file.ReadAt(data, 0); n < len(data) {
		return nil, errors.Wrapf(types.ErrMetadataCorrupt, "read %d of %d bytes from %s: %v", n, size, path, err)
	}
	return DeserializeMetadata(data)
}

// saveMetadata writes the record to a temporary file and renames it over
// path, so an interrupted save leaves the previous record intact.
func saveMetadata(fs disk.FileSystem, path string, m *Metadata) error {
	tmpPath := path + tmpSuffix
	if err := writeMetadataFile(fs, tmpPath, m.Serialize()); err != nil {
		return errors.Wrapf(err, "save metadata to %s", path)
	}
	return errors.Wrapf(fs.Rename(tmpPath, path), "save metadata to %s", path)
}

func writeMetadataFile(fs disk.FileSystem, path string, data []byte) error {
	file, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	n, err := file.Write(data)
	if err == nil && n != len(data) {
		err = types.ErrShortWrite
	}
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return err
}
