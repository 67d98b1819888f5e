package types

import (
	"bytes"
	"encoding/binary"
)

// PageID is the type of the page identifier
type PageID uint32

// InvalidPageID represents an unallocated page. Real ids start at 1.
const InvalidPageID = PageID(0)

const SizeOfPageID = 4

// IsValid checks if id is valid
func (id PageID) IsValid() bool {
	return id != InvalidPageID
}

// Serialize casts it to []byte
func (id PageID) Serialize() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, id)
	return buf.Bytes()
}

// NewPageIDFromBytes creates a page id from []byte
func NewPageIDFromBytes(data []byte) (ret PageID) {
	binary.Read(bytes.NewBuffer(data), binary.LittleEndian, &ret)
	return ret
}
