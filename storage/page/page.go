// this code is derived from https://github.com/brunocalza/go-bustub

package page

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/ryogrid/SamehadaPager/common"
	"github.com/ryogrid/SamehadaPager/types"
	"github.com/spaolacci/murmur3"
)

// header layout. every field is a little endian uint32.
const (
	OffsetPageId     = 0
	OffsetFreeOffset = 4
	OffsetPrevPageId = 8
	OffsetNextPageId = 12
)

/**
 * Block is what the disk and file layers need from a page: its identity and
 * bounded access to its bytes. Nothing outside this package touches the
 * header fields directly.
 */
type Block interface {
	GetPageId() types.PageID
	ReadData(offset uint32, buf []byte) bool
	WriteData(offset uint32, data []byte) bool
	Serialize() []byte
}

// Page is a fixed size block: 16 byte header followed by the payload
type Page struct {
	id         types.PageID           // never changes after allocation
	freeOffset uint32                 // within [PageHeaderSize, PageSize]
	prevPageId types.PageID           // InvalidPageID when unlinked
	nextPageId types.PageID           // InvalidPageID when unlinked
	data       *[common.PageSize]byte // header area is only filled by Serialize
}

// GetPageId returns the page id
func (p *Page) GetPageId() types.PageID {
	return p.id
}

func (p *Page) GetFreeOffset() uint32 {
	return p.freeOffset
}

// SetFreeOffset rejects offsets outside of [PageHeaderSize, PageSize]
func (p *Page) SetFreeOffset(offset uint32) bool {
	if offset < common.PageHeaderSize || offset > common.PageSize {
		return false
	}
	p.freeOffset = offset
	return true
}

func (p *Page) GetPrevPageId() types.PageID {
	return p.prevPageId
}

func (p *Page) SetPrevPageId(id types.PageID) {
	p.prevPageId = id
}

func (p *Page) GetNextPageId() types.PageID {
	return p.nextPageId
}

func (p *Page) SetNextPageId(id types.PageID) {
	p.nextPageId = id
}

func inPayload(offset uint32, length int) bool {
	return uint64(offset)+uint64(length) <= common.PagePayloadSize
}

// WriteData copies data into the payload at offset. The free offset is raised
// to cover the written range. Nothing is modified when the range does not fit.
func (p *Page) WriteData(offset uint32, data []byte) bool {
	if data == nil || !inPayload(offset, len(data)) {
		return false
	}
	start := common.PageHeaderSize + offset
	copy(p.data[start:], data)
	if end := start + uint32(len(data)); end > p.freeOffset {
		p.freeOffset = end
	}
	return true
}

// ReadData fills buf with len(buf) payload bytes starting at offset
func (p *Page) ReadData(offset uint32, buf []byte) bool {
	if buf == nil || !inPayload(offset, len(buf)) {
		return false
	}
	start := common.PageHeaderSize + offset
	copy(buf, p.data[start:start+uint32(len(buf))])
	return true
}

// Payload returns a copy of the bytes after the header
func (p *Page) Payload() []byte {
	ret := make([]byte, common.PagePayloadSize)
	copy(ret, p.data[common.PageHeaderSize:])
	return ret
}

// Serialize packs the header into the raw buffer and returns a copy of it
func (p *Page) Serialize() []byte {
	binary.LittleEndian.PutUint32(p.data[OffsetPageId:], uint32(p.id))
	binary.LittleEndian.PutUint32(p.data[OffsetFreeOffset:], p.freeOffset)
	binary.LittleEndian.PutUint32(p.data[OffsetPrevPageId:], uint32(p.prevPageId))
	binary.LittleEndian.PutUint32(p.data[OffsetNextPageId:], uint32(p.nextPageId))

	ret := make([]byte, common.PageSize)
	copy(ret, p.data[:])
	return ret
}

// Deserialize is the inverse of Serialize. raw must be exactly one page.
func Deserialize(raw []byte) (*Page, error) {
	if len(raw) != common.PageSize {
		return nil, errors.Wrapf(types.ErrShortPage, "got %d bytes", len(raw))
	}

	freeOffset := binary.LittleEndian.Uint32(raw[OffsetFreeOffset:])
	if freeOffset < common.PageHeaderSize || freeOffset > common.PageSize {
		return nil, errors.Wrapf(types.ErrCorruptPage, "free offset %d", freeOffset)
	}

	data := new([common.PageSize]byte)
	copy(data[:], raw)
	return &Page{
		id:         types.PageID(binary.LittleEndian.Uint32(raw[OffsetPageId:])),
		freeOffset: freeOffset,
		prevPageId: types.PageID(binary.LittleEndian.Uint32(raw[OffsetPrevPageId:])),
		nextPageId: types.PageID(binary.LittleEndian.Uint32(raw[OffsetNextPageId:])),
		data:       data,
	}, nil
}

// Overwrite replaces everything but the page id with src's content
func (p *Page) Overwrite(src *Page) {
	p.freeOffset = src.freeOffset
	p.prevPageId = src.prevPageId
	p.nextPageId = src.nextPageId
	copy(p.data[common.PageHeaderSize:], src.data[common.PageHeaderSize:])
}

// Clone returns a deep copy that shares nothing with p
func (p *Page) Clone() *Page {
	data := *p.data
	return &Page{p.id, p.freeOffset, p.prevPageId, p.nextPageId, &data}
}

// Checksum is a murmur3 fingerprint of the serialized page
func (p *Page) Checksum() uint64 {
	return murmur3.Sum64(p.Serialize())
}

// NewEmpty creates a blank page with a zero filled payload
func NewEmpty(id types.PageID) *Page {
	return &Page{id, common.PageHeaderSize, types.InvalidPageID, types.InvalidPageID, &[common.PageSize]byte{}}
}
