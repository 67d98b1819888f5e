package types

import (
	"bytes"
	"encoding/binary"
)

type UInt32 uint32

const SizeOfUInt32 = 4

// Serialize casts it to []byte
func (v UInt32) Serialize() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func NewUInt32FromBytes(data []byte) (ret UInt32) {
	binary.Read(bytes.NewBuffer(data), binary.LittleEndian, &ret)
	return ret
}
