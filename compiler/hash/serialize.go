package hash

import (
	"encoding/binary"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of the frozen hashing AST.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Integers: big-endian fixed-width (int64=8B, uint32=4B)
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Lists: uint32 big-endian count, then elements
//   - Child nodes: serialized inline (flat)
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of an HNode tree.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(node HNode) []byte {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	s.serializeNode(node)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) serializeNode(node HNode) {
	switch n := node.(type) {
	case *HIntLiteral:
		s.writeByte(TagIntLiteral)
		s.writeInt64(n.Value)

	case *HSlotRef:
		s.writeByte(TagSlotRef)
		s.writeUint32(n.Slot)

	case *HFreeVar:
		s.writeByte(TagFreeVar)
		s.writeString(n.Name)

	case *HBinary:
		s.writeByte(TagBinary)
		s.writeByte(n.Op)
		s.serializeNode(n.Left)
		s.serializeNode(n.Right)

	case *HInput:
		s.writeByte(TagInput)
		s.serializeNode(n.Index)

	case *HAssign:
		s.writeByte(TagAssign)
		s.writeUint32(n.Slot)
		s.serializeNode(n.Value)

	case *HPrint:
		s.writeByte(TagPrint)
		s.serializeNode(n.Value)

	case *HIf:
		s.writeByte(TagIf)
		s.serializeNode(n.Cond)
		s.serializeNode(n.Then)
		s.serializeNode(n.Else)

	case *HWhile:
		s.writeByte(TagWhile)
		s.serializeNode(n.Cond)
		s.serializeNode(n.Body)

	case *HBlock:
		s.writeByte(TagBlock)
		s.writeUint32(uint32(len(n.Stmts)))
		for _, stmt := range n.Stmts {
			s.serializeNode(stmt)
		}

	case *HProgram:
		s.writeByte(TagProgram)
		s.writeUint32(n.NumSlots)
		s.serializeNode(n.Body)
	}
}
