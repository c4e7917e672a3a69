package hash

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestSerialize_Deterministic(t *testing.T) {
	node := &HProgram{
		NumSlots: 1,
		Body: &HBlock{Stmts: []HNode{
			&HAssign{Slot: 0, Value: &HInput{Index: &HIntLiteral{Value: 0}}},
			&HPrint{Value: &HBinary{Op: OpByteAdd, Left: &HSlotRef{Slot: 0}, Right: &HIntLiteral{Value: 42}}},
		}},
	}

	data1 := Serialize(node)
	data2 := Serialize(node)

	if !bytes.Equal(data1, data2) {
		t.Error("serialization is not deterministic")
	}
}

func TestSerialize_VersionPrefix(t *testing.T) {
	data := Serialize(&HBlock{})
	if len(data) < 1 {
		t.Fatal("empty serialization")
	}
	if data[0] != HashVersion {
		t.Errorf("version prefix: got 0x%02X, want 0x%02X", data[0], HashVersion)
	}
}

func TestSerialize_IntLiteral(t *testing.T) {
	data := Serialize(&HIntLiteral{Value: -2})

	// version(1) + tag(1) + int64(8) = 10
	if len(data) != 10 {
		t.Fatalf("length: got %d, want 10", len(data))
	}
	if data[1] != TagIntLiteral {
		t.Errorf("tag: got 0x%02X, want 0x%02X", data[1], TagIntLiteral)
	}
	if got := int64(binary.BigEndian.Uint64(data[2:])); got != -2 {
		t.Errorf("value: got %d, want -2", got)
	}
}

func TestSerialize_Binary(t *testing.T) {
	data := Serialize(&HBinary{Op: OpByteMul, Left: &HSlotRef{Slot: 3}, Right: &HFreeVar{Name: "q"}})
	want := []byte{
		HashVersion,
		TagBinary, OpByteMul,
		TagSlotRef, 0, 0, 0, 3,
		TagFreeVar, 0, 0, 0, 1, 'q',
	}
	if !bytes.Equal(data, want) {
		t.Errorf("got % X\nwant % X", data, want)
	}
}

func TestSerialize_BlockCountPrefix(t *testing.T) {
	empty := Serialize(&HWhile{Cond: &HIntLiteral{}, Body: &HBlock{}})
	one := Serialize(&HWhile{Cond: &HIntLiteral{}, Body: &HBlock{Stmts: []HNode{&HPrint{Value: &HIntLiteral{}}}}})
	if bytes.Equal(empty, one) {
		t.Error("block contents must affect serialization")
	}
	// while(1) + int(9) + block tag(1) + count(4)
	if len(empty) != 1+1+9+1+4 {
		t.Errorf("empty while length = %d", len(empty))
	}
}
