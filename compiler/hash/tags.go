package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the hashing AST serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// every cached image keyed by a content hash.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// AST node type tags. Each tag uniquely identifies a node kind in the
// serialized byte stream.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Expressions
	TagIntLiteral byte = 0x01
	TagSlotRef    byte = 0x02
	TagFreeVar    byte = 0x03
	TagBinary     byte = 0x04
	TagInput      byte = 0x05

	// Reserved 0x06-0x0F

	// Statements / structure
	TagAssign  byte = 0x10
	TagPrint   byte = 0x11
	TagIf      byte = 0x12
	TagWhile   byte = 0x13
	TagBlock   byte = 0x14
	TagProgram byte = 0x15

	// Reserved 0xFE-0xFF
)

// Operator bytes inside a TagBinary node.
const (
	OpByteAdd byte = 0x01
	OpByteSub byte = 0x02
	OpByteMul byte = 0x03
	OpByteLt  byte = 0x04
	OpByteGt  byte = 0x05
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagIntLiteral, TagSlotRef, TagFreeVar, TagBinary, TagInput,
	TagAssign, TagPrint, TagIf, TagWhile, TagBlock, TagProgram,
}
