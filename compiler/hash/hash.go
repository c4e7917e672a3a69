package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/quill/compiler"
)

// HashProgram computes the SHA-256 content hash of a program.
//
// The hash is computed over a deterministic serialization of the program's
// normalized AST, with variables replaced by their slot indices. Two
// programs that differ only in variable names produce the same hash.
func HashProgram(prog *compiler.Program) [32]byte {
	data := Serialize(NormalizeProgram(prog))
	return sha256.Sum256(data)
}

// String renders a content hash as lowercase hex.
func String(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
