// Package vm implements the quill bytecode and the stack machine that runs it.
//
// This package contains:
//   - the closed instruction set and its metadata table
//   - Chunk, the immutable compiled program, and its disassembler
//   - the VM: operand stack, frame-addressed locals, relative branches
//   - Fault, the unrecoverable runtime error
//   - Profiler, per-instruction execution counts
package vm
