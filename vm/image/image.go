// Package image implements the on-disk format for compiled quill programs.
// An image is a CBOR document carrying a chunk, the content hash of the
// program it was compiled from, and whether the optimizer produced it.
package image

import (
	"errors"
	"fmt"
	"os"

	"github.com/chazu/quill/vm"
	"github.com/fxamacker/cbor/v2"
)

// Magic identifies a quill image.
const Magic = "quill"

// FormatVersion is bumped whenever the image layout or the opcode numbering
// changes.
const FormatVersion uint8 = 1

// ErrBadImage is wrapped by every decoding and validation failure.
var ErrBadImage = errors.New("bad image")

// Image is a serialized compiled program.
type Image struct {
	Magic      string    `cbor:"1,keyasint"`
	Version    uint8     `cbor:"2,keyasint"`
	SourceHash [32]byte  `cbor:"3,keyasint"`
	Optimized  bool      `cbor:"4,keyasint"`
	NumSlots   int       `cbor:"5,keyasint"`
	SlotNames  []string  `cbor:"6,keyasint,omitempty"`
	Code       []vm.Insn `cbor:"7,keyasint"`
	BuildID    string    `cbor:"8,keyasint,omitempty"`
}

// cborEncMode uses canonical mode so equal images encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// New wraps a chunk compiled from the program with the given hash.
func New(chunk *vm.Chunk, sourceHash [32]byte, optimized bool) *Image {
	return &Image{
		Magic:      Magic,
		Version:    FormatVersion,
		SourceHash: sourceHash,
		Optimized:  optimized,
		NumSlots:   chunk.NumSlots,
		SlotNames:  chunk.SlotNames,
		Code:       chunk.Code,
	}
}

// Chunk returns the program carried by the image.
func (img *Image) Chunk() *vm.Chunk {
	return &vm.Chunk{
		Code:      img.Code,
		NumSlots:  img.NumSlots,
		SlotNames: img.SlotNames,
	}
}

// Verify checks the header and the chunk's branch and slot operands.
func (img *Image) Verify() error {
	if img.Magic != Magic {
		return fmt.Errorf("%w: magic %q", ErrBadImage, img.Magic)
	}
	if img.Version != FormatVersion {
		return fmt.Errorf("%w: format version %d, want %d", ErrBadImage, img.Version, FormatVersion)
	}
	if img.NumSlots < 0 {
		return fmt.Errorf("%w: negative slot count", ErrBadImage)
	}
	if err := img.Chunk().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return nil
}

// Marshal serializes an Image to canonical CBOR bytes.
func Marshal(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// Unmarshal deserializes and verifies an Image.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if err := img.Verify(); err != nil {
		return nil, err
	}
	return &img, nil
}

// WriteFile writes img to path and returns the number of bytes written.
func WriteFile(path string, img *Image) (int, error) {
	data, err := Marshal(img)
	if err != nil {
		return 0, fmt.Errorf("image: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("image: %w", err)
	}
	return len(data), nil
}

// ReadFile reads and verifies the image at path.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	img, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", path, err)
	}
	return img, nil
}
